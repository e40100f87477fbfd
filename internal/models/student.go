package models

import "time"

// Student represents a person taught by the tutor.
type Student struct {
	// ID is the unique identifier for the student (UUID format).
	ID string `json:"id"`

	// Name is the student's full name.
	Name string `json:"name" validate:"required"`

	// Phone is used for client messaging.
	Phone string `json:"phone"`

	// Grade is a free-form grade or level tag.
	Grade string `json:"grade"`

	// LessonFee is the default unit price of one lesson.
	LessonFee float64 `json:"lessonFee" validate:"gte=0"`

	// Gender is a free-form tag.
	Gender string `json:"gender"`

	// Balance is the signed net amount the student owes the tutor.
	// Positive means the student owes money. It is a cached projection of
	// lessons and payments and is only written by the ledger.
	Balance float64 `json:"balance"`

	Notes     string `json:"notes"`
	Homework  string `json:"homework"`
	LastTopic string `json:"lastTopic"`

	// CreatedAt is when the student was added.
	CreatedAt time.Time `json:"createdAt"`

	// Schedule is the optional weekly lesson plan.
	Schedule []ScheduleSlot `json:"schedule,omitempty" validate:"omitempty,dive"`

	// RemainingLessons is the count of prepaid package credits.
	// A new lesson consumes one credit while it is positive.
	RemainingLessons int `json:"remainingLessons,omitempty" validate:"gte=0"`

	// Metrics are optional progress trackers.
	Metrics []Metric `json:"metrics,omitempty" validate:"omitempty,dive"`

	EvaluationNote string `json:"evaluationNote,omitempty"`
	MeetingLink    string `json:"meetingLink,omitempty"`
	Image          string `json:"image,omitempty"`
	Status         string `json:"status,omitempty"`
}

// ScheduleSlot is a recurring weekly time.
type ScheduleSlot struct {
	// Weekday is 0 (Sunday) through 6 (Saturday).
	Weekday int `json:"day" validate:"min=0,max=6"`

	// Time is the local start time in "HH:MM" form.
	Time string `json:"time" validate:"clock"`
}

// MetricType selects how a metric's observations are scored.
type MetricType string

const (
	MetricStar       MetricType = "star"
	MetricNumeric    MetricType = "numeric"
	MetricPercentage MetricType = "percentage"
)

// Metric is a named progress tracker holding time-ordered observations.
type Metric struct {
	ID      string        `json:"id"`
	Name    string        `json:"name" validate:"required"`
	Type    MetricType    `json:"type" validate:"oneof=star numeric percentage"`
	Entries []MetricEntry `json:"entries"`
}

// MetricEntry is one scored observation.
type MetricEntry struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
	Note  string    `json:"note,omitempty"`
}

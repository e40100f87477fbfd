package models

import "time"

// LessonType distinguishes one-to-one lessons from group sessions.
type LessonType string

const (
	LessonIndividual LessonType = "individual"
	LessonGroup      LessonType = "group"
)

// Lesson is a single taught session charged to one student.
// Lessons are immutable once recorded.
type Lesson struct {
	// ID is the unique identifier for the lesson (UUID format).
	ID string `json:"id"`

	// StudentID is the student charged for the lesson.
	StudentID string `json:"studentId" validate:"required"`

	// StudentName is a snapshot of the student's name at creation time.
	// It is not kept in sync with later renames.
	StudentName string `json:"studentName"`

	// Date is when the lesson took place.
	Date time.Time `json:"date" validate:"required"`

	// Fee is the amount charged. Zero when a package credit covered the lesson.
	Fee float64 `json:"fee" validate:"gte=0"`

	// Topic is an optional description of what was covered.
	Topic string `json:"topic,omitempty"`

	// Type is either individual or group.
	Type LessonType `json:"type" validate:"oneof=individual group"`

	// GroupID links group lessons to their group.
	GroupID string `json:"groupId,omitempty"`

	// PackageCredit is true when a prepaid credit paid for the lesson.
	PackageCredit bool `json:"packageCredit,omitempty"`
}

package persistence

import (
	"context"

	"github.com/mmynk/tutorledger/internal/models"
)

// Snapshot is every collection as read from storage.
type Snapshot struct {
	Teacher  *models.Teacher
	Students []models.Student
	Lessons  []models.Lesson
	Payments []models.Payment
	Groups   []models.Group
	Settings models.Settings
}

// Load reads every collection.
func (s *Service) Load(ctx context.Context) Snapshot {
	return Snapshot{
		Teacher:  s.Teacher(ctx),
		Students: s.Students(ctx),
		Lessons:  s.Lessons(ctx),
		Payments: s.Payments(ctx),
		Groups:   s.Groups(ctx),
		Settings: s.Settings(ctx),
	}
}

// Teacher returns the teacher profile, or nil before onboarding.
func (s *Service) Teacher(ctx context.Context) *models.Teacher {
	return Get[*models.Teacher](ctx, s, KeyTeacher, nil)
}

// SaveTeacher stores the teacher profile.
func (s *Service) SaveTeacher(ctx context.Context, teacher *models.Teacher) error {
	return s.Save(ctx, KeyTeacher, teacher)
}

// Students returns all students.
func (s *Service) Students(ctx context.Context) []models.Student {
	return nonNil(Get[[]models.Student](ctx, s, KeyStudents, nil))
}

// SaveStudents stores the full student list.
func (s *Service) SaveStudents(ctx context.Context, students []models.Student) error {
	return s.Save(ctx, KeyStudents, nonNil(students))
}

// Lessons returns all lessons.
func (s *Service) Lessons(ctx context.Context) []models.Lesson {
	return nonNil(Get[[]models.Lesson](ctx, s, KeyLessons, nil))
}

// SaveLessons stores the full lesson list.
func (s *Service) SaveLessons(ctx context.Context, lessons []models.Lesson) error {
	return s.Save(ctx, KeyLessons, nonNil(lessons))
}

// Payments returns all payments.
func (s *Service) Payments(ctx context.Context) []models.Payment {
	return nonNil(Get[[]models.Payment](ctx, s, KeyPayments, nil))
}

// SavePayments stores the full payment list.
func (s *Service) SavePayments(ctx context.Context, payments []models.Payment) error {
	return s.Save(ctx, KeyPayments, nonNil(payments))
}

// Groups returns all groups.
func (s *Service) Groups(ctx context.Context) []models.Group {
	return nonNil(Get[[]models.Group](ctx, s, KeyGroups, nil))
}

// SaveGroups stores the full group list.
func (s *Service) SaveGroups(ctx context.Context, groups []models.Group) error {
	return s.Save(ctx, KeyGroups, nonNil(groups))
}

// Settings returns the settings, filling unset fields with defaults.
func (s *Service) Settings(ctx context.Context) models.Settings {
	defaults := models.DefaultSettings()
	settings := Get(ctx, s, KeySettings, defaults)

	if settings.Currency == "" {
		settings.Currency = defaults.Currency
	}
	if settings.Category == "" {
		settings.Category = defaults.Category
	}
	if settings.Language == "" {
		settings.Language = defaults.Language
	}
	settings.BlockedSlots = nonNil(settings.BlockedSlots)
	settings.Availability = nonNil(settings.Availability)
	return settings
}

// SaveSettings stores the settings.
func (s *Service) SaveSettings(ctx context.Context, settings models.Settings) error {
	return s.Save(ctx, KeySettings, settings)
}

func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}

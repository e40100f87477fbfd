package ledger

import (
	"slices"

	"github.com/mmynk/tutorledger/internal/models"
)

// Teacher returns the teacher profile, or nil before onboarding.
func (l *Ledger) Teacher() *models.Teacher {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.state.Teacher == nil {
		return nil
	}
	t := *l.state.Teacher
	return &t
}

// Students returns all students.
func (l *Ledger) Students() []models.Student {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.state.Students)
}

// Student returns one student.
func (l *Ledger) Student(id string) (models.Student, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	i := l.studentIndex(l.state.Students, id)
	if i < 0 {
		return models.Student{}, ErrStudentNotFound
	}
	return l.state.Students[i], nil
}

// Groups returns all groups.
func (l *Ledger) Groups() []models.Group {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.state.Groups)
}

// Group returns one group.
func (l *Ledger) Group(id string) (models.Group, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	i := l.groupIndex(l.state.Groups, id)
	if i < 0 {
		return models.Group{}, ErrGroupNotFound
	}
	return l.state.Groups[i], nil
}

// Lessons returns all lessons in insertion order.
func (l *Ledger) Lessons() []models.Lesson {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.state.Lessons)
}

// Payments returns all payments in insertion order.
func (l *Ledger) Payments() []models.Payment {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.state.Payments)
}

// PaymentsFor returns one student's payments.
func (l *Ledger) PaymentsFor(studentID string) []models.Payment {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := []models.Payment{}
	for _, p := range l.state.Payments {
		if p.StudentID == studentID {
			out = append(out, p)
		}
	}
	return out
}

// Settings returns the current settings.
func (l *Ledger) Settings() models.Settings {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Settings
}

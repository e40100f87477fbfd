// Package ledger is the in-memory authority over students, groups, lessons and
// payments. It keeps every student's balance equal to their lesson fees minus
// their payments and writes each logical change to storage as one atomic unit.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mmynk/tutorledger/internal/calculator"
	"github.com/mmynk/tutorledger/internal/message"
	"github.com/mmynk/tutorledger/internal/models"
	"github.com/mmynk/tutorledger/internal/persistence"
)

var (
	// ErrStudentNotFound is returned when no live student has the given ID.
	ErrStudentNotFound = errors.New("student not found")

	// ErrGroupNotFound is returned when no group has the given ID.
	ErrGroupNotFound = errors.New("group not found")

	// ErrDuplicateID means the ID is already used by a record or by history.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrInvalid wraps every input validation failure.
	ErrInvalid = errors.New("invalid input")
)

// Repository is the persistence the ledger needs.
type Repository interface {
	Load(ctx context.Context) persistence.Snapshot
	SaveMany(ctx context.Context, values map[string]any) error
	ClearAll(ctx context.Context) error
}

// Ensure persistence.Service implements Repository
var _ Repository = (*persistence.Service)(nil)

// Options configures a Ledger.
type Options struct {
	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// NewID defaults to random UUIDs.
	NewID func() string

	// Now defaults to time.Now.
	Now func() time.Time
}

// Ledger holds the current data set. Mutations are serialized; each one builds
// the next state on copies, saves it, and only then replaces the current state,
// so a failed save leaves memory matching storage.
type Ledger struct {
	repo     Repository
	validate *validator.Validate
	logger   *slog.Logger
	newID    func() string
	now      func() time.Time

	mu    sync.RWMutex
	state persistence.Snapshot
}

// New creates an empty Ledger. Call Load to read stored data.
func New(repo Repository, opts Options) *Ledger {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.New().String() }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Ledger{
		repo:     repo,
		validate: newValidator(),
		logger:   opts.Logger,
		newID:    opts.NewID,
		now:      opts.Now,
		state:    emptyState(),
	}
}

func emptyState() persistence.Snapshot {
	return persistence.Snapshot{
		Students: []models.Student{},
		Lessons:  []models.Lesson{},
		Payments: []models.Payment{},
		Groups:   []models.Group{},
		Settings: models.DefaultSettings(),
	}
}

// Load reads every collection and recomputes balances from lessons and
// payments. Balances that drifted from the stored value are corrected and saved.
func (l *Ledger) Load(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.repo.Load(ctx)
	drifted := reconcileBalances(next.Students, next.Lessons, next.Payments)

	l.logger.Debug("Ledger loaded",
		"students", len(next.Students),
		"lessons", len(next.Lessons),
		"payments", len(next.Payments),
		"groups", len(next.Groups),
	)

	if len(drifted) == 0 {
		l.state = next
		return nil
	}

	l.logger.Warn("Corrected drifted balances", "student_ids", drifted)
	if err := l.commit(ctx, next, persistence.KeyStudents); err != nil {
		// Balances are derived, so memory may run ahead of storage here.
		l.state = next
		return fmt.Errorf("failed to save corrected balances: %w", err)
	}
	return nil
}

// reconcileBalances sets each student's balance from lessons and payments in
// place and returns the IDs whose balance changed.
func reconcileBalances(students []models.Student, lessons []models.Lesson, payments []models.Payment) []string {
	balances := calculator.CalculateStudentBalances(lessons, payments)

	var drifted []string
	for i := range students {
		want := balances[students[i].ID].NetBalance
		if !calculator.SameAmount(students[i].Balance, want) {
			drifted = append(drifted, students[i].ID)
		}
		students[i].Balance = want
	}
	return drifted
}

// commit saves the listed collections of next in one write and installs next.
// Callers hold l.mu.
func (l *Ledger) commit(ctx context.Context, next persistence.Snapshot, keys ...string) error {
	values := make(map[string]any, len(keys))
	for _, key := range keys {
		switch key {
		case persistence.KeyTeacher:
			values[key] = next.Teacher
		case persistence.KeyStudents:
			values[key] = next.Students
		case persistence.KeyLessons:
			values[key] = next.Lessons
		case persistence.KeyPayments:
			values[key] = next.Payments
		case persistence.KeyGroups:
			values[key] = next.Groups
		case persistence.KeySettings:
			values[key] = next.Settings
		default:
			return fmt.Errorf("unknown collection %q", key)
		}
	}

	if err := l.repo.SaveMany(ctx, values); err != nil {
		return err
	}
	l.state = next
	return nil
}

func (l *Ledger) studentIndex(students []models.Student, id string) int {
	return slices.IndexFunc(students, func(s models.Student) bool { return s.ID == id })
}

func (l *Ledger) groupIndex(groups []models.Group, id string) int {
	return slices.IndexFunc(groups, func(g models.Group) bool { return g.ID == id })
}

// Reset deletes all stored data and starts over with defaults.
func (l *Ledger) Reset(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.repo.ClearAll(ctx); err != nil {
		return fmt.Errorf("failed to reset: %w", err)
	}
	l.state = emptyState()
	l.logger.Info("Ledger reset")
	return nil
}

// ReplaceAll overwrites teacher, students, lessons, payments and groups with
// data in one write. Settings are kept. Balances are recomputed.
func (l *Ledger) ReplaceAll(ctx context.Context, data models.Dataset) error {
	// The sanitized copy shares no slices with the caller.
	data, err := sanitize(data)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	next := persistence.Snapshot{
		Teacher:  data.Teacher,
		Students: nonNil(data.Students),
		Lessons:  nonNil(data.Lessons),
		Payments: nonNil(data.Payments),
		Groups:   nonNil(data.Groups),
		Settings: l.state.Settings,
	}
	if drifted := reconcileBalances(next.Students, next.Lessons, next.Payments); len(drifted) > 0 {
		l.logger.Warn("Imported balances did not match history", "student_ids", drifted)
	}

	err = l.commit(ctx, next,
		persistence.KeyTeacher,
		persistence.KeyStudents,
		persistence.KeyLessons,
		persistence.KeyPayments,
		persistence.KeyGroups,
	)
	if err != nil {
		return fmt.Errorf("failed to replace data: %w", err)
	}
	l.logger.Info("Data replaced",
		"students", len(next.Students),
		"lessons", len(next.Lessons),
		"payments", len(next.Payments),
		"groups", len(next.Groups),
	)
	return nil
}

// Message builds the payment reminder for a student.
func (l *Ledger) Message(studentID string) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	i := l.studentIndex(l.state.Students, studentID)
	if i < 0 {
		return "", ErrStudentNotFound
	}
	return message.Build(message.Input{
		Teacher:  l.state.Teacher,
		Student:  l.state.Students[i],
		Lessons:  l.state.Lessons,
		Settings: l.state.Settings,
	}), nil
}

// PaidStatus returns the student's lessons oldest first with FIFO paid flags.
func (l *Ledger) PaidStatus(studentID string) ([]calculator.LessonStatus, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.studentIndex(l.state.Students, studentID) < 0 {
		return nil, ErrStudentNotFound
	}
	return calculator.PaidStatus(studentID, l.state.Lessons, l.state.Payments), nil
}

func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}

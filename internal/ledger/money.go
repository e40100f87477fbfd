package ledger

import (
	"context"
	"fmt"
	"slices"

	"github.com/mmynk/tutorledger/internal/calculator"
	"github.com/mmynk/tutorledger/internal/models"
	"github.com/mmynk/tutorledger/internal/persistence"
)

// AddLesson records a lesson and charges its fee to the student. A prepaid
// package credit, when available, is consumed instead and the fee becomes zero.
func (l *Ledger) AddLesson(ctx context.Context, lesson models.Lesson) (models.Lesson, error) {
	added, err := l.AddBatchLessons(ctx, []models.Lesson{lesson})
	if err != nil {
		return models.Lesson{}, err
	}
	return added[0], nil
}

// AddBatchLessons records several lessons, typically attendance for a group
// session. All balance changes are computed in one pass and written together
// with the lessons in a single save.
func (l *Ledger) AddBatchLessons(ctx context.Context, lessons []models.Lesson) ([]models.Lesson, error) {
	if len(lessons) == 0 {
		return []models.Lesson{}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.state
	next.Students = slices.Clone(l.state.Students)
	next.Lessons = slices.Clip(l.state.Lessons)

	seen := make(map[string]bool, len(next.Lessons)+len(lessons))
	for _, existing := range next.Lessons {
		seen[existing.ID] = true
	}

	added := make([]models.Lesson, 0, len(lessons))
	for _, input := range lessons {
		lesson, err := sanitize(input)
		if err != nil {
			return nil, err
		}

		i := l.studentIndex(next.Students, lesson.StudentID)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrStudentNotFound, lesson.StudentID)
		}
		student := &next.Students[i]

		if lesson.ID == "" {
			lesson.ID = l.newID()
		}
		if seen[lesson.ID] {
			return nil, fmt.Errorf("%w: lesson %s", ErrDuplicateID, lesson.ID)
		}
		seen[lesson.ID] = true

		if lesson.StudentName == "" {
			lesson.StudentName = student.Name
		}
		if lesson.Date.IsZero() {
			lesson.Date = l.now()
		}
		if lesson.Type == "" {
			lesson.Type = models.LessonIndividual
			if lesson.GroupID != "" {
				lesson.Type = models.LessonGroup
			}
		}
		lesson.Fee = calculator.RoundMoney(lesson.Fee)
		lesson.PackageCredit = false

		if err := l.check(lesson); err != nil {
			return nil, err
		}

		if student.RemainingLessons > 0 {
			student.RemainingLessons--
			lesson.Fee = 0
			lesson.PackageCredit = true
		}
		student.Balance = calculator.RoundMoney(student.Balance + lesson.Fee)

		next.Lessons = append(next.Lessons, lesson)
		added = append(added, lesson)
	}

	if err := l.commit(ctx, next, persistence.KeyLessons, persistence.KeyStudents); err != nil {
		return nil, fmt.Errorf("failed to save lessons: %w", err)
	}

	for _, lesson := range added {
		l.logger.Info("Lesson added",
			"lesson_id", lesson.ID,
			"student_id", lesson.StudentID,
			"fee", lesson.Fee,
			"package_credit", lesson.PackageCredit,
		)
	}
	return added, nil
}

// AddPayment records money received and subtracts it from the student's balance.
func (l *Ledger) AddPayment(ctx context.Context, payment models.Payment) (models.Payment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.state
	next.Students = slices.Clone(l.state.Students)

	p, err := l.preparePayment(&next, payment)
	if err != nil {
		return models.Payment{}, err
	}

	if err := l.commit(ctx, next, persistence.KeyPayments, persistence.KeyStudents); err != nil {
		return models.Payment{}, fmt.Errorf("failed to save payment: %w", err)
	}

	l.logger.Info("Payment added", "payment_id", p.ID, "student_id", p.StudentID, "amount", p.Amount)
	return p, nil
}

// preparePayment validates payment, appends it to next and updates the balance.
func (l *Ledger) preparePayment(next *persistence.Snapshot, payment models.Payment) (models.Payment, error) {
	payment, err := sanitize(payment)
	if err != nil {
		return models.Payment{}, err
	}

	i := l.studentIndex(next.Students, payment.StudentID)
	if i < 0 {
		return models.Payment{}, fmt.Errorf("%w: %s", ErrStudentNotFound, payment.StudentID)
	}
	student := &next.Students[i]

	if payment.ID == "" {
		payment.ID = l.newID()
	}
	if slices.ContainsFunc(next.Payments, func(p models.Payment) bool { return p.ID == payment.ID }) {
		return models.Payment{}, fmt.Errorf("%w: payment %s", ErrDuplicateID, payment.ID)
	}
	if payment.StudentName == "" {
		payment.StudentName = student.Name
	}
	if payment.Date.IsZero() {
		payment.Date = l.now()
	}
	payment.Amount = calculator.RoundMoney(payment.Amount)

	if err := l.check(payment); err != nil {
		return models.Payment{}, err
	}

	student.Balance = calculator.RoundMoney(student.Balance - payment.Amount)
	next.Payments = append(slices.Clip(next.Payments), payment)
	return payment, nil
}

// AddPackage sells count prepaid lessons to a student. A positive price is
// recorded as an immediate payment.
func (l *Ledger) AddPackage(ctx context.Context, studentID string, count int, price float64, method models.PaymentMethod) (models.Student, error) {
	if count <= 0 {
		return models.Student{}, fmt.Errorf("%w: package must contain at least one lesson", ErrInvalid)
	}
	if price < 0 {
		return models.Student{}, fmt.Errorf("%w: package price cannot be negative", ErrInvalid)
	}
	studentID = persistence.SanitizeString(studentID)

	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.state
	next.Students = slices.Clone(l.state.Students)

	i := l.studentIndex(next.Students, studentID)
	if i < 0 {
		return models.Student{}, fmt.Errorf("%w: %s", ErrStudentNotFound, studentID)
	}
	next.Students[i].RemainingLessons += count

	keys := []string{persistence.KeyStudents}
	if price > 0 {
		_, err := l.preparePayment(&next, models.Payment{
			StudentID: studentID,
			Amount:    price,
			Method:    method,
		})
		if err != nil {
			return models.Student{}, err
		}
		keys = append(keys, persistence.KeyPayments)
	}

	if err := l.commit(ctx, next, keys...); err != nil {
		return models.Student{}, fmt.Errorf("failed to save package: %w", err)
	}

	student := next.Students[i]
	l.logger.Info("Package added",
		"student_id", studentID,
		"lessons", count,
		"price", price,
		"remaining_lessons", student.RemainingLessons,
	)
	return student, nil
}

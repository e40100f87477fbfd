package calculator

import (
	"sort"

	"github.com/mmynk/tutorledger/internal/models"
)

// LessonStatus is a lesson with its derived paid flag.
type LessonStatus struct {
	Lesson models.Lesson `json:"lesson"`
	Paid   bool          `json:"paid"`
}

// sortChronological orders lessons by date, then ID, so the result does not
// depend on input order.
func sortChronological(lessons []models.Lesson) {
	sort.SliceStable(lessons, func(i, j int) bool {
		if !lessons[i].Date.Equal(lessons[j].Date) {
			return lessons[i].Date.Before(lessons[j].Date)
		}
		return lessons[i].ID < lessons[j].ID
	})
}

// PaidStatus allocates a student's payments to their lessons first-in first-out.
//
// Algorithm:
// - Sort the student's lessons by date ascending
// - Walk them accumulating fees
// - A lesson is paid while the accumulated fees stay within the total paid
//
// Once the accumulated fees exceed the payments every later lesson is unpaid.
// The result is in chronological order. Lessons and payments of other
// students are ignored.
func PaidStatus(studentID string, lessons []models.Lesson, payments []models.Payment) []LessonStatus {
	totalPaid := 0.0
	for _, p := range payments {
		if p.StudentID == studentID {
			totalPaid = RoundMoney(totalPaid + p.Amount)
		}
	}

	var own []models.Lesson
	for _, l := range lessons {
		if l.StudentID == studentID {
			own = append(own, l)
		}
	}
	sortChronological(own)

	statuses := make([]LessonStatus, len(own))
	cumulative := 0.0
	for i, l := range own {
		cumulative = RoundMoney(cumulative + l.Fee)
		statuses[i] = LessonStatus{
			Lesson: l,
			Paid:   cumulative <= totalPaid+moneyEpsilon,
		}
	}
	return statuses
}

// OutstandingLessons picks the most recent lessons whose fees cover balance.
//
// Algorithm:
// - Sort the student's lessons by date descending
// - Skip lessons with no fee
// - Collect lessons until their summed fees reach or exceed balance
//
// This is the list quoted in payment reminders. It can differ from the unpaid
// set of PaidStatus when payments arrived out of order. Returns nil when
// nothing is owed.
func OutstandingLessons(studentID string, lessons []models.Lesson, balance float64) []models.Lesson {
	if balance <= moneyEpsilon {
		return nil
	}

	var own []models.Lesson
	for _, l := range lessons {
		if l.StudentID == studentID && l.Fee > 0 {
			own = append(own, l)
		}
	}
	sortChronological(own)

	var picked []models.Lesson
	sum := 0.0
	for i := len(own) - 1; i >= 0 && sum < balance-moneyEpsilon; i-- {
		picked = append(picked, own[i])
		sum = RoundMoney(sum + own[i].Fee)
	}
	return picked
}

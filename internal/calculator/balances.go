// Package calculator holds the pure money math of the ledger: balance
// projection and the allocation of payments to lessons.
package calculator

import (
	"math"

	"github.com/mmynk/tutorledger/internal/models"
)

// moneyEpsilon absorbs floating point noise when comparing amounts.
const moneyEpsilon = 0.005

// RoundMoney rounds an amount to cents.
func RoundMoney(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// StudentBalance is the reconciled position of one student.
type StudentBalance struct {
	StudentID  string
	TotalFees  float64 // Sum of lesson fees (package-covered lessons count 0)
	TotalPaid  float64 // Sum of payments
	NetBalance float64 // TotalFees - TotalPaid; positive = student owes money
}

// CalculateStudentBalances aggregates lessons and payments per student.
//
// Algorithm:
// - For each lesson: the student's fees grow by lesson.Fee
// - For each payment: the student's paid total grows by payment.Amount
// - Net: balance = fees - paid, rounded to cents
func CalculateStudentBalances(lessons []models.Lesson, payments []models.Payment) map[string]StudentBalance {
	balances := make(map[string]*StudentBalance)

	get := func(studentID string) *StudentBalance {
		if _, exists := balances[studentID]; !exists {
			balances[studentID] = &StudentBalance{StudentID: studentID}
		}
		return balances[studentID]
	}

	for _, lesson := range lessons {
		b := get(lesson.StudentID)
		b.TotalFees = RoundMoney(b.TotalFees + lesson.Fee)
	}
	for _, payment := range payments {
		b := get(payment.StudentID)
		b.TotalPaid = RoundMoney(b.TotalPaid + payment.Amount)
	}

	result := make(map[string]StudentBalance, len(balances))
	for id, b := range balances {
		b.NetBalance = RoundMoney(b.TotalFees - b.TotalPaid)
		result[id] = *b
	}
	return result
}

// SameAmount reports whether two amounts are equal to the cent.
func SameAmount(a, b float64) bool {
	return math.Abs(a-b) < moneyEpsilon
}

// Package message builds the payment reminder a tutor sends to a student.
package message

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mmynk/tutorledger/internal/calculator"
	"github.com/mmynk/tutorledger/internal/models"
)

const dateLayout = "Mon, Jan 2 2006"

// Input is everything a reminder needs.
type Input struct {
	Teacher  *models.Teacher
	Student  models.Student
	Lessons  []models.Lesson // May include other students' lessons
	Settings models.Settings
}

// Build renders the reminder text. When the student owes money it lists the
// most recent lessons covering the balance, newest first.
func Build(in Input) string {
	var b strings.Builder
	currency := in.Settings.Currency
	balance := calculator.RoundMoney(in.Student.Balance)

	fmt.Fprintf(&b, "Hello %s,\n\n", in.Student.Name)

	switch {
	case balance > 0:
		fmt.Fprintf(&b, "Your current balance is %s.\n", FormatAmount(currency, balance))

		outstanding := calculator.OutstandingLessons(in.Student.ID, in.Lessons, balance)
		if len(outstanding) > 0 {
			b.WriteString("Lessons pending payment:\n")
			for _, l := range outstanding {
				b.WriteString("- ")
				b.WriteString(Date(l.Date))
				if l.Topic != "" {
					b.WriteString(" (")
					b.WriteString(l.Topic)
					b.WriteString(")")
				}
				b.WriteString(": ")
				b.WriteString(FormatAmount(currency, l.Fee))
				b.WriteString("\n")
			}
		}
	case balance < 0:
		fmt.Fprintf(&b, "You have a credit of %s.\n", FormatAmount(currency, -balance))
	default:
		b.WriteString("Your balance is fully settled. Thank you!\n")
	}

	if in.Student.RemainingLessons > 0 {
		fmt.Fprintf(&b, "Prepaid lessons remaining: %d.\n", in.Student.RemainingLessons)
	}

	if in.Teacher != nil && in.Teacher.Name != "" {
		b.WriteString("\nBest regards,\n")
		b.WriteString(in.Teacher.Name)
		if in.Teacher.Subject != "" {
			b.WriteString(" (")
			b.WriteString(in.Teacher.Subject)
			b.WriteString(")")
		}
		b.WriteString("\n")
	}

	return b.String()
}

// FormatAmount renders an amount with the currency symbol, without decimals
// for whole amounts.
func FormatAmount(currency string, amount float64) string {
	amount = calculator.RoundMoney(amount)
	if amount == float64(int64(amount)) {
		return currency + strconv.FormatInt(int64(amount), 10)
	}
	return currency + strconv.FormatFloat(amount, 'f', 2, 64)
}

// Date formats a lesson date the way reminders do.
func Date(t time.Time) string {
	return t.Format(dateLayout)
}

package models

import "time"

// PaymentMethod is how a payment was made.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "Cash"
	MethodBankTransfer PaymentMethod = "Bank Transfer"
	MethodCard         PaymentMethod = "Card"
	MethodOther        PaymentMethod = "Other"
)

// Payment is money received from a student.
// Payments are not linked to lessons; allocation happens on read.
type Payment struct {
	// ID is the unique identifier for the payment (UUID format).
	ID string `json:"id"`

	// StudentID is the student who paid.
	StudentID string `json:"studentId" validate:"required"`

	// StudentName is a snapshot of the student's name at creation time.
	StudentName string `json:"studentName"`

	// Amount is the positive amount received.
	Amount float64 `json:"amount" validate:"gt=0"`

	// Date is when the payment was received.
	Date time.Time `json:"date" validate:"required"`

	// Method is optional.
	Method PaymentMethod `json:"method,omitempty" validate:"omitempty,oneof='Cash' 'Bank Transfer' 'Card' 'Other'"`
}

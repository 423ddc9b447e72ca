package finance

import (
	"strings"
	"time"

	"github.com/erp/bankrecon/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod is how money reached the school
type PaymentMethod string

const (
	PaymentMethodTransfer PaymentMethod = "TRANSFER"
	PaymentMethodCash     PaymentMethod = "CASH"
	PaymentMethodCard     PaymentMethod = "CARD"
)

// IsValid checks if the method is a known value
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodTransfer, PaymentMethodCash, PaymentMethodCard:
		return true
	}
	return false
}

// String returns the string representation
func (m PaymentMethod) String() string {
	return string(m)
}

// Payment is one unit of money movement. A nil InvoiceID marks a credit
// (anticipo) held for the student.
type Payment struct {
	shared.BaseEntity
	InvoiceID      *uuid.UUID
	StudentID      *uuid.UUID
	Amount         decimal.Decimal
	PaymentDate    time.Time
	Method         PaymentMethod
	IdempotencyKey string
	MovementID     *uuid.UUID
	Note           string
}

// NewAllocationPayment creates the payment for one allocation step of a movement
func NewAllocationPayment(key IdempotencyKey, step AllocationStep, studentID uuid.UUID, date time.Time, method PaymentMethod, note string) (*Payment, error) {
	if !step.Amount.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidArguments, "Payment amount must be positive")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidArguments, "Invalid payment method")
	}
	if key.MovementID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidArguments, "Idempotency key requires a movement")
	}
	if step.IsCredit() && studentID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidArguments, "Credit payments require a student")
	}

	p := &Payment{
		BaseEntity:     shared.NewBaseEntity(),
		Amount:         step.Amount,
		PaymentDate:    date,
		Method:         method,
		IdempotencyKey: key.String(),
		Note:           strings.TrimSpace(note),
	}
	movementID := key.MovementID
	p.MovementID = &movementID
	if studentID != uuid.Nil {
		sid := studentID
		p.StudentID = &sid
	}
	if !step.IsCredit() {
		invoiceID := step.InvoiceID
		p.InvoiceID = &invoiceID
	}
	return p, nil
}

// IsCredit returns true for payments not tied to an invoice
func (p *Payment) IsCredit() bool {
	return p.InvoiceID == nil
}

// SumPayments adds up payment amounts
func SumPayments(payments []Payment) decimal.Decimal {
	total := decimal.Zero
	for i := range payments {
		total = total.Add(payments[i].Amount)
	}
	return total
}

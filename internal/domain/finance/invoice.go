package finance

import (
	"strings"
	"time"

	"github.com/erp/bankrecon/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceState represents the aggregate state of an invoice
type InvoiceState string

const (
	InvoiceStateDraft         InvoiceState = "DRAFT"
	InvoiceStatePending       InvoiceState = "PENDING"
	InvoiceStatePartiallyPaid InvoiceState = "PARTIALLY_PAID"
	InvoiceStatePaid          InvoiceState = "PAID"
	InvoiceStateOverdue       InvoiceState = "OVERDUE"
	InvoiceStateCancelled     InvoiceState = "CANCELLED"
)

// IsValid checks if the state is a known value
func (s InvoiceState) IsValid() bool {
	switch s {
	case InvoiceStateDraft, InvoiceStatePending, InvoiceStatePartiallyPaid,
		InvoiceStatePaid, InvoiceStateOverdue, InvoiceStateCancelled:
		return true
	}
	return false
}

// String returns the string representation
func (s InvoiceState) String() string {
	return string(s)
}

// IsEligibleForPayment returns true for states that still carry collectible debt
func (s InvoiceState) IsEligibleForPayment() bool {
	switch s {
	case InvoiceStatePending, InvoiceStatePartiallyPaid, InvoiceStateOverdue:
		return true
	}
	return false
}

// EligibleInvoiceStates returns the states a FIFO walk may allocate to
func EligibleInvoiceStates() []InvoiceState {
	return []InvoiceState{InvoiceStatePending, InvoiceStatePartiallyPaid, InvoiceStateOverdue}
}

// InvoiceLine is a single charge on an invoice
type InvoiceLine struct {
	ID          uuid.UUID
	InvoiceID   uuid.UUID
	Position    int
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal
	Tax         decimal.Decimal
}

// Amount returns quantity * unit price - discount + tax
func (l InvoiceLine) Amount() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice).Sub(l.Discount).Add(l.Tax)
}

// Invoice is a student's bill. Its state and totals are derived by
// Recalculate and only ever written through ApplyLedger or Cancel.
type Invoice struct {
	shared.BaseAggregateRoot
	Number    string
	StudentID uuid.UUID
	// StudentReference is the code families quote on bank transfers
	StudentReference string
	IssueDate        time.Time
	DueDate          time.Time
	State            InvoiceState
	TotalAmount      decimal.Decimal
	PaidAmount       decimal.Decimal
	Lines            []InvoiceLine
}

// NewInvoice creates a pending invoice from its lines
func NewInvoice(number string, studentID uuid.UUID, issueDate, dueDate time.Time, lines []InvoiceLine) (*Invoice, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidArguments, "Invoice number is required")
	}
	if studentID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidArguments, "Student ID is required")
	}
	if dueDate.IsZero() {
		return nil, shared.NewDomainError(shared.CodeInvalidArguments, "Due date is required")
	}

	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Number:            number,
		StudentID:         studentID,
		IssueDate:         issueDate,
		DueDate:           dueDate,
		State:             InvoiceStatePending,
		PaidAmount:        decimal.Zero,
	}
	for i := range lines {
		line := lines[i]
		if line.ID == uuid.Nil {
			line.ID = uuid.New()
		}
		line.InvoiceID = inv.ID
		line.Position = i + 1
		inv.Lines = append(inv.Lines, line)
	}
	inv.TotalAmount = SumLines(inv.Lines)
	return inv, nil
}

// OutstandingAmount returns the unpaid balance, never negative
func (i *Invoice) OutstandingAmount() decimal.Decimal {
	out := i.TotalAmount.Sub(i.PaidAmount)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// IsEligibleForPayment returns true when funds may be applied to the invoice
func (i *Invoice) IsEligibleForPayment() bool {
	return i.State.IsEligibleForPayment() && i.OutstandingAmount().IsPositive()
}

// IsCancelled returns true if the invoice was explicitly cancelled
func (i *Invoice) IsCancelled() bool {
	return i.State == InvoiceStateCancelled
}

// ApplyLedger stores the result of Recalculate. It reports whether anything changed.
func (i *Invoice) ApplyLedger(state InvoiceState, totals LedgerTotals) bool {
	if i.State == state && i.TotalAmount.Equal(totals.Total) && i.PaidAmount.Equal(totals.Paid) {
		return false
	}
	i.State = state
	i.TotalAmount = totals.Total
	i.PaidAmount = totals.Paid
	i.UpdatedAt = time.Now()
	i.IncrementVersion()
	return true
}

// Cancel moves the invoice to the terminal cancelled state
func (i *Invoice) Cancel() error {
	if i.State == InvoiceStateCancelled {
		return shared.NewDomainError(shared.CodeInvalidState, "Invoice is already cancelled")
	}
	if i.PaidAmount.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidState, "Invoices with payments cannot be cancelled")
	}
	i.State = InvoiceStateCancelled
	i.UpdatedAt = time.Now()
	i.IncrementVersion()
	return nil
}

package finance

import (
	"fmt"
	"sort"

	"github.com/erp/bankrecon/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AllocationMode records how a plan was produced
type AllocationMode string

const (
	AllocationModeFIFO   AllocationMode = "FIFO"
	AllocationModeDirect AllocationMode = "DIRECT"
)

// AllocationStep is one payment a plan would create.
// A step with a nil InvoiceID is the credit (anticipo).
type AllocationStep struct {
	Ordinal           int
	InvoiceID         uuid.UUID
	InvoiceNumber     string
	Amount            decimal.Decimal
	OutstandingBefore decimal.Decimal
	OutstandingAfter  decimal.Decimal
}

// IsCredit returns true for the leftover step
func (s AllocationStep) IsCredit() bool {
	return s.InvoiceID == uuid.Nil
}

// Key returns the idempotency key of the step for the given movement
func (s AllocationStep) Key(movementID uuid.UUID) IdempotencyKey {
	if s.IsCredit() {
		return KeyForCredit(movementID)
	}
	return KeyForInvoice(movementID, s.Ordinal, s.InvoiceID)
}

// AllocationIssue is an invoice the walk skipped, with the reason
type AllocationIssue struct {
	InvoiceID     uuid.UUID
	InvoiceNumber string
	State         InvoiceState
	Reason        string
}

// AllocationPlan is the full outcome of distributing an amount
type AllocationPlan struct {
	Mode           AllocationMode
	StudentID      uuid.UUID
	Amount         decimal.Decimal
	Steps          []AllocationStep
	Credit         *AllocationStep
	Skipped        []AllocationIssue
	TotalAllocated decimal.Decimal
}

// AllSteps returns invoice steps followed by the credit step, if any
func (p *AllocationPlan) AllSteps() []AllocationStep {
	steps := make([]AllocationStep, 0, len(p.Steps)+1)
	steps = append(steps, p.Steps...)
	if p.Credit != nil {
		steps = append(steps, *p.Credit)
	}
	return steps
}

// HasCredit returns true when part of the amount is held as credit
func (p *AllocationPlan) HasCredit() bool {
	return p.Credit != nil
}

// CreditAmount returns the leftover amount or zero
func (p *AllocationPlan) CreditAmount() decimal.Decimal {
	if p.Credit == nil {
		return decimal.Zero
	}
	return p.Credit.Amount
}

// TouchedInvoiceIDs returns the invoices that receive money, in step order
func (p *AllocationPlan) TouchedInvoiceIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(p.Steps))
	for _, s := range p.Steps {
		ids = append(ids, s.InvoiceID)
	}
	return ids
}

func (p *AllocationPlan) addStep(inv *Invoice, amount decimal.Decimal) {
	before := inv.OutstandingAmount()
	p.Steps = append(p.Steps, AllocationStep{
		Ordinal:           len(p.Steps) + 1,
		InvoiceID:         inv.ID,
		InvoiceNumber:     inv.Number,
		Amount:            amount,
		OutstandingBefore: before,
		OutstandingAfter:  before.Sub(amount),
	})
	p.TotalAllocated = p.TotalAllocated.Add(amount)
}

func (p *AllocationPlan) closeWithCredit(remaining decimal.Decimal) {
	if remaining.IsPositive() {
		p.Credit = &AllocationStep{Amount: remaining}
	}
}

// SortInvoicesFIFO orders invoices by due date, then number, then ID
func SortInvoicesFIFO(invoices []*Invoice) {
	sort.SliceStable(invoices, func(i, j int) bool {
		a, b := invoices[i], invoices[j]
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		if a.Number != b.Number {
			return a.Number < b.Number
		}
		return a.ID.String() < b.ID.String()
	})
}

// FIFOAllocator walks a student's debt oldest due date first
type FIFOAllocator struct{}

// NewFIFOAllocator creates a FIFO allocator
func NewFIFOAllocator() *FIFOAllocator {
	return &FIFOAllocator{}
}

// Allocate distributes amount across invoices. Ineligible invoices are
// skipped and reported in plan.Skipped. Whatever is left after the walk
// becomes a single credit step for the student.
func (a *FIFOAllocator) Allocate(amount decimal.Decimal, studentID uuid.UUID, invoices []*Invoice) (*AllocationPlan, error) {
	if !amount.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidArguments, "Allocation amount must be positive")
	}
	if studentID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidArguments, "Student ID is required")
	}

	sorted := make([]*Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if inv != nil {
			sorted = append(sorted, inv)
		}
	}
	SortInvoicesFIFO(sorted)

	plan := &AllocationPlan{
		Mode:           AllocationModeFIFO,
		StudentID:      studentID,
		Amount:         amount,
		TotalAllocated: decimal.Zero,
	}
	remaining := amount
	for _, inv := range sorted {
		if !remaining.IsPositive() {
			break
		}
		if issue, ok := checkEligible(inv, studentID); !ok {
			plan.Skipped = append(plan.Skipped, issue)
			continue
		}
		applied := decimal.Min(remaining, inv.OutstandingAmount())
		plan.addStep(inv, applied)
		remaining = remaining.Sub(applied)
	}
	plan.closeWithCredit(remaining)
	return plan, nil
}

// DirectAllocator applies a movement to one chosen invoice
type DirectAllocator struct{}

// NewDirectAllocator creates a direct allocator
func NewDirectAllocator() *DirectAllocator {
	return &DirectAllocator{}
}

// Allocate applies min(amount, outstanding) to the invoice. The rest is
// held as credit for the invoice's student.
func (a *DirectAllocator) Allocate(amount decimal.Decimal, inv *Invoice) (*AllocationPlan, error) {
	if !amount.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidArguments, "Allocation amount must be positive")
	}
	if inv == nil {
		return nil, shared.NewDomainError(shared.CodeInvalidArguments, "Invoice is required")
	}
	if issue, ok := checkEligible(inv, inv.StudentID); !ok {
		return nil, shared.NewDomainError(shared.CodeNoPendingDebt,
			fmt.Sprintf("Invoice %s has no pending debt: %s", inv.Number, issue.Reason))
	}

	plan := &AllocationPlan{
		Mode:           AllocationModeDirect,
		StudentID:      inv.StudentID,
		Amount:         amount,
		TotalAllocated: decimal.Zero,
	}
	applied := decimal.Min(amount, inv.OutstandingAmount())
	plan.addStep(inv, applied)
	plan.closeWithCredit(amount.Sub(applied))
	return plan, nil
}

func checkEligible(inv *Invoice, studentID uuid.UUID) (AllocationIssue, bool) {
	issue := AllocationIssue{InvoiceID: inv.ID, InvoiceNumber: inv.Number, State: inv.State}
	switch {
	case inv.StudentID != studentID:
		issue.Reason = "invoice belongs to another student"
	case !inv.State.IsEligibleForPayment():
		issue.Reason = fmt.Sprintf("invoice state %s does not accept payments", inv.State)
	case !inv.OutstandingAmount().IsPositive():
		issue.Reason = "invoice has no outstanding balance"
	default:
		return issue, true
	}
	return issue, false
}

package finance

import (
	"fmt"

	"github.com/erp/bankrecon/internal/domain/shared"
	"github.com/google/uuid"
)

// TargetKind tells which side of the allocation target is set
type TargetKind string

const (
	TargetKindStudent TargetKind = "STUDENT"
	TargetKindInvoice TargetKind = "INVOICE"
)

// IsValid checks if the kind is a known value
func (k TargetKind) IsValid() bool {
	switch k {
	case TargetKindStudent, TargetKindInvoice:
		return true
	}
	return false
}

// String returns the string representation
func (k TargetKind) String() string {
	return string(k)
}

// AllocationTarget selects where a movement's funds go.
// A student target walks all of the student's debt in FIFO order,
// an invoice target applies the funds to one chosen invoice.
type AllocationTarget struct {
	kind TargetKind
	id   uuid.UUID
}

// StudentTarget creates a FIFO allocation target for a student
func StudentTarget(studentID uuid.UUID) AllocationTarget {
	return AllocationTarget{kind: TargetKindStudent, id: studentID}
}

// InvoiceTarget creates a direct allocation target for a single invoice
func InvoiceTarget(invoiceID uuid.UUID) AllocationTarget {
	return AllocationTarget{kind: TargetKindInvoice, id: invoiceID}
}

// NewAllocationTarget builds a target from two optional identifiers.
// Exactly one of them must be set.
func NewAllocationTarget(studentID, invoiceID *uuid.UUID) (AllocationTarget, error) {
	hasStudent := studentID != nil && *studentID != uuid.Nil
	hasInvoice := invoiceID != nil && *invoiceID != uuid.Nil

	switch {
	case hasStudent && hasInvoice:
		return AllocationTarget{}, shared.NewDomainError(shared.CodeInvalidArguments, "Specify either a student or an invoice, not both")
	case hasStudent:
		return StudentTarget(*studentID), nil
	case hasInvoice:
		return InvoiceTarget(*invoiceID), nil
	default:
		return AllocationTarget{}, shared.NewDomainError(shared.CodeInvalidArguments, "A student or an invoice target is required")
	}
}

// RestoreAllocationTarget rebuilds a target from persisted columns
func RestoreAllocationTarget(kind TargetKind, id uuid.UUID) (AllocationTarget, error) {
	if !kind.IsValid() || id == uuid.Nil {
		return AllocationTarget{}, shared.NewDomainError(shared.CodeInvalidArguments, fmt.Sprintf("invalid allocation target %q/%s", kind, id))
	}
	return AllocationTarget{kind: kind, id: id}, nil
}

// Kind returns which variant is set
func (t AllocationTarget) Kind() TargetKind {
	return t.kind
}

// ID returns the student or invoice identifier
func (t AllocationTarget) ID() uuid.UUID {
	return t.id
}

// IsStudent returns true for FIFO targets
func (t AllocationTarget) IsStudent() bool {
	return t.kind == TargetKindStudent
}

// IsInvoice returns true for direct targets
func (t AllocationTarget) IsInvoice() bool {
	return t.kind == TargetKindInvoice
}

// IsZero returns true when no variant is set
func (t AllocationTarget) IsZero() bool {
	return t.kind == "" && t.id == uuid.Nil
}

// Equal compares kind and identifier
func (t AllocationTarget) Equal(other AllocationTarget) bool {
	return t.kind == other.kind && t.id == other.id
}

func (t AllocationTarget) String() string {
	if t.IsZero() {
		return "<none>"
	}
	return fmt.Sprintf("%s:%s", t.kind, t.id)
}

package finance

import (
	"strings"
	"time"

	"github.com/erp/bankrecon/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MovementKind is the direction of a bank movement
type MovementKind string

const (
	MovementKindDeposit    MovementKind = "DEPOSIT"
	MovementKindWithdrawal MovementKind = "WITHDRAWAL"
)

// IsValid checks if the kind is a known value
func (k MovementKind) IsValid() bool {
	switch k {
	case MovementKindDeposit, MovementKindWithdrawal:
		return true
	}
	return false
}

// String returns the string representation
func (k MovementKind) String() string {
	return string(k)
}

// ReconciliationStatus represents where a movement is in the reconciliation lifecycle
type ReconciliationStatus string

const (
	ReconciliationStatusUnreconciled  ReconciliationStatus = "UNRECONCILED"
	ReconciliationStatusMatchProposed ReconciliationStatus = "MATCH_PROPOSED"
	ReconciliationStatusReconciled    ReconciliationStatus = "RECONCILED"
	ReconciliationStatusIgnored       ReconciliationStatus = "IGNORED"
)

// IsValid checks if the status is a known value
func (s ReconciliationStatus) IsValid() bool {
	switch s {
	case ReconciliationStatusUnreconciled, ReconciliationStatusMatchProposed,
		ReconciliationStatusReconciled, ReconciliationStatusIgnored:
		return true
	}
	return false
}

// String returns the string representation
func (s ReconciliationStatus) String() string {
	return string(s)
}

// BankMovement is a single transaction line reported by a bank feed.
// Amount and date never change after creation; only the reconciliation
// status and its bookkeeping fields do.
type BankMovement struct {
	shared.BaseAggregateRoot
	Amount           decimal.Decimal
	Date             time.Time
	Description      string
	Reference        string
	Kind             MovementKind
	Status           ReconciliationStatus
	Note             string
	ReconciledTarget *AllocationTarget
	ReconciledAt     *time.Time
	IgnoreReason     string
}

// NewBankMovement creates an unreconciled movement
func NewBankMovement(amount decimal.Decimal, date time.Time, description, reference string, kind MovementKind) (*BankMovement, error) {
	if !amount.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidArguments, "Movement amount must be positive")
	}
	if date.IsZero() {
		return nil, shared.NewDomainError(shared.CodeInvalidArguments, "Movement date is required")
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidArguments, "Invalid movement kind")
	}

	return &BankMovement{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Amount:            amount,
		Date:              date,
		Description:       strings.TrimSpace(description),
		Reference:         strings.TrimSpace(reference),
		Kind:              kind,
		Status:            ReconciliationStatusUnreconciled,
	}, nil
}

// CanReconcile reports whether funds from this movement may be applied to debt
func (m *BankMovement) CanReconcile() error {
	if m.Kind != MovementKindDeposit {
		return shared.NewDomainError(shared.CodeInvalidArguments, "Only deposits can be reconciled")
	}
	if m.Status == ReconciliationStatusIgnored {
		return shared.NewDomainError(shared.CodeInvalidState, "Ignored movements cannot be reconciled")
	}
	return nil
}

// IsReconciled returns true when the movement has been applied
func (m *BankMovement) IsReconciled() bool {
	return m.Status == ReconciliationStatusReconciled
}

// MarkReconciled records the target and note of a completed reconciliation
func (m *BankMovement) MarkReconciled(target AllocationTarget, note string, paymentCount int, at time.Time) {
	m.Status = ReconciliationStatusReconciled
	m.ReconciledTarget = &target
	m.Note = strings.TrimSpace(note)
	m.ReconciledAt = &at
	m.UpdatedAt = at
	m.IncrementVersion()

	m.AddDomainEvent(NewMovementReconciledEvent(m, paymentCount))
}

// MarkUnreconciled resets the movement after a reversal
func (m *BankMovement) MarkUnreconciled(removedPayments int, removedAmount decimal.Decimal) {
	m.Status = ReconciliationStatusUnreconciled
	m.ReconciledTarget = nil
	m.ReconciledAt = nil
	m.Note = ""
	m.UpdatedAt = time.Now()
	m.IncrementVersion()

	m.AddDomainEvent(NewReconciliationRevertedEvent(m, removedPayments, removedAmount))
}

// ProposeMatch flags the movement as a probable match awaiting confirmation
func (m *BankMovement) ProposeMatch() error {
	if m.Status != ReconciliationStatusUnreconciled {
		return shared.NewDomainError(shared.CodeInvalidState, "Only unreconciled movements can receive a match proposal")
	}
	m.Status = ReconciliationStatusMatchProposed
	m.UpdatedAt = time.Now()
	m.IncrementVersion()
	return nil
}

// Ignore excludes the movement from reconciliation
func (m *BankMovement) Ignore(reason string) error {
	if m.Status == ReconciliationStatusReconciled {
		return shared.NewDomainError(shared.CodeInvalidState, "Reconciled movements must be reverted before being ignored")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewDomainError(shared.CodeInvalidArguments, "Ignore reason is required")
	}
	m.Status = ReconciliationStatusIgnored
	m.IgnoreReason = reason
	m.UpdatedAt = time.Now()
	m.IncrementVersion()
	return nil
}

// IsReconciledAgainst reports whether the stored target equals the given one
func (m *BankMovement) IsReconciledAgainst(target AllocationTarget) bool {
	return m.ReconciledTarget != nil && m.ReconciledTarget.Equal(target)
}

// KeyPrefix is the idempotency key prefix shared by all payments of this movement
func (m *BankMovement) KeyPrefix() MovementKeyPrefix {
	return NewMovementKeyPrefix(m.ID)
}

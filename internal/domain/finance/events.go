package finance

import (
	"time"

	"github.com/erp/bankrecon/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type names
const (
	EventTypePaymentCreated         = "PaymentCreated"
	EventTypeMovementReconciled     = "MovementReconciled"
	EventTypeReconciliationReverted = "ReconciliationReverted"
)

// Aggregate type names
const (
	AggregateTypeBankMovement = "BankMovement"
	AggregateTypePayment      = "Payment"
)

// PaymentCreatedEvent is raised for every payment a reconciliation writes.
// Tax invoice issuance consumes it.
type PaymentCreatedEvent struct {
	shared.BaseDomainEvent
	PaymentID      uuid.UUID       `json:"payment_id"`
	MovementID     uuid.UUID       `json:"movement_id"`
	InvoiceID      *uuid.UUID      `json:"invoice_id,omitempty"`
	StudentID      *uuid.UUID      `json:"student_id,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	PaymentDate    time.Time       `json:"payment_date"`
	Method         PaymentMethod   `json:"method"`
	IdempotencyKey string          `json:"idempotency_key"`
	IsCredit       bool            `json:"is_credit"`
}

// EventType returns the event type name
func (e *PaymentCreatedEvent) EventType() string {
	return EventTypePaymentCreated
}

// NewPaymentCreatedEvent creates a PaymentCreatedEvent
func NewPaymentCreatedEvent(p *Payment) *PaymentCreatedEvent {
	var movementID uuid.UUID
	if p.MovementID != nil {
		movementID = *p.MovementID
	}
	return &PaymentCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentCreated, AggregateTypePayment, p.ID),
		PaymentID:       p.ID,
		MovementID:      movementID,
		InvoiceID:       p.InvoiceID,
		StudentID:       p.StudentID,
		Amount:          p.Amount,
		PaymentDate:     p.PaymentDate,
		Method:          p.Method,
		IdempotencyKey:  p.IdempotencyKey,
		IsCredit:        p.IsCredit(),
	}
}

// MovementReconciledEvent is raised when a movement reaches Reconciled
type MovementReconciledEvent struct {
	shared.BaseDomainEvent
	MovementID   uuid.UUID       `json:"movement_id"`
	Amount       decimal.Decimal `json:"amount"`
	TargetKind   TargetKind      `json:"target_kind"`
	TargetID     uuid.UUID       `json:"target_id"`
	PaymentCount int             `json:"payment_count"`
	Note         string          `json:"note,omitempty"`
}

// EventType returns the event type name
func (e *MovementReconciledEvent) EventType() string {
	return EventTypeMovementReconciled
}

// NewMovementReconciledEvent creates a MovementReconciledEvent
func NewMovementReconciledEvent(m *BankMovement, paymentCount int) *MovementReconciledEvent {
	e := &MovementReconciledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMovementReconciled, AggregateTypeBankMovement, m.ID),
		MovementID:      m.ID,
		Amount:          m.Amount,
		PaymentCount:    paymentCount,
		Note:            m.Note,
	}
	if m.ReconciledTarget != nil {
		e.TargetKind = m.ReconciledTarget.Kind()
		e.TargetID = m.ReconciledTarget.ID()
	}
	return e
}

// ReconciliationRevertedEvent is raised when a reconciliation is undone
type ReconciliationRevertedEvent struct {
	shared.BaseDomainEvent
	MovementID      uuid.UUID       `json:"movement_id"`
	RemovedPayments int             `json:"removed_payments"`
	RemovedAmount   decimal.Decimal `json:"removed_amount"`
}

// EventType returns the event type name
func (e *ReconciliationRevertedEvent) EventType() string {
	return EventTypeReconciliationReverted
}

// NewReconciliationRevertedEvent creates a ReconciliationRevertedEvent
func NewReconciliationRevertedEvent(m *BankMovement, removedPayments int, removedAmount decimal.Decimal) *ReconciliationRevertedEvent {
	return &ReconciliationRevertedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReconciliationReverted, AggregateTypeBankMovement, m.ID),
		MovementID:      m.ID,
		RemovedPayments: removedPayments,
		RemovedAmount:   removedAmount,
	}
}

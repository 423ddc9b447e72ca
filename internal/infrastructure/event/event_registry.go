package event

import "github.com/erp/bankrecon/internal/domain/finance"

// RegisterReconciliationEvents registers the events the outbox relays
func RegisterReconciliationEvents(serializer *EventSerializer) {
	serializer.Register(finance.EventTypePaymentCreated, &finance.PaymentCreatedEvent{})
	serializer.Register(finance.EventTypeMovementReconciled, &finance.MovementReconciledEvent{})
	serializer.Register(finance.EventTypeReconciliationReverted, &finance.ReconciliationRevertedEvent{})
}

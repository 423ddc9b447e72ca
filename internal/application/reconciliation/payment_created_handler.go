package reconciliation

import (
	"context"
	"fmt"

	"github.com/erp/bankrecon/internal/domain/finance"
	"github.com/erp/bankrecon/internal/domain/shared"
	"go.uber.org/zap"
)

// PaymentCreatedHandler forwards PaymentCreatedEvent to the tax invoice issuer
type PaymentCreatedHandler struct {
	issuer TaxInvoiceIssuer
	logger *zap.Logger
}

// NewPaymentCreatedHandler creates a new handler for payment created events
func NewPaymentCreatedHandler(issuer TaxInvoiceIssuer, logger *zap.Logger) *PaymentCreatedHandler {
	return &PaymentCreatedHandler{issuer: issuer, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *PaymentCreatedHandler) EventTypes() []string {
	return []string{finance.EventTypePaymentCreated}
}

// Handle requests a tax invoice for the payment
func (h *PaymentCreatedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	created, ok := event.(*finance.PaymentCreatedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", finance.EventTypePaymentCreated),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			finance.EventTypePaymentCreated, event.EventType())
	}

	err := h.issuer.IssueForPayment(ctx, TaxInvoiceRequest{
		PaymentID:      created.PaymentID,
		InvoiceID:      created.InvoiceID,
		StudentID:      created.StudentID,
		Amount:         created.Amount,
		PaymentDate:    created.PaymentDate,
		Method:         created.Method.String(),
		IdempotencyKey: created.IdempotencyKey,
		Advance:        created.IsCredit,
	})
	if err != nil {
		h.logger.Error("tax invoice issuance failed",
			zap.String("payment_id", created.PaymentID.String()),
			zap.String("idempotency_key", created.IdempotencyKey),
			zap.Error(err),
		)
		return fmt.Errorf("issue tax invoice for payment %s: %w", created.PaymentID, err)
	}
	return nil
}

var _ shared.EventHandler = (*PaymentCreatedHandler)(nil)

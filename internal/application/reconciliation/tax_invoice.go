package reconciliation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TaxInvoiceRequest asks the tax provider to stamp a receipt for one payment
type TaxInvoiceRequest struct {
	PaymentID      uuid.UUID
	InvoiceID      *uuid.UUID
	StudentID      *uuid.UUID
	Amount         decimal.Decimal
	PaymentDate    time.Time
	Method         string
	IdempotencyKey string
	// Advance is true for credit payments, which are issued as advance receipts
	Advance bool
}

// TaxInvoiceIssuer issues tax documents for created payments
type TaxInvoiceIssuer interface {
	IssueForPayment(ctx context.Context, req TaxInvoiceRequest) error
}

// LoggingTaxInvoiceIssuer records issuance requests in the log.
// It stands in until a provider integration is configured.
type LoggingTaxInvoiceIssuer struct {
	logger *zap.Logger
}

// NewLoggingTaxInvoiceIssuer creates a LoggingTaxInvoiceIssuer
func NewLoggingTaxInvoiceIssuer(logger *zap.Logger) *LoggingTaxInvoiceIssuer {
	return &LoggingTaxInvoiceIssuer{logger: logger.Named("tax_invoice")}
}

// IssueForPayment logs the request
func (i *LoggingTaxInvoiceIssuer) IssueForPayment(_ context.Context, req TaxInvoiceRequest) error {
	fields := []zap.Field{
		zap.String("payment_id", req.PaymentID.String()),
		zap.String("idempotency_key", req.IdempotencyKey),
		zap.String("amount", req.Amount.String()),
		zap.String("method", req.Method),
		zap.Bool("advance", req.Advance),
	}
	if req.InvoiceID != nil {
		fields = append(fields, zap.String("invoice_id", req.InvoiceID.String()))
	}
	if req.StudentID != nil {
		fields = append(fields, zap.String("student_id", req.StudentID.String()))
	}
	i.logger.Info("tax invoice requested", fields...)
	return nil
}

var _ TaxInvoiceIssuer = (*LoggingTaxInvoiceIssuer)(nil)

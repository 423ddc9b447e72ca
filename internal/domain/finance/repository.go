package finance

import (
	"context"

	"github.com/erp/bankrecon/internal/domain/shared"
	"github.com/google/uuid"
)

// BankMovementRepository defines persistence for bank movements
type BankMovementRepository interface {
	// FindByID finds a movement by ID
	FindByID(ctx context.Context, id uuid.UUID) (*BankMovement, error)

	// FindByIDForUpdate finds a movement and locks its row until the transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*BankMovement, error)

	// Save creates or updates a movement
	Save(ctx context.Context, movement *BankMovement) error
}

// InvoiceRepository defines persistence for invoices.
// Invoices are returned with their lines loaded.
type InvoiceRepository interface {
	// FindByID finds an invoice by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByIDForUpdate finds an invoice and locks its row
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByIDs finds invoices by ID, locking them
	FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]*Invoice, error)

	// FindPendingByStudent returns the student's invoices in an eligible state,
	// locked and ordered by due date, number and ID
	FindPendingByStudent(ctx context.Context, studentID uuid.UUID) ([]*Invoice, error)

	// FindOpen returns up to limit invoices in an eligible state, oldest due first
	FindOpen(ctx context.Context, limit int) ([]*Invoice, error)

	// UpdateState persists the state and totals of an invoice
	UpdateState(ctx context.Context, invoice *Invoice) error

	// Save creates or updates an invoice and its lines
	Save(ctx context.Context, invoice *Invoice) error
}

// PaymentRepository defines persistence for payments
type PaymentRepository interface {
	// Save inserts the payment unless its idempotency key already exists.
	// created is false when the insert was skipped.
	Save(ctx context.Context, payment *Payment) (created bool, err error)

	// FindByInvoice returns all payments applied to an invoice
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]Payment, error)

	// FindByKeyPrefix returns all payments produced by one movement
	FindByKeyPrefix(ctx context.Context, prefix MovementKeyPrefix) ([]Payment, error)

	// DeleteByKeyPrefix removes all payments produced by one movement and returns them
	DeleteByKeyPrefix(ctx context.Context, prefix MovementKeyPrefix) ([]Payment, error)
}

// EventRecorder stores domain events in the same transaction as the state change
type EventRecorder interface {
	Record(ctx context.Context, events ...shared.DomainEvent) error
}

// Repositories groups the repositories bound to one transaction
type Repositories struct {
	Movements BankMovementRepository
	Invoices  InvoiceRepository
	Payments  PaymentRepository
	Events    EventRecorder
}

// UnitOfWork runs fn inside a single transaction. Returning an error rolls
// back every write made through repos.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

package persistence

import (
	"context"

	"github.com/erp/bankrecon/internal/domain/finance"
	"github.com/erp/bankrecon/internal/domain/shared"
	"gorm.io/gorm"
)

// OutboxWriter stores domain events using the caller's transaction
type OutboxWriter interface {
	PublishWithTx(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error
}

// GormUnitOfWork implements finance.UnitOfWork on a gorm transaction
type GormUnitOfWork struct {
	db     *gorm.DB
	outbox OutboxWriter
}

// NewGormUnitOfWork creates a unit of work. A nil outbox discards events.
func NewGormUnitOfWork(db *gorm.DB, outbox OutboxWriter) *GormUnitOfWork {
	return &GormUnitOfWork{db: db, outbox: outbox}
}

// Do runs fn in one transaction with repositories bound to it.
// Any error returned by fn rolls the transaction back.
func (u *GormUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, repos finance.Repositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := finance.Repositories{
			Movements: NewGormBankMovementRepository(tx),
			Invoices:  NewGormInvoiceRepository(tx),
			Payments:  NewGormPaymentRepository(tx),
			Events:    &txEventRecorder{tx: tx, outbox: u.outbox},
		}
		return fn(ctx, repos)
	})
}

type txEventRecorder struct {
	tx     *gorm.DB
	outbox OutboxWriter
}

func (r *txEventRecorder) Record(ctx context.Context, events ...shared.DomainEvent) error {
	if r.outbox == nil || len(events) == 0 {
		return nil
	}
	return r.outbox.PublishWithTx(ctx, r.tx, events...)
}

var _ finance.UnitOfWork = (*GormUnitOfWork)(nil)

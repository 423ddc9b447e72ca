package persistence

import (
	"context"
	"math"
	"sort"

	"github.com/erp/bankrecon/internal/domain/finance"
	"github.com/erp/bankrecon/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPaymentRepository implements finance.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormPaymentRepository) WithTx(tx *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: tx}
}

// Save inserts the payment with ON CONFLICT (idempotency_key) DO NOTHING.
// created is false when a payment with the same key already exists.
func (r *GormPaymentRepository) Save(ctx context.Context, payment *finance.Payment) (bool, error) {
	model := models.PaymentModelFromDomain(payment)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "idempotency_key"}},
			DoNothing: true,
		}).
		Create(model)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// FindByInvoice returns all payments applied to an invoice
func (r *GormPaymentRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]finance.Payment, error) {
	var paymentModels []models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("payment_date ASC, idempotency_key ASC").
		Find(&paymentModels).Error; err != nil {
		return nil, err
	}
	return toPayments(paymentModels), nil
}

// FindByKeyPrefix returns the payments of one movement in allocation order,
// the credit entry last
func (r *GormPaymentRepository) FindByKeyPrefix(ctx context.Context, prefix finance.MovementKeyPrefix) ([]finance.Payment, error) {
	var paymentModels []models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("idempotency_key LIKE ?", prefix.String()+"%").
		Find(&paymentModels).Error; err != nil {
		return nil, err
	}
	payments := toPayments(paymentModels)
	sortByAllocationOrder(payments)
	return payments, nil
}

// DeleteByKeyPrefix deletes every payment of one movement and returns what was removed
func (r *GormPaymentRepository) DeleteByKeyPrefix(ctx context.Context, prefix finance.MovementKeyPrefix) ([]finance.Payment, error) {
	payments, err := r.FindByKeyPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return nil, nil
	}
	if err := r.db.WithContext(ctx).
		Where("idempotency_key LIKE ?", prefix.String()+"%").
		Delete(&models.PaymentModel{}).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func toPayments(paymentModels []models.PaymentModel) []finance.Payment {
	payments := make([]finance.Payment, 0, len(paymentModels))
	for i := range paymentModels {
		payments = append(payments, paymentModels[i].ToDomain())
	}
	return payments
}

// sortByAllocationOrder orders F1, F2, ... then ANTICIPO. Keys that do not
// parse keep their relative order at the end.
func sortByAllocationOrder(payments []finance.Payment) {
	rank := func(p finance.Payment) int {
		key, err := finance.ParseIdempotencyKey(p.IdempotencyKey)
		switch {
		case err != nil:
			return math.MaxInt
		case key.IsCredit():
			return math.MaxInt - 1
		default:
			return key.Ordinal
		}
	}
	sort.SliceStable(payments, func(i, j int) bool {
		return rank(payments[i]) < rank(payments[j])
	})
}

var _ finance.PaymentRepository = (*GormPaymentRepository)(nil)

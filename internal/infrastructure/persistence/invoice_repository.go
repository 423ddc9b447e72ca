package persistence

import (
	"context"
	"errors"

	"github.com/erp/bankrecon/internal/domain/finance"
	"github.com/erp/bankrecon/internal/domain/shared"
	"github.com/erp/bankrecon/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// fifoOrder is also the row lock order for every multi-invoice lock.
const fifoOrder = "due_date ASC, number ASC, id ASC"

// GormInvoiceRepository implements finance.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormInvoiceRepository) WithTx(tx *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: tx}
}

func (r *GormInvoiceRepository) withLines(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

func (r *GormInvoiceRepository) locked(ctx context.Context) *gorm.DB {
	return r.withLines(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
}

// FindByID finds an invoice by ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.Invoice, error) {
	return r.first(r.withLines(ctx), id)
}

// FindByIDForUpdate finds an invoice by ID and locks its row
func (r *GormInvoiceRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*finance.Invoice, error) {
	return r.first(r.locked(ctx), id)
}

func (r *GormInvoiceRepository) first(q *gorm.DB, id uuid.UUID) (*finance.Invoice, error) {
	var model models.InvoiceModel
	if err := q.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainError(shared.CodeNotFound, "Invoice not found")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDsForUpdate locks the given invoices in FIFO order. Missing IDs are
// silently absent from the result.
func (r *GormInvoiceRepository) FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]*finance.Invoice, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var invoiceModels []models.InvoiceModel
	if err := r.locked(ctx).
		Where("id IN ?", ids).
		Order(fifoOrder).
		Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	return toInvoices(invoiceModels), nil
}

// FindPendingByStudent returns the student's payable invoices, locked, oldest due first
func (r *GormInvoiceRepository) FindPendingByStudent(ctx context.Context, studentID uuid.UUID) ([]*finance.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	if err := r.locked(ctx).
		Where("student_id = ? AND state IN ?", studentID, finance.EligibleInvoiceStates()).
		Order(fifoOrder).
		Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	return toInvoices(invoiceModels), nil
}

// FindOpen returns up to limit payable invoices across all students
func (r *GormInvoiceRepository) FindOpen(ctx context.Context, limit int) ([]*finance.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	q := r.withLines(ctx).
		Where("state IN ?", finance.EligibleInvoiceStates()).
		Order(fifoOrder)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	return toInvoices(invoiceModels), nil
}

// UpdateState writes state and totals, checking the version the caller read
func (r *GormInvoiceRepository) UpdateState(ctx context.Context, invoice *finance.Invoice) error {
	result := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("id = ? AND version = ?", invoice.ID, invoice.Version-1).
		Updates(map[string]any{
			"state":        invoice.State,
			"total_amount": invoice.TotalAmount,
			"paid_amount":  invoice.PaidAmount,
			"version":      invoice.Version,
			"updated_at":   invoice.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Save creates or updates an invoice together with its lines
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *finance.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).Where("id = ?", invoice.ID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return r.db.WithContext(ctx).Create(model).Error
	}
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(model).Error
}

func toInvoices(invoiceModels []models.InvoiceModel) []*finance.Invoice {
	invoices := make([]*finance.Invoice, 0, len(invoiceModels))
	for i := range invoiceModels {
		invoices = append(invoices, invoiceModels[i].ToDomain())
	}
	return invoices
}

var _ finance.InvoiceRepository = (*GormInvoiceRepository)(nil)

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

// GormBankMovementRepository implements finance.BankMovementRepository using GORM
type GormBankMovementRepository struct {
	db *gorm.DB
}

// NewGormBankMovementRepository creates a new GormBankMovementRepository
func NewGormBankMovementRepository(db *gorm.DB) *GormBankMovementRepository {
	return &GormBankMovementRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormBankMovementRepository) WithTx(tx *gorm.DB) *GormBankMovementRepository {
	return &GormBankMovementRepository{db: tx}
}

// FindByID finds a movement by ID
func (r *GormBankMovementRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.BankMovement, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds a movement with SELECT ... FOR UPDATE
func (r *GormBankMovementRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*finance.BankMovement, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormBankMovementRepository) find(q *gorm.DB, id uuid.UUID) (*finance.BankMovement, error) {
	var model models.BankMovementModel
	if err := q.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainError(shared.CodeNotFound, "Bank movement not found")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a movement
func (r *GormBankMovementRepository) Save(ctx context.Context, movement *finance.BankMovement) error {
	model := models.BankMovementModelFromDomain(movement)
	return r.db.WithContext(ctx).Save(model).Error
}

var _ finance.BankMovementRepository = (*GormBankMovementRepository)(nil)

package models

import (
	"time"

	"github.com/erp/bankrecon/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentModel is the persistence model for a Payment. The unique
// idempotency_key index is what makes replays of a movement harmless.
type PaymentModel struct {
	BaseModel
	InvoiceID      *uuid.UUID            `gorm:"type:uuid;index;check:chk_payments_target,invoice_id IS NOT NULL OR student_id IS NOT NULL"`
	StudentID      *uuid.UUID            `gorm:"type:uuid;index"`
	Amount         decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	PaymentDate    time.Time             `gorm:"not null"`
	Method         finance.PaymentMethod `gorm:"type:varchar(20);not null"`
	IdempotencyKey string                `gorm:"type:varchar(100);not null;uniqueIndex:idx_payments_idempotency_key"`
	MovementID     *uuid.UUID            `gorm:"type:uuid;index"`
	Note           string                `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment
func (m *PaymentModel) ToDomain() finance.Payment {
	return finance.Payment{
		BaseEntity:     m.BaseModel.ToDomain(),
		InvoiceID:      m.InvoiceID,
		StudentID:      m.StudentID,
		Amount:         m.Amount,
		PaymentDate:    m.PaymentDate,
		Method:         m.Method,
		IdempotencyKey: m.IdempotencyKey,
		MovementID:     m.MovementID,
		Note:           m.Note,
	}
}

// FromDomain populates the persistence model from a domain Payment
func (m *PaymentModel) FromDomain(p *finance.Payment) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.InvoiceID = p.InvoiceID
	m.StudentID = p.StudentID
	m.Amount = p.Amount
	m.PaymentDate = p.PaymentDate
	m.Method = p.Method
	m.IdempotencyKey = p.IdempotencyKey
	m.MovementID = p.MovementID
	m.Note = p.Note
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment
func PaymentModelFromDomain(p *finance.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}

package models

import (
	"time"

	"github.com/erp/bankrecon/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BankMovementModel is the persistence model for the BankMovement aggregate
type BankMovementModel struct {
	AggregateModel
	Amount       decimal.Decimal              `gorm:"type:decimal(18,4);not null"`
	MovementDate time.Time                    `gorm:"not null;index"`
	Description  string                       `gorm:"type:varchar(500)"`
	Reference    string                       `gorm:"type:varchar(100)"`
	Kind         finance.MovementKind         `gorm:"type:varchar(20);not null"`
	Status       finance.ReconciliationStatus `gorm:"type:varchar(20);not null;default:'UNRECONCILED';index"`
	Note         string                       `gorm:"type:text"`
	TargetKind   *finance.TargetKind          `gorm:"type:varchar(20)"`
	TargetID     *uuid.UUID                   `gorm:"type:uuid"`
	ReconciledAt *time.Time
	IgnoreReason string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (BankMovementModel) TableName() string {
	return "bank_movements"
}

// ToDomain converts the persistence model to a domain BankMovement.
// A stored target that cannot be restored is dropped rather than failing the read.
func (m *BankMovementModel) ToDomain() *finance.BankMovement {
	mv := &finance.BankMovement{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Amount:            m.Amount,
		Date:              m.MovementDate,
		Description:       m.Description,
		Reference:         m.Reference,
		Kind:              m.Kind,
		Status:            m.Status,
		Note:              m.Note,
		ReconciledAt:      m.ReconciledAt,
		IgnoreReason:      m.IgnoreReason,
	}
	if m.TargetKind != nil && m.TargetID != nil {
		if target, err := finance.RestoreAllocationTarget(*m.TargetKind, *m.TargetID); err == nil {
			mv.ReconciledTarget = &target
		}
	}
	return mv
}

// FromDomain populates the persistence model from a domain BankMovement
func (m *BankMovementModel) FromDomain(mv *finance.BankMovement) {
	m.FromDomainAggregateRoot(mv.BaseAggregateRoot)
	m.Amount = mv.Amount
	m.MovementDate = mv.Date
	m.Description = mv.Description
	m.Reference = mv.Reference
	m.Kind = mv.Kind
	m.Status = mv.Status
	m.Note = mv.Note
	m.ReconciledAt = mv.ReconciledAt
	m.IgnoreReason = mv.IgnoreReason
	m.TargetKind = nil
	m.TargetID = nil
	if mv.ReconciledTarget != nil && !mv.ReconciledTarget.IsZero() {
		kind := mv.ReconciledTarget.Kind()
		id := mv.ReconciledTarget.ID()
		m.TargetKind = &kind
		m.TargetID = &id
	}
}

// BankMovementModelFromDomain creates a new persistence model from a domain BankMovement
func BankMovementModelFromDomain(mv *finance.BankMovement) *BankMovementModel {
	m := &BankMovementModel{}
	m.FromDomain(mv)
	return m
}

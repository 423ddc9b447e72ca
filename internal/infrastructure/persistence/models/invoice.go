package models

import (
	"time"

	"github.com/erp/bankrecon/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for the Invoice aggregate
type InvoiceModel struct {
	AggregateModel
	Number           string               `gorm:"type:varchar(50);not null;uniqueIndex"`
	StudentID        uuid.UUID            `gorm:"type:uuid;not null;index:idx_invoice_student_due,priority:1"`
	StudentReference string               `gorm:"type:varchar(100)"`
	IssueDate        time.Time            `gorm:"not null"`
	DueDate          time.Time            `gorm:"not null;index:idx_invoice_student_due,priority:2"`
	State            finance.InvoiceState `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	TotalAmount      decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	PaidAmount       decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	Lines            []InvoiceLineModel   `gorm:"foreignKey:InvoiceID;references:ID"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice
func (m *InvoiceModel) ToDomain() *finance.Invoice {
	inv := &finance.Invoice{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Number:            m.Number,
		StudentID:         m.StudentID,
		StudentReference:  m.StudentReference,
		IssueDate:         m.IssueDate,
		DueDate:           m.DueDate,
		State:             m.State,
		TotalAmount:       m.TotalAmount,
		PaidAmount:        m.PaidAmount,
		Lines:             make([]finance.InvoiceLine, 0, len(m.Lines)),
	}
	for i := range m.Lines {
		inv.Lines = append(inv.Lines, m.Lines[i].ToDomain())
	}
	return inv
}

// FromDomain populates the persistence model from a domain Invoice
func (m *InvoiceModel) FromDomain(inv *finance.Invoice) {
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	m.Number = inv.Number
	m.StudentID = inv.StudentID
	m.StudentReference = inv.StudentReference
	m.IssueDate = inv.IssueDate
	m.DueDate = inv.DueDate
	m.State = inv.State
	m.TotalAmount = inv.TotalAmount
	m.PaidAmount = inv.PaidAmount
	m.Lines = make([]InvoiceLineModel, 0, len(inv.Lines))
	for _, l := range inv.Lines {
		m.Lines = append(m.Lines, InvoiceLineModelFromDomain(l))
	}
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice
func InvoiceModelFromDomain(inv *finance.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// InvoiceLineModel is the persistence model for an invoice line
type InvoiceLineModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position    int             `gorm:"not null"`
	Description string          `gorm:"type:varchar(255)"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Discount    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Tax         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (InvoiceLineModel) TableName() string {
	return "invoice_lines"
}

// ToDomain converts the persistence model to a domain InvoiceLine
func (m *InvoiceLineModel) ToDomain() finance.InvoiceLine {
	return finance.InvoiceLine{
		ID:          m.ID,
		InvoiceID:   m.InvoiceID,
		Position:    m.Position,
		Description: m.Description,
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
		Discount:    m.Discount,
		Tax:         m.Tax,
	}
}

// InvoiceLineModelFromDomain creates a persistence model from a domain InvoiceLine
func InvoiceLineModelFromDomain(l finance.InvoiceLine) InvoiceLineModel {
	return InvoiceLineModel{
		ID:          l.ID,
		InvoiceID:   l.InvoiceID,
		Position:    l.Position,
		Description: l.Description,
		Quantity:    l.Quantity,
		UnitPrice:   l.UnitPrice,
		Discount:    l.Discount,
		Tax:         l.Tax,
	}
}

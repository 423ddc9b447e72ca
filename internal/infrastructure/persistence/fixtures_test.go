package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/erp/bankrecon/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func seedInvoice(t *testing.T, repo *GormInvoiceRepository, number string, studentID uuid.UUID, due string, total string) *finance.Invoice {
	t.Helper()
	inv, err := finance.NewInvoice(number, studentID, day(due).AddDate(0, -1, 0), day(due), []finance.InvoiceLine{{
		Description: "Tuition " + number,
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   decimal.RequireFromString(total),
	}})
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), inv))
	return inv
}

func seedMovement(t *testing.T, repo *GormBankMovementRepository, amount string) *finance.BankMovement {
	t.Helper()
	mv, err := finance.NewBankMovement(decimal.RequireFromString(amount), day("2024-03-01"), "TRANSFER FAM PEREZ", "REF-2024-001", finance.MovementKindDeposit)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), mv))
	return mv
}

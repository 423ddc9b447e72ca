package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/bankrecon/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPayment(t *testing.T, movementID uuid.UUID, ordinal int, invoiceID uuid.UUID, studentID uuid.UUID, amount string) *finance.Payment {
	t.Helper()
	step := finance.AllocationStep{Ordinal: ordinal, InvoiceID: invoiceID, Amount: decimal.RequireFromString(amount)}
	p, err := finance.NewAllocationPayment(step.Key(movementID), step, studentID, day("2024-03-01"), finance.PaymentMethodTransfer, "")
	require.NoError(t, err)
	return p
}

func TestGormPaymentRepository_SaveIsIdempotent(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormPaymentRepository(db.DB)
	ctx := context.Background()

	movementID, invoiceID, studentID := uuid.New(), uuid.New(), uuid.New()
	first := newTestPayment(t, movementID, 1, invoiceID, studentID, "100")

	created, err := repo.Save(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)

	dup := newTestPayment(t, movementID, 1, invoiceID, studentID, "100")
	created, err = repo.Save(ctx, dup)
	require.NoError(t, err)
	assert.False(t, created)

	payments, err := repo.FindByInvoice(ctx, invoiceID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, first.ID, payments[0].ID)
}

func TestGormPaymentRepository_KeyPrefix(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormPaymentRepository(db.DB)
	ctx := context.Background()

	movementID, studentID := uuid.New(), uuid.New()
	other := uuid.New()

	for _, p := range []*finance.Payment{
		newTestPayment(t, movementID, 0, uuid.Nil, studentID, "50"),
		newTestPayment(t, movementID, 2, uuid.New(), studentID, "200"),
		newTestPayment(t, movementID, 1, uuid.New(), studentID, "100"),
		newTestPayment(t, other, 1, uuid.New(), studentID, "999"),
	} {
		_, err := repo.Save(ctx, p)
		require.NoError(t, err)
	}

	prefix := finance.NewMovementKeyPrefix(movementID)
	found, err := repo.FindByKeyPrefix(ctx, prefix)
	require.NoError(t, err)
	require.Len(t, found, 3)
	assert.Equal(t, finance.KeyForInvoice(movementID, 1, uuid.Nil).String(), found[0].IdempotencyKey)
	assert.Equal(t, finance.KeyForInvoice(movementID, 2, uuid.Nil).String(), found[1].IdempotencyKey)
	assert.True(t, found[2].IsCredit())

	removed, err := repo.DeleteByKeyPrefix(ctx, prefix)
	require.NoError(t, err)
	assert.Len(t, removed, 3)
	assert.True(t, decimal.NewFromInt(350).Equal(finance.SumPayments(removed)))

	left, err := repo.FindByKeyPrefix(ctx, prefix)
	require.NoError(t, err)
	assert.Empty(t, left)

	untouched, err := repo.FindByKeyPrefix(ctx, finance.NewMovementKeyPrefix(other))
	require.NoError(t, err)
	assert.Len(t, untouched, 1)

	again, err := repo.DeleteByKeyPrefix(ctx, prefix)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestGormPaymentRepository_SaveSQL(t *testing.T) {
	gormDB, mock, mockDB := newMockGorm(t)
	defer mockDB.Close()
	repo := NewGormPaymentRepository(gormDB)

	p := newTestPayment(t, uuid.New(), 1, uuid.New(), uuid.New(), "10")
	p.PaymentDate = time.Now()

	mock.ExpectExec(`INSERT INTO "payments" .* ON CONFLICT \("idempotency_key"\) DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "payments" .* ON CONFLICT \("idempotency_key"\) DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	created, err := repo.Save(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Save(context.Background(), p)
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

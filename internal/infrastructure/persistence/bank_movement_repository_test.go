package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/bankrecon/internal/domain/finance"
	"github.com/erp/bankrecon/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormBankMovementRepository_RoundTrip(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormBankMovementRepository(db.DB)
	ctx := context.Background()

	mv := seedMovement(t, repo, "1500.00")

	got, err := repo.FindByID(ctx, mv.ID)
	require.NoError(t, err)
	assert.True(t, mv.Amount.Equal(got.Amount))
	assert.Equal(t, finance.ReconciliationStatusUnreconciled, got.Status)
	assert.Nil(t, got.ReconciledTarget)
	assert.Equal(t, "REF-2024-001", got.Reference)

	studentID := uuid.New()
	got.MarkReconciled(finance.StudentTarget(studentID), "march fees", 2, time.Now())
	require.NoError(t, repo.Save(ctx, got))

	reloaded, err := repo.FindByIDForUpdate(ctx, mv.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.IsReconciled())
	require.NotNil(t, reloaded.ReconciledTarget)
	assert.True(t, reloaded.IsReconciledAgainst(finance.StudentTarget(studentID)))
	assert.Equal(t, "march fees", reloaded.Note)
	assert.Equal(t, mv.Version+1, reloaded.Version)
}

func TestGormBankMovementRepository_NotFound(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormBankMovementRepository(db.DB)

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestGormBankMovementRepository_ForUpdateSQL(t *testing.T) {
	gormDB, mock, mockDB := newMockGorm(t)
	defer mockDB.Close()
	repo := NewGormBankMovementRepository(gormDB)

	id := uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "bank_movements" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "amount", "kind", "status", "version"}).
			AddRow(id, "100", "DEPOSIT", "UNRECONCILED", 1))

	mv, err := repo.FindByIDForUpdate(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, mv.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

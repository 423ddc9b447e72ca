package finance

import (
	"errors"
	"testing"
	"time"

	"github.com/erp/bankrecon/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMovement(t *testing.T, amount string) *BankMovement {
	t.Helper()
	m, err := NewBankMovement(dec(amount), time.Now(), " SPEI deposit ", "REF-001", MovementKindDeposit)
	require.NoError(t, err)
	return m
}

func TestNewBankMovement(t *testing.T) {
	t.Run("valid deposit", func(t *testing.T) {
		m := newTestMovement(t, "1500")
		assert.Equal(t, ReconciliationStatusUnreconciled, m.Status)
		assert.Equal(t, "SPEI deposit", m.Description)
		assert.NotEqual(t, uuid.Nil, m.ID)
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := NewBankMovement(dec("0"), time.Now(), "", "", MovementKindDeposit)
		assert.True(t, errors.Is(err, shared.ErrInvalidArguments))
		_, err = NewBankMovement(dec("10"), time.Time{}, "", "", MovementKindDeposit)
		assert.True(t, errors.Is(err, shared.ErrInvalidArguments))
		_, err = NewBankMovement(dec("10"), time.Now(), "", "", "TRANSFER")
		assert.True(t, errors.Is(err, shared.ErrInvalidArguments))
	})
}

func TestBankMovement_CanReconcile(t *testing.T) {
	m := newTestMovement(t, "100")
	assert.NoError(t, m.CanReconcile())

	m.Kind = MovementKindWithdrawal
	assert.Error(t, m.CanReconcile())

	m.Kind = MovementKindDeposit
	require.NoError(t, m.Ignore("duplicate feed line"))
	assert.True(t, errors.Is(m.CanReconcile(), shared.ErrInvalidState))
}

func TestBankMovement_ReconcileLifecycle(t *testing.T) {
	m := newTestMovement(t, "1000")
	target := StudentTarget(uuid.New())
	at := time.Now()

	m.MarkReconciled(target, " march tuition ", 2, at)
	assert.True(t, m.IsReconciled())
	assert.True(t, m.IsReconciledAgainst(target))
	assert.False(t, m.IsReconciledAgainst(InvoiceTarget(target.ID())))
	assert.Equal(t, "march tuition", m.Note)
	require.Len(t, m.GetDomainEvents(), 1)

	evt, ok := m.GetDomainEvents()[0].(*MovementReconciledEvent)
	require.True(t, ok)
	assert.Equal(t, EventTypeMovementReconciled, evt.EventType())
	assert.Equal(t, 2, evt.PaymentCount)
	assert.Equal(t, TargetKindStudent, evt.TargetKind)
	assert.Equal(t, "march tuition", evt.Note)

	assert.Error(t, m.Ignore("oops"))

	m.ClearDomainEvents()
	m.MarkUnreconciled(2, dec("1000"))
	assert.Equal(t, ReconciliationStatusUnreconciled, m.Status)
	assert.Nil(t, m.ReconciledTarget)
	assert.Empty(t, m.Note)
	require.Len(t, m.GetDomainEvents(), 1)
	assert.Equal(t, EventTypeReconciliationReverted, m.GetDomainEvents()[0].EventType())
}

func TestBankMovement_ProposeMatch(t *testing.T) {
	m := newTestMovement(t, "1000")
	require.NoError(t, m.ProposeMatch())
	assert.Equal(t, ReconciliationStatusMatchProposed, m.Status)
	assert.Error(t, m.ProposeMatch())
}

func TestBankMovement_Ignore(t *testing.T) {
	m := newTestMovement(t, "1000")
	assert.Error(t, m.Ignore("  "))
	require.NoError(t, m.Ignore("bank fee refund"))
	assert.Equal(t, ReconciliationStatusIgnored, m.Status)
	assert.Equal(t, "bank fee refund", m.IgnoreReason)
}

func TestBankMovement_KeyPrefix(t *testing.T) {
	m := newTestMovement(t, "1")
	assert.Equal(t, "BANK:"+m.ID.String()+":", m.KeyPrefix().String())
}

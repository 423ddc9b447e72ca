package finance

import (
	"errors"
	"testing"

	"github.com/erp/bankrecon/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAllocationTarget(t *testing.T) {
	studentID := uuid.New()
	invoiceID := uuid.New()

	t.Run("student only", func(t *testing.T) {
		target, err := NewAllocationTarget(&studentID, nil)
		require.NoError(t, err)
		assert.True(t, target.IsStudent())
		assert.Equal(t, studentID, target.ID())
	})

	t.Run("invoice only", func(t *testing.T) {
		target, err := NewAllocationTarget(nil, &invoiceID)
		require.NoError(t, err)
		assert.True(t, target.IsInvoice())
		assert.Equal(t, invoiceID, target.ID())
	})

	t.Run("both is rejected", func(t *testing.T) {
		_, err := NewAllocationTarget(&studentID, &invoiceID)
		assert.True(t, errors.Is(err, shared.ErrInvalidArguments))
	})

	t.Run("neither is rejected", func(t *testing.T) {
		_, err := NewAllocationTarget(nil, nil)
		assert.True(t, errors.Is(err, shared.ErrInvalidArguments))
	})

	t.Run("nil uuid counts as absent", func(t *testing.T) {
		nilID := uuid.Nil
		_, err := NewAllocationTarget(&nilID, nil)
		assert.True(t, errors.Is(err, shared.ErrInvalidArguments))
	})
}

func TestAllocationTarget_Equal(t *testing.T) {
	id := uuid.New()
	assert.True(t, StudentTarget(id).Equal(StudentTarget(id)))
	assert.False(t, StudentTarget(id).Equal(InvoiceTarget(id)))
	assert.False(t, StudentTarget(id).Equal(StudentTarget(uuid.New())))
	assert.True(t, AllocationTarget{}.IsZero())
	assert.Equal(t, "STUDENT:"+id.String(), StudentTarget(id).String())
}

func TestRestoreAllocationTarget(t *testing.T) {
	id := uuid.New()
	target, err := RestoreAllocationTarget(TargetKindInvoice, id)
	require.NoError(t, err)
	assert.Equal(t, InvoiceTarget(id), target)

	_, err = RestoreAllocationTarget("OTHER", id)
	assert.Error(t, err)
	_, err = RestoreAllocationTarget(TargetKindStudent, uuid.Nil)
	assert.Error(t, err)
}

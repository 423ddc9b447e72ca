package finance

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyKey_String(t *testing.T) {
	movementID := uuid.MustParse("8a3f1c2e-5b6d-4e7f-9a0b-1c2d3e4f5a6b")

	assert.Equal(t, "BANK:8a3f1c2e-5b6d-4e7f-9a0b-1c2d3e4f5a6b:F1", KeyForInvoice(movementID, 1, uuid.New()).String())
	assert.Equal(t, "BANK:8a3f1c2e-5b6d-4e7f-9a0b-1c2d3e4f5a6b:F12", KeyForInvoice(movementID, 12, uuid.New()).String())
	assert.Equal(t, "BANK:8a3f1c2e-5b6d-4e7f-9a0b-1c2d3e4f5a6b:ANTICIPO", KeyForCredit(movementID).String())
	assert.Equal(t, "BANK:8a3f1c2e-5b6d-4e7f-9a0b-1c2d3e4f5a6b:", NewMovementKeyPrefix(movementID).String())
}

func TestParseIdempotencyKey(t *testing.T) {
	movementID := uuid.New()

	t.Run("invoice key", func(t *testing.T) {
		key, err := ParseIdempotencyKey(KeyForInvoice(movementID, 3, uuid.New()).String())
		require.NoError(t, err)
		assert.Equal(t, movementID, key.MovementID)
		assert.Equal(t, 3, key.Ordinal)
		assert.Equal(t, KeyTargetInvoice, key.Target.Kind)
		assert.False(t, key.IsCredit())
	})

	t.Run("credit key", func(t *testing.T) {
		key, err := ParseIdempotencyKey(KeyForCredit(movementID).String())
		require.NoError(t, err)
		assert.True(t, key.IsCredit())
		assert.Equal(t, 0, key.Ordinal)
	})

	t.Run("malformed keys", func(t *testing.T) {
		bad := []string{
			"",
			"BANK",
			"BANK:not-a-uuid:F1",
			"CASH:" + movementID.String() + ":F1",
			"BANK:" + movementID.String() + ":F0",
			"BANK:" + movementID.String() + ":Fx",
			"BANK:" + movementID.String() + ":X1",
			"BANK:" + movementID.String() + ":F1:extra",
		}
		for _, s := range bad {
			_, err := ParseIdempotencyKey(s)
			assert.Error(t, err, s)
		}
	})
}

func TestMovementKeyPrefix_Matches(t *testing.T) {
	movementID := uuid.New()
	prefix := NewMovementKeyPrefix(movementID)

	assert.True(t, prefix.Matches(KeyForInvoice(movementID, 1, uuid.Nil).String()))
	assert.True(t, prefix.Matches(KeyForCredit(movementID).String()))
	assert.False(t, prefix.Matches(KeyForCredit(uuid.New()).String()))
	assert.False(t, prefix.Matches("manual-payment-1"))
	assert.Equal(t, movementID, prefix.MovementID())
}

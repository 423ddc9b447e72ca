package shared

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestBaseAggregateRoot_EventBuffer(t *testing.T) {
	root := NewBaseAggregateRoot()
	assert.Equal(t, 1, root.Version)
	assert.NotEqual(t, uuid.Nil, root.ID)
	assert.Empty(t, root.GetDomainEvents())

	root.AddDomainEvent(&stubEvent{NewBaseDomainEvent("MovementReconciled", "BankMovement", root.ID)})
	root.IncrementVersion()

	assert.Equal(t, 2, root.Version)
	assert.Len(t, root.GetDomainEvents(), 1)
	assert.Equal(t, root.ID, root.GetDomainEvents()[0].AggregateID())

	root.ClearDomainEvents()
	assert.Empty(t, root.GetDomainEvents())
}

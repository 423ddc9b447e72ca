package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/bankrecon/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockIdempotencyStore struct {
	mock.Mock
}

func (m *mockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdempotencyStore) Release(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}

func TestIdempotentHandler_FirstDeliveryIsHandled(t *testing.T) {
	inner := newTestHandler("PaymentCreated")
	store := new(mockIdempotencyStore)
	evt := newTestEvent("PaymentCreated")
	store.On("MarkProcessed", mock.Anything, EventIDKey(evt), 24*time.Hour).Return(true, nil)

	h := NewIdempotentHandler(inner, store, zap.NewNop())
	require.NoError(t, h.Handle(context.Background(), evt))

	assert.Equal(t, 1, inner.count())
	assert.Equal(t, IdempotencyStats{Processed: 1}, h.Stats())
	assert.Equal(t, []string{"PaymentCreated"}, h.EventTypes())
	store.AssertExpectations(t)
}

func TestIdempotentHandler_DuplicateIsSkipped(t *testing.T) {
	inner := newTestHandler("PaymentCreated")
	store := new(mockIdempotencyStore)
	store.On("MarkProcessed", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)

	h := NewIdempotentHandler(inner, store, zap.NewNop())
	require.NoError(t, h.Handle(context.Background(), newTestEvent("PaymentCreated")))

	assert.Zero(t, inner.count())
	assert.Equal(t, int64(1), h.Stats().Duplicate)
}

func TestIdempotentHandler_FailureReleasesKey(t *testing.T) {
	inner := newTestHandler("PaymentCreated")
	inner.err = errors.New("issuer rejected")
	store := new(mockIdempotencyStore)
	evt := newTestEvent("PaymentCreated")
	store.On("MarkProcessed", mock.Anything, EventIDKey(evt), mock.Anything).Return(true, nil)
	store.On("Release", mock.Anything, EventIDKey(evt)).Return(nil)

	h := NewIdempotentHandler(inner, store, zap.NewNop())
	err := h.Handle(context.Background(), evt)

	assert.ErrorIs(t, err, inner.err)
	assert.Equal(t, int64(1), h.Stats().Failed)
	store.AssertExpectations(t)
}

func TestIdempotentHandler_StoreErrorStillHandles(t *testing.T) {
	inner := newTestHandler("PaymentCreated")
	store := new(mockIdempotencyStore)
	store.On("MarkProcessed", mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("redis down"))

	h := NewIdempotentHandler(inner, store, zap.NewNop())
	require.NoError(t, h.Handle(context.Background(), newTestEvent("PaymentCreated")))
	assert.Equal(t, 1, inner.count())
}

func TestIdempotentHandler_Options(t *testing.T) {
	inner := newTestHandler("PaymentCreated")
	store := new(mockIdempotencyStore)
	store.On("MarkProcessed", mock.Anything, "custom", time.Minute).Return(true, nil)

	h := NewIdempotentHandler(inner, store, zap.NewNop(),
		WithIdempotencyConfig(shared.IdempotencyConfig{TTL: time.Minute, Enabled: true}),
		WithKeyFunc(func(shared.DomainEvent) string { return "custom" }),
	)
	require.NoError(t, h.Handle(context.Background(), newTestEvent("PaymentCreated")))
	store.AssertExpectations(t)

	disabled := NewIdempotentHandler(inner, store, zap.NewNop(),
		WithIdempotencyConfig(shared.IdempotencyConfig{Enabled: false}))
	require.NoError(t, disabled.Handle(context.Background(), newTestEvent("PaymentCreated")))
	assert.Equal(t, 2, inner.count())
	store.AssertNumberOfCalls(t, "MarkProcessed", 1)
}

package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/bankrecon/internal/domain/finance"
	"github.com/erp/bankrecon/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockOutboxRepository struct {
	mock.Mock
}

func (m *mockOutboxRepository) Save(ctx context.Context, entries ...*shared.OutboxEntry) error {
	return m.Called(ctx, entries).Error(0)
}

func (m *mockOutboxRepository) FindPending(ctx context.Context, limit int) ([]*shared.OutboxEntry, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*shared.OutboxEntry), args.Error(1)
}

func (m *mockOutboxRepository) FindRetryable(ctx context.Context, before time.Time, limit int) ([]*shared.OutboxEntry, error) {
	args := m.Called(ctx, before, limit)
	return args.Get(0).([]*shared.OutboxEntry), args.Error(1)
}

func (m *mockOutboxRepository) MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*shared.OutboxEntry, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]*shared.OutboxEntry), args.Error(1)
}

func (m *mockOutboxRepository) Update(ctx context.Context, entry *shared.OutboxEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockOutboxRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

type publisherFunc func(ctx context.Context, events ...shared.DomainEvent) error

func (f publisherFunc) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	return f(ctx, events...)
}

func newProcessorFixture(t *testing.T, publish publisherFunc) (*OutboxProcessor, *mockOutboxRepository, *shared.OutboxEntry) {
	t.Helper()
	serializer := NewEventSerializer()
	RegisterReconciliationEvents(serializer)

	evt := newPaymentCreatedEvent(t)
	payload, err := serializer.Serialize(evt)
	require.NoError(t, err)
	entry := shared.NewOutboxEntry(evt, payload)

	repo := new(mockOutboxRepository)
	p := NewOutboxProcessor(repo, publish, serializer, OutboxProcessorConfig{BatchSize: 10}, zap.NewNop())
	return p, repo, entry
}

func TestOutboxProcessor_DeliversPending(t *testing.T) {
	var published []shared.DomainEvent
	p, repo, entry := newProcessorFixture(t, func(_ context.Context, events ...shared.DomainEvent) error {
		published = append(published, events...)
		return nil
	})

	repo.On("FindPending", mock.Anything, 10).Return([]*shared.OutboxEntry{entry}, nil)
	repo.On("MarkProcessing", mock.Anything, []uuid.UUID{entry.ID}).Return([]*shared.OutboxEntry{entry}, nil)
	repo.On("Update", mock.Anything, entry).Return(nil)
	repo.On("FindRetryable", mock.Anything, mock.Anything, 10).Return([]*shared.OutboxEntry{}, nil)

	assert.Equal(t, 1, p.ProcessOnce(context.Background()))
	require.Len(t, published, 1)
	assert.Equal(t, finance.EventTypePaymentCreated, published[0].EventType())
	assert.Equal(t, shared.OutboxStatusSent, entry.Status)
	assert.NotNil(t, entry.ProcessedAt)
	repo.AssertExpectations(t)
}

func TestOutboxProcessor_FailedDeliveryIsScheduledForRetry(t *testing.T) {
	p, repo, entry := newProcessorFixture(t, func(context.Context, ...shared.DomainEvent) error {
		return errors.New("tax service down")
	})

	repo.On("FindPending", mock.Anything, 10).Return([]*shared.OutboxEntry{entry}, nil)
	repo.On("MarkProcessing", mock.Anything, []uuid.UUID{entry.ID}).Return([]*shared.OutboxEntry{entry}, nil)
	repo.On("Update", mock.Anything, entry).Return(nil)
	repo.On("FindRetryable", mock.Anything, mock.Anything, 10).Return([]*shared.OutboxEntry{}, nil)

	assert.Zero(t, p.ProcessOnce(context.Background()))
	assert.Equal(t, shared.OutboxStatusFailed, entry.Status)
	assert.Equal(t, 1, entry.RetryCount)
	assert.Equal(t, "tax service down", entry.LastError)
	assert.NotNil(t, entry.NextRetryAt)
}

func TestOutboxProcessor_UnknownEventTypeGoesDead(t *testing.T) {
	p, repo, entry := newProcessorFixture(t, func(context.Context, ...shared.DomainEvent) error { return nil })
	entry.EventType = "LegacyEvent"
	entry.Status = shared.OutboxStatusFailed
	entry.RetryCount = entry.MaxRetries - 1

	repo.On("FindPending", mock.Anything, 10).Return([]*shared.OutboxEntry{}, nil)
	repo.On("FindRetryable", mock.Anything, mock.Anything, 10).Return([]*shared.OutboxEntry{entry}, nil)
	repo.On("MarkProcessing", mock.Anything, []uuid.UUID{entry.ID}).Return([]*shared.OutboxEntry{entry}, nil)
	repo.On("Update", mock.Anything, entry).Return(nil)

	assert.Zero(t, p.ProcessOnce(context.Background()))
	assert.True(t, entry.IsDead())
}

func TestOutboxProcessor_StartStop(t *testing.T) {
	p, repo, _ := newProcessorFixture(t, func(context.Context, ...shared.DomainEvent) error { return nil })
	p.config.PollInterval = 10 * time.Millisecond
	p.config.CleanupEnabled = false
	repo.On("FindPending", mock.Anything, 10).Return([]*shared.OutboxEntry{}, nil).Maybe()
	repo.On("FindRetryable", mock.Anything, mock.Anything, 10).Return([]*shared.OutboxEntry{}, nil).Maybe()

	require.NoError(t, p.Start(context.Background()))
	time.Sleep(30 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, p.Stop(ctx))
}

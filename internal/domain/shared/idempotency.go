package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers which event deliveries have been handled so that
// a redelivered PaymentCreated event does not issue a second tax invoice.
type IdempotencyStore interface {
	// MarkProcessed claims key for ttl. It reports false when the key was
	// already claimed.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, key string) (bool, error)
	// Release drops a claim after a failed delivery so the retry is not skipped.
	Release(ctx context.Context, key string) error
	Close() error
}

// IdempotencyConfig controls the idempotent handler wrapper.
type IdempotencyConfig struct {
	Enabled bool
	TTL     time.Duration
}

const defaultIdempotencyTTL = 24 * time.Hour

func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{Enabled: true, TTL: defaultIdempotencyTTL}
}

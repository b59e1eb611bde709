package ports

import (
	"context"
	"errors"
)

// ErrDuplicateKey reports an idempotency key that already resolved to an
// order. Not a failure: the coordinator answers with the original result.
var ErrDuplicateKey = errors.New("idempotency key already recorded")

// IdempotencyGuard deduplicates create requests retried by unreliable
// channels, keyed by (channel, key), with bounded retention.
type IdempotencyGuard interface {
	// Lookup resolves a previously recorded key to its order id.
	Lookup(ctx context.Context, channel, key string) (orderID string, ok bool, err error)
	// Record stores the mapping within the ambient transaction. A concurrent
	// or repeated record of the same key returns ErrDuplicateKey.
	Record(ctx context.Context, channel, key, orderID string) error
	// PurgeExpired drops records older than the retention window.
	PurgeExpired(ctx context.Context) (int64, error)
}

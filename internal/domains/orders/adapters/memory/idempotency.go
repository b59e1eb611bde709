package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dealgrid/ordercore/internal/domains/orders/ports"
)

// DefaultIdempotencyTTL is the fallback retention window for recorded keys.
const DefaultIdempotencyTTL = 24 * time.Hour

var _ ports.IdempotencyGuard = (*IdempotencyGuard)(nil)

type idemKey struct {
	channel string
	key     string
}

type idemRecord struct {
	orderID    string
	recordedAt time.Time
}

// IdempotencyGuard deduplicates create requests in memory with bounded
// retention, mirroring the postgres adapter.
type IdempotencyGuard struct {
	mu      sync.Mutex
	ttl     time.Duration
	records map[idemKey]idemRecord
}

// NewIdempotencyGuard creates a guard with the given retention window.
func NewIdempotencyGuard(ttl time.Duration) *IdempotencyGuard {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &IdempotencyGuard{ttl: ttl, records: make(map[idemKey]idemRecord)}
}

// Lookup resolves a live key to its order id; expired records count as absent.
func (g *IdempotencyGuard) Lookup(_ context.Context, channel, key string) (string, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	record, ok := g.records[idemKey{channel: channel, key: key}]
	if !ok || g.expired(record, time.Now()) {
		return "", false, nil
	}
	return record.orderID, true, nil
}

// Record stores the mapping once; a live duplicate returns ErrDuplicateKey.
func (g *IdempotencyGuard) Record(_ context.Context, channel, key, orderID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := time.Now()
	k := idemKey{channel: channel, key: key}
	if record, ok := g.records[k]; ok && !g.expired(record, now) {
		return ports.ErrDuplicateKey
	}
	g.records[k] = idemRecord{orderID: orderID, recordedAt: now}
	return nil
}

// PurgeExpired drops records past the retention window.
func (g *IdempotencyGuard) PurgeExpired(_ context.Context) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := time.Now()
	var purged int64
	for k, record := range g.records {
		if g.expired(record, now) {
			delete(g.records, k)
			purged++
		}
	}
	return purged, nil
}

func (g *IdempotencyGuard) expired(record idemRecord, now time.Time) bool {
	return now.Sub(record.recordedAt) > g.ttl
}

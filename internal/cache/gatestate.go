// Package cache is a read-replica cache for gate decisions, letting a
// horizontally-scaled ops surface (or a second process probing recent gate
// behavior) read the latest outcome for a symbol without hitting the
// in-process gate state. Grounded on the teacher's redis.Client cache
// wrapper, generalized from provider response caching to gate snapshots.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// GateSnapshot is the cached view of the most recent evaluation for a
// symbol on a given gate.
type GateSnapshot struct {
	Gate       string `json:"gate"`
	Symbol     string `json:"symbol"`
	Outcome    string `json:"outcome"`
	ReasonCode string `json:"reason_code"`
	AtMs       int64  `json:"at_ms"`
}

// GateStateCache is a best-effort, TTL-bounded read replica. A Redis outage
// degrades every call to a miss/no-op rather than failing the caller — the
// in-process gate remains authoritative, this cache only serves stale reads
// to out-of-process observers.
type GateStateCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New builds a cache client against addr/db. Connection is lazy: no network
// call happens until the first Put/Get.
func New(addr string, db int, ttl time.Duration) *GateStateCache {
	return &GateStateCache{
		client: redis.NewClient(&redis.Options{Addr: addr, DB: db}),
		ttl:    ttl,
	}
}

func key(gate, symbol string) string {
	return fmt.Sprintf("execcore:gate:%s:%s", gate, symbol)
}

// Put stores the latest snapshot for gate/symbol, overwriting any prior
// value. Errors are returned for callers that want to log them, but are
// never fatal to the evaluation path that produced the snapshot.
func (c *GateStateCache) Put(ctx context.Context, snap GateSnapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("cache: marshal snapshot: %w", err)
	}
	if err := c.client.Set(ctx, key(snap.Gate, snap.Symbol), b, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache: set %s/%s: %w", snap.Gate, snap.Symbol, err)
	}
	return nil
}

// Get returns the cached snapshot for gate/symbol, and false if absent or
// expired. A Redis error is treated the same as a miss.
func (c *GateStateCache) Get(ctx context.Context, gate, symbol string) (GateSnapshot, bool) {
	raw, err := c.client.Get(ctx, key(gate, symbol)).Result()
	if err != nil {
		return GateSnapshot{}, false
	}
	var snap GateSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return GateSnapshot{}, false
	}
	return snap, true
}

// Ping checks connectivity for the ops health surface.
func (c *GateStateCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (c *GateStateCache) Close() error {
	return c.client.Close()
}

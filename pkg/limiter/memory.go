package limiter

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/simplelru"
)

// record tracks one key's consumption: the count within the active window,
// when that window expires, and (once the budget is exceeded) when the
// block lifts.
type record struct {
	count        int64
	windowExpiry time.Time
	blockExpiry  time.Time
}

// MemoryLimiter is the in-process backend.
//
// It is safe for concurrent use by multiple goroutines, but its state is
// local to the process: in a deployment with N workers an actor's effective
// budget is Points×N. That is an accepted precision tradeoff for a soft
// abuse-mitigation layer, not a security boundary. Use RedisLimiter when a
// single global budget matters.
//
// Per-key records live in an LRU so a churn of anonymous addresses cannot
// grow the map without bound. Evicting a key forgets its window and block,
// which only ever errs on the permissive side.
type MemoryLimiter struct {
	mu      sync.Mutex
	records *lru.LRU[string, *record]

	now        func() time.Time
	maxEntries int
}

// NewMemoryLimiter constructs a MemoryLimiter with empty state.
func NewMemoryLimiter(opts ...MemoryOption) *MemoryLimiter {
	m := &MemoryLimiter{
		now:        time.Now,
		maxEntries: defaultMaxEntries,
	}
	for _, opt := range opts {
		opt(m)
	}
	// error is only possible for a non-positive size, which the option clamps
	m.records, _ = lru.NewLRU[string, *record](m.maxEntries, nil)
	return m
}

// Consume spends one point for key under the given policy.
//
// A key in a block is denied immediately with the remaining block time; a
// fresh or expired window starts over at count 1; otherwise the count is
// incremented and the key enters a block of policy.BlockDuration the moment
// it exceeds policy.Points.
func (m *MemoryLimiter) Consume(_ context.Context, key string, policy Policy) (Decision, error) {
	if key == "" {
		return Decision{}, ErrEmptyKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	stored := policy.storageKey(key)

	rec, ok := m.records.Get(stored)
	if ok && rec.blockExpiry.After(now) {
		return Decision{RetryAfter: rec.blockExpiry.Sub(now)}, nil
	}
	if !ok || !rec.windowExpiry.After(now) {
		m.records.Add(stored, &record{count: 1, windowExpiry: now.Add(policy.Duration)})
		return Decision{Allowed: true, Remaining: policy.Points - 1}, nil
	}

	rec.count++
	if rec.count <= policy.Points {
		return Decision{Allowed: true, Remaining: policy.Points - rec.count}, nil
	}

	rec.blockExpiry = now.Add(policy.BlockDuration)
	rec.windowExpiry = time.Time{}
	return Decision{RetryAfter: policy.BlockDuration}, nil
}

// Len reports how many keys currently hold state.
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records.Len()
}

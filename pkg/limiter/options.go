package limiter

import "time"

const (
	defaultMaxEntries = 65536
	defaultPrefix     = "gate:"
	defaultTimeout    = 5 * time.Second
)

// MemoryOption configures a MemoryLimiter.
type MemoryOption func(*MemoryLimiter)

// WithClock replaces the time source. Tests use this to advance time
// deterministically instead of sleeping.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryLimiter) {
		if now != nil {
			m.now = now
		}
	}
}

// WithMaxEntries caps how many keys the limiter tracks before evicting the
// least recently consumed one (default 65536).
func WithMaxEntries(n int) MemoryOption {
	return func(m *MemoryLimiter) {
		if n > 0 {
			m.maxEntries = n
		}
	}
}

// RedisOption configures a RedisLimiter.
type RedisOption func(*RedisLimiter)

// WithPrefix sets the Redis key prefix (default "gate:"). Set a distinct
// prefix per app when several apps share one Redis.
func WithPrefix(prefix string) RedisOption {
	return func(r *RedisLimiter) {
		r.prefix = prefix
	}
}

// WithTimeout bounds each Redis round trip (default 5s).
func WithTimeout(d time.Duration) RedisOption {
	return func(r *RedisLimiter) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithRecorder injects a metrics backend for the Redis limiter's counters
// and latency observations.
func WithRecorder(rec MetricsRecorder) RedisOption {
	return func(r *RedisLimiter) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

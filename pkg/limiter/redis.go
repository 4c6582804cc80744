package limiter

import (
	"context"
	_ "embed"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

//go:embed window_block.lua
var windowBlockScript string

// RedisLimiter is the distributed backend. The whole
// read/compute/write cycle runs inside a Lua script, so it is safe across
// many application instances while enforcing one global budget per key.
//
// It does not impose a fail-open vs fail-closed policy: when Redis is
// unreachable or the context expires, Consume returns a non-nil error and
// the caller decides whether to deny traffic or let it through.
type RedisLimiter struct {
	client    *redis.Client
	scriptSHA string

	prefix   string
	timeout  time.Duration
	recorder MetricsRecorder
}

// NewRedisLimiter verifies connectivity and loads the consumption script.
// Recreating the limiter reloads the script, which also recovers from a
// Redis restart that cleared the script cache.
func NewRedisLimiter(client *redis.Client, opts ...RedisOption) (*RedisLimiter, error) {
	r := &RedisLimiter{
		client:   client,
		prefix:   defaultPrefix,
		timeout:  defaultTimeout,
		recorder: &NoOpMetricsRecorder{},
	}
	for _, opt := range opts {
		opt(r)
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "pinging redis")
	}
	sha, err := client.ScriptLoad(ctx, windowBlockScript).Result()
	if err != nil {
		return nil, errors.Wrap(err, "loading consumption script")
	}
	r.scriptSHA = sha
	return r, nil
}

// Consume spends one point for key under the given policy. Semantics match
// MemoryLimiter.Consume; the script holds the counter and the block flag in
// two keys whose TTLs carry the window and block expiries.
func (r *RedisLimiter) Consume(ctx context.Context, key string, policy Policy) (Decision, error) {
	if key == "" {
		return Decision{}, ErrEmptyKey
	}

	start := time.Now()
	stored := r.prefix + policy.storageKey(key)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := r.client.EvalSha(ctx, r.scriptSHA, []string{stored, stored + ":block"},
		policy.Points,                       // ARGV[1]
		policy.Duration.Milliseconds(),      // ARGV[2]
		policy.BlockDuration.Milliseconds(), // ARGV[3]
	)

	tags := map[string]string{"policy": policy.KeyPrefix}
	r.recorder.Add("ratelimit.consume", 1, tags)
	r.recorder.Observe("ratelimit.latency", time.Since(start).Seconds(), tags)

	result, err := cmd.Result()
	if err != nil {
		return Decision{}, errors.Wrapf(err, "consuming under policy %q", policy.KeyPrefix)
	}
	values, ok := result.([]interface{})
	if !ok || len(values) != 3 {
		return Decision{}, errors.New("unexpected script reply shape")
	}

	allowed, _ := values[0].(int64)
	retryMs, _ := values[1].(int64)
	remaining, _ := values[2].(int64)

	return Decision{
		Allowed:    allowed == 1,
		Remaining:  remaining,
		RetryAfter: time.Duration(retryMs) * time.Millisecond,
	}, nil
}

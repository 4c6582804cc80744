package limiter

import (
	"context"
	"errors"
	"math"
	"time"
)

// Policy is the full configuration of one named rate limit: how many
// consumptions a key gets per window, how long the window is, and how long
// the key is locked out once it spends more than its budget. KeyPrefix
// namespaces stored state so two policies never share a counter.
type Policy struct {
	Points        int64
	Duration      time.Duration
	BlockDuration time.Duration
	KeyPrefix     string
}

// The four policies shared by every app in the suite. Construct limiters
// explicitly at startup and pass these in; there are no ambient singletons.
var (
	// Pages covers all page and API traffic of an app under one budget.
	Pages = Policy{Points: 30, Duration: 30 * time.Second, BlockDuration: time.Minute, KeyPrefix: "pages"}

	// Actions covers authenticated mutations and queries.
	Actions = Policy{Points: 30, Duration: 30 * time.Second, BlockDuration: 3 * time.Minute, KeyPrefix: "actions"}

	// PublicActions covers endpoints reachable without signing in, which get
	// a tighter budget since they are keyed by network address only.
	PublicActions = Policy{Points: 10, Duration: 30 * time.Second, BlockDuration: time.Minute, KeyPrefix: "public"}

	// ReadOnlyActions covers idempotent lookups and validations that are
	// safe to allow far more often than mutations.
	ReadOnlyActions = Policy{Points: 100, Duration: 30 * time.Second, BlockDuration: time.Minute, KeyPrefix: "readonly"}
)

// storageKey namespaces a caller key under the policy prefix.
func (p Policy) storageKey(key string) string {
	if p.KeyPrefix == "" {
		return key
	}
	return p.KeyPrefix + ":" + key
}

// Decision is the outcome of one consumption attempt.
//
//   - Allowed reports whether the request may proceed.
//   - Remaining is the number of consumptions left in the current window
//     (0 when denied).
//   - RetryAfter is 0 when allowed; when denied it is the time left on the
//     key's block.
type Decision struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// Limiter is the consume contract shared by the in-memory and Redis
// backends. Consume never returns an error for an ordinary denial; a denial
// is a Decision with Allowed=false. Errors are reserved for programming
// mistakes (empty key) and backend failures.
type Limiter interface {
	Consume(ctx context.Context, key string, policy Policy) (Decision, error)
}

// ErrEmptyKey is returned when Consume is called without a key. Deriving
// the key is the caller's job; consuming against "" would silently merge
// unrelated traffic into one bucket.
var ErrEmptyKey = errors.New("limiter: empty key")

// RetryAfterSeconds converts a retry delay to whole seconds for display,
// rounding up so the shown wait is never shorter than the real one. It
// floors at 1 so callers never render "wait 0 seconds".
func RetryAfterSeconds(d time.Duration) int64 {
	secs := int64(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

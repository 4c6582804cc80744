package guard

import (
	"errors"
	"fmt"
	"time"

	"github.com/vbops/accessgate/pkg/limiter"
)

// Kind discriminates gate rejections so callers can render a countdown for
// throttling, a sign-in prompt for missing authentication, and a flat
// permission message for authorization failures.
type Kind int

const (
	KindRateLimited Kind = iota + 1
	KindNotAuthenticated
	KindNotAuthorized
)

func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindNotAuthenticated:
		return "not_authenticated"
	case KindNotAuthorized:
		return "not_authorized"
	}
	return "unknown"
}

// Error is a gate rejection. Handler errors are never wrapped in it; they
// pass through the guards unchanged.
//
// Reason is internal detail for logs only. Ref is a correlation id emitted
// on authorization rejections: it appears in both the log line and the
// user-facing message, so support can match a complaint to a log entry
// without the message leaking permission internals.
type Error struct {
	Kind       Kind
	Action     string
	RetryAfter time.Duration
	Reason     string
	Ref        string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindRateLimited:
		return fmt.Sprintf("%s: too many requests, please wait %d seconds", e.Action, limiter.RetryAfterSeconds(e.RetryAfter))
	case KindNotAuthenticated:
		return fmt.Sprintf("%s: you must be signed in to do this", e.Action)
	case KindNotAuthorized:
		return fmt.Sprintf("%s: you don't have permission to do this (ref %s)", e.Action, e.Ref)
	}
	return fmt.Sprintf("%s: request rejected", e.Action)
}

// RetryAfterSeconds is the whole-second wait for display, at least 1.
func (e *Error) RetryAfterSeconds() int64 {
	return limiter.RetryAfterSeconds(e.RetryAfter)
}

// IsRateLimited reports whether err is a gate rejection caused by
// throttling.
func IsRateLimited(err error) bool {
	return isKind(err, KindRateLimited)
}

// IsNotAuthenticated reports whether err is a gate rejection for a missing
// or unresolvable user.
func IsNotAuthenticated(err error) bool {
	return isKind(err, KindNotAuthenticated)
}

// IsNotAuthorized reports whether err is a gate rejection for insufficient
// permissions.
func IsNotAuthorized(err error) bool {
	return isKind(err, KindNotAuthorized)
}

func isKind(err error, k Kind) bool {
	var ge *Error
	return errors.As(err, &ge) && ge.Kind == k
}

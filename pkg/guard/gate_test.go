package guard

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/vbops/accessgate/pkg/authz"
	"github.com/vbops/accessgate/pkg/limiter"
)

// staticIdentity resolves every request to the same user (or error).
type staticIdentity struct {
	user *authz.User
	err  error
}

func (s *staticIdentity) CurrentUser(ctx context.Context, req Request) (*authz.User, error) {
	return s.user, s.err
}

// spyLimiter records consumption attempts and always allows.
type spyLimiter struct {
	mu    sync.Mutex
	calls int
	keys  []string
}

func (s *spyLimiter) Consume(ctx context.Context, key string, policy limiter.Policy) (limiter.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.keys = append(s.keys, key)
	return limiter.Decision{Allowed: true, Remaining: policy.Points - 1}, nil
}

func (s *spyLimiter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// tightConfig shrinks every budget so tests exhaust them in a few calls
// without manipulating time.
func tightConfig() Config {
	return Config{
		Pages:           limiter.Policy{Points: 2, Duration: 30 * time.Second, BlockDuration: time.Minute, KeyPrefix: "pages"},
		Actions:         limiter.Policy{Points: 1, Duration: 30 * time.Second, BlockDuration: 3 * time.Minute, KeyPrefix: "actions"},
		PublicActions:   limiter.Policy{Points: 1, Duration: 30 * time.Second, BlockDuration: time.Minute, KeyPrefix: "public"},
		ReadOnlyActions: limiter.Policy{Points: 5, Duration: 30 * time.Second, BlockDuration: time.Minute, KeyPrefix: "readonly"},
	}
}

func anonymousHeaders(addr string) http.Header {
	h := http.Header{}
	h.Set("X-Forwarded-For", addr)
	return h
}

func testUser() *authz.User {
	return &authz.User{
		ID:     "user_123",
		Type:   "bpo",
		Slug:   "payer-1",
		Grants: []authz.Grant{{ID: "payer-1", Roles: []string{"view", "edit"}}},
	}
}

// Package guard puts rate limiting and access control in front of page and
// action entry points.
//
// A Gate owns one limiter backend and the four traffic policies, plus the
// identity provider used to resolve the current user. Page handlers call
// CheckPage and follow the returned redirect on denial; action handlers are
// wrapped with Action, PublicAction or ReadOnlyAction and surface typed,
// kind-discriminated errors so callers can tell throttling from permission
// denial.
//
// The limiter itself never logs; rejection logging happens here, carrying
// the action name, error kind and key scope — never the raw user id or
// client address.
package guard

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/vbops/accessgate/pkg/authz"
	"github.com/vbops/accessgate/pkg/limiter"
)

// DefaultNoticePath is the route users are sent to when the page budget is
// spent.
const DefaultNoticePath = "/rate-limit"

// Request is the transport-independent view of an inbound request: the
// path being rendered (or action endpoint hit) and the headers the client
// address is derived from.
type Request struct {
	Path   string
	Header http.Header
}

// IdentityProvider resolves the current user from the request. Returning
// (nil, nil) means anonymous. A resolution error is degraded to anonymous
// by the gate; only guards that require authentication turn that into a
// NotAuthenticated rejection.
type IdentityProvider interface {
	CurrentUser(ctx context.Context, req Request) (*authz.User, error)
}

// Config carries the per-app knobs of a Gate. Zero-value policies fall
// back to the shared defaults in the limiter package.
type Config struct {
	NoticePath string

	Pages           limiter.Policy
	Actions         limiter.Policy
	PublicActions   limiter.Policy
	ReadOnlyActions limiter.Policy
}

// Gate enforces the request budget and access policies of one app.
type Gate struct {
	store    limiter.Limiter
	identity IdentityProvider
	cfg      Config
	log      *zap.Logger
}

// New builds a Gate around an explicitly constructed limiter backend.
// identity may be nil for apps with no signed-in users; log may be nil.
func New(store limiter.Limiter, identity IdentityProvider, cfg Config, log *zap.Logger) *Gate {
	if cfg.NoticePath == "" {
		cfg.NoticePath = DefaultNoticePath
	}
	if cfg.Pages == (limiter.Policy{}) {
		cfg.Pages = limiter.Pages
	}
	if cfg.Actions == (limiter.Policy{}) {
		cfg.Actions = limiter.Actions
	}
	if cfg.PublicActions == (limiter.Policy{}) {
		cfg.PublicActions = limiter.PublicActions
	}
	if cfg.ReadOnlyActions == (limiter.Policy{}) {
		cfg.ReadOnlyActions = limiter.ReadOnlyActions
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Gate{store: store, identity: identity, cfg: cfg, log: log}
}

// user resolves the requester, degrading any provider failure to
// anonymous. Identity resolution and rate limiting stay independent steps:
// a broken identity store must never look like throttling.
func (g *Gate) user(ctx context.Context, req Request) *authz.User {
	if g.identity == nil {
		return nil
	}
	u, err := g.identity.CurrentUser(ctx, req)
	if err != nil {
		g.log.Warn("identity resolution failed, treating request as anonymous", zap.Error(err))
		return nil
	}
	return u
}

package guard

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vbops/accessgate/pkg/authz"
	"github.com/vbops/accessgate/pkg/limiter"
)

// ActionMeta names a guarded action and states its access policy. The
// name appears in every rejection, both in logs and in the error shown to
// the caller.
type ActionMeta struct {
	Name          string
	AllowedTypes  []string
	RequiredRoles []string
	AdminOnly     bool
}

// Action wraps an authenticated mutation or query. The returned function
// resolves the caller, spends one point of the Actions budget keyed by
// user id, evaluates the access policy, and only then invokes handler with
// the resolved user attached. Rejections come back as *Error; handler
// errors pass through unchanged.
func Action[In, Out any](g *Gate, meta ActionMeta, handler func(ctx context.Context, user authz.User, in In) (Out, error)) func(ctx context.Context, req Request, in In) (Out, error) {
	return newAuthenticated(g, meta, g.cfg.Actions, handler)
}

// ReadOnlyAction is Action against the higher-throughput read-only budget.
// Use it for idempotent lookups and validations that are safe to allow far
// more often than mutations.
func ReadOnlyAction[In, Out any](g *Gate, meta ActionMeta, handler func(ctx context.Context, user authz.User, in In) (Out, error)) func(ctx context.Context, req Request, in In) (Out, error) {
	return newAuthenticated(g, meta, g.cfg.ReadOnlyActions, handler)
}

// PublicAction wraps an endpoint open to anonymous callers. The budget is
// keyed by client address under the tighter public-action policy; no
// identity or authorization checks run.
func PublicAction[In, Out any](g *Gate, meta ActionMeta, handler func(ctx context.Context, in In) (Out, error)) func(ctx context.Context, req Request, in In) (Out, error) {
	return func(ctx context.Context, req Request, in In) (Out, error) {
		var zero Out

		key := DeriveKey(nil, ClientAddress(req.Header), ScopeAction)
		dec, err := g.store.Consume(ctx, key, g.cfg.PublicActions)
		if err != nil {
			return zero, err
		}
		if !dec.Allowed {
			return zero, g.rejectRateLimited(meta.Name, dec)
		}
		return handler(ctx, in)
	}
}

func newAuthenticated[In, Out any](g *Gate, meta ActionMeta, policy limiter.Policy, handler func(ctx context.Context, user authz.User, in In) (Out, error)) func(ctx context.Context, req Request, in In) (Out, error) {
	return func(ctx context.Context, req Request, in In) (Out, error) {
		var zero Out

		user := g.user(ctx, req)
		if user == nil || user.ID == "" {
			gerr := &Error{Kind: KindNotAuthenticated, Action: meta.Name}
			g.log.Warn("action rejected",
				zap.String("action", meta.Name),
				zap.String("kind", gerr.Kind.String()))
			return zero, gerr
		}

		key := DeriveKey(user, ClientAddress(req.Header), ScopeAction)
		dec, err := g.store.Consume(ctx, key, policy)
		if err != nil {
			return zero, err
		}
		if !dec.Allowed {
			return zero, g.rejectRateLimited(meta.Name, dec)
		}

		allowed := authz.IsAllowed(*user, authz.Policy{
			AllowedTypes:  meta.AllowedTypes,
			RequiredRoles: meta.RequiredRoles,
			AdminOnly:     meta.AdminOnly,
		})
		if !allowed {
			gerr := &Error{
				Kind:   KindNotAuthorized,
				Action: meta.Name,
				Reason: "permission record does not satisfy the action policy",
				Ref:    uuid.NewString(),
			}
			g.log.Warn("action rejected",
				zap.String("action", meta.Name),
				zap.String("kind", gerr.Kind.String()),
				zap.String("ref", gerr.Ref),
				zap.String("user_type", user.Type))
			return zero, gerr
		}

		return handler(ctx, *user, in)
	}
}

func (g *Gate) rejectRateLimited(action string, dec limiter.Decision) *Error {
	gerr := &Error{Kind: KindRateLimited, Action: action, RetryAfter: dec.RetryAfter}
	g.log.Warn("action rejected",
		zap.String("action", action),
		zap.String("kind", gerr.Kind.String()),
		zap.String("scope", ScopeAction),
		zap.Int64("retry_after_s", gerr.RetryAfterSeconds()))
	return gerr
}

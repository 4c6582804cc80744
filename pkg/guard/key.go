package guard

import (
	"net/http"
	"strings"

	"github.com/vbops/accessgate/pkg/authz"
)

// UnknownAddress is the fallback key component when no address header is
// present at all.
const UnknownAddress = "unknown"

// Key scopes. Every page of an app shares the global budget; every action
// shares the action budget. The scope is what makes the shared budgets
// coherent across distinct routes.
const (
	ScopeGlobal = "global"
	ScopeAction = "action"
)

// ClientAddress extracts the client network address from request headers.
//
// Precedence: X-Forwarded-For (first entry when comma-separated), then
// X-Real-IP, then CF-Connecting-IP, then UnknownAddress. The order
// matters: it decides when a NAT'd pool of anonymous users degrades to one
// shared quota, a tradeoff accepted for anonymous traffic only —
// authenticated traffic is keyed by user id, never by address.
func ClientAddress(h http.Header) string {
	if v := h.Get("X-Forwarded-For"); v != "" {
		if i := strings.IndexByte(v, ','); i >= 0 {
			v = v[:i]
		}
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	if v := strings.TrimSpace(h.Get("X-Real-IP")); v != "" {
		return v
	}
	if v := strings.TrimSpace(h.Get("CF-Connecting-IP")); v != "" {
		return v
	}
	return UnknownAddress
}

// DeriveKey builds the rate-limit key for one request source:
// "user:<id>:<scope>" for an authenticated user, "<addr>:<scope>"
// otherwise. The same source always derives the same key for a given
// scope, independent of which route triggered the check.
func DeriveKey(user *authz.User, addr, scope string) string {
	if user != nil && user.ID != "" {
		return "user:" + user.ID + ":" + scope
	}
	return addr + ":" + scope
}

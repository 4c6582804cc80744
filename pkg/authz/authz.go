// Package authz decides whether a user's permission record satisfies a
// page or action's access policy.
//
// The predicate is pure: the same IsAllowed call gates server-side action
// execution and client-side conditional rendering. Permission records are
// resolved per request from the identity store and are read-only input
// here; nothing in this package mutates or caches them.
package authz

import "slices"

// Grant is a user's role assignment on one specific resource, identified
// by the resource id (for example a payer organization).
type Grant struct {
	ID    string
	Roles []string
}

// User is the permission record of the requester.
type User struct {
	ID    string
	Admin bool

	// Type is the user's role category, e.g. "bpo", "payer", "physician".
	Type string

	// Slug is the currently selected resource context, when one is chosen.
	Slug string

	Grants []Grant
}

// Policy describes what a guarded page or action requires. Zero-value
// fields impose nothing: an empty policy allows everyone.
type Policy struct {
	AllowedTypes  []string
	RequiredRoles []string
	AdminOnly     bool
}

// ResolveGrant picks the grant a role check applies to: the grant matching
// the user's selected slug, or — when no slug is selected — the user's only
// grant if there is exactly one. A selected slug with no matching grant
// resolves to nothing; the single-grant fallback supplies the grant, never
// the roles.
func ResolveGrant(u User) (Grant, bool) {
	if u.Slug != "" {
		for _, g := range u.Grants {
			if g.ID == u.Slug {
				return g, true
			}
		}
		return Grant{}, false
	}
	if len(u.Grants) == 1 {
		return u.Grants[0], true
	}
	return Grant{}, false
}

// IsAllowed reports whether the user may perform an operation guarded by
// the policy. Checks short-circuit in order: admin flag, type allow-list,
// then required roles against the resolved grant.
func IsAllowed(u User, p Policy) bool {
	if p.AdminOnly && !u.Admin {
		return false
	}
	if len(p.AllowedTypes) > 0 && !slices.Contains(p.AllowedTypes, u.Type) {
		return false
	}
	if len(p.RequiredRoles) > 0 {
		grant, ok := ResolveGrant(u)
		if !ok {
			return false
		}
		for _, role := range p.RequiredRoles {
			if !slices.Contains(grant.Roles, role) {
				return false
			}
		}
	}
	return true
}

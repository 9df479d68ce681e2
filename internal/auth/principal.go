// Package auth carries caller identity and the scopes that gate domain
// management.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Scopes understood by the runtime.
const (
	ScopeAll       = "*"
	ScopeDomainAll = "domain:*"
	ScopeRead      = "domain:read"
	ScopeManage    = "domain:manage"
)

// ErrPermission is returned when the caller lacks a required scope.
var ErrPermission = errors.New("permission denied")

// Principal represents the authenticated identity of a caller.
type Principal struct {
	// ID is the stable, unique identifier for the user.
	// It is either the explicit User from config or a hash of the token.
	ID string

	// Token is the raw authentication token (optional, usually kept empty for security in logs).
	Token string

	// Scopes are the permissions granted to this principal.
	Scopes []string

	// User is the human-readable username if configured (e.g., "ops").
	User string
}

// NewPrincipal creates a Principal from a token and optional user/scopes.
func NewPrincipal(token string, user string, scopes []string) *Principal {
	id := user
	if id == "" {
		// "t_" prefix to distinguish from potential username collisions
		hash := sha256.Sum256([]byte(token))
		id = "t_" + hex.EncodeToString(hash[:])[:16]
	}

	return &Principal{
		ID:     id,
		Token:  token,
		Scopes: normalizeScopes(scopes),
		User:   user,
	}
}

// System returns the in-process principal holding every scope. The daemon
// uses it to animate domains declared in configuration.
func System() *Principal {
	return &Principal{ID: "system", User: "system", Scopes: []string{ScopeAll}}
}

// Anonymous is the principal for unauthenticated callers when anonymous
// access is enabled. It can only read.
func Anonymous() *Principal {
	return &Principal{ID: "anonymous", User: "anonymous", Scopes: []string{ScopeRead}}
}

func normalizeScopes(scopes []string) []string {
	out := make([]string, 0, len(scopes))
	seen := map[string]struct{}{}
	for _, s := range scopes {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// HasScope reports whether p holds scope, directly or implied. Manage
// implies read; wildcards imply everything they cover.
func (p *Principal) HasScope(scope string) bool {
	if p == nil {
		return false
	}
	scope = strings.ToLower(scope)
	for _, s := range p.Scopes {
		switch {
		case s == ScopeAll, s == scope:
			return true
		case s == ScopeDomainAll && strings.HasPrefix(scope, "domain:"):
			return true
		case s == ScopeManage && scope == ScopeRead:
			return true
		}
	}
	return false
}

type principalKey struct{}

// ContextWithPrincipal attaches p to ctx.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal attached to ctx, if any.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	if ctx == nil {
		return nil, false
	}
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

// Require fails with ErrPermission unless the principal in ctx holds scope.
func Require(ctx context.Context, scope string) error {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return fmt.Errorf("%w: no principal, %s required", ErrPermission, scope)
	}
	if !p.HasScope(scope) {
		return fmt.Errorf("%w: %s lacks %s", ErrPermission, p.ID, scope)
	}
	return nil
}

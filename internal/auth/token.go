// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/ManuGH/animator/internal/log"
)

// ExtractToken retrieves the API token from the request.
// 1. Authorization: Bearer <token>
// 2. Header: X-API-Token
// 3. Query: ?token= (If enabled)
func ExtractToken(r *http.Request, allowQuery bool) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}

	if t := r.Header.Get("X-API-Token"); t != "" {
		return t
	}

	if allowQuery {
		if t := r.URL.Query().Get("token"); t != "" {
			log.L().Warn().
				Str(log.FieldPath, r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Msg("query parameter authentication is insecure (tokens end up in proxy logs), use the Authorization header")
			return t
		}
	}

	return ""
}

// AuthorizeToken returns true if got matches expected using constant-time comparison.
// Empty tokens are always treated as unauthorized.
func AuthorizeToken(got, expected string) bool {
	if strings.TrimSpace(expected) == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}

// Credential binds a token to a user and its scopes.
type Credential struct {
	Token  string
	User   string
	Scopes []string
}

// Authenticator resolves tokens to principals.
type Authenticator struct {
	creds []Credential
}

// NewAuthenticator copies creds. Credentials without scopes get read access.
func NewAuthenticator(creds []Credential) *Authenticator {
	out := make([]Credential, 0, len(creds))
	for _, c := range creds {
		if strings.TrimSpace(c.Token) == "" {
			continue
		}
		scopes := append([]string(nil), c.Scopes...)
		if len(scopes) == 0 {
			scopes = []string{ScopeRead}
		}
		out = append(out, Credential{Token: c.Token, User: c.User, Scopes: scopes})
	}
	return &Authenticator{creds: out}
}

// Empty reports whether no credential is configured.
func (a *Authenticator) Empty() bool {
	return a == nil || len(a.creds) == 0
}

// Authenticate returns the principal for token. Every credential is
// compared so the timing does not depend on which one matched.
func (a *Authenticator) Authenticate(token string) (*Principal, bool) {
	if a == nil || token == "" {
		return nil, false
	}
	var match *Credential
	for i := range a.creds {
		if AuthorizeToken(token, a.creds[i].Token) && match == nil {
			match = &a.creds[i]
		}
	}
	if match == nil {
		return nil, false
	}
	return NewPrincipal(match.Token, match.User, match.Scopes), true
}

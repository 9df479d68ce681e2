// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"

	"github.com/ManuGH/animator/internal/auth"
	"github.com/ManuGH/animator/internal/log"
)

// authMiddleware resolves the caller to a principal. Without a token the
// request is rejected unless anonymous access is enabled, in which case
// the caller may read but never manage.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		authn := s.authn
		anonymous := s.anonymous
		allowQuery := s.cfg.AllowQueryToken
		s.mu.RUnlock()

		logger := log.WithComponentFromContext(r.Context(), "auth")

		token := auth.ExtractToken(r, allowQuery)
		if token == "" {
			if anonymous {
				ctx := auth.ContextWithPrincipal(r.Context(), auth.Anonymous())
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			if authn.Empty() {
				logger.Error().Str(log.FieldEvent, "auth.fail_closed").
					Msg("no API tokens configured and anonymous access disabled; denying access")
			} else {
				logger.Warn().Str(log.FieldEvent, "auth.missing_token").Msg("authorization header missing")
			}
			RespondError(w, r, http.StatusUnauthorized, codeUnauthorized, "")
			return
		}

		p, ok := authn.Authenticate(token)
		if !ok {
			logger.Warn().Str(log.FieldEvent, "auth.invalid_token").Msg("invalid api token")
			RespondError(w, r, http.StatusUnauthorized, codeUnauthorized, "")
			return
		}

		ctx := auth.ContextWithPrincipal(r.Context(), p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// scopeMiddleware enforces that the principal holds scope.
func (s *Server) scopeMiddleware(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := auth.Require(r.Context(), scope); err != nil {
				logger := log.WithComponentFromContext(r.Context(), "authz")
				ev := logger.Warn().Str("required_scope", scope)
				if p, ok := auth.PrincipalFromContext(r.Context()); ok {
					ev = ev.Str(log.FieldPrincipal, p.ID).Strs("scopes", p.Scopes)
				}
				ev.Msg("insufficient scopes for request")
				RespondError(w, r, http.StatusForbidden, codeForbidden, err.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// mutationLimit applies the lifecycle budget for op, keyed by principal.
func (s *Server) mutationLimit(op string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.mu.RLock()
			limiter := s.mutations
			s.mu.RUnlock()
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}
			limiter.Middleware(op, principalKey)(next).ServeHTTP(w, r)
		})
	}
}

func principalKey(r *http.Request) string {
	if p, ok := auth.PrincipalFromContext(r.Context()); ok {
		return p.ID
	}
	return ""
}

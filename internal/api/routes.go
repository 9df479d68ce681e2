// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/animator/internal/api/middleware"
	"github.com/ManuGH/animator/internal/auth"
	"github.com/ManuGH/animator/internal/ratelimit"
)

func (s *Server) routes() http.Handler {
	s.mu.RLock()
	rateLimit := s.cfg.RateLimit
	s.mu.RUnlock()

	r := middleware.NewRouter(middleware.StackConfig{
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		TracingService:        "animatord-api",
		EnableLogging:         true,
		RateLimit:             rateLimit,
	})

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Group(func(r chi.Router) {
			r.Use(s.scopeMiddleware(auth.ScopeRead))
			r.Get("/domains", s.handleListDomains)
			r.Get("/domains/{id}", s.handleGetDomain)
			r.Get("/domains/{id}/queue", s.handleGetQueue)
			r.Get("/controller", s.handleGetController)
			r.Get("/system/version", s.handleVersion)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.scopeMiddleware(auth.ScopeManage))
			r.With(s.mutationLimit(ratelimit.OpCreate)).Post("/domains", s.handleCreateDomain)
			r.With(s.mutationLimit(ratelimit.OpTerminate)).Delete("/domains/{id}", s.handleDeleteDomain)
			r.With(s.mutationLimit(ratelimit.OpAnimate)).Post("/domains/{id}/animate", s.handleAnimate)
			r.With(s.mutationLimit(ratelimit.OpTerminate)).Post("/domains/{id}/terminate", s.handleTerminate)
			r.With(s.mutationLimit(ratelimit.OpStatus)).Put("/domains/{id}/status", s.handleSetStatus)
			r.With(s.mutationLimit(ratelimit.OpScan)).Post("/controller/scan", s.handleScan)
			r.Post("/system/reload", s.handleReload)
		})
	})

	return r
}

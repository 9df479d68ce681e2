// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api provides the admin HTTP surface of animatord.
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/animator/internal/auth"
	"github.com/ManuGH/animator/internal/config"
	"github.com/ManuGH/animator/internal/health"
	"github.com/ManuGH/animator/internal/host"
	xglog "github.com/ManuGH/animator/internal/log"
	"github.com/ManuGH/animator/internal/ratelimit"
)

// Server represents the admin HTTP API.
type Server struct {
	host *host.Host

	mu           sync.RWMutex
	cfg          config.ServerConfig
	anonymous    bool
	authn        *auth.Authenticator
	mutations    *ratelimit.Limiter
	configHolder ConfigHolder
	health       *health.Manager
	version      string

	startTime time.Time
	logger    zerolog.Logger
}

// ConfigHolder allows hot configuration reloading without import cycles.
// Implemented by config.ConfigHolder.
type ConfigHolder interface {
	Get() config.AppConfig
	Reload(ctx context.Context) error
}

// ServerOption allows functional configuration of the Server.
type ServerOption func(*Server)

// WithConfigHolder enables POST /api/v1/system/reload.
func WithConfigHolder(h ConfigHolder) ServerOption {
	return func(s *Server) {
		s.configHolder = h
	}
}

// WithHealthManager serves /healthz and /readyz from m.
func WithHealthManager(m *health.Manager) ServerOption {
	return func(s *Server) {
		s.health = m
	}
}

func WithLogger(l zerolog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// New builds a server over h configured from cfg.
func New(h *host.Host, cfg config.AppConfig, opts ...ServerOption) *Server {
	s := &Server{
		host:      h,
		version:   cfg.Version,
		startTime: time.Now(),
		logger:    xglog.WithComponent("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.health == nil {
		s.health = health.NewManager(cfg.Version)
	}
	s.ApplyConfig(cfg)
	return s
}

// ApplyConfig swaps credentials and limits. Listen address and timeouts
// only take effect on restart.
func (s *Server) ApplyConfig(cfg config.AppConfig) {
	creds := make([]auth.Credential, 0, len(cfg.Auth.Tokens))
	for _, t := range cfg.Auth.Tokens {
		creds = append(creds, auth.Credential{
			Token:  t.Token,
			User:   t.User,
			Scopes: append([]string(nil), t.Scopes...),
		})
	}

	var limiter *ratelimit.Limiter
	if cfg.Server.MutationRate > 0 {
		limiter = ratelimit.New(ratelimit.FromRate(cfg.Server.MutationRate))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg.Server
	s.anonymous = cfg.Auth.Anonymous
	s.authn = auth.NewAuthenticator(creds)
	s.mutations = limiter
}

// Host returns the runtime host served by s.
func (s *Server) Host() *host.Host {
	return s.host
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.routes()
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package host owns the domains of one runtime together with the
// controller that supervises their concurrent animators.
package host

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/animator/internal/animator"
	"github.com/ManuGH/animator/internal/auth"
	"github.com/ManuGH/animator/internal/controller"
	"github.com/ManuGH/animator/internal/domain"
	xglog "github.com/ManuGH/animator/internal/log"
	"github.com/ManuGH/animator/internal/telemetry"
)

// Config bundles the sizing for new domains and the controller tuning.
type Config struct {
	Domain     domain.Config
	Controller controller.Config
	// Supervise runs the controller loop from Run. Registration happens
	// regardless so ScanOnce still works.
	Supervise bool
}

// Host is safe for concurrent use.
type Host struct {
	registry   *controller.Registry
	controller *controller.Controller
	reporter   animator.ErrorReporter
	logger     zerolog.Logger
	tracer     trace.Tracer

	mu        sync.RWMutex
	domainCfg domain.Config
	supervise bool
	domains   map[string]*domain.Domain
	closed    bool
}

// Option configures a Host.
type Option func(*Host)

// WithReporter is handed to every domain the host creates.
func WithReporter(r animator.ErrorReporter) Option {
	return func(h *Host) {
		h.reporter = r
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(h *Host) {
		h.logger = l
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(h *Host) {
		h.tracer = t
	}
}

// New validates cfg and builds an empty host.
func New(cfg Config, opts ...Option) (*Host, error) {
	if err := cfg.Domain.Validate(); err != nil {
		return nil, fmt.Errorf("domain config: %w", err)
	}
	h := &Host{
		registry:  controller.NewRegistry(),
		logger:    xglog.WithComponent("host"),
		tracer:    telemetry.Tracer("host"),
		domainCfg: cfg.Domain,
		supervise: cfg.Supervise,
		domains:   make(map[string]*domain.Domain),
	}
	for _, opt := range opts {
		opt(h)
	}

	ctrl, err := controller.New(cfg.Controller, h.registry,
		controller.WithLogger(h.logger.With().Str(xglog.FieldComponent, "controller").Logger()),
		controller.WithTracer(h.tracer))
	if err != nil {
		return nil, fmt.Errorf("controller config: %w", err)
	}
	h.controller = ctrl
	return h, nil
}

func (h *Host) Controller() *controller.Controller {
	return h.controller
}

func (h *Host) Registry() *controller.Registry {
	return h.registry
}

// Create registers a new unanimated domain. The caller needs
// auth.ScopeManage.
func (h *Host) Create(ctx context.Context, id string) (*domain.Domain, error) {
	if err := auth.Require(ctx, auth.ScopeManage); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, fmt.Errorf("%w: host is shut down", animator.ErrIllegalState)
	}
	if _, ok := h.domains[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDomainExists, id)
	}

	opts := []domain.Option{
		domain.WithSupervisor(h.registry),
		domain.WithLogger(h.logger.With().Str(xglog.FieldComponent, "domain").Logger()),
		domain.WithTracer(h.tracer),
	}
	if h.reporter != nil {
		opts = append(opts, domain.WithReporter(h.reporter))
	}
	d, err := domain.New(id, h.domainCfg, opts...)
	if err != nil {
		return nil, err
	}
	h.domains[id] = d

	logger := xglog.WithContext(ctx, h.logger)
	logger.Info().
		Str(xglog.FieldEvent, "host.domain_created").
		Str(xglog.FieldDomainID, id).
		Msg("domain created")
	return d, nil
}

// Ensure returns the domain with id, creating it when missing, and
// animates it.
func (h *Host) Ensure(ctx context.Context, id string, singleThreaded, isRoot bool) (*domain.Domain, error) {
	d, err := h.Create(ctx, id)
	if errors.Is(err, ErrDomainExists) {
		d, err = h.Get(id)
	}
	if err != nil {
		return nil, err
	}
	if err := d.Animate(ctx, singleThreaded, isRoot); err != nil {
		return nil, err
	}
	return d, nil
}

// Get looks a domain up by id.
func (h *Host) Get(id string) (*domain.Domain, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	d, ok := h.domains[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDomainNotFound, id)
	}
	return d, nil
}

// List returns every domain ordered by id.
func (h *Host) List() []*domain.Domain {
	h.mu.RLock()
	out := make([]*domain.Domain, 0, len(h.domains))
	for _, d := range h.domains {
		out = append(out, d)
	}
	h.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Describe snapshots every domain ordered by id.
func (h *Host) Describe() []domain.Info {
	domains := h.List()
	out := make([]domain.Info, 0, len(domains))
	for _, d := range domains {
		out = append(out, d.Describe())
	}
	return out
}

// Len reports the number of domains.
func (h *Host) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.domains)
}

// Remove terminates the domain and forgets it. The domain stays registered
// when termination fails.
func (h *Host) Remove(ctx context.Context, id string) error {
	d, err := h.Get(id)
	if err != nil {
		return err
	}
	if err := d.Terminate(ctx); err != nil {
		return err
	}

	h.mu.Lock()
	if h.domains[id] == d {
		delete(h.domains, id)
	}
	h.mu.Unlock()

	logger := xglog.WithContext(ctx, h.logger)
	logger.Info().
		Str(xglog.FieldEvent, "host.domain_removed").
		Str(xglog.FieldDomainID, id).
		Msg("domain removed")
	return nil
}

// Reconfigure applies new sizing to domains created afterwards and swaps
// the controller tuning. Animated domains keep their animator.
func (h *Host) Reconfigure(cfg Config) error {
	if err := cfg.Domain.Validate(); err != nil {
		return fmt.Errorf("domain config: %w", err)
	}
	if err := h.controller.Reconfigure(cfg.Controller); err != nil {
		return fmt.Errorf("controller config: %w", err)
	}
	h.mu.Lock()
	h.domainCfg = cfg.Domain
	h.mu.Unlock()
	return nil
}

// Run drives the controller loop until ctx is cancelled. With supervision
// disabled it only waits for ctx.
func (h *Host) Run(ctx context.Context) error {
	h.mu.RLock()
	supervise := h.supervise
	h.mu.RUnlock()
	if !supervise {
		h.logger.Info().Str(xglog.FieldEvent, "host.supervision_disabled").Msg("backlog supervision disabled")
		<-ctx.Done()
		return nil
	}
	return h.controller.Run(ctx)
}

// Shutdown terminates every domain with system privileges and refuses
// further Create calls. All failures are joined.
func (h *Host) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	domains := make([]*domain.Domain, 0, len(h.domains))
	for _, d := range h.domains {
		domains = append(domains, d)
	}
	h.mu.Unlock()

	ctx = auth.ContextWithPrincipal(ctx, auth.System())
	var errs []error
	for _, d := range domains {
		if err := d.Terminate(ctx); err != nil {
			errs = append(errs, fmt.Errorf("terminate domain %s: %w", d.ID(), err))
			continue
		}
		h.mu.Lock()
		delete(h.domains, d.ID())
		h.mu.Unlock()
	}

	h.logger.Info().
		Str(xglog.FieldEvent, "host.shutdown").
		Int("domains", len(domains)).
		Int("failed", len(errs)).
		Msg("host shut down")
	return errors.Join(errs...)
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package domain binds one animator to one isolation unit for its lifetime.
package domain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/animator/internal/animator"
	"github.com/ManuGH/animator/internal/auth"
	xglog "github.com/ManuGH/animator/internal/log"
	"github.com/ManuGH/animator/internal/telemetry"
)

var (
	// ErrNotAnimated is returned by queries on a domain without an animator.
	// It wraps animator.ErrIllegalState.
	ErrNotAnimated = fmt.Errorf("%w: domain is not animated", animator.ErrIllegalState)

	// ErrNotSerializable is returned when a domain is encoded outside the
	// checkpoint protocol. Checkpoints store a Ref instead.
	ErrNotSerializable = errors.New("concurrency domain cannot be serialized directly")
)

// Supervisor receives concurrent animators for backlog supervision.
// controller.Registry implements it.
type Supervisor interface {
	Add(a animator.Animator)
	Remove(a animator.Animator)
}

// Ref is the stable stand-in a checkpoint stores for a domain.
type Ref struct {
	ID string `json:"id"`
}

// Domain owns at most one animator at a time.
type Domain struct {
	id         string
	cfg        Config
	supervisor Supervisor
	reporter   animator.ErrorReporter
	logger     zerolog.Logger
	tracer     trace.Tracer

	// life serializes Animate, Terminate and SetStatus. mu guards the
	// fields below and is never held across a blocking transition.
	life sync.Mutex

	mu             sync.Mutex
	anim           animator.Animator
	singleThreaded bool
	root           bool
	animatedAt     time.Time
}

// Option configures a Domain.
type Option func(*Domain)

// WithSupervisor registers concurrent animators with s while animated.
func WithSupervisor(s Supervisor) Option {
	return func(d *Domain) {
		d.supervisor = s
	}
}

// WithReporter forwards handler failures to r instead of the log.
func WithReporter(r animator.ErrorReporter) Option {
	return func(d *Domain) {
		d.reporter = r
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(d *Domain) {
		d.logger = l
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(d *Domain) {
		d.tracer = t
	}
}

// New returns an unanimated domain.
func New(id string, cfg Config, opts ...Option) (*Domain, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty domain id", animator.ErrInvalidArgument)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Domain{
		id:     id,
		cfg:    cfg,
		logger: xglog.WithComponent("domain"),
		tracer: telemetry.Tracer("domain"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func (d *Domain) ID() string {
	return d.id
}

func (d *Domain) Ref() Ref {
	return Ref{ID: d.id}
}

// Animate creates and activates the animator. It is a no-op when the
// domain is already animated. The caller needs auth.ScopeManage.
func (d *Domain) Animate(ctx context.Context, singleThreaded, isRoot bool) (err error) {
	if err := auth.Require(ctx, auth.ScopeManage); err != nil {
		return err
	}
	ctx = xglog.ContextWithDomainID(ctx, d.id)
	ctx, span := d.tracer.Start(ctx, "domain.animate",
		trace.WithAttributes(telemetry.DomainAttributes(d.id, isRoot, singleThreaded)...))
	defer endSpan(span, &err)

	d.life.Lock()
	defer d.life.Unlock()
	if d.Animated() {
		return nil
	}

	a, err := d.build(singleThreaded, isRoot)
	if err != nil {
		return err
	}
	if err := a.SetStatus(animator.Active); err != nil {
		_ = a.SetStatus(animator.Terminated)
		return fmt.Errorf("activate animator: %w", err)
	}

	d.mu.Lock()
	d.anim = a
	d.singleThreaded = singleThreaded
	d.root = isRoot
	d.animatedAt = time.Now()
	d.mu.Unlock()

	if concurrent, _ := a.IsConcurrent(); concurrent && d.supervisor != nil {
		d.supervisor.Add(a)
	}

	logger := d.logFor(ctx)
	logger.Info().
		Str(xglog.FieldEvent, "domain.animated").
		Str(xglog.FieldAnimator, a.Name()).
		Bool("single_threaded", singleThreaded).
		Bool("root", isRoot).
		Msg("domain animated")
	return nil
}

// logFor returns the domain logger enriched with the correlation fields and
// active span of ctx.
func (d *Domain) logFor(ctx context.Context) zerolog.Logger {
	return xglog.WithTraceContext(ctx, xglog.WithContext(ctx, d.logger))
}

func endSpan(span trace.Span, err *error) {
	if *err != nil {
		span.RecordError(*err)
		span.SetStatus(codes.Error, (*err).Error())
	}
	span.End()
}

func (d *Domain) build(singleThreaded, isRoot bool) (animator.Animator, error) {
	size := d.cfg.sizing(isRoot)
	opts := []animator.Option{
		animator.WithName("domain-" + d.id),
		animator.WithLogger(d.logger.With().Str(xglog.FieldDomainID, d.id).Logger()),
	}
	if d.reporter != nil {
		opts = append(opts, animator.WithReporter(d.reporter))
	}
	if singleThreaded {
		return animator.NewEventLoop(size.QueueCapacity, opts...)
	}
	opts = append(opts, animator.WithIdleTimeout(d.cfg.IdleTimeout))
	return animator.NewThreadPool(size.QueueCapacity, size.MinThreads, size.MaxThreads, opts...)
}

// Terminate stops the animator, passing through Inactive when it is
// Active, and forgets it. It is a no-op on an unanimated domain. The caller
// needs auth.ScopeManage.
func (d *Domain) Terminate(ctx context.Context) (err error) {
	if err := auth.Require(ctx, auth.ScopeManage); err != nil {
		return err
	}
	ctx = xglog.ContextWithDomainID(ctx, d.id)
	ctx, span := d.tracer.Start(ctx, "domain.terminate",
		trace.WithAttributes(telemetry.DomainAttributes(d.id, d.isRoot(), d.isSingleThreaded())...))
	defer endSpan(span, &err)

	d.life.Lock()
	defer d.life.Unlock()
	a, err := d.Animator()
	if err != nil {
		return nil
	}

	if a.Status() == animator.Active {
		if err := a.SetStatus(animator.Inactive); err != nil {
			return fmt.Errorf("deactivate animator: %w", err)
		}
	}
	if a.Status() != animator.Terminated {
		if err := a.SetStatus(animator.Terminated); err != nil {
			return fmt.Errorf("terminate animator: %w", err)
		}
	}
	d.release(ctx, a)
	return nil
}

// SetStatus moves the animator to s. Reaching Terminated releases the
// animator exactly like Terminate, but without the implicit Inactive step.
func (d *Domain) SetStatus(ctx context.Context, s animator.Status) error {
	if err := auth.Require(ctx, auth.ScopeManage); err != nil {
		return err
	}
	ctx = xglog.ContextWithDomainID(ctx, d.id)

	d.life.Lock()
	defer d.life.Unlock()
	a, err := d.Animator()
	if err != nil {
		return err
	}
	if err := a.SetStatus(s); err != nil {
		return err
	}
	if s == animator.Terminated {
		d.release(ctx, a)
	}
	return nil
}

// release forgets a. Caller holds d.life.
func (d *Domain) release(ctx context.Context, a animator.Animator) {
	if d.supervisor != nil {
		d.supervisor.Remove(a)
	}
	d.mu.Lock()
	lifetime := time.Since(d.animatedAt)
	d.anim = nil
	d.animatedAt = time.Time{}
	d.mu.Unlock()

	logger := d.logFor(ctx)
	logger.Info().
		Str(xglog.FieldEvent, "domain.terminated").
		Str(xglog.FieldAnimator, a.Name()).
		Dur("lifetime", lifetime).
		Msg("domain terminated")
}

func (d *Domain) isRoot() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.root
}

func (d *Domain) isSingleThreaded() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.singleThreaded
}

// Animated reports whether the domain currently owns an animator.
func (d *Domain) Animated() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.anim != nil
}

// Animator returns the current animator or ErrNotAnimated.
func (d *Domain) Animator() (animator.Animator, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.anim == nil {
		return nil, ErrNotAnimated
	}
	return d.anim, nil
}

// IsConcurrent proxies to the animator.
func (d *Domain) IsConcurrent() (bool, error) {
	a, err := d.Animator()
	if err != nil {
		return false, err
	}
	return a.IsConcurrent()
}

// Threads proxies to the animator.
func (d *Domain) Threads() (int, error) {
	a, err := d.Animator()
	if err != nil {
		return 0, err
	}
	return a.Threads()
}

// MarshalJSON refuses direct encoding.
func (d *Domain) MarshalJSON() ([]byte, error) {
	return nil, fmt.Errorf("%w: domain %s", ErrNotSerializable, d.id)
}

// MarshalBinary refuses direct encoding.
func (d *Domain) MarshalBinary() ([]byte, error) {
	return nil, fmt.Errorf("%w: domain %s", ErrNotSerializable, d.id)
}

// GobEncode refuses direct encoding.
func (d *Domain) GobEncode() ([]byte, error) {
	return nil, fmt.Errorf("%w: domain %s", ErrNotSerializable, d.id)
}

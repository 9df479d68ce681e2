// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package controller grows animators whose backlog exceeds a threshold.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/animator/internal/animator"
	xglog "github.com/ManuGH/animator/internal/log"
	"github.com/ManuGH/animator/internal/metrics"
	"github.com/ManuGH/animator/internal/telemetry"
)

// Config tunes the scan loop. All fields must be positive.
type Config struct {
	ScanInterval     time.Duration
	BacklogThreshold int
	GrowBy           int
}

// Validate rejects non-positive settings.
func (c Config) Validate() error {
	if c.ScanInterval <= 0 {
		return fmt.Errorf("%w: scan interval must be positive, got %s", animator.ErrInvalidArgument, c.ScanInterval)
	}
	if c.BacklogThreshold <= 0 {
		return fmt.Errorf("%w: backlog threshold must be positive, got %d", animator.ErrInvalidArgument, c.BacklogThreshold)
	}
	if c.GrowBy <= 0 {
		return fmt.Errorf("%w: grow step must be positive, got %d", animator.ErrInvalidArgument, c.GrowBy)
	}
	return nil
}

// ScanResult summarises one pass over the registry.
type ScanResult struct {
	Scanned int
	Grown   int // threads added across all animators
	Evicted int
}

// Controller periodically inspects registered animators.
type Controller struct {
	registry *Registry
	cfg      atomic.Pointer[Config]
	logger   zerolog.Logger
	tracer   trace.Tracer
	busy     atomic.Bool
	reconf   chan struct{}
	lastScan atomic.Int64 // unix nanos
}

// Option configures a Controller.
type Option func(*Controller)

func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Controller) {
		c.tracer = t
	}
}

// New validates cfg and returns a controller over registry.
func New(cfg Config, registry *Registry, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if registry == nil {
		return nil, fmt.Errorf("%w: nil registry", animator.ErrInvalidArgument)
	}
	c := &Controller{
		registry: registry,
		logger:   xglog.WithComponent("controller"),
		tracer:   telemetry.Tracer("controller"),
		reconf:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cfg.Store(&cfg)
	return c, nil
}

// Registry returns the supervised set.
func (c *Controller) Registry() *Registry {
	return c.registry
}

// Config returns the active tuning.
func (c *Controller) Config() Config {
	return *c.cfg.Load()
}

// Reconfigure swaps the tuning. A running loop picks up a new interval
// immediately.
func (c *Controller) Reconfigure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	old := c.cfg.Swap(&cfg)
	c.logger.Info().
		Str(xglog.FieldEvent, "controller.reconfigured").
		Dur("scan_interval", cfg.ScanInterval).
		Int("backlog_threshold", cfg.BacklogThreshold).
		Int("grow_by", cfg.GrowBy).
		Msg("controller reconfigured")
	if old.ScanInterval != cfg.ScanInterval {
		select {
		case c.reconf <- struct{}{}:
		default:
		}
	}
	return nil
}

// Run scans every ScanInterval until ctx is cancelled. It returns nil on
// cancellation.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info().
		Str(xglog.FieldEvent, "controller.started").
		Dur("scan_interval", c.Config().ScanInterval).
		Msg("controller started")

	timer := time.NewTimer(c.Config().ScanInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Str(xglog.FieldEvent, "controller.stopped").Msg("controller stopped")
			return nil
		case <-c.reconf:
			timer.Reset(c.Config().ScanInterval)
		case <-timer.C:
			c.tryScan(ctx)
			timer.Reset(c.Config().ScanInterval)
		}
	}
}

func (c *Controller) tryScan(ctx context.Context) {
	if !c.busy.CompareAndSwap(false, true) {
		return
	}
	defer c.busy.Store(false)
	c.ScanOnce(ctx)
}

// ScanOnce runs a single pass: every animator whose queue size exceeds the
// threshold gets GrowBy more threads, and animators that report
// ErrIllegalState leave the registry.
func (c *Controller) ScanOnce(ctx context.Context) ScanResult {
	cfg := c.Config()
	_, span := c.tracer.Start(ctx, "controller.scan")
	defer span.End()

	var res ScanResult
	for _, a := range c.registry.Snapshot() {
		if ctx.Err() != nil {
			break
		}
		res.Scanned++

		size, err := a.QueueSize()
		if err != nil {
			if c.evictIfTerminated(a, err) {
				res.Evicted++
			}
			continue
		}
		if size <= cfg.BacklogThreshold {
			continue
		}

		added, err := a.AddThreads(cfg.GrowBy)
		switch {
		case err == nil:
			res.Grown += added
			if added > 0 {
				c.logger.Debug().
					Str(xglog.FieldAnimator, a.Name()).
					Int("backlog", size).
					Int("added", added).
					Msg("grew animator")
			}
		case errors.Is(err, animator.ErrUnsupported):
			// fixed-size animator, nothing to grow
		case c.evictIfTerminated(a, err):
			res.Evicted++
		}
	}

	c.lastScan.Store(time.Now().UnixNano())
	metrics.IncControllerScan()
	metrics.AddControllerGrowth(res.Grown)
	span.SetAttributes(telemetry.ScanAttributes(res.Scanned, res.Grown, res.Evicted)...)
	return res
}

// LastScan returns when the most recent pass finished, zero before the first.
func (c *Controller) LastScan() time.Time {
	ns := c.lastScan.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

func (c *Controller) evictIfTerminated(a animator.Animator, err error) bool {
	if !errors.Is(err, animator.ErrIllegalState) {
		c.logger.Warn().Err(err).Str(xglog.FieldAnimator, a.Name()).Msg("animator query failed")
		return false
	}
	c.registry.Remove(a)
	metrics.IncControllerEviction()
	c.logger.Debug().Str(xglog.FieldAnimator, a.Name()).Msg("terminated animator left supervision")
	return true
}

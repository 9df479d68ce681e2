// SPDX-License-Identifier: MIT

// Package daemon provides the core daemon bootstrapping and lifecycle management.
package daemon

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ManuGH/animator/internal/auth"
	"github.com/ManuGH/animator/internal/config"
	"github.com/ManuGH/animator/internal/host"
	xglog "github.com/ManuGH/animator/internal/log"
)

// SeedDomains creates and animates the domains declared in configuration
// with system privileges. Every spec is attempted; failures are joined.
func SeedDomains(ctx context.Context, h *host.Host, specs []config.DomainSpec, logger zerolog.Logger) error {
	ctx = auth.ContextWithPrincipal(ctx, auth.System())

	var errs []error
	for _, spec := range specs {
		d, err := h.Ensure(ctx, spec.ID, spec.SingleThreaded, spec.Root)
		if err != nil {
			logger.Error().
				Err(err).
				Str(xglog.FieldEvent, "bootstrap.domain_failed").
				Str(xglog.FieldDomainID, spec.ID).
				Msg("failed to animate configured domain")
			errs = append(errs, fmt.Errorf("domain %s: %w", spec.ID, err))
			continue
		}
		info := d.Describe()
		logger.Info().
			Str(xglog.FieldEvent, "bootstrap.domain_ready").
			Str(xglog.FieldDomainID, spec.ID).
			Str(xglog.FieldAnimator, info.Animator).
			Int("queue_capacity", info.QueueCapacity).
			Int("max_threads", info.MaxThreads).
			Msg("configured domain animated")
	}
	return errors.Join(errs...)
}

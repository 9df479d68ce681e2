// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/animator/internal/api"
	"github.com/ManuGH/animator/internal/config"
	"github.com/ManuGH/animator/internal/host"
	xglog "github.com/ManuGH/animator/internal/log"
)

// App owns the long-lived runtime lifecycle (config watcher, reload wiring)
// and delegates server and host management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	cfgHolder    *config.ConfigHolder
	apiServer    *api.Server
	host         *host.Host
	reloadSignal os.Signal
}

// NewApp creates a new App orchestrator. cfgHolder, apiServer and h may be
// nil; reloads then skip the missing parts.
func NewApp(logger zerolog.Logger, manager Manager, cfgHolder *config.ConfigHolder, apiServer *api.Server, h *host.Host) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		cfgHolder:    cfgHolder,
		apiServer:    apiServer,
		host:         h,
		reloadSignal: syscall.SIGHUP,
	}
}

// Run starts all owned background subsystems and blocks until ctx is cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)

	// Config watcher is best-effort: startup should not fail if watcher cannot be started.
	if a.cfgHolder != nil {
		if err := a.cfgHolder.StartWatcher(ctx); err != nil {
			a.logger.Warn().Err(err).Str(xglog.FieldEvent, "config.watcher_start_failed").Msg("failed to start config watcher")
		}
		defer a.cfgHolder.Stop()
	}

	// Apply every successful reload, whether triggered by file, signal or API.
	if a.cfgHolder != nil {
		applyCh := make(chan config.AppConfig, 1)
		a.cfgHolder.RegisterListener(applyCh)

		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case cfg := <-applyCh:
					a.apply(cfg)
				}
			}
		})
	}

	// SIGHUP trigger for manual reload.
	if a.cfgHolder != nil && a.reloadSignal != nil {
		g.Go(func() error {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			defer signal.Stop(hupChan)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hupChan:
					a.logger.Info().
						Str(xglog.FieldEvent, "config.reload_signal").
						Str("signal", a.reloadSignal.String()).
						Msg("received reload signal, reloading config")

					if err := a.cfgHolder.Reload(ctx); err != nil {
						a.logger.Warn().
							Err(err).
							Str(xglog.FieldEvent, "config.reload_failed").
							Msg("config reload failed")
					}
				}
			}
		})
	}

	// Main server lifecycle.
	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		return err
	})

	return g.Wait()
}

// apply pushes a reloaded configuration into the running components.
// Listen address, timeouts and telemetry only change on restart.
func (a *App) apply(cfg config.AppConfig) {
	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: cfg.Version,
	})

	if a.apiServer != nil {
		a.apiServer.ApplyConfig(cfg)
	}
	if a.host != nil {
		if err := a.host.Reconfigure(host.ConfigFrom(cfg)); err != nil {
			a.logger.Error().
				Err(err).
				Str(xglog.FieldEvent, "config.apply_failed").
				Msg("failed to apply reloaded runtime configuration")
			return
		}
	}

	a.logger.Info().
		Str(xglog.FieldEvent, "config.applied").
		Msg("reloaded configuration applied")
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	xglog "github.com/ManuGH/animator/internal/log"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// ConfigHolder holds configuration with atomic reloading capability.
// It provides thread-safe access to configuration and supports hot reloading
// from file or manual trigger via API.
type ConfigHolder struct {
	mu         sync.RWMutex
	current    AppConfig
	loader     *Loader
	configPath string
	watcher    *fsnotify.Watcher
	logger     zerolog.Logger
	reloading  sync.Mutex
	done       chan struct{}

	// Reload notifications
	reloadMu        sync.RWMutex
	reloadListeners []chan<- AppConfig

	debounce time.Duration
}

// NewConfigHolder creates a new configuration holder with initial config.
func NewConfigHolder(initial AppConfig, loader *Loader, configPath string) *ConfigHolder {
	return &ConfigHolder{
		current:         initial,
		loader:          loader,
		configPath:      configPath,
		logger:          xglog.WithComponent("config"),
		reloadListeners: make([]chan<- AppConfig, 0),
		debounce:        500 * time.Millisecond,
	}
}

// Get returns the current configuration (thread-safe read).
func (h *ConfigHolder) Get() AppConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Reload reloads configuration from file and validates it.
// If validation fails, the old configuration is kept and an error is returned.
// This ensures atomic config updates - either the full config is valid and applied,
// or the old config remains unchanged.
func (h *ConfigHolder) Reload(_ context.Context) error {
	h.reloading.Lock()
	defer h.reloading.Unlock()

	h.logger.Info().Str("event", "config.reload_start").Msg("reloading configuration")

	// Load new configuration
	newCfg, err := h.loader.Load()
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("event", "config.reload_failed").
			Msg("failed to load new configuration")
		return fmt.Errorf("load config: %w", err)
	}

	// Atomically swap configuration
	h.mu.Lock()
	oldCfg := h.current
	h.current = newCfg
	h.mu.Unlock()

	// Notify listeners of config change
	h.notifyListeners(newCfg)

	// Log configuration changes
	h.logChanges(oldCfg, newCfg)

	h.logger.Info().
		Str("event", "config.reload_success").
		Msg("configuration reloaded successfully")

	return nil
}

// StartWatcher starts watching the config file for changes.
// If configPath is empty, this is a no-op (config comes from ENV only).
func (h *ConfigHolder) StartWatcher(ctx context.Context) error {
	if h.configPath == "" {
		h.logger.Info().
			Str("event", "config.watcher_disabled").
			Msg("config file watcher disabled (using ENV-only configuration)")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	h.watcher = watcher
	h.done = make(chan struct{})

	// Add config file to watcher
	if err := watcher.Add(h.configPath); err != nil {
		_ = watcher.Close() // Ignore close error in error path
		return fmt.Errorf("watch config file: %w", err)
	}

	h.logger.Info().
		Str("event", "config.watcher_started").
		Str("path", h.configPath).
		Msg("watching config file for changes")

	// Start watcher goroutine
	go h.watchLoop(ctx)

	return nil
}

// watchLoop is the main file watcher loop.
// Reloads run on this goroutine so Stop waits for them.
func (h *ConfigHolder) watchLoop(ctx context.Context) {
	defer close(h.done)

	// Debounce timer to avoid multiple reloads for rapid file changes
	debounce := time.NewTimer(h.debounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str("event", "config.watcher_stopped").Msg("config watcher stopped")
			_ = h.watcher.Close() // Ignore close error in error path
			return

		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}

			// Watch for Write and Create events (covers vim, nano, echo)
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				h.logger.Debug().
					Str("event", "config.file_changed").
					Str("op", event.Op.String()).
					Msg("config file changed")
				debounce.Reset(h.debounce)
			}

		case <-debounce.C:
			if err := h.Reload(ctx); err != nil {
				h.logger.Error().
					Err(err).
					Str("event", "config.auto_reload_failed").
					Msg("automatic config reload failed")
			}

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().
				Err(err).
				Str("event", "config.watcher_error").
				Msg("config watcher error")
		}
	}
}

// Stop stops the config watcher (if running) and waits for its goroutine.
func (h *ConfigHolder) Stop() {
	if h.watcher != nil {
		_ = h.watcher.Close() // Ignore close error in error path
	}
	if h.done != nil {
		<-h.done
	}
}

// RegisterListener registers a channel to receive config reload notifications.
// The channel will receive the new config whenever a reload succeeds.
// The caller is responsible for closing the channel.
func (h *ConfigHolder) RegisterListener(ch chan<- AppConfig) {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()
	h.reloadListeners = append(h.reloadListeners, ch)
}

// notifyListeners sends the new config to all registered listeners (non-blocking).
func (h *ConfigHolder) notifyListeners(newCfg AppConfig) {
	h.reloadMu.RLock()
	defer h.reloadMu.RUnlock()

	for _, ch := range h.reloadListeners {
		select {
		case ch <- newCfg:
		default:
			// Skip if channel is full (non-blocking send)
			h.logger.Warn().
				Str("event", "config.listener_skip").
				Msg("skipped notifying listener (channel full)")
		}
	}
}

// logChanges logs the differences between old and new configuration.
// Token values are never logged.
func (h *ConfigHolder) logChanges(old, newCfg AppConfig) {
	if old.LogLevel != newCfg.LogLevel {
		h.logger.Info().
			Str("old", old.LogLevel).
			Str("new", newCfg.LogLevel).
			Msg("config changed: LogLevel")
	}
	if old.Animator != newCfg.Animator {
		h.logger.Info().
			Interface("old", old.Animator).
			Interface("new", newCfg.Animator).
			Msg("config changed: Animator (applies to newly animated domains)")
	}
	if old.Controller != newCfg.Controller {
		h.logger.Info().
			Interface("old", old.Controller).
			Interface("new", newCfg.Controller).
			Msg("config changed: Controller")
	}
	if old.Server != newCfg.Server {
		h.logger.Warn().
			Str("old", old.Server.ListenAddr).
			Str("new", newCfg.Server.ListenAddr).
			Msg("config changed: Server (restart required)")
	}
	if old.Telemetry != newCfg.Telemetry {
		h.logger.Warn().
			Bool("old_enabled", old.Telemetry.Enabled).
			Bool("new_enabled", newCfg.Telemetry.Enabled).
			Msg("config changed: Telemetry (restart required)")
	}
	if len(old.Auth.Tokens) != len(newCfg.Auth.Tokens) || old.Auth.Anonymous != newCfg.Auth.Anonymous {
		h.logger.Info().
			Int("old_tokens", len(old.Auth.Tokens)).
			Int("new_tokens", len(newCfg.Auth.Tokens)).
			Bool("anonymous", newCfg.Auth.Anonymous).
			Msg("config changed: Auth")
	}
}

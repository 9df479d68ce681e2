// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/ManuGH/animator/internal/config"
	"github.com/ManuGH/animator/internal/log"
	"github.com/rs/zerolog"
)

// PerformStartupChecks validates the environment before starting the server.
func PerformStartupChecks(ctx context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("running pre-flight startup checks")

	// 1. Listen address is bindable
	if err := checkListenAddr(ctx, logger, cfg.Server.ListenAddr); err != nil {
		return fmt.Errorf("listen address check failed: %w", err)
	}

	// 2. Telemetry endpoint is host:port
	if cfg.Telemetry.Enabled {
		if err := checkEndpoint(logger, cfg.Telemetry.Endpoint); err != nil {
			return fmt.Errorf("telemetry endpoint check failed: %w", err)
		}
	}

	// 3. Auth posture
	if len(cfg.Auth.Tokens) == 0 {
		if cfg.Auth.Anonymous {
			logger.Warn().Msg("no API tokens configured; anonymous callers get read access")
		} else {
			logger.Warn().Msg("no API tokens configured; admin API rejects every request")
		}
	}

	logger.Info().Msg("all startup checks passed")
	return nil
}

func checkListenAddr(ctx context.Context, logger zerolog.Logger, addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("invalid listen port %q in %q", port, addr)
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("cannot bind %s: %w", addr, err)
	}
	_ = ln.Close()

	logger.Info().Str("addr", addr).Msg("listen address is available")
	return nil
}

func checkEndpoint(logger zerolog.Logger, endpoint string) error {
	host, port, err := net.SplitHostPort(endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if host == "" {
		return fmt.Errorf("endpoint %q has no host", endpoint)
	}
	if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("invalid endpoint port %q", port)
	}
	logger.Info().Str("endpoint", endpoint).Msg("telemetry endpoint is valid")
	return nil
}

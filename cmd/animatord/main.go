// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command animatord hosts concurrency domains and serves their admin API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ManuGH/animator/internal/animator"
	"github.com/ManuGH/animator/internal/api"
	"github.com/ManuGH/animator/internal/config"
	"github.com/ManuGH/animator/internal/daemon"
	"github.com/ManuGH/animator/internal/health"
	"github.com/ManuGH/animator/internal/host"
	xglog "github.com/ManuGH/animator/internal/log"
	"github.com/ManuGH/animator/internal/telemetry"
	"github.com/ManuGH/animator/internal/version"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			os.Exit(runConfigCLI(os.Args[2:]))
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:]))
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML), defaults to $"+config.EnvConfigPath)
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	// Configure logger with safe defaults until config is loaded
	xglog.Configure(xglog.Config{
		Level:   "info",
		Service: "animatord",
		Version: version.Version,
	})
	logger := xglog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := resolveConfigPath(*configPath)

	// Precedence: ENV > File > Defaults
	loader := config.NewLoader(path, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(xglog.FieldEvent, "config.load_failed").
			Str("config_path", path).
			Msg("failed to load configuration")
	}

	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: cfg.Version,
	})
	logger = xglog.WithComponent("daemon")

	if path != "" {
		logger.Info().
			Str(xglog.FieldEvent, "config.loaded").
			Str("source", "file").
			Str("path", path).
			Msg("loaded configuration from file")
	} else {
		logger.Info().
			Str(xglog.FieldEvent, "config.loaded").
			Str("source", "env+defaults").
			Msg("loaded configuration from environment and defaults")
	}

	// Pre-flight checks (fail fast)
	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		logger.Fatal().
			Err(err).
			Str(xglog.FieldEvent, "startup.check_failed").
			Msg("Startup checks failed. Please verify configuration.")
	}

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		logger.Warn().
			Err(err).
			Str(xglog.FieldEvent, "telemetry.init_failed").
			Msg("telemetry initialization failed, continuing without tracing")
		tp = nil
	}

	h, err := host.New(host.ConfigFrom(cfg),
		host.WithLogger(xglog.WithComponent("host")),
		host.WithReporter(animator.NewLogReporter(xglog.WithComponent("animator"))),
		host.WithTracer(telemetry.Tracer("animatord")),
	)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(xglog.FieldEvent, "host.creation_failed").
			Msg("failed to create domain host")
	}

	if err := daemon.SeedDomains(ctx, h, cfg.Domains, logger); err != nil {
		logger.Fatal().
			Err(err).
			Str(xglog.FieldEvent, "bootstrap.failed").
			Msg("failed to animate configured domains")
	}

	logger.Info().
		Str(xglog.FieldEvent, "startup").
		Str("version", version.Version).
		Str("commit", version.Commit).
		Str("build_date", version.Date).
		Str("addr", cfg.Server.ListenAddr).
		Int("domains", h.Len()).
		Bool("supervision", cfg.Controller.Enabled).
		Msg("starting animatord")

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewControllerChecker(h.Controller(), cfg.Controller.Enabled))
	hm.RegisterChecker(health.NewDomainsChecker(h.Describe))

	cfgHolder := config.NewConfigHolder(cfg, loader, path)
	s := api.New(h, cfg,
		api.WithConfigHolder(cfgHolder),
		api.WithHealthManager(hm),
		api.WithLogger(xglog.WithComponent("api")),
	)

	mgr, err := daemon.NewManager(cfg.Server, daemon.Deps{
		Logger:     logger,
		APIHandler: s.Handler(),
		Host:       h,
	})
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(xglog.FieldEvent, "manager.creation.failed").
			Msg("failed to create daemon manager")
	}
	if tp != nil {
		mgr.RegisterShutdownHook("telemetry", tp.Shutdown)
	}

	// Blocks until shutdown
	app := daemon.NewApp(logger, mgr, cfgHolder, s, h)
	if err := app.Run(ctx); err != nil {
		logger.Fatal().
			Err(err).
			Str(xglog.FieldEvent, "manager.failed").
			Msg("daemon app failed")
	}

	logger.Info().Msg("server exiting")
}

// resolveConfigPath prefers the flag and falls back to the environment.
func resolveConfigPath(flagValue string) string {
	if p := strings.TrimSpace(flagValue); p != "" {
		return p
	}
	return strings.TrimSpace(os.Getenv(config.EnvConfigPath))
}

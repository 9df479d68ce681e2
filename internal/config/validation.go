// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"strings"

	"github.com/ManuGH/animator/internal/validate"
)

var validScopes = map[string]struct{}{
	"*":             {},
	"domain:*":      {},
	"domain:read":   {},
	"domain:manage": {},
}

// Validate validates an AppConfig using the centralized validation package
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.OneOf("logLevel", strings.ToLower(cfg.LogLevel), "debug", "info", "warn", "error")

	validateSizing(v, "animator.default", cfg.Animator.Default)
	validateSizing(v, "animator.root", cfg.Animator.Root)
	v.NonNegativeDuration("animator.idleTimeout", cfg.Animator.IdleTimeout)

	v.PositiveDuration("controller.scanInterval", cfg.Controller.ScanInterval)
	v.Positive("controller.backlogThreshold", cfg.Controller.BacklogThreshold)
	v.Positive("controller.growBy", cfg.Controller.GrowBy)

	v.ListenAddr("server.listenAddr", cfg.Server.ListenAddr)
	v.NonNegativeDuration("server.readTimeout", cfg.Server.ReadTimeout)
	v.NonNegativeDuration("server.writeTimeout", cfg.Server.WriteTimeout)
	v.PositiveDuration("server.shutdownTimeout", cfg.Server.ShutdownTimeout)
	v.Range("server.rateLimit", cfg.Server.RateLimit, 0, 1_000_000)
	v.Range("server.mutationRate", cfg.Server.MutationRate, 0, 100_000)

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, "grpc", "http")
		if strings.TrimSpace(cfg.Telemetry.Endpoint) == "" {
			v.AddError("telemetry.endpoint", "required when telemetry is enabled", cfg.Telemetry.Endpoint)
		}
	}
	v.Fraction("telemetry.samplingRate", cfg.Telemetry.SamplingRate)

	for i, t := range cfg.Auth.Tokens {
		if strings.TrimSpace(t.Token) == "" {
			v.AddError("auth.tokens", "token must not be empty", i)
		}
		for _, scope := range t.Scopes {
			if _, ok := validScopes[strings.ToLower(strings.TrimSpace(scope))]; !ok {
				v.AddError("auth.tokens.scopes", "unknown scope", scope)
			}
		}
	}

	seen := make(map[string]struct{}, len(cfg.Domains))
	for _, d := range cfg.Domains {
		if strings.TrimSpace(d.ID) == "" {
			v.AddError("domains.id", "must not be empty", d.ID)
			continue
		}
		if _, dup := seen[d.ID]; dup {
			v.AddError("domains.id", "duplicate domain id", d.ID)
		}
		seen[d.ID] = struct{}{}
	}

	return v.Err()
}

func validateSizing(v *validate.Validator, field string, s SizingConfig) {
	v.Positive(field+".queueCapacity", s.QueueCapacity)
	v.Positive(field+".minThreads", s.MinThreads)
	v.Positive(field+".maxThreads", s.MaxThreads)
	v.Ordered(field+".threads", s.MinThreads, s.MaxThreads)
}

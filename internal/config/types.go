// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads animatord configuration from defaults, a YAML file
// and the environment, in increasing order of precedence.
package config

import "time"

// AppConfig is the complete runtime configuration.
type AppConfig struct {
	Version string `yaml:"-"`

	LogLevel   string `yaml:"logLevel"`
	LogService string `yaml:"logService"`

	Animator   AnimatorConfig   `yaml:"animator"`
	Controller ControllerConfig `yaml:"controller"`
	Server     ServerConfig     `yaml:"server"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Auth       AuthConfig       `yaml:"auth"`

	// Domains are animated at startup.
	Domains []DomainSpec `yaml:"domains"`
}

// SizingConfig bounds one class of animator.
type SizingConfig struct {
	QueueCapacity int `yaml:"queueCapacity"`
	MinThreads    int `yaml:"minThreads"`
	MaxThreads    int `yaml:"maxThreads"`
}

type AnimatorConfig struct {
	Default     SizingConfig  `yaml:"default"`
	Root        SizingConfig  `yaml:"root"`
	IdleTimeout time.Duration `yaml:"idleTimeout"`
}

type ControllerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	ScanInterval     time.Duration `yaml:"scanInterval"`
	BacklogThreshold int           `yaml:"backlogThreshold"`
	GrowBy           int           `yaml:"growBy"`
}

type ServerConfig struct {
	ListenAddr      string        `yaml:"listenAddr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// RateLimit is requests per minute per client IP. 0 disables limiting.
	RateLimit int `yaml:"rateLimit"`
	// MutationRate caps lifecycle changes (animate, terminate, status,
	// scan) per second across all callers. 0 disables the cap.
	MutationRate    int  `yaml:"mutationRate"`
	AllowQueryToken bool `yaml:"allowQueryToken"`
}

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"` // grpc|http
	Endpoint     string  `yaml:"endpoint"`
	Environment  string  `yaml:"environment"`
	SamplingRate float64 `yaml:"samplingRate"`
}

type AuthConfig struct {
	// Anonymous grants read access without a token when no token is configured.
	Anonymous bool          `yaml:"anonymous"`
	Tokens    []ScopedToken `yaml:"tokens"`
}

// ScopedToken binds an API token to a user and scopes.
type ScopedToken struct {
	Token  string   `yaml:"token"`
	User   string   `yaml:"user"`
	Scopes []string `yaml:"scopes"`
}

// DomainSpec declares a domain the daemon creates and animates on start.
type DomainSpec struct {
	ID             string `yaml:"id"`
	SingleThreaded bool   `yaml:"singleThreaded"`
	Root           bool   `yaml:"root"`
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		LogLevel:   "info",
		LogService: "animatord",
		Animator: AnimatorConfig{
			Default:     SizingConfig{QueueCapacity: 256, MinThreads: 1, MaxThreads: 4},
			Root:        SizingConfig{QueueCapacity: 1024, MinThreads: 2, MaxThreads: 16},
			IdleTimeout: 30 * time.Second,
		},
		Controller: ControllerConfig{
			Enabled:          true,
			ScanInterval:     time.Second,
			BacklogThreshold: 32,
			GrowBy:           2,
		},
		Server: ServerConfig{
			ListenAddr:      ":8089",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimit:       600,
			MutationRate:    20,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			Environment:  "production",
			SamplingRate: 1.0,
		},
	}
}

// Clone returns a deep copy of cfg.
func (c AppConfig) Clone() AppConfig {
	out := c
	if c.Auth.Tokens != nil {
		out.Auth.Tokens = make([]ScopedToken, len(c.Auth.Tokens))
		for i, t := range c.Auth.Tokens {
			out.Auth.Tokens[i] = t
			out.Auth.Tokens[i].Scopes = append([]string(nil), t.Scopes...)
		}
	}
	if c.Domains != nil {
		out.Domains = append([]DomainSpec(nil), c.Domains...)
	}
	return out
}

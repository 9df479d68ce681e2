// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables understood by the loader.
const (
	EnvConfigPath       = "ANIMATOR_CONFIG"
	EnvLogLevel         = "ANIMATOR_LOG_LEVEL"
	EnvLogService       = "ANIMATOR_LOG_SERVICE"
	EnvQueueCapacity    = "ANIMATOR_QUEUE_CAPACITY"
	EnvMinThreads       = "ANIMATOR_MIN_THREADS"
	EnvMaxThreads       = "ANIMATOR_MAX_THREADS"
	EnvRootCapacity     = "ANIMATOR_ROOT_QUEUE_CAPACITY"
	EnvRootMinThreads   = "ANIMATOR_ROOT_MIN_THREADS"
	EnvRootMaxThreads   = "ANIMATOR_ROOT_MAX_THREADS"
	EnvIdleTimeout      = "ANIMATOR_IDLE_TIMEOUT"
	EnvControllerOn     = "ANIMATOR_CONTROLLER_ENABLED"
	EnvScanInterval     = "ANIMATOR_SCAN_INTERVAL"
	EnvBacklogThreshold = "ANIMATOR_BACKLOG_THRESHOLD"
	EnvGrowBy           = "ANIMATOR_GROW_BY"
	EnvListenAddr       = "ANIMATOR_LISTEN_ADDR"
	EnvRateLimit        = "ANIMATOR_RATE_LIMIT"
	EnvMutationRate     = "ANIMATOR_MUTATION_RATE"
	EnvAllowQueryToken  = "ANIMATOR_ALLOW_QUERY_TOKEN"
	EnvAPIToken         = "ANIMATOR_API_TOKEN"
	EnvAPITokenScopes   = "ANIMATOR_API_TOKEN_SCOPES"
	EnvAuthAnonymous    = "ANIMATOR_AUTH_ANONYMOUS"
	EnvTelemetryOn      = "ANIMATOR_TELEMETRY_ENABLED"
	EnvOTLPExporter     = "ANIMATOR_OTLP_EXPORTER"
	EnvOTLPEndpoint     = "ANIMATOR_OTLP_ENDPOINT"
	EnvTraceSampling    = "ANIMATOR_TRACE_SAMPLING"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{} // Mechanical tracking of consumed keys
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Wrapper methods for mechanical connection tracking

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

func (l *Loader) envList(key string, defaultVal []string) []string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseStringList(key, defaultVal)
}

// Path returns the config file path, empty for ENV-only configuration.
func (l *Loader) Path() string {
	return l.configPath
}

// Load loads configuration with precedence: ENV > File > Defaults
// It enforces Strict Validated Order: Parse File (Strict) -> Apply Env -> Validate
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnv(&cfg)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// loadFile decodes a YAML file over cfg with STRICT parsing.
// Unknown fields will cause a fatal error to prevent misconfiguration.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	return decodeStrict([]byte(expandEnv(string(data))), cfg)
}

func decodeStrict(data []byte, cfg *AppConfig) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // Reject unknown fields

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("strict config parse error: %w: %w", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	// Strict: Ensure no multiple documents or trailing content
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return ErrMultipleDocuments
	}
	return nil
}

// mergeEnv overlays environment variables on cfg (highest priority).
func (l *Loader) mergeEnv(cfg *AppConfig) {
	cfg.LogLevel = l.envString(EnvLogLevel, cfg.LogLevel)
	cfg.LogService = l.envString(EnvLogService, cfg.LogService)

	a := &cfg.Animator
	a.Default.QueueCapacity = l.envInt(EnvQueueCapacity, a.Default.QueueCapacity)
	a.Default.MinThreads = l.envInt(EnvMinThreads, a.Default.MinThreads)
	a.Default.MaxThreads = l.envInt(EnvMaxThreads, a.Default.MaxThreads)
	a.Root.QueueCapacity = l.envInt(EnvRootCapacity, a.Root.QueueCapacity)
	a.Root.MinThreads = l.envInt(EnvRootMinThreads, a.Root.MinThreads)
	a.Root.MaxThreads = l.envInt(EnvRootMaxThreads, a.Root.MaxThreads)
	a.IdleTimeout = l.envDuration(EnvIdleTimeout, a.IdleTimeout)

	c := &cfg.Controller
	c.Enabled = l.envBool(EnvControllerOn, c.Enabled)
	c.ScanInterval = l.envDuration(EnvScanInterval, c.ScanInterval)
	c.BacklogThreshold = l.envInt(EnvBacklogThreshold, c.BacklogThreshold)
	c.GrowBy = l.envInt(EnvGrowBy, c.GrowBy)

	s := &cfg.Server
	s.ListenAddr = l.envString(EnvListenAddr, s.ListenAddr)
	s.RateLimit = l.envInt(EnvRateLimit, s.RateLimit)
	s.MutationRate = l.envInt(EnvMutationRate, s.MutationRate)
	s.AllowQueryToken = l.envBool(EnvAllowQueryToken, s.AllowQueryToken)

	// A single token from ENV replaces the file's token list.
	if token := l.envString(EnvAPIToken, ""); token != "" {
		cfg.Auth.Tokens = []ScopedToken{{
			Token:  token,
			Scopes: l.envList(EnvAPITokenScopes, nil),
		}}
	}
	cfg.Auth.Anonymous = l.envBool(EnvAuthAnonymous, cfg.Auth.Anonymous)

	t := &cfg.Telemetry
	t.Enabled = l.envBool(EnvTelemetryOn, t.Enabled)
	t.Exporter = l.envString(EnvOTLPExporter, t.Exporter)
	t.Endpoint = l.envString(EnvOTLPEndpoint, t.Endpoint)
	t.SamplingRate = l.envFloat(EnvTraceSampling, t.SamplingRate)
}

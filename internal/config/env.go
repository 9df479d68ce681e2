// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/animator/internal/log"
)

// lookupEnv resolves key through parse. Unset, empty and unparsable values
// yield def; only the last case is logged above debug. Values of keys that
// look like secrets never reach the log.
func lookupEnv[T any](key string, def T, parse func(string) (T, bool)) T {
	logger := log.WithComponent("config").With().Str("key", key).Logger()
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		logger.Debug().Interface("default", def).Msg("using default value")
		return def
	}
	v, ok := parse(raw)
	if !ok {
		logger.Warn().Str("value", redact(key, raw)).Interface("default", def).
			Msg("invalid environment value, using default")
		return def
	}
	logger.Debug().Str("value", redact(key, raw)).Str("source", "environment").Msg("using environment variable")
	return v
}

func redact(key, raw string) string {
	k := strings.ToLower(key)
	if strings.Contains(k, "token") || strings.Contains(k, "password") {
		return "***"
	}
	return raw
}

// ParseString reads a string from key. An empty variable counts as unset.
func ParseString(key, defaultValue string) string {
	return lookupEnv(key, defaultValue, func(s string) (string, bool) { return s, true })
}

// ParseInt reads an integer such as a queue capacity or thread bound.
func ParseInt(key string, defaultValue int) int {
	return lookupEnv(key, defaultValue, func(s string) (int, bool) {
		i, err := strconv.Atoi(strings.TrimSpace(s))
		return i, err == nil
	})
}

// ParseDuration reads a Go duration ("250ms", "5s"). A bare number has no
// unit and is rejected.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	return lookupEnv(key, defaultValue, func(s string) (time.Duration, bool) {
		d, err := time.ParseDuration(strings.TrimSpace(s))
		return d, err == nil
	})
}

// ParseBool accepts true/false, 1/0 and yes/no, case-insensitive.
func ParseBool(key string, defaultValue bool) bool {
	return lookupEnv(key, defaultValue, func(s string) (bool, bool) {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "1", "yes":
			return true, true
		case "false", "0", "no":
			return false, true
		}
		return false, false
	})
}

// ParseFloat reads a float64, e.g. the trace sampling fraction.
func ParseFloat(key string, defaultValue float64) float64 {
	return lookupEnv(key, defaultValue, func(s string) (float64, bool) {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return f, err == nil
	})
}

// ParseStringList reads a comma separated list such as token scopes,
// dropping blank entries. A list with no entries yields defaultValue.
func ParseStringList(key string, defaultValue []string) []string {
	return lookupEnv(key, defaultValue, func(s string) ([]string, bool) {
		var out []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) == 0 {
			return defaultValue, true
		}
		return out, true
	})
}

// expandEnv substitutes ${VAR} and $VAR references in a config file body.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

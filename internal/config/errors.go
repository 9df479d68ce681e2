// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "errors"

// Loader failures callers can match with errors.Is. Validation failures are
// reported as validate.ValidationError and wrapped with ErrInvalidConfig.
var (
	ErrUnknownConfigField = errors.New("unknown config field")
	ErrMultipleDocuments  = errors.New("config file contains multiple documents or trailing content")
	ErrUnsupportedFormat  = errors.New("unsupported config format (only YAML supported)")
	ErrInvalidConfig      = errors.New("config validation failed")
)

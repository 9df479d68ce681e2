// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package host

import "errors"

var (
	// ErrDomainExists is returned by Create for an id already in use.
	ErrDomainExists = errors.New("domain already exists")

	// ErrDomainNotFound is returned for unknown domain ids.
	ErrDomainNotFound = errors.New("domain not found")
)

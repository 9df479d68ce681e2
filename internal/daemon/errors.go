// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import "errors"

var (
	// Dependency errors returned by NewManager and App.Run.
	ErrMissingLogger     = errors.New("logger is required")
	ErrMissingAPIHandler = errors.New("admin API handler is required")
	ErrMissingManager    = errors.New("manager is required")

	// ErrManagerNotStarted is returned by Shutdown before Start.
	ErrManagerNotStarted = errors.New("manager not started")
	// ErrNilShutdownContext rejects Shutdown(nil); the shutdown budget is
	// derived from the caller's context.
	ErrNilShutdownContext = errors.New("shutdown context is nil")
	// ErrDomainsNotTerminated wraps the per-domain failures of the final
	// host shutdown. Those domains may still own worker goroutines.
	ErrDomainsNotTerminated = errors.New("domains not terminated")
)

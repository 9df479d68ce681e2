// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID      = "request_id"
	FieldDomainID       = "domain_id"
	FieldAnimator       = "animator"
	FieldEventID        = "event_id"
	FieldDroppedEventID = "dropped_event_id"
	FieldPrincipal      = "principal"
	FieldTraceID        = "trace_id"
	FieldSpanID         = "span_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldHandler   = "handler"

	// State fields
	FieldOldStatus = "old_status"
	FieldNewStatus = "new_status"

	// Path fields
	FieldPath = "path"
)

// SPDX-License-Identifier: MIT

package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// HTTPRouteKey names the matched admin API route.
	HTTPRouteKey = "http.route"

	// Animator attributes
	AnimatorNameKey = "animator.name"
	AnimatorKindKey = "animator.kind"
	EventIDKey      = "animator.event_id"
	HandlerTypeKey  = "animator.handler_type"

	// Domain attributes
	DomainIDKey             = "domain.id"
	DomainRootKey           = "domain.root"
	DomainSingleThreadedKey = "domain.single_threaded"

	// Controller attributes
	ControllerSupervisedKey = "controller.supervised"
	ControllerGrownKey      = "controller.threads_added"
	ControllerEvictedKey    = "controller.evicted"

	// Error attributes
	ErrorKey       = "error"
	ErrorTypeKey   = "error.type"
	ErrorGoTypeKey = "error.go_type"
)

// HandlerAttributes creates span attributes for a single handler invocation.
func HandlerAttributes(animator, kind, eventID, handlerType string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 4)
	attrs = append(attrs,
		attribute.String(AnimatorNameKey, animator),
		attribute.String(AnimatorKindKey, kind),
	)
	if eventID != "" {
		attrs = append(attrs, attribute.String(EventIDKey, eventID))
	}
	if handlerType != "" {
		attrs = append(attrs, attribute.String(HandlerTypeKey, handlerType))
	}
	return attrs
}

// DomainAttributes creates span attributes describing a domain animation.
func DomainAttributes(domainID string, root, singleThreaded bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(DomainIDKey, domainID),
		attribute.Bool(DomainRootKey, root),
		attribute.Bool(DomainSingleThreadedKey, singleThreaded),
	}
}

// ScanAttributes creates span attributes summarising one controller scan.
func ScanAttributes(supervised, grown, evicted int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(ControllerSupervisedKey, supervised),
		attribute.Int(ControllerGrownKey, grown),
		attribute.Int(ControllerEvictedKey, evicted),
	}
}

// ErrorAttributes classifies a failed handler invocation. errorType is the
// failure reason (error, panic, exit); the concrete Go type of err is kept
// so returned errors can be told apart from recovered panics in traces.
func ErrorAttributes(err error, errorType string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
	if err != nil {
		attrs = append(attrs, attribute.String(ErrorGoTypeKey, fmt.Sprintf("%T", err)))
	}
	return attrs
}

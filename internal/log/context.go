// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package log provides structured logging utilities.
package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	domainIDKey  ctxKey = "domain_id"
	animatorKey  ctxKey = "animator"
	eventIDKey   ctxKey = "event_id"
)

func withValue(ctx context.Context, key ctxKey, value string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, value)
}

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// ContextWithRequestID stores the provided request ID in the context.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return withValue(ctx, requestIDKey, id)
}

// ContextWithDomainID stores the concurrency domain ID in the context.
func ContextWithDomainID(ctx context.Context, id string) context.Context {
	return withValue(ctx, domainIDKey, id)
}

// ContextWithAnimator stores the animator name in the context.
func ContextWithAnimator(ctx context.Context, name string) context.Context {
	return withValue(ctx, animatorKey, name)
}

// ContextWithEventID stores the event ID in the context.
func ContextWithEventID(ctx context.Context, id string) context.Context {
	return withValue(ctx, eventIDKey, id)
}

// RequestIDFromContext extracts the request ID from context if present.
func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// DomainIDFromContext extracts the domain ID from context if present.
func DomainIDFromContext(ctx context.Context) string {
	return stringValue(ctx, domainIDKey)
}

// AnimatorFromContext extracts the animator name from context if present.
func AnimatorFromContext(ctx context.Context) string {
	return stringValue(ctx, animatorKey)
}

// EventIDFromContext extracts the event ID from context if present.
func EventIDFromContext(ctx context.Context) string {
	return stringValue(ctx, eventIDKey)
}

// WithContext enriches the supplied logger with correlation fields from context.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	if ctx == nil {
		return logger
	}
	builder := logger.With()
	added := false
	for _, f := range []struct {
		field string
		value string
	}{
		{FieldRequestID, RequestIDFromContext(ctx)},
		{FieldDomainID, DomainIDFromContext(ctx)},
		{FieldAnimator, AnimatorFromContext(ctx)},
		{FieldEventID, EventIDFromContext(ctx)},
	} {
		if f.value != "" {
			builder = builder.Str(f.field, f.value)
			added = true
		}
	}
	if !added {
		return logger
	}
	return builder.Logger()
}

// WithComponentFromContext returns a logger that is annotated with the component
// name and enriched with correlation fields from ctx.
func WithComponentFromContext(ctx context.Context, component string) zerolog.Logger {
	l := WithContext(ctx, *FromContext(ctx))
	return l.With().Str(FieldComponent, component).Logger()
}

// FromContext returns a logger from the context, or the base logger if not present.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		l := Base()
		return &l
	}
	l := zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		b := Base()
		return &b
	}
	return l
}

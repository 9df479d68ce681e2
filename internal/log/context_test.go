// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestContextSetters(t *testing.T) {
	tests := []struct {
		name string
		set  func(context.Context, string) context.Context
		get  func(context.Context) string
	}{
		{"request id", ContextWithRequestID, RequestIDFromContext},
		{"domain id", ContextWithDomainID, DomainIDFromContext},
		{"animator", ContextWithAnimator, AnimatorFromContext},
		{"event id", ContextWithEventID, EventIDFromContext},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			//nolint:staticcheck // nil context is part of the contract
			if got := tt.get(tt.set(nil, "v-nil")); got != "v-nil" {
				t.Errorf("nil context: got %q, want %q", got, "v-nil")
			}
			if got := tt.get(tt.set(context.Background(), "v-bg")); got != "v-bg" {
				t.Errorf("background context: got %q, want %q", got, "v-bg")
			}
		})
	}
}

func TestRequestIDFromContextEmpty(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{
			name: "nil context",
			ctx:  nil,
			want: "",
		},
		{
			name: "context without request ID",
			ctx:  context.Background(),
			want: "",
		},
		{
			name: "context with wrong type",
			ctx:  context.WithValue(context.Background(), requestIDKey, 123),
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RequestIDFromContext(tt.ctx)
			if got != tt.want {
				t.Errorf("RequestIDFromContext() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	ctx := ContextWithDomainID(context.Background(), "env-1")
	ctx = ContextWithEventID(ctx, "ev-9")
	l := WithContext(ctx, logger)
	l.Info().Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log output: %v", err)
	}
	if entry[FieldDomainID] != "env-1" {
		t.Errorf("domain_id = %v, want env-1", entry[FieldDomainID])
	}
	if entry[FieldEventID] != "ev-9" {
		t.Errorf("event_id = %v, want ev-9", entry[FieldEventID])
	}
	if _, ok := entry[FieldRequestID]; ok {
		t.Error("request_id should be absent")
	}
}

func TestWithContextEmptyReturnsSameLogger(t *testing.T) {
	baseLogger := WithComponent("test")
	l := WithContext(context.Background(), baseLogger)
	if l.GetLevel() != baseLogger.GetLevel() {
		t.Error("Logger level should be preserved")
	}
}

func TestWithComponentFromContext(t *testing.T) {
	logger := WithComponentFromContext(context.Background(), "test-component")
	if logger.GetLevel() > zerolog.PanicLevel {
		t.Error("Expected valid logger from WithComponentFromContext")
	}
}

func TestWithTraceContext(t *testing.T) {
	var buf bytes.Buffer
	root := zerolog.New(&buf)

	noSpan := WithTraceContext(context.Background(), root)
	noSpan.Info().Msg("no span")
	noopTracer := noop.NewTracerProvider().Tracer("test")
	ctx, span := noopTracer.Start(context.Background(), "test-span")
	defer span.End()
	noopSpan := WithTraceContext(ctx, root)
	noopSpan.Info().Msg("noop span")

	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry map[string]interface{}
		if err := json.Unmarshal(line, &entry); err != nil {
			t.Fatalf("Failed to parse log output: %v", err)
		}
		if _, ok := entry[FieldTraceID]; ok {
			t.Errorf("unexpected trace_id in %q", line)
		}
	}

	t.Run("WithValidSpan", func(t *testing.T) {
		traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
		spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
		spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    traceID,
			SpanID:     spanID,
			TraceFlags: trace.FlagsSampled,
		})
		ctx := ContextWithDomainID(context.Background(), "env-1")
		ctx = trace.ContextWithSpanContext(ctx, spanCtx)

		var out bytes.Buffer
		logger := WithTraceContext(ctx, WithContext(ctx, zerolog.New(&out)))
		logger.Info().Msg("test with trace")

		var logEntry map[string]interface{}
		if err := json.Unmarshal(out.Bytes(), &logEntry); err != nil {
			t.Fatalf("Failed to parse log output: %v", err)
		}
		if logEntry[FieldTraceID] != "4bf92f3577b34da6a3ce929d0e0e4736" {
			t.Errorf("trace_id = %v", logEntry[FieldTraceID])
		}
		if logEntry[FieldSpanID] != "00f067aa0ba902b7" {
			t.Errorf("span_id = %v", logEntry[FieldSpanID])
		}
		if logEntry[FieldDomainID] != "env-1" {
			t.Errorf("domain_id = %v", logEntry[FieldDomainID])
		}
	})
}

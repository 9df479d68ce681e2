// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package telemetry wires OpenTelemetry tracing for animatord. Every handler
// invocation, domain transition and controller scan opens a span; the
// tracers handed to animators carry the animator's identity in their
// instrumentation scope.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// scopePrefix namespaces instrumentation scopes.
const scopePrefix = "github.com/ManuGH/animator/"

const shutdownTimeout = 5 * time.Second

// ErrUnsupportedExporter is returned for an exporter other than grpc or http.
var ErrUnsupportedExporter = errors.New("unsupported exporter type")

// Config mirrors the telemetry section of the daemon configuration.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	// ExporterType is "grpc" or "http".
	ExporterType string
	// Endpoint is the collector host:port.
	Endpoint string
	// SamplingRate applies to root spans. Handler spans are always roots,
	// so it bounds the tracing cost of busy animators.
	SamplingRate float64
}

// Provider owns the SDK tracer provider. The zero value is a disabled
// provider.
type Provider struct {
	tp *sdktrace.TracerProvider
}

// NewProvider installs the global tracer provider. A disabled config
// installs a noop provider so spans cost nothing.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return &Provider{}, nil
	}

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(cfg.SamplingRate)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return &Provider{tp: tp}, nil
}

func newExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.ExporterType {
	case "grpc":
		exp, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(cfg.Endpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("create grpc exporter: %w", err)
		}
		return exp, nil
	case "http":
		exp, err := otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(cfg.Endpoint),
			otlptracehttp.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("create http exporter: %w", err)
		}
		return exp, nil
	default:
		return nil, fmt.Errorf("%w: %q (supported: grpc, http)", ErrUnsupportedExporter, cfg.ExporterType)
	}
}

func newResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(cfg.Environment),
		),
	)
}

// newSampler samples root spans at rate and follows the parent otherwise,
// so an admin API call traced upstream keeps its domain spans.
func newSampler(rate float64) sdktrace.Sampler {
	var root sdktrace.Sampler
	switch {
	case rate >= 1:
		root = sdktrace.AlwaysSample()
	case rate <= 0:
		root = sdktrace.NeverSample()
	default:
		root = sdktrace.TraceIDRatioBased(rate)
	}
	return sdktrace.ParentBased(root)
}

// Shutdown flushes pending spans, bounded by a few seconds.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tp == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return p.tp.Shutdown(ctx)
}

// Tracer returns the tracer for a runtime component (host, domain,
// controller).
func Tracer(component string) trace.Tracer {
	return otel.Tracer(scopePrefix + component)
}

// AnimatorTracer returns a tracer whose instrumentation scope names one
// animator, so its handler spans can be grouped per animator in a backend
// without relying on span attributes.
func AnimatorTracer(name, kind string) trace.Tracer {
	return otel.Tracer(scopePrefix+"animator",
		trace.WithInstrumentationAttributes(
			attribute.String(AnimatorNameKey, name),
			attribute.String(AnimatorKindKey, kind),
		),
	)
}

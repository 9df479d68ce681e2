// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package animator

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	xglog "github.com/ManuGH/animator/internal/log"
	"github.com/ManuGH/animator/internal/metrics"
	"github.com/ManuGH/animator/internal/telemetry"
)

// ErrHandlerExited is reported when a handler terminated its goroutine
// (runtime.Goexit) instead of returning.
var ErrHandlerExited = errors.New("handler exited its goroutine")

// ErrorReporter receives failures raised by handlers.
type ErrorReporter interface {
	LogError(source any, msg string, err error)
}

// HandlerError describes one failed invocation.
type HandlerError struct {
	Animator string
	Handler  Handler
	Event    *Event
	Err      error
}

func (e *HandlerError) Error() string {
	id := "<nil>"
	if e.Event != nil {
		id = e.Event.ID.String()
	}
	return fmt.Sprintf("animator %s: handler %T failed on event %s: %v", e.Animator, e.Handler, id, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// PanicError carries a recovered panic value and the stack of the worker.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// LogReporter writes handler failures to a zerolog logger.
type LogReporter struct {
	logger zerolog.Logger
}

// NewLogReporter returns a reporter logging at error level.
func NewLogReporter(logger zerolog.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

// LogError implements ErrorReporter.
func (r *LogReporter) LogError(source any, msg string, err error) {
	ev := r.logger.Error().
		Err(err).
		Str(xglog.FieldEvent, "animator.handler_failed").
		Str(xglog.FieldHandler, fmt.Sprintf("%T", source))

	var herr *HandlerError
	if errors.As(err, &herr) {
		ev = ev.Str(xglog.FieldAnimator, herr.Animator)
		if herr.Event != nil {
			ev = ev.Str(xglog.FieldEventID, herr.Event.ID.String())
		}
	}
	var perr *PanicError
	if errors.As(err, &perr) {
		ev = ev.Bytes("stack", perr.Stack)
	}
	ev.Msg(msg)
}

// invoker executes applications for one animator. It is the only place
// where handler failures are recovered instead of surfaced.
type invoker struct {
	name     string
	kind     string
	reporter ErrorReporter
	tracer   trace.Tracer
}

func (iv *invoker) invoke(app Application) {
	ctx := xglog.ContextWithAnimator(context.Background(), iv.name)
	ctx = xglog.ContextWithEventID(ctx, app.Event.ID.String())
	ctx, span := iv.tracer.Start(ctx, "animator.handle",
		trace.WithAttributes(telemetry.HandlerAttributes(iv.name, iv.kind, app.Event.ID.String(), fmt.Sprintf("%T", app.Handler))...))

	start := time.Now()
	returned := false
	defer func() {
		r := recover()
		metrics.ObserveHandlerDuration(iv.kind, time.Since(start))
		switch {
		case r != nil:
			iv.fail(span, app, metrics.FailurePanic, "handler panicked", &PanicError{Value: r, Stack: debug.Stack()})
		case !returned:
			iv.fail(span, app, metrics.FailureExit, "handler exited worker goroutine", ErrHandlerExited)
		}
		span.End()
	}()

	err := app.Handler.Handle(ctx, app.Event)
	returned = true
	if err != nil {
		iv.fail(span, app, metrics.FailureError, "handler returned error", err)
	}
}

func (iv *invoker) fail(span trace.Span, app Application, reason, msg string, err error) {
	metrics.IncHandlerFailure(iv.kind, reason)
	span.RecordError(err)
	span.SetAttributes(telemetry.ErrorAttributes(err, reason)...)
	span.SetStatus(codes.Error, msg)

	source := unwrapHandler(app.Handler)
	herr := &HandlerError{Animator: iv.name, Handler: source, Event: app.Event, Err: err}
	defer func() {
		// A misbehaving reporter must not take the worker down either.
		_ = recover()
	}()
	iv.reporter.LogError(source, msg, herr)
}

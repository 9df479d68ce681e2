// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package animator

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	xglog "github.com/ManuGH/animator/internal/log"
	"github.com/ManuGH/animator/internal/metrics"
	"github.com/ManuGH/animator/internal/telemetry"
)

// Animator is the scheduler contract shared by EventLoop and ThreadPool.
//
// All methods except Name and Status fail with ErrIllegalState once the
// animator is Terminated.
type Animator interface {
	// Name identifies the animator in logs and metrics.
	Name() string

	// IsConcurrent reports whether more than one handler may run at once.
	IsConcurrent() (bool, error)

	MinThreads() (int, error)
	Threads() (int, error)
	MaxThreads() (int, error)

	// SetMinThreads and SetMaxThreads move the other bound when needed to
	// keep min <= max. Fixed-size animators return ErrUnsupported.
	SetMinThreads(n int) error
	SetMaxThreads(n int) error

	// AddThreads starts min(n, max-current) workers and returns how many
	// were started.
	AddThreads(n int) (int, error)

	// Status never fails; it reports Terminated after termination.
	Status() Status

	// SetStatus blocks until the transition completed. It must not be
	// called from a handler running on the same animator with a target that
	// waits for in-flight work.
	SetStatus(s Status) error

	// Enqueue appends at the tail. It returns false without blocking when
	// the queue is full or the animator is Drained.
	Enqueue(h Handler, ev *Event) (bool, error)

	// EnqueueFirst prepends at the head with the same acceptance rules as
	// Enqueue.
	EnqueueFirst(h Handler, ev *Event) (bool, error)

	// EnqueueForced prepends at the head even while Drained. On a full
	// queue the oldest pending application is overwritten.
	EnqueueForced(h Handler, ev *Event) error

	QueueCapacity() (int, error)
	IsQueueEmpty() (bool, error)
	QueueSize() (int, error)

	// Queue returns a snapshot of pending work in dequeue order.
	Queue() ([]Application, error)
}

const (
	kindEventLoop  = "eventloop"
	kindThreadPool = "threadpool"
)

// DefaultIdleTimeout is how long a surplus pool worker waits for work
// before it retires.
const DefaultIdleTimeout = 30 * time.Second

type options struct {
	name        string
	reporter    ErrorReporter
	idleTimeout time.Duration
	tracer      trace.Tracer
	logger      *zerolog.Logger
}

// Option configures an animator at construction.
type Option func(*options)

// WithName sets the name used in logs and metrics labels.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithReporter sets the collaborator that receives handler failures.
func WithReporter(r ErrorReporter) Option {
	return func(o *options) {
		o.reporter = r
	}
}

// WithIdleTimeout sets how long surplus pool workers idle before retiring.
// Zero disables retirement. EventLoop ignores it.
func WithIdleTimeout(d time.Duration) Option {
	return func(o *options) {
		o.idleTimeout = d
	}
}

// WithTracer sets the tracer that wraps every handler invocation in a span.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}

// WithLogger sets the base logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &l
	}
}

func buildOptions(kind string, opts []Option) options {
	o := options{idleTimeout: DefaultIdleTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.name == "" {
		o.name = kind + "-" + uuid.NewString()[:8]
	}
	if o.logger == nil {
		l := xglog.WithComponent("animator")
		o.logger = &l
	}
	if o.reporter == nil {
		o.reporter = NewLogReporter(*o.logger)
	}
	if o.tracer == nil {
		o.tracer = telemetry.AnimatorTracer(o.name, kind)
	}
	return o
}

func terminatedError(name string) error {
	return fmt.Errorf("%w: animator %s is terminated", ErrIllegalState, name)
}

type enqueueMode int

const (
	enqueueTail enqueueMode = iota
	enqueueHead
	enqueueForced
)

// place inserts app into q according to mode. The caller holds the
// animator lock and has already rejected a terminated animator.
func place(q *WorkQueue, status Status, app Application, mode enqueueMode, kind string, logger zerolog.Logger) bool {
	if mode != enqueueForced && status == Drained {
		metrics.IncEnqueue(kind, metrics.EnqueueRejectedDrained)
		return false
	}
	switch mode {
	case enqueueTail:
		if !q.Push(app) {
			metrics.IncEnqueue(kind, metrics.EnqueueRejectedFull)
			return false
		}
	case enqueueHead:
		if !q.PushFirst(app) {
			metrics.IncEnqueue(kind, metrics.EnqueueRejectedFull)
			return false
		}
	case enqueueForced:
		dropped, overwritten := q.PushForced(app)
		if overwritten {
			metrics.IncEnqueue(kind, metrics.EnqueueOverwritten)
			ev := logger.Warn().Str(xglog.FieldEvent, "animator.forced_overwrite")
			if dropped.Event != nil {
				ev = ev.Str(xglog.FieldDroppedEventID, dropped.Event.ID.String())
			}
			ev.Msg("queue full, forced enqueue dropped oldest pending application")
		}
		metrics.IncEnqueue(kind, metrics.EnqueueForced)
		return true
	}
	metrics.IncEnqueue(kind, metrics.EnqueueAccepted)
	return true
}

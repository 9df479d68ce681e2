// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package animator

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newTestLoop(t *testing.T, capacity int, opts ...Option) *EventLoop {
	t.Helper()
	l, err := NewEventLoop(capacity, append([]Option{quiet()}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { shutdown(t, l) })
	return l
}

func TestNewEventLoopValidatesCapacity(t *testing.T) {
	_, err := NewEventLoop(0, quiet())
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestEventLoopStartsInactiveWithOneThread(t *testing.T) {
	l := newTestLoop(t, 4, WithName("loop-a"))

	assert.Equal(t, "loop-a", l.Name())
	assert.Equal(t, Inactive, l.Status())
	concurrent, err := l.IsConcurrent()
	require.NoError(t, err)
	assert.False(t, concurrent)

	for _, get := range []func() (int, error){l.MinThreads, l.Threads, l.MaxThreads} {
		n, err := get()
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	}
}

func TestEventLoopResizeUnsupported(t *testing.T) {
	l := newTestLoop(t, 4)

	assert.ErrorIs(t, l.SetMinThreads(2), ErrUnsupported)
	assert.ErrorIs(t, l.SetMaxThreads(2), ErrUnsupported)
	_, err := l.AddThreads(1)
	assert.ErrorIs(t, err, ErrUnsupported)
}

// Scenario: three items run after activation and Inactive waits for the
// last one to finish.
func TestEventLoopInactiveWaitsForInFlightHandler(t *testing.T) {
	l := newTestLoop(t, 4)
	rec := newRecorder()
	g := newGate()

	ok, err := l.Enqueue(rec, ev(1))
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = l.Enqueue(rec, ev(2))
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = l.Enqueue(g, ev(3))
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, l.SetStatus(Active))
	rec.await(t, 2)
	g.awaitEntered(t, 1)

	done := setStatusAsync(l, Inactive)
	requireBlocked(t, done)

	g.open()
	requireReturns(t, done)
	select {
	case <-g.done:
	default:
		t.Fatal("Inactive returned before the third handler completed")
	}

	size, err := l.QueueSize()
	require.NoError(t, err)
	assert.Equal(t, 0, size)
	assert.Equal(t, []any{1, 2}, rec.order())
}

// Scenario: Drained refuses plain work and Terminated poisons every call.
func TestEventLoopDrainedThenTerminated(t *testing.T) {
	l := newTestLoop(t, 4)
	rec := newRecorder()

	require.NoError(t, l.SetStatus(Drained))
	for i := 0; i < 3; i++ {
		ok, err := l.Enqueue(rec, ev(i))
		require.NoError(t, err)
		assert.False(t, ok)
		ok, err = l.EnqueueFirst(rec, ev(i))
		require.NoError(t, err)
		assert.False(t, ok)
	}

	require.NoError(t, l.SetStatus(Terminated))
	assert.Equal(t, Terminated, l.Status())

	_, err := l.Enqueue(rec, ev("late"))
	assert.ErrorIs(t, err, ErrIllegalState)
	_, err = l.EnqueueFirst(rec, ev("late"))
	assert.ErrorIs(t, err, ErrIllegalState)
	assert.ErrorIs(t, l.EnqueueForced(rec, ev("late")), ErrIllegalState)
	_, err = l.IsConcurrent()
	assert.ErrorIs(t, err, ErrIllegalState)
	_, err = l.Threads()
	assert.ErrorIs(t, err, ErrIllegalState)
	_, err = l.MinThreads()
	assert.ErrorIs(t, err, ErrIllegalState)
	_, err = l.MaxThreads()
	assert.ErrorIs(t, err, ErrIllegalState)
	assert.ErrorIs(t, l.SetMinThreads(1), ErrIllegalState)
	assert.ErrorIs(t, l.SetMaxThreads(1), ErrIllegalState)
	_, err = l.AddThreads(1)
	assert.ErrorIs(t, err, ErrIllegalState)
	_, err = l.QueueCapacity()
	assert.ErrorIs(t, err, ErrIllegalState)
	_, err = l.IsQueueEmpty()
	assert.ErrorIs(t, err, ErrIllegalState)
	_, err = l.QueueSize()
	assert.ErrorIs(t, err, ErrIllegalState)
	_, err = l.Queue()
	assert.ErrorIs(t, err, ErrIllegalState)
	for _, s := range []Status{Active, Inactive, Drained, Terminated} {
		assert.ErrorIs(t, l.SetStatus(s), ErrIllegalState)
	}
}

func TestEventLoopAcceptsExactlyCapacityWhileActive(t *testing.T) {
	for _, capacity := range []int{1, 3, 8} {
		l := newTestLoop(t, capacity)
		g := newGate()
		rec := newRecorder()

		require.NoError(t, l.SetStatus(Active))
		ok, err := l.Enqueue(g, ev("blocker"))
		require.NoError(t, err)
		require.True(t, ok)
		g.awaitEntered(t, 1)

		for i := 0; i < capacity; i++ {
			ok, err := l.Enqueue(rec, ev(i))
			require.NoError(t, err)
			require.True(t, ok, "item %d of %d", i, capacity)
		}
		ok, err = l.Enqueue(rec, ev("overflow"))
		require.NoError(t, err)
		assert.False(t, ok)

		g.open()
		rec.await(t, capacity)
	}
}

func TestEventLoopActiveToTerminatedRejected(t *testing.T) {
	l := newTestLoop(t, 2)
	require.NoError(t, l.SetStatus(Active))

	err := l.SetStatus(Terminated)
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, Active, l.Status())

	assert.ErrorIs(t, l.SetStatus(Status(17)), ErrInvalidArgument)
}

func TestEventLoopSameStatusIsNoop(t *testing.T) {
	l := newTestLoop(t, 2)
	g := newGate()
	require.NoError(t, l.SetStatus(Active))
	ok, err := l.Enqueue(g, ev(nil))
	require.NoError(t, err)
	require.True(t, ok)
	g.awaitEntered(t, 1)

	// Would block on the in-flight handler if it were a real transition.
	requireReturns(t, setStatusAsync(l, Active))

	g.open()
}

func TestEventLoopEnqueueFirstRunsBeforeLaterTailItems(t *testing.T) {
	l := newTestLoop(t, 8)
	rec := newRecorder()

	for _, step := range []struct {
		first   bool
		closure string
	}{
		{false, "a"},
		{false, "b"},
		{true, "urgent"},
		{false, "c"},
		{true, "most-urgent"},
	} {
		var (
			ok  bool
			err error
		)
		if step.first {
			ok, err = l.EnqueueFirst(rec, ev(step.closure))
		} else {
			ok, err = l.Enqueue(rec, ev(step.closure))
		}
		require.NoError(t, err)
		require.True(t, ok)
	}

	queued, err := l.Queue()
	require.NoError(t, err)
	assert.Equal(t, []any{"most-urgent", "urgent", "a", "b", "c"}, closures(queued))

	require.NoError(t, l.SetStatus(Active))
	rec.await(t, 5)
	assert.Equal(t, []any{"most-urgent", "urgent", "a", "b", "c"}, rec.order())
}

func TestEventLoopEnqueueForcedBypassesDrainedAndOverwrites(t *testing.T) {
	l := newTestLoop(t, 2)
	rec := newRecorder()

	ok, err := l.Enqueue(rec, ev("old"))
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = l.Enqueue(rec, ev("newer"))
	require.NoError(t, err)
	require.True(t, ok)

	// Full queue: the oldest pending item is overwritten in place.
	require.NoError(t, l.EnqueueForced(rec, ev("urgent")))
	queued, err := l.Queue()
	require.NoError(t, err)
	assert.Equal(t, []any{"urgent", "newer"}, closures(queued))

	require.NoError(t, l.SetStatus(Drained))
	assert.Equal(t, []any{"urgent", "newer"}, rec.order()[:2])
	rec.await(t, 2)

	require.NoError(t, l.EnqueueForced(rec, ev("control")))
	rec.await(t, 1)
	assert.Equal(t, []any{"urgent", "newer", "control"}, rec.order())
}

func TestEventLoopRejectsNilArguments(t *testing.T) {
	l := newTestLoop(t, 2)

	_, err := l.Enqueue(nil, ev(1))
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = l.Enqueue(newRecorder(), nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.ErrorIs(t, l.EnqueueForced(nil, ev(1)), ErrInvalidArgument)

	// An event must name a source to receive replies.
	_, err = l.EnqueueFirst(newRecorder(), &Event{Closure: "orphan"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	size, err := l.QueueSize()
	require.NoError(t, err)
	assert.Zero(t, size)
}

type wrapped struct {
	inner Handler
}

func (w wrapped) Handle(ctx context.Context, e *Event) error {
	return w.inner.Handle(ctx, e)
}

func (w wrapped) Unwrap() Handler {
	return w.inner
}

type failing struct {
	mode string
}

var errBoom = errors.New("boom")

func (f *failing) Handle(context.Context, *Event) error {
	switch f.mode {
	case "panic":
		panic("kaboom")
	case "goexit":
		runtime.Goexit()
	}
	return errBoom
}

func TestEventLoopSurvivesHandlerFailures(t *testing.T) {
	reporter := &recordingReporter{}
	l := newTestLoop(t, 8, WithReporter(reporter), WithName("faulty"))
	rec := newRecorder()
	inner := &failing{mode: "error"}

	items := []Handler{
		wrapped{inner: inner},
		&failing{mode: "panic"},
		&failing{mode: "goexit"},
		rec,
	}
	for i, h := range items {
		ok, err := l.Enqueue(h, ev(i))
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.NoError(t, l.SetStatus(Active))
	rec.await(t, 1)

	got := reporter.all()
	require.Len(t, got, 3)

	assert.Same(t, inner, got[0].source)
	assert.ErrorIs(t, got[0].err, errBoom)
	var herr *HandlerError
	require.ErrorAs(t, got[0].err, &herr)
	assert.Equal(t, "faulty", herr.Animator)
	assert.Equal(t, 0, herr.Event.Closure)

	var perr *PanicError
	require.ErrorAs(t, got[1].err, &perr)
	assert.Equal(t, "kaboom", perr.Value)
	assert.NotEmpty(t, perr.Stack)

	assert.ErrorIs(t, got[2].err, ErrHandlerExited)

	// The worker that called Goexit was replaced.
	require.Eventually(t, func() bool {
		n, err := l.Threads()
		return err == nil && n == 1
	}, waitTimeout, 5*time.Millisecond)
}

type panickingReporter struct{}

func (panickingReporter) LogError(any, string, error) {
	panic("reporter broke")
}

func TestEventLoopSurvivesPanickingReporter(t *testing.T) {
	l := newTestLoop(t, 4, WithReporter(panickingReporter{}))
	rec := newRecorder()

	ok, err := l.Enqueue(&failing{}, ev(1))
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = l.Enqueue(rec, ev(2))
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, l.SetStatus(Active))
	rec.await(t, 1)
}

func TestEventLoopTerminateDiscardsPendingWork(t *testing.T) {
	l, err := NewEventLoop(4, quiet())
	require.NoError(t, err)
	rec := newRecorder()

	for i := 0; i < 3; i++ {
		ok, err := l.Enqueue(rec, ev(i))
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.NoError(t, l.SetStatus(Terminated))
	assert.Empty(t, rec.order())
}

func TestEventLoopTerminateReleasesWorker(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	l, err := NewEventLoop(4, quiet())
	require.NoError(t, err)
	rec := newRecorder()
	require.NoError(t, l.SetStatus(Active))
	for i := 0; i < 4; i++ {
		ok, err := l.Enqueue(rec, ev(i))
		require.NoError(t, err)
		require.True(t, ok)
	}
	rec.await(t, 4)

	require.NoError(t, l.SetStatus(Drained))
	require.NoError(t, l.SetStatus(Terminated))
}

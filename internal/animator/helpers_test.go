// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package animator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 2 * time.Second

// reported is one failure captured by recordingReporter.
type reported struct {
	source any
	msg    string
	err    error
}

type recordingReporter struct {
	mu      sync.Mutex
	entries []reported
}

func (r *recordingReporter) LogError(source any, msg string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, reported{source: source, msg: msg, err: err})
}

func (r *recordingReporter) all() []reported {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]reported(nil), r.entries...)
}

func (r *recordingReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func quiet() Option {
	return WithLogger(zerolog.Nop())
}

// recorder collects the closures of handled events in execution order.
type recorder struct {
	mu   sync.Mutex
	seen []any
	ch   chan any
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan any, 64)}
}

func (r *recorder) Handle(_ context.Context, ev *Event) error {
	r.mu.Lock()
	r.seen = append(r.seen, ev.Closure)
	r.mu.Unlock()
	r.ch <- ev.Closure
	return nil
}

func (r *recorder) order() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]any(nil), r.seen...)
}

func (r *recorder) await(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-r.ch:
		case <-time.After(waitTimeout):
			t.Fatalf("timed out after %d of %d handled events", i, n)
		}
	}
}

// gate is a handler that signals entry and blocks until released.
type gate struct {
	entered chan struct{}
	release chan struct{}
	done    chan struct{}
}

func newGate() *gate {
	return &gate{
		entered: make(chan struct{}, 16),
		release: make(chan struct{}),
		done:    make(chan struct{}, 16),
	}
}

func (g *gate) Handle(ctx context.Context, _ *Event) error {
	g.entered <- struct{}{}
	<-g.release
	g.done <- struct{}{}
	return nil
}

func (g *gate) awaitEntered(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-g.entered:
		case <-time.After(waitTimeout):
			t.Fatalf("timed out waiting for handler %d to start", i+1)
		}
	}
}

func (g *gate) open() {
	close(g.release)
}

var nopSource = HandlerFunc(func(context.Context, *Event) error { return nil })

func ev(closure any) *Event {
	return NewEvent(nopSource, closure)
}

// setStatusAsync runs SetStatus on a goroutine and returns its result channel.
func setStatusAsync(a Animator, s Status) <-chan error {
	ch := make(chan error, 1)
	go func() {
		ch <- a.SetStatus(s)
	}()
	return ch
}

func requireBlocked(t *testing.T, ch <-chan error) {
	t.Helper()
	select {
	case err := <-ch:
		t.Fatalf("SetStatus returned early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
}

func requireReturns(t *testing.T, ch <-chan error) {
	t.Helper()
	select {
	case err := <-ch:
		require.NoError(t, err)
	case <-time.After(waitTimeout):
		t.Fatal("SetStatus did not return")
	}
}

// shutdown drives a through Inactive into Terminated.
func shutdown(t *testing.T, a Animator) {
	t.Helper()
	if a.Status() == Terminated {
		return
	}
	if a.Status() == Active {
		require.NoError(t, a.SetStatus(Inactive))
	}
	require.NoError(t, a.SetStatus(Terminated))
}

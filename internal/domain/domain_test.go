// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package domain

import (
	"bytes"
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/goleak"

	"github.com/ManuGH/animator/internal/animator"
	"github.com/ManuGH/animator/internal/auth"
)

type fakeSupervisor struct {
	mu      sync.Mutex
	members map[animator.Animator]bool
}

func newFakeSupervisor() *fakeSupervisor {
	return &fakeSupervisor{members: map[animator.Animator]bool{}}
}

func (s *fakeSupervisor) Add(a animator.Animator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[a] = true
}

func (s *fakeSupervisor) Remove(a animator.Animator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.members, a)
}

func (s *fakeSupervisor) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members)
}

func manager() context.Context {
	return auth.ContextWithPrincipal(context.Background(), auth.NewPrincipal("t", "ops", []string{auth.ScopeManage}))
}

func testConfig() Config {
	return Config{
		Default:     Sizing{QueueCapacity: 8, MinThreads: 1, MaxThreads: 3},
		Root:        Sizing{QueueCapacity: 32, MinThreads: 2, MaxThreads: 6},
		IdleTimeout: time.Hour,
	}
}

func newTestDomain(t *testing.T, opts ...Option) *Domain {
	t.Helper()
	d, err := New("env-1", testConfig(), append([]Option{WithLogger(zerolog.Nop())}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Terminate(manager()) })
	return d
}

func TestNewValidates(t *testing.T) {
	_, err := New("", testConfig())
	require.ErrorIs(t, err, animator.ErrInvalidArgument)

	cfg := testConfig()
	cfg.Root.MinThreads = 9
	_, err = New("x", cfg)
	require.ErrorIs(t, err, animator.ErrInvalidArgument)

	cfg = testConfig()
	cfg.Default.QueueCapacity = 0
	_, err = New("x", cfg)
	require.ErrorIs(t, err, animator.ErrInvalidArgument)

	require.NoError(t, DefaultConfig().Validate())
}

func TestAnimateRequiresManageScope(t *testing.T) {
	d := newTestDomain(t)

	err := d.Animate(context.Background(), false, false)
	require.ErrorIs(t, err, auth.ErrPermission)

	reader := auth.ContextWithPrincipal(context.Background(), auth.NewPrincipal("t", "viewer", []string{auth.ScopeRead}))
	require.ErrorIs(t, d.Animate(reader, false, false), auth.ErrPermission)
	assert.False(t, d.Animated())

	require.ErrorIs(t, d.Terminate(reader), auth.ErrPermission)
}

func TestQueriesFailBeforeAnimate(t *testing.T) {
	d := newTestDomain(t)

	_, err := d.IsConcurrent()
	require.ErrorIs(t, err, animator.ErrIllegalState)
	_, err = d.Threads()
	require.ErrorIs(t, err, animator.ErrIllegalState)
	_, err = d.Animator()
	require.ErrorIs(t, err, ErrNotAnimated)
	require.ErrorIs(t, d.SetStatus(manager(), animator.Inactive), animator.ErrIllegalState)

	// Terminate on an unanimated domain is a no-op.
	require.NoError(t, d.Terminate(manager()))
}

func TestAnimateSizing(t *testing.T) {
	tests := []struct {
		name           string
		singleThreaded bool
		root           bool
		wantConcurrent bool
		wantThreads    int
		wantCapacity   int
		wantSupervised int
	}{
		{name: "event loop", singleThreaded: true, wantThreads: 1, wantCapacity: 8},
		{name: "root event loop", singleThreaded: true, root: true, wantThreads: 1, wantCapacity: 32},
		{name: "pool", wantConcurrent: true, wantThreads: 1, wantCapacity: 8, wantSupervised: 1},
		{name: "root pool", root: true, wantConcurrent: true, wantThreads: 2, wantCapacity: 32, wantSupervised: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sup := newFakeSupervisor()
			d := newTestDomain(t, WithSupervisor(sup))

			require.NoError(t, d.Animate(manager(), tt.singleThreaded, tt.root))

			concurrent, err := d.IsConcurrent()
			require.NoError(t, err)
			assert.Equal(t, tt.wantConcurrent, concurrent)
			threads, err := d.Threads()
			require.NoError(t, err)
			assert.Equal(t, tt.wantThreads, threads)

			a, err := d.Animator()
			require.NoError(t, err)
			assert.Equal(t, animator.Active, a.Status())
			capacity, err := a.QueueCapacity()
			require.NoError(t, err)
			assert.Equal(t, tt.wantCapacity, capacity)
			assert.Equal(t, tt.wantSupervised, sup.len())

			require.NoError(t, d.Terminate(manager()))
			assert.Equal(t, 0, sup.len())
			assert.Equal(t, animator.Terminated, a.Status())
		})
	}
}

func TestAnimateIsIdempotent(t *testing.T) {
	d := newTestDomain(t)
	require.NoError(t, d.Animate(manager(), false, false))
	first, err := d.Animator()
	require.NoError(t, err)

	require.NoError(t, d.Animate(manager(), true, true))
	second, err := d.Animator()
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestTerminateFromDrained(t *testing.T) {
	d := newTestDomain(t)
	require.NoError(t, d.Animate(manager(), true, false))
	require.NoError(t, d.SetStatus(manager(), animator.Drained))

	require.NoError(t, d.Terminate(manager()))
	assert.False(t, d.Animated())

	// A fresh animator can be created afterwards.
	require.NoError(t, d.Animate(manager(), true, false))
	assert.True(t, d.Animated())
}

func TestSetStatusTerminatedReleasesAnimator(t *testing.T) {
	sup := newFakeSupervisor()
	d := newTestDomain(t, WithSupervisor(sup))
	require.NoError(t, d.Animate(manager(), false, false))

	require.ErrorIs(t, d.SetStatus(manager(), animator.Terminated), animator.ErrInvalidArgument)
	assert.True(t, d.Animated())

	require.NoError(t, d.SetStatus(manager(), animator.Inactive))
	require.NoError(t, d.SetStatus(manager(), animator.Terminated))
	assert.False(t, d.Animated())
	assert.Equal(t, 0, sup.len())
}

func TestTerminateRunsQueuedWork(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	d, err := New("env-2", testConfig(), WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	require.NoError(t, d.Animate(manager(), true, false))
	a, err := d.Animator()
	require.NoError(t, err)

	done := make(chan struct{})
	h := animator.HandlerFunc(func(context.Context, *animator.Event) error {
		close(done)
		return nil
	})
	ok, err := a.Enqueue(h, animator.NewEvent(h, nil))
	require.NoError(t, err)
	require.True(t, ok)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not run")
	}
	require.NoError(t, d.Terminate(manager()))
}

func TestDomainIsNotSerializable(t *testing.T) {
	d := newTestDomain(t)

	_, err := json.Marshal(d)
	require.ErrorIs(t, err, ErrNotSerializable)
	_, err = d.MarshalBinary()
	require.ErrorIs(t, err, ErrNotSerializable)
	err = gob.NewEncoder(&bytes.Buffer{}).Encode(d)
	require.ErrorIs(t, err, ErrNotSerializable)

	ref, err := json.Marshal(d.Ref())
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"env-1"}`, string(ref))
}

func TestDescribe(t *testing.T) {
	d := newTestDomain(t)
	info := d.Describe()
	assert.False(t, info.Animated)
	assert.Nil(t, info.Status)

	require.NoError(t, d.Animate(manager(), false, true))
	info = d.Describe()
	assert.True(t, info.Animated)
	require.NotNil(t, info.Status)
	assert.Equal(t, animator.Active, *info.Status)
	assert.True(t, info.Root)
	assert.Equal(t, 2, info.MinThreads)
	assert.Equal(t, 6, info.MaxThreads)
	assert.Equal(t, 32, info.QueueCapacity)
	assert.Equal(t, "domain-env-1", info.Animator)
}

func TestQueriesDoNotWaitForTermination(t *testing.T) {
	d := newTestDomain(t)
	require.NoError(t, d.Animate(manager(), true, false))
	a, err := d.Animator()
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	h := animator.HandlerFunc(func(context.Context, *animator.Event) error {
		close(entered)
		<-release
		return nil
	})
	ok, err := a.Enqueue(h, animator.NewEvent(h, nil))
	require.NoError(t, err)
	require.True(t, ok)
	<-entered

	terminated := make(chan error, 1)
	go func() { terminated <- d.Terminate(manager()) }()

	select {
	case err := <-terminated:
		t.Fatalf("Terminate returned while a handler was running: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	queried := make(chan Info, 1)
	go func() {
		_, _ = d.Threads()
		_, _ = d.IsConcurrent()
		queried <- d.Describe()
	}()
	select {
	case info := <-queried:
		assert.True(t, info.Animated)
		assert.Equal(t, "domain-env-1", info.Animator)
	case <-time.After(time.Second):
		t.Fatal("queries blocked behind Terminate")
	}

	close(release)
	select {
	case err := <-terminated:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Terminate did not return")
	}
	assert.False(t, d.Animated())
}

func TestEndSpanMarksErrors(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)).Tracer("test")

	_, ok := tracer.Start(context.Background(), "ok")
	var noErr error
	endSpan(ok, &noErr)

	_, failed := tracer.Start(context.Background(), "failed")
	err := errors.New("deactivate animator: boom")
	endSpan(failed, &err)

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "deactivate animator: boom", spans[1].Status().Description)
	require.Len(t, spans[1].Events(), 1)
	assert.Equal(t, "exception", spans[1].Events()[0].Name)
}

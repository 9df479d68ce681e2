// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package animator

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/animator/internal/log"
	"github.com/ManuGH/animator/internal/metrics"
)

// EventLoop is an animator with exactly one worker goroutine.
type EventLoop struct {
	name   string
	logger zerolog.Logger
	inv    invoker

	// transition serializes SetStatus callers.
	transition sync.Mutex

	mu      sync.Mutex
	wake    *sync.Cond // worker waits for work or a status change
	settled *sync.Cond // SetStatus waits for the worker
	queue   *WorkQueue
	status  Status
	live    int
	running bool
}

var _ Animator = (*EventLoop)(nil)

// NewEventLoop creates an Inactive event loop with the given queue
// capacity and starts its worker.
func NewEventLoop(capacity int, opts ...Option) (*EventLoop, error) {
	q, err := NewWorkQueue(capacity)
	if err != nil {
		return nil, err
	}
	o := buildOptions(kindEventLoop, opts)
	l := &EventLoop{
		name:   o.name,
		logger: o.logger.With().Str(xglog.FieldAnimator, o.name).Logger(),
		inv: invoker{
			name:     o.name,
			kind:     kindEventLoop,
			reporter: o.reporter,
			tracer:   o.tracer,
		},
		queue:  q,
		status: Inactive,
		live:   1,
	}
	l.wake = sync.NewCond(&l.mu)
	l.settled = sync.NewCond(&l.mu)

	go l.run()
	metrics.SetThreads(l.name, 1)
	return l, nil
}

// Name implements Animator.
func (l *EventLoop) Name() string {
	return l.name
}

// IsConcurrent is always false for an event loop.
func (l *EventLoop) IsConcurrent() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.status == Terminated {
		return false, terminatedError(l.name)
	}
	return false, nil
}

func (l *EventLoop) MinThreads() (int, error) {
	return l.fixedThreads()
}

func (l *EventLoop) MaxThreads() (int, error) {
	return l.fixedThreads()
}

func (l *EventLoop) fixedThreads() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.status == Terminated {
		return 0, terminatedError(l.name)
	}
	return 1, nil
}

// Threads returns the number of live workers (1 unless the worker is being
// replaced after an abnormal exit).
func (l *EventLoop) Threads() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.status == Terminated {
		return 0, terminatedError(l.name)
	}
	return l.live, nil
}

func (l *EventLoop) SetMinThreads(int) error {
	return l.unsupported("SetMinThreads")
}

func (l *EventLoop) SetMaxThreads(int) error {
	return l.unsupported("SetMaxThreads")
}

func (l *EventLoop) AddThreads(int) (int, error) {
	return 0, l.unsupported("AddThreads")
}

func (l *EventLoop) unsupported(op string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.status == Terminated {
		return terminatedError(l.name)
	}
	return fmt.Errorf("%w: %s on single-threaded animator %s", ErrUnsupported, op, l.name)
}

// Status implements Animator.
func (l *EventLoop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// SetStatus implements Animator.
func (l *EventLoop) SetStatus(s Status) error {
	l.transition.Lock()
	defer l.transition.Unlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	from := l.status
	if err := checkTransition(from, s); err != nil {
		return err
	}
	if from == s {
		return nil
	}

	l.status = s
	l.wake.Broadcast()

	switch s {
	case Inactive:
		for l.running {
			l.settled.Wait()
		}
	case Drained:
		for l.running || !l.queue.IsEmpty() {
			l.settled.Wait()
		}
	case Terminated:
		for l.live > 0 {
			l.settled.Wait()
		}
		if discarded := l.queue.Release(); discarded > 0 {
			l.logger.Warn().
				Str(xglog.FieldEvent, "animator.discarded").
				Int("discarded", discarded).
				Msg("pending applications discarded on termination")
		}
		metrics.ForgetAnimator(l.name)
	}

	metrics.IncTransition(kindEventLoop, from.String(), s.String())
	l.logger.Debug().
		Str(xglog.FieldOldStatus, from.String()).
		Str(xglog.FieldNewStatus, s.String()).
		Msg("status changed")
	return nil
}

func (l *EventLoop) Enqueue(h Handler, ev *Event) (bool, error) {
	return l.enqueue(h, ev, enqueueTail)
}

func (l *EventLoop) EnqueueFirst(h Handler, ev *Event) (bool, error) {
	return l.enqueue(h, ev, enqueueHead)
}

func (l *EventLoop) EnqueueForced(h Handler, ev *Event) error {
	_, err := l.enqueue(h, ev, enqueueForced)
	return err
}

func (l *EventLoop) enqueue(h Handler, ev *Event, mode enqueueMode) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.status == Terminated {
		return false, terminatedError(l.name)
	}
	app, err := newApplication(h, ev)
	if err != nil {
		return false, err
	}
	if !place(l.queue, l.status, app, mode, kindEventLoop, l.logger) {
		return false, nil
	}
	metrics.SetQueueDepth(l.name, l.queue.Size())
	l.wake.Signal()
	return true, nil
}

func (l *EventLoop) QueueCapacity() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.status == Terminated {
		return 0, terminatedError(l.name)
	}
	return l.queue.Capacity(), nil
}

func (l *EventLoop) IsQueueEmpty() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.status == Terminated {
		return false, terminatedError(l.name)
	}
	return l.queue.IsEmpty(), nil
}

func (l *EventLoop) QueueSize() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.status == Terminated {
		return 0, terminatedError(l.name)
	}
	return l.queue.Size(), nil
}

func (l *EventLoop) Queue() ([]Application, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.status == Terminated {
		return nil, terminatedError(l.name)
	}
	return l.queue.Snapshot(), nil
}

// run is the worker loop. It waits on wake while there is nothing to do,
// re-checking the condition after every wake-up.
func (l *EventLoop) run() {
	clean := false
	inFlight := false
	defer func() {
		if !clean {
			l.workerDied(inFlight)
		}
	}()

	l.mu.Lock()
	for {
		for l.status != Terminated && (l.status == Inactive || l.queue.IsEmpty()) {
			l.wake.Wait()
		}
		if l.status == Terminated {
			break
		}

		app, _ := l.queue.Pop()
		l.running = true
		inFlight = true
		depth := l.queue.Size()
		l.mu.Unlock()

		metrics.SetQueueDepth(l.name, depth)
		l.inv.invoke(app)

		l.mu.Lock()
		inFlight = false
		l.running = false
		l.settled.Broadcast()
	}
	l.live--
	l.settled.Broadcast()
	l.mu.Unlock()

	metrics.IncWorkerExit(kindEventLoop, metrics.ExitTerminated)
	clean = true
}

// workerDied accounts for a worker that left run without passing the
// controlled exit, and starts a replacement unless terminating.
func (l *EventLoop) workerDied(inFlight bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if inFlight {
		l.running = false
	}
	l.live--
	metrics.IncWorkerExit(kindEventLoop, metrics.ExitDied)
	l.logger.Warn().
		Str(xglog.FieldEvent, "animator.worker_died").
		Msg("event loop worker exited abnormally")

	if l.status != Terminated {
		l.live++
		go l.run()
	}
	l.settled.Broadcast()
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package animator

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/animator/internal/log"
	"github.com/ManuGH/animator/internal/metrics"
)

// ThreadPool is an animator whose worker count floats between a minimum and
// a maximum. Workers above the minimum retire after idling for the
// configured timeout.
type ThreadPool struct {
	name        string
	logger      zerolog.Logger
	inv         invoker
	idleTimeout time.Duration

	// transition serializes SetStatus callers.
	transition sync.Mutex

	mu      sync.Mutex
	wake    *sync.Cond
	settled *sync.Cond
	queue   *WorkQueue
	status  Status
	min     int
	max     int
	live    int
	running int
	nextID  int
}

var _ Animator = (*ThreadPool)(nil)

// NewThreadPool creates an Inactive pool and starts minThreads workers.
func NewThreadPool(capacity, minThreads, maxThreads int, opts ...Option) (*ThreadPool, error) {
	if minThreads < 1 || maxThreads < 1 {
		return nil, fmt.Errorf("%w: thread bounds must be positive, got min=%d max=%d", ErrInvalidArgument, minThreads, maxThreads)
	}
	if minThreads > maxThreads {
		return nil, fmt.Errorf("%w: min threads %d exceeds max threads %d", ErrInvalidArgument, minThreads, maxThreads)
	}
	q, err := NewWorkQueue(capacity)
	if err != nil {
		return nil, err
	}
	o := buildOptions(kindThreadPool, opts)
	if o.idleTimeout < 0 {
		return nil, fmt.Errorf("%w: negative idle timeout %s", ErrInvalidArgument, o.idleTimeout)
	}

	p := &ThreadPool{
		name:        o.name,
		logger:      o.logger.With().Str(xglog.FieldAnimator, o.name).Logger(),
		idleTimeout: o.idleTimeout,
		inv: invoker{
			name:     o.name,
			kind:     kindThreadPool,
			reporter: o.reporter,
			tracer:   o.tracer,
		},
		queue:  q,
		status: Inactive,
		min:    minThreads,
		max:    maxThreads,
	}
	p.wake = sync.NewCond(&p.mu)
	p.settled = sync.NewCond(&p.mu)

	p.mu.Lock()
	p.spawnLocked(minThreads)
	p.mu.Unlock()
	return p, nil
}

// Name implements Animator.
func (p *ThreadPool) Name() string {
	return p.name
}

// IsConcurrent reports whether the maximum allows parallel handlers.
func (p *ThreadPool) IsConcurrent() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == Terminated {
		return false, terminatedError(p.name)
	}
	return p.max > 1, nil
}

func (p *ThreadPool) MinThreads() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == Terminated {
		return 0, terminatedError(p.name)
	}
	return p.min, nil
}

func (p *ThreadPool) Threads() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == Terminated {
		return 0, terminatedError(p.name)
	}
	return p.live, nil
}

func (p *ThreadPool) MaxThreads() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == Terminated {
		return 0, terminatedError(p.name)
	}
	return p.max, nil
}

// SetMinThreads raises max if needed and starts workers up to the new
// minimum.
func (p *ThreadPool) SetMinThreads(n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == Terminated {
		return terminatedError(p.name)
	}
	if n < 1 {
		return fmt.Errorf("%w: min threads must be positive, got %d", ErrInvalidArgument, n)
	}
	p.min = n
	if p.max < n {
		p.max = n
	}
	if p.live < p.min {
		p.spawnLocked(p.min - p.live)
	}
	return nil
}

// SetMaxThreads lowers min if needed. Workers above the new maximum retire
// at their next idle point.
func (p *ThreadPool) SetMaxThreads(n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == Terminated {
		return terminatedError(p.name)
	}
	if n < 1 {
		return fmt.Errorf("%w: max threads must be positive, got %d", ErrInvalidArgument, n)
	}
	p.max = n
	if p.min > n {
		p.min = n
	}
	if p.live > p.max {
		p.wake.Broadcast()
	}
	return nil
}

// AddThreads implements Animator.
func (p *ThreadPool) AddThreads(n int) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == Terminated {
		return 0, terminatedError(p.name)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: cannot add %d threads", ErrInvalidArgument, n)
	}
	room := p.max - p.live
	if room < 0 {
		room = 0
	}
	if n > room {
		n = room
	}
	p.spawnLocked(n)
	if n > 0 {
		p.logger.Debug().Int("added", n).Int("threads", p.live).Msg("threads added")
	}
	return n, nil
}

// Status implements Animator.
func (p *ThreadPool) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// SetStatus implements Animator. Inactive waits until no worker runs a
// handler, Drained additionally waits for an empty queue and Terminated
// waits until every worker exited.
func (p *ThreadPool) SetStatus(s Status) error {
	p.transition.Lock()
	defer p.transition.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	from := p.status
	if err := checkTransition(from, s); err != nil {
		return err
	}
	if from == s {
		return nil
	}

	p.status = s
	p.wake.Broadcast()

	switch s {
	case Inactive:
		for p.running > 0 {
			p.settled.Wait()
		}
	case Drained:
		for p.running > 0 || !p.queue.IsEmpty() {
			p.settled.Wait()
		}
	case Terminated:
		for p.live > 0 {
			p.settled.Wait()
		}
		if discarded := p.queue.Release(); discarded > 0 {
			p.logger.Warn().
				Str(xglog.FieldEvent, "animator.discarded").
				Int("discarded", discarded).
				Msg("pending applications discarded on termination")
		}
		metrics.ForgetAnimator(p.name)
	}

	metrics.IncTransition(kindThreadPool, from.String(), s.String())
	p.logger.Debug().
		Str(xglog.FieldOldStatus, from.String()).
		Str(xglog.FieldNewStatus, s.String()).
		Msg("status changed")
	return nil
}

func (p *ThreadPool) Enqueue(h Handler, ev *Event) (bool, error) {
	return p.enqueue(h, ev, enqueueTail)
}

func (p *ThreadPool) EnqueueFirst(h Handler, ev *Event) (bool, error) {
	return p.enqueue(h, ev, enqueueHead)
}

func (p *ThreadPool) EnqueueForced(h Handler, ev *Event) error {
	_, err := p.enqueue(h, ev, enqueueForced)
	return err
}

func (p *ThreadPool) enqueue(h Handler, ev *Event, mode enqueueMode) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == Terminated {
		return false, terminatedError(p.name)
	}
	app, err := newApplication(h, ev)
	if err != nil {
		return false, err
	}
	if !place(p.queue, p.status, app, mode, kindThreadPool, p.logger) {
		return false, nil
	}
	metrics.SetQueueDepth(p.name, p.queue.Size())
	p.wake.Signal()
	return true, nil
}

func (p *ThreadPool) QueueCapacity() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == Terminated {
		return 0, terminatedError(p.name)
	}
	return p.queue.Capacity(), nil
}

func (p *ThreadPool) IsQueueEmpty() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == Terminated {
		return false, terminatedError(p.name)
	}
	return p.queue.IsEmpty(), nil
}

func (p *ThreadPool) QueueSize() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == Terminated {
		return 0, terminatedError(p.name)
	}
	return p.queue.Size(), nil
}

func (p *ThreadPool) Queue() ([]Application, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == Terminated {
		return nil, terminatedError(p.name)
	}
	return p.queue.Snapshot(), nil
}

// spawnLocked starts n workers. Caller holds p.mu.
func (p *ThreadPool) spawnLocked(n int) {
	for i := 0; i < n; i++ {
		p.live++
		p.nextID++
		go p.work(p.nextID)
	}
	metrics.SetThreads(p.name, p.live)
}

// hasWork reports whether a worker should dequeue. Caller holds p.mu.
func (p *ThreadPool) hasWork() bool {
	return (p.status == Active || p.status == Drained) && !p.queue.IsEmpty()
}

// awaitWork blocks until there is work to run. It returns the exit reason
// when the worker should leave instead. Caller holds p.mu.
func (p *ThreadPool) awaitWork() (exit string) {
	var (
		deadline time.Time
		timer    *time.Timer
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		if p.status == Terminated {
			return metrics.ExitTerminated
		}
		if p.live > p.max {
			return metrics.ExitShrink
		}
		if p.hasWork() {
			return ""
		}
		if p.idleTimeout > 0 && p.live > p.min {
			now := time.Now()
			if deadline.IsZero() {
				deadline = now.Add(p.idleTimeout)
				timer = time.AfterFunc(p.idleTimeout, p.nudge)
			} else if !now.Before(deadline) {
				return metrics.ExitIdle
			}
		} else if timer != nil {
			// Back at or below the minimum: the idle clock restarts if the
			// pool grows again.
			timer.Stop()
			timer = nil
			deadline = time.Time{}
		}
		p.wake.Wait()
	}
}

// nudge wakes idle workers so they can re-check their idle deadline.
func (p *ThreadPool) nudge() {
	p.mu.Lock()
	p.wake.Broadcast()
	p.mu.Unlock()
}

func (p *ThreadPool) work(id int) {
	clean := false
	inFlight := false
	defer func() {
		if !clean {
			p.workerDied(id, inFlight)
		}
	}()

	p.mu.Lock()
	var exit string
	for {
		if exit = p.awaitWork(); exit != "" {
			break
		}

		app, _ := p.queue.Pop()
		p.running++
		inFlight = true
		depth := p.queue.Size()
		p.mu.Unlock()

		metrics.SetQueueDepth(p.name, depth)
		p.inv.invoke(app)

		p.mu.Lock()
		inFlight = false
		p.running--
		p.settled.Broadcast()
	}
	p.live--
	live := p.live
	if p.status != Terminated {
		metrics.SetThreads(p.name, live)
	}
	if p.hasWork() {
		// Hand the wake-up this worker may have consumed to a sibling.
		p.wake.Signal()
	}
	p.settled.Broadcast()
	p.mu.Unlock()

	metrics.IncWorkerExit(kindThreadPool, exit)
	p.logger.Debug().
		Int("worker", id).
		Str("reason", exit).
		Int("threads", live).
		Msg("worker exited")
	clean = true
}

// workerDied accounts for a worker that bypassed the controlled exit path.
// A replacement starts when the pool fell below its minimum.
func (p *ThreadPool) workerDied(id int, inFlight bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if inFlight {
		p.running--
	}
	p.live--
	metrics.IncWorkerExit(kindThreadPool, metrics.ExitDied)
	p.logger.Warn().
		Str(xglog.FieldEvent, "animator.worker_died").
		Int("worker", id).
		Msg("pool worker exited abnormally")

	if p.status != Terminated {
		if p.live < p.min {
			p.spawnLocked(p.min - p.live)
		} else {
			metrics.SetThreads(p.name, p.live)
		}
	}
	p.settled.Broadcast()
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package animator

import "fmt"

// WorkQueue is a fixed-capacity circular buffer of applications.
//
// head indexes the oldest element and tail the next free slot. An empty
// queue has tail == -1; a full queue has head == tail. WorkQueue is not safe
// for concurrent use; animators guard it with their own lock.
type WorkQueue struct {
	buf  []Application
	head int
	tail int
}

// NewWorkQueue allocates a queue holding up to capacity applications.
func NewWorkQueue(capacity int) (*WorkQueue, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: queue capacity must be positive, got %d", ErrInvalidArgument, capacity)
	}
	return &WorkQueue{
		buf:  make([]Application, capacity),
		head: 0,
		tail: -1,
	}, nil
}

// Capacity returns the fixed number of slots.
func (q *WorkQueue) Capacity() int {
	return len(q.buf)
}

// IsEmpty reports whether no application is pending.
func (q *WorkQueue) IsEmpty() bool {
	return q.tail == -1
}

// IsFull reports whether every slot is occupied.
func (q *WorkQueue) IsFull() bool {
	return q.tail != -1 && q.head == q.tail
}

// Size returns the number of pending applications.
func (q *WorkQueue) Size() int {
	switch {
	case q.IsEmpty():
		return 0
	case q.IsFull():
		return len(q.buf)
	case q.tail < q.head:
		return len(q.buf) - (q.head - q.tail)
	default:
		return q.tail - q.head
	}
}

// Push appends app at the tail. It returns false when the queue is full.
func (q *WorkQueue) Push(app Application) bool {
	if len(q.buf) == 0 || q.IsFull() {
		return false
	}
	if q.IsEmpty() {
		q.tail = q.head
	}
	q.buf[q.tail] = app
	q.tail = q.next(q.tail)
	return true
}

// PushFirst prepends app at the head. It returns false when the queue is
// full.
func (q *WorkQueue) PushFirst(app Application) bool {
	if len(q.buf) == 0 || q.IsFull() {
		return false
	}
	if q.IsEmpty() {
		q.buf[q.head] = app
		q.tail = q.next(q.head)
		return true
	}
	q.head = q.prev(q.head)
	q.buf[q.head] = app
	return true
}

// PushForced prepends app at the head. A full queue keeps its size: the
// current head is overwritten and returned as dropped.
func (q *WorkQueue) PushForced(app Application) (dropped Application, overwritten bool) {
	if q.PushFirst(app) || len(q.buf) == 0 {
		return Application{}, false
	}
	dropped = q.buf[q.head]
	q.buf[q.head] = app
	return dropped, true
}

// Pop removes and returns the head. The vacated slot is cleared so the
// queue does not keep executed work reachable.
func (q *WorkQueue) Pop() (Application, bool) {
	if q.IsEmpty() {
		return Application{}, false
	}
	app := q.buf[q.head]
	q.buf[q.head] = Application{}
	q.head = q.next(q.head)
	if q.head == q.tail {
		q.tail = -1
	}
	return app, true
}

// Snapshot copies the pending applications in dequeue order.
func (q *WorkQueue) Snapshot() []Application {
	n := q.Size()
	out := make([]Application, 0, n)
	for i, idx := 0, q.head; i < n; i, idx = i+1, q.next(idx) {
		out = append(out, q.buf[idx])
	}
	return out
}

// Release drops all pending applications and the backing storage. It
// returns the number of applications discarded. A released queue reports
// capacity 0 and rejects all pushes.
func (q *WorkQueue) Release() int {
	n := q.Size()
	q.buf = nil
	q.head = 0
	q.tail = -1
	return n
}

func (q *WorkQueue) next(i int) int {
	i++
	if i == len(q.buf) {
		return 0
	}
	return i
}

func (q *WorkQueue) prev(i int) int {
	if i == 0 {
		return len(q.buf) - 1
	}
	return i - 1
}

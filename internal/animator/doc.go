// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package animator supplies the threads that execute event handler
// applications for a concurrency domain.
//
// An Animator owns a bounded WorkQueue of (handler, event) pairs, a Status
// and one or more worker goroutines. Two implementations exist:
//
//   - EventLoop runs exactly one worker.
//   - ThreadPool runs between a minimum and a maximum number of workers and
//     lets idle workers above the minimum retire on their own.
//
// Status changes are synchronous: SetStatus returns only after the workers
// observed the new status (no invocation in flight for Inactive, empty queue
// for Drained, all workers gone for Terminated).
//
// EnqueueFirst and EnqueueForced place work at the head of the queue and so
// overtake work added with Enqueue. This priority inversion is intended for
// urgent control messages. EnqueueForced on a full queue overwrites the
// oldest pending application.
package animator

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package animator

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Handler executes events. Implementations may block, return an error or
// panic; the animator treats all of these as a failed invocation and keeps
// running.
type Handler interface {
	Handle(ctx context.Context, ev *Event) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, ev *Event) error

// Handle calls f(ctx, ev).
func (f HandlerFunc) Handle(ctx context.Context, ev *Event) error {
	return f(ctx, ev)
}

// Wrapper is implemented by handlers that decorate another handler.
// Failure reports name the innermost handler.
type Wrapper interface {
	Unwrap() Handler
}

// Event is the unit of data passed to a handler.
type Event struct {
	// ID identifies the event.
	ID uuid.UUID

	// Source receives replies to this event.
	Source Handler

	// Closure is passed through untouched.
	Closure any
}

// NewEvent returns an event with a fresh random identity.
func NewEvent(source Handler, closure any) *Event {
	return &Event{
		ID:      uuid.New(),
		Source:  source,
		Closure: closure,
	}
}

// Validate reports whether the event can be scheduled.
func (e *Event) Validate() error {
	if e == nil {
		return fmt.Errorf("%w: nil event", ErrInvalidArgument)
	}
	if e.Source == nil {
		return fmt.Errorf("%w: event %s has no source", ErrInvalidArgument, e.ID)
	}
	return nil
}

// Application is one scheduled unit of work: a handler applied to an event.
type Application struct {
	Handler Handler
	Event   *Event
}

func newApplication(h Handler, ev *Event) (Application, error) {
	if h == nil {
		return Application{}, fmt.Errorf("%w: nil handler", ErrInvalidArgument)
	}
	if err := ev.Validate(); err != nil {
		return Application{}, err
	}
	return Application{Handler: h, Event: ev}, nil
}

// unwrapHandler returns the innermost handler of a chain of Wrappers.
func unwrapHandler(h Handler) Handler {
	for i := 0; i < 32; i++ {
		w, ok := h.(Wrapper)
		if !ok {
			return h
		}
		inner := w.Unwrap()
		if inner == nil {
			return h
		}
		h = inner
	}
	return h
}

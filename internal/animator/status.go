// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package animator

import (
	"fmt"
	"strings"
)

// Status is the execution status of an animator.
type Status int

const (
	// Active workers dequeue and execute applications.
	Active Status = iota
	// Inactive workers idle; new work is still accepted.
	Inactive
	// Drained workers finish the queued work and then idle; only forced
	// enqueues are accepted.
	Drained
	// Terminated animators have released their workers and queue.
	Terminated
)

var statusNames = map[Status]string{
	Active:     "active",
	Inactive:   "inactive",
	Drained:    "drained",
	Terminated: "terminated",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Valid reports whether s is one of the four known codes.
func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// ParseStatus maps a case-insensitive status name to its code.
func ParseStatus(name string) (Status, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	for s, n := range statusNames {
		if n == want {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: unknown status code %d", ErrInvalidArgument, int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// allowedTransitions lists the targets reachable from each non-terminal
// status. Active cannot go straight to Terminated.
var allowedTransitions = map[Status]map[Status]bool{
	Active:   {Active: true, Inactive: true, Drained: true},
	Inactive: {Active: true, Inactive: true, Drained: true, Terminated: true},
	Drained:  {Active: true, Inactive: true, Drained: true, Terminated: true},
}

// checkTransition validates from -> to.
func checkTransition(from, to Status) error {
	if from == Terminated {
		return fmt.Errorf("%w: animator is terminated", ErrIllegalState)
	}
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status code %d", ErrInvalidArgument, int(to))
	}
	if !allowedTransitions[from][to] {
		return fmt.Errorf("%w: transition %s -> %s not allowed", ErrInvalidArgument, from, to)
	}
	return nil
}

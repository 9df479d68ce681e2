// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package controller

import (
	"sync"

	"github.com/ManuGH/animator/internal/animator"
	"github.com/ManuGH/animator/internal/metrics"
)

// Registry is the set of animators under supervision. Its lock is never
// held while an animator method runs.
type Registry struct {
	mu      sync.Mutex
	members map[animator.Animator]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{members: make(map[animator.Animator]struct{})}
}

// Add places a under supervision. Adding a member twice is a no-op.
func (r *Registry) Add(a animator.Animator) {
	if a == nil {
		return
	}
	r.mu.Lock()
	r.members[a] = struct{}{}
	n := len(r.members)
	r.mu.Unlock()
	metrics.SetControllerSupervised(n)
}

// Remove drops a from supervision. Removing a non-member is a no-op.
func (r *Registry) Remove(a animator.Animator) {
	r.mu.Lock()
	delete(r.members, a)
	n := len(r.members)
	r.mu.Unlock()
	metrics.SetControllerSupervised(n)
}

func (r *Registry) Contains(a animator.Animator) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.members[a]
	return ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Snapshot copies the current members in no particular order.
func (r *Registry) Snapshot() []animator.Animator {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]animator.Animator, 0, len(r.members))
	for a := range r.members {
		out = append(out, a)
	}
	return out
}

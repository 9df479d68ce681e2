// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package domain

import (
	"time"

	"github.com/ManuGH/animator/internal/animator"
)

// Info is a point-in-time view of a domain for introspection.
type Info struct {
	ID             string           `json:"id"`
	Animated       bool             `json:"animated"`
	Animator       string           `json:"animator,omitempty"`
	Status         *animator.Status `json:"status,omitempty"`
	SingleThreaded bool             `json:"single_threaded"`
	Root           bool             `json:"root"`
	Concurrent     bool             `json:"concurrent"`
	Threads        int              `json:"threads"`
	MinThreads     int              `json:"min_threads"`
	MaxThreads     int              `json:"max_threads"`
	QueueSize      int              `json:"queue_size"`
	QueueCapacity  int              `json:"queue_capacity"`
	AnimatedAt     *time.Time       `json:"animated_at,omitempty"`
}

// Describe snapshots the domain. Fields of a concurrently terminated
// animator are left zero.
func (d *Domain) Describe() Info {
	d.mu.Lock()
	a := d.anim
	info := Info{
		ID:             d.id,
		Animated:       a != nil,
		SingleThreaded: d.singleThreaded,
		Root:           d.root,
	}
	if a != nil {
		at := d.animatedAt
		info.AnimatedAt = &at
	}
	d.mu.Unlock()

	if a == nil {
		return info
	}
	info.Animator = a.Name()
	s := a.Status()
	info.Status = &s
	info.Concurrent, _ = a.IsConcurrent()
	info.Threads, _ = a.Threads()
	info.MinThreads, _ = a.MinThreads()
	info.MaxThreads, _ = a.MaxThreads()
	info.QueueSize, _ = a.QueueSize()
	info.QueueCapacity, _ = a.QueueCapacity()
	return info
}

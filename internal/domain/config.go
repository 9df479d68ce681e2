// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package domain

import (
	"fmt"
	"time"

	"github.com/ManuGH/animator/internal/animator"
)

// Sizing bounds the animator a domain creates.
type Sizing struct {
	QueueCapacity int
	MinThreads    int
	MaxThreads    int
}

func (s Sizing) validate(label string) error {
	if s.QueueCapacity < 1 {
		return fmt.Errorf("%w: %s queue capacity must be positive, got %d", animator.ErrInvalidArgument, label, s.QueueCapacity)
	}
	if s.MinThreads < 1 || s.MaxThreads < 1 {
		return fmt.Errorf("%w: %s thread bounds must be positive, got min=%d max=%d", animator.ErrInvalidArgument, label, s.MinThreads, s.MaxThreads)
	}
	if s.MinThreads > s.MaxThreads {
		return fmt.Errorf("%w: %s min threads %d exceeds max threads %d", animator.ErrInvalidArgument, label, s.MinThreads, s.MaxThreads)
	}
	return nil
}

// Config selects animator sizes. Root domains use the larger Root sizing.
type Config struct {
	Default     Sizing
	Root        Sizing
	IdleTimeout time.Duration
}

// DefaultConfig returns the built-in sizes.
func DefaultConfig() Config {
	return Config{
		Default:     Sizing{QueueCapacity: 256, MinThreads: 1, MaxThreads: 4},
		Root:        Sizing{QueueCapacity: 1024, MinThreads: 2, MaxThreads: 16},
		IdleTimeout: animator.DefaultIdleTimeout,
	}
}

// Validate checks both sizings and the idle timeout.
func (c Config) Validate() error {
	if err := c.Default.validate("default"); err != nil {
		return err
	}
	if err := c.Root.validate("root"); err != nil {
		return err
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("%w: negative idle timeout %s", animator.ErrInvalidArgument, c.IdleTimeout)
	}
	return nil
}

func (c Config) sizing(root bool) Sizing {
	if root {
		return c.Root
	}
	return c.Default
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package host

import (
	"github.com/ManuGH/animator/internal/config"
	"github.com/ManuGH/animator/internal/controller"
	"github.com/ManuGH/animator/internal/domain"
)

// ConfigFrom projects the runtime sections of the application config.
func ConfigFrom(cfg config.AppConfig) Config {
	return Config{
		Domain: domain.Config{
			Default:     sizing(cfg.Animator.Default),
			Root:        sizing(cfg.Animator.Root),
			IdleTimeout: cfg.Animator.IdleTimeout,
		},
		Controller: controller.Config{
			ScanInterval:     cfg.Controller.ScanInterval,
			BacklogThreshold: cfg.Controller.BacklogThreshold,
			GrowBy:           cfg.Controller.GrowBy,
		},
		Supervise: cfg.Controller.Enabled,
	}
}

func sizing(s config.SizingConfig) domain.Sizing {
	return domain.Sizing{
		QueueCapacity: s.QueueCapacity,
		MinThreads:    s.MinThreads,
		MaxThreads:    s.MaxThreads,
	}
}

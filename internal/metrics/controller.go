// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	controllerScansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "animator_controller_scans_total",
		Help: "Completed controller scans",
	})

	controllerGrowthTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "animator_controller_threads_added_total",
		Help: "Worker goroutines added by the controller",
	})

	controllerEvictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "animator_controller_evictions_total",
		Help: "Animators removed from supervision after termination",
	})

	controllerSupervised = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "animator_controller_supervised",
		Help: "Animators currently under supervision",
	})
)

func IncControllerScan() {
	controllerScansTotal.Inc()
}

// AddControllerGrowth records threads the controller actually added.
func AddControllerGrowth(n int) {
	if n <= 0 {
		return
	}
	controllerGrowthTotal.Add(float64(n))
}

func IncControllerEviction() {
	controllerEvictionsTotal.Inc()
}

func SetControllerSupervised(n int) {
	controllerSupervised.Set(float64(n))
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ManuGH/animator/internal/controller"
	"github.com/ManuGH/animator/internal/domain"
)

// stallFactor is how many scan intervals may pass without a scan before the
// controller counts as stalled.
const stallFactor = 3

// ScanReporter is the part of the controller the checker reads.
type ScanReporter interface {
	LastScan() time.Time
	Config() controller.Config
}

// ControllerChecker fails readiness when the backlog supervision loop stalls.
type ControllerChecker struct {
	ctrl    ScanReporter
	enabled bool
	created time.Time
}

// NewControllerChecker creates a checker for the controller scan loop.
// A disabled loop is always healthy.
func NewControllerChecker(ctrl ScanReporter, enabled bool) *ControllerChecker {
	return &ControllerChecker{ctrl: ctrl, enabled: enabled, created: time.Now()}
}

func (c *ControllerChecker) Name() string {
	return "controller"
}

func (c *ControllerChecker) Check(_ context.Context) CheckResult {
	if !c.enabled {
		return CheckResult{Status: StatusHealthy, Message: "supervision disabled"}
	}

	limit := stallFactor * c.ctrl.Config().ScanInterval
	last := c.ctrl.LastScan()
	if last.IsZero() {
		if time.Since(c.created) > limit {
			return CheckResult{Status: StatusUnhealthy, Message: "no scan completed yet"}
		}
		return CheckResult{Status: StatusHealthy, Message: "awaiting first scan"}
	}

	if age := time.Since(last); age > limit {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: fmt.Sprintf("last scan %s ago", age.Truncate(time.Millisecond)),
		}
	}
	return CheckResult{Status: StatusHealthy, Message: "scanning"}
}

// DomainsChecker degrades while an animated domain's queue is full. A full
// queue refuses plain enqueues but the domain keeps working, so readiness
// holds.
type DomainsChecker struct {
	describe func() []domain.Info
}

// NewDomainsChecker creates a checker over a domain snapshot source.
func NewDomainsChecker(describe func() []domain.Info) *DomainsChecker {
	return &DomainsChecker{describe: describe}
}

func (c *DomainsChecker) Name() string {
	return "domains"
}

func (c *DomainsChecker) Check(_ context.Context) CheckResult {
	infos := c.describe()

	animated := 0
	var saturated []string
	for _, info := range infos {
		if !info.Animated {
			continue
		}
		animated++
		if info.QueueCapacity > 0 && info.QueueSize >= info.QueueCapacity {
			saturated = append(saturated, info.ID)
		}
	}

	if len(saturated) > 0 {
		return CheckResult{
			Status:  StatusDegraded,
			Message: "queue full: " + strings.Join(saturated, ","),
		}
	}
	return CheckResult{
		Status:  StatusHealthy,
		Message: fmt.Sprintf("%d domains, %d animated", len(infos), animated),
	}
}

// SPDX-License-Identifier: MIT

// Package health serves the liveness and readiness endpoints of animatord.
// Liveness only says the process answers; readiness folds the registered
// checkers (controller scan loop, domain queues) into one verdict.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/ManuGH/animator/internal/log"
)

// Status is the verdict of one checker or of the whole report.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// severity orders statuses so a report can take the worst one.
func (s Status) severity() int {
	switch s {
	case StatusUnhealthy:
		return 2
	case StatusDegraded:
		return 1
	default:
		return 0
	}
}

// CheckResult is what a Checker returns.
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Checker inspects one part of the runtime.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Report is the body of both endpoints. Checks is omitted on a plain
// liveness request.
type Report struct {
	Status    Status                 `json:"status"`
	Ready     bool                   `json:"ready"`
	Version   string                 `json:"version,omitempty"`
	Uptime    int64                  `json:"uptime_seconds"`
	Timestamp time.Time              `json:"timestamp"`
	Failing   []string               `json:"failing,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Manager runs the registered checkers on demand.
type Manager struct {
	version string
	started time.Time

	mu       sync.RWMutex
	checkers []Checker
}

// NewManager returns a manager without checkers; it is ready until one
// reports unhealthy.
func NewManager(version string) *Manager {
	return &Manager{version: version, started: time.Now()}
}

// RegisterChecker adds c. Safe to call while checks are served.
func (m *Manager) RegisterChecker(c Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers = append(m.checkers, c)
}

// Evaluate runs every checker. Degraded checks keep the process ready;
// a single unhealthy check does not.
func (m *Manager) Evaluate(ctx context.Context) Report {
	m.mu.RLock()
	checkers := append([]Checker(nil), m.checkers...)
	m.mu.RUnlock()

	r := Report{
		Status:    StatusHealthy,
		Ready:     true,
		Version:   m.version,
		Uptime:    int64(time.Since(m.started) / time.Second),
		Timestamp: time.Now(),
	}
	if len(checkers) == 0 {
		return r
	}

	r.Checks = make(map[string]CheckResult, len(checkers))
	for _, c := range checkers {
		res := c.Check(ctx)
		r.Checks[c.Name()] = res
		if res.Status.severity() > r.Status.severity() {
			r.Status = res.Status
		}
		if res.Status != StatusHealthy {
			r.Failing = append(r.Failing, c.Name())
		}
	}
	sort.Strings(r.Failing)
	r.Ready = r.Status != StatusUnhealthy
	return r
}

// ServeHealth answers /healthz. It is always 200; checks are
// only run with ?verbose=true.
func (m *Manager) ServeHealth(w http.ResponseWriter, r *http.Request) {
	var rep Report
	if r.URL.Query().Get("verbose") == "true" {
		rep = m.Evaluate(r.Context())
	} else {
		rep = Report{
			Status:    StatusHealthy,
			Ready:     true,
			Version:   m.version,
			Uptime:    int64(time.Since(m.started) / time.Second),
			Timestamp: time.Now(),
		}
	}
	m.write(w, r, "health", http.StatusOK, rep)
}

// ServeReady answers /readyz: 503 while any check is unhealthy.
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	rep := m.Evaluate(r.Context())
	code := http.StatusOK
	if !rep.Ready {
		code = http.StatusServiceUnavailable
		logger := log.WithComponentFromContext(r.Context(), "readiness")
		logger.Warn().
			Str(log.FieldEvent, "readiness.not_ready").
			Strs("failing", rep.Failing).
			Msg("readiness check failed")
	}
	m.write(w, r, "readiness", code, rep)
}

func (m *Manager) write(w http.ResponseWriter, r *http.Request, endpoint string, code int, rep Report) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(rep); err != nil {
		logger := log.WithComponentFromContext(r.Context(), endpoint)
		logger.Error().Err(err).
			Str(log.FieldEvent, endpoint+".encode_error").
			Msg("failed to encode health response")
	}
}

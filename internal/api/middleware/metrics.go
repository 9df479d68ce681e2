// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// unmatchedRoute labels requests no route matched, so probing random paths
// cannot grow the label set.
const unmatchedRoute = "unmatched"

var (
	apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "animator_api_request_duration_seconds",
		Help:    "Admin API request latency by route pattern",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	apiRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "animator_api_requests_in_flight",
		Help: "Admin API requests currently being served",
	})

	// Lifecycle calls block while animators drain, so their outcome is
	// tracked separately from plain request latency.
	domainOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "animator_api_domain_operations_total",
		Help: "Domain lifecycle operations issued through the admin API",
	}, []string{"operation", "outcome"})
)

// domainOperations maps lifecycle routes to their operation label.
var domainOperations = map[string]string{
	"POST /api/v1/domains":                "create",
	"DELETE /api/v1/domains/{id}":         "delete",
	"POST /api/v1/domains/{id}/animate":   "animate",
	"POST /api/v1/domains/{id}/terminate": "terminate",
	"PUT /api/v1/domains/{id}/status":     "status",
	"POST /api/v1/controller/scan":        "scan",
}

// Metrics records latency per route pattern and the outcome of every domain
// lifecycle operation.
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			apiRequestsInFlight.Inc()
			defer apiRequestsInFlight.Dec()

			mw := &metricsWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(mw, r)

			route := routePattern(r)
			if route == "" {
				route = unmatchedRoute
			}
			apiRequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(mw.statusCode)).
				Observe(time.Since(start).Seconds())

			if op, ok := domainOperations[r.Method+" "+route]; ok {
				domainOperationsTotal.WithLabelValues(op, outcome(mw.statusCode)).Inc()
			}
		})
	}
}

// outcome buckets a status code: ok, rejected (client side, including
// conflicts with the animator state) or failed.
func outcome(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return "failed"
	case status >= http.StatusBadRequest:
		return "rejected"
	default:
		return "ok"
	}
}

type metricsWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (mw *metricsWriter) WriteHeader(statusCode int) {
	if !mw.written {
		mw.statusCode = statusCode
		mw.written = true
	}
	mw.ResponseWriter.WriteHeader(statusCode)
}

func (mw *metricsWriter) Write(b []byte) (int, error) {
	if !mw.written {
		mw.WriteHeader(http.StatusOK)
	}
	return mw.ResponseWriter.Write(b)
}

// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/ManuGH/animator/internal/log"
)

const apiRateWindow = time.Minute

// APIRateLimit caps every client IP at perMinute admin API requests per
// minute (sliding window). Health checks and /metrics are exempt so a scraper or
// kubelet never competes with operators for the budget. Zero or less
// disables limiting.
func APIRateLimit(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	limit := httprate.Limit(
		perMinute,
		apiRateWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			logger := log.WithComponentFromContext(r.Context(), "ratelimit")
			logger.Warn().
				Str(log.FieldEvent, "http.rate_limited").
				Str("remote_addr", r.RemoteAddr).
				Int("limit_per_minute", perMinute).
				Msg("client exceeded the admin API request budget")
			w.Header().Set("Retry-After", strconv.Itoa(int(apiRateWindow.Seconds())))
			writeError(w, r, http.StatusTooManyRequests, "rate_limited", "too many requests from this client")
		}),
	)

	return func(next http.Handler) http.Handler {
		limited := limit(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isOperational(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			limited.ServeHTTP(w, r)
		})
	}
}

// isOperational reports health check and scrape paths, which bypass the rate
// limit and tracing.
func isOperational(path string) bool {
	switch path {
	case "/healthz", "/readyz", "/metrics":
		return true
	}
	return false
}

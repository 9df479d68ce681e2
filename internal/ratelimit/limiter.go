// SPDX-License-Identifier: MIT

// Package ratelimit caps lifecycle mutations issued through the admin API.
// Per-IP request limiting of the whole surface is done by httprate; this
// limiter bounds how fast animators can be created, stopped and resized.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

var (
	rateLimitExceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "animator",
			Name:      "ratelimit_exceeded_total",
			Help:      "Total lifecycle mutation rejections",
		},
		[]string{"limit_type", "operation"},
	)
)

// Operations with their own budget.
const (
	OpCreate    = "create"
	OpAnimate   = "animate"
	OpTerminate = "terminate"
	OpStatus    = "status"
	OpScan      = "scan"
)

// Config holds rate limiting configuration
type Config struct {
	// Global limits
	GlobalRate  rate.Limit // mutations per second
	GlobalBurst int        // max burst size

	// Per-client limits, keyed by principal or IP
	PerClientRate  rate.Limit
	PerClientBurst int

	// Per-operation limits
	OpRates map[string]rate.Limit
	OpBurst map[string]int

	// Cleanup interval for per-client limiters
	CleanupInterval time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return FromRate(20)
}

// FromRate derives a configuration from a global mutations-per-second cap.
// Clients get a quarter of it, forced scans a tenth.
func FromRate(perSecond int) Config {
	global := rate.Limit(perSecond)
	perClient := rate.Limit(max(perSecond/4, 1))
	scan := rate.Limit(max(perSecond/10, 1))
	return Config{
		GlobalRate:     global,
		GlobalBurst:    2 * perSecond,
		PerClientRate:  perClient,
		PerClientBurst: 2 * int(perClient),

		OpRates: map[string]rate.Limit{
			OpScan: scan,
		},
		OpBurst: map[string]int{
			OpScan: int(scan),
		},

		CleanupInterval: 5 * time.Minute,
	}
}

// Limiter manages rate limiting for lifecycle mutations
type Limiter struct {
	config Config

	global    *rate.Limiter
	perClient map[string]*rate.Limiter
	perOp     map[string]*rate.Limiter
	mu        sync.RWMutex

	lastCleanup time.Time
}

// New creates a new rate limiter with the given config
func New(config Config) *Limiter {
	l := &Limiter{
		config:      config,
		global:      rate.NewLimiter(config.GlobalRate, config.GlobalBurst),
		perClient:   make(map[string]*rate.Limiter),
		perOp:       make(map[string]*rate.Limiter),
		lastCleanup: time.Now(),
	}

	for op, opRate := range config.OpRates {
		l.perOp[op] = rate.NewLimiter(opRate, config.OpBurst[op])
	}

	return l
}

// Allow checks if a mutation is allowed under rate limits
// Returns true if allowed, false if rate limited
func (l *Limiter) Allow(client, op string) bool {
	// 1. Check global limit
	if !l.global.Allow() {
		rateLimitExceeded.WithLabelValues("global", op).Inc()
		return false
	}

	// 2. Check per-operation limit
	l.mu.RLock()
	opLimiter, exists := l.perOp[op]
	l.mu.RUnlock()

	if exists && !opLimiter.Allow() {
		rateLimitExceeded.WithLabelValues("per_operation", op).Inc()
		return false
	}

	// 3. Check per-client limit
	if !l.clientLimiter(client).Allow() {
		rateLimitExceeded.WithLabelValues("per_client", op).Inc()
		return false
	}

	// Periodic cleanup of stale client limiters
	l.maybeCleanup()

	return true
}

// Middleware rejects requests over budget with 429. key resolves the client
// identity; nil falls back to GetClientIP.
func (l *Limiter) Middleware(op string, key func(*http.Request) string) func(http.Handler) http.Handler {
	if key == nil {
		key = GetClientIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(key(r), op) {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "lifecycle rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (l *Limiter) clientLimiter(client string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, exists := l.perClient[client]
	if !exists {
		limiter = rate.NewLimiter(l.config.PerClientRate, l.config.PerClientBurst)
		l.perClient[client] = limiter
	}

	return limiter
}

// maybeCleanup drops every client limiter once the cleanup interval passed.
func (l *Limiter) maybeCleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if time.Since(l.lastCleanup) < l.config.CleanupInterval {
		return
	}
	l.perClient = make(map[string]*rate.Limiter)
	l.lastCleanup = time.Now()
}

// GetClientIP extracts the real client IP from the request
func GetClientIP(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs: "client, proxy1, proxy2"
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

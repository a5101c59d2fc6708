// SPDX-License-Identifier: MIT

package serve

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LimiterConfig holds download rate limiting configuration.
type LimiterConfig struct {
	// Global limits
	GlobalRate  rate.Limit // requests per second
	GlobalBurst int        // max burst size

	// Per-IP limits
	PerIPRate  rate.Limit
	PerIPBurst int

	// Cleanup interval for per-IP limiters
	CleanupInterval time.Duration
}

// DefaultLimiterConfig returns sensible defaults for artifact downloads.
func DefaultLimiterConfig() LimiterConfig {
	return LimiterConfig{
		GlobalRate:  50, // 50 downloads/s globally
		GlobalBurst: 100,

		PerIPRate:  5, // 5 downloads/s per IP
		PerIPBurst: 10,

		CleanupInterval: 5 * time.Minute,
	}
}

// Limiter throttles artifact downloads. Installer downloads are large, so
// they get a tighter budget than the general request middleware.
type Limiter struct {
	config LimiterConfig

	global *rate.Limiter
	perIP  map[string]*rate.Limiter
	mu     sync.RWMutex

	lastCleanup time.Time
}

// NewLimiter creates a download limiter with the given config.
func NewLimiter(config LimiterConfig) *Limiter {
	return &Limiter{
		config:      config,
		global:      rate.NewLimiter(config.GlobalRate, config.GlobalBurst),
		perIP:       make(map[string]*rate.Limiter),
		lastCleanup: time.Now(),
	}
}

// Allow checks if a download is allowed under rate limits.
// Returns true if allowed, false if rate limited.
func (l *Limiter) Allow(clientIP string) bool {
	// 1. Check global limit
	if !l.global.Allow() {
		recordRateLimitExceeded("global")
		return false
	}

	// 2. Check per-IP limit
	ipLimiter := l.getIPLimiter(clientIP)
	if !ipLimiter.Allow() {
		recordRateLimitExceeded("per_ip")
		return false
	}

	// Periodic cleanup of stale IP limiters
	l.maybeCleanup()

	return true
}

// getIPLimiter returns the rate limiter for a specific IP.
func (l *Limiter) getIPLimiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, exists := l.perIP[ip]
	if !exists {
		limiter = rate.NewLimiter(l.config.PerIPRate, l.config.PerIPBurst)
		l.perIP[ip] = limiter
	}

	return limiter
}

// maybeCleanup removes stale IP limiters if cleanup interval has passed.
func (l *Limiter) maybeCleanup() {
	if time.Since(l.lastCleanup) < l.config.CleanupInterval {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Clear all IP limiters (simple approach)
	// Alternative: Track last access time and only remove stale entries
	l.perIP = make(map[string]*rate.Limiter)
	l.lastCleanup = time.Now()
}

// GetClientIP extracts the real client IP from the request.
func GetClientIP(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs: "client, proxy1, proxy2".
	// Take the first one (original client).
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		first = strings.TrimSpace(first)
		if first != "" {
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

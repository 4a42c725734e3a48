package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/AnshRaj112/smart-bookmarks-backend/pkg/clientip"
)

const (
	headerXContentTypeOptions     = "X-Content-Type-Options"
	headerXFrameOptions           = "X-Frame-Options"
	headerXXSSProtection          = "X-XSS-Protection"
	headerContentSecurityPolicy   = "Content-Security-Policy"
	headerStrictTransportSecurity = "Strict-Transport-Security"
	headerReferrerPolicy          = "Referrer-Policy"
)

// SecurityHeaders sets security-related response headers.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headerXContentTypeOptions, "nosniff")
		w.Header().Set(headerXFrameOptions, "DENY")
		w.Header().Set(headerXXSSProtection, "1; mode=block")
		w.Header().Set(headerContentSecurityPolicy, "default-src 'self'")
		w.Header().Set(headerStrictTransportSecurity, "max-age=31536000; includeSubDomains")
		w.Header().Set(headerReferrerPolicy, "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// HostCheck returns 403 when r.Host does not match allowedHost (e.g. api.smartbookmarks.app).
// allowedHost should be the bare hostname without scheme or port. Empty disables the check.
func HostCheck(allowedHost string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if allowedHost == "" {
				next.ServeHTTP(w, r)
				return
			}
			reqHost := r.Host
			if host, _, err := net.SplitHostPort(reqHost); err == nil {
				reqHost = host
			}
			if !strings.EqualFold(strings.TrimSpace(reqHost), strings.TrimSpace(allowedHost)) {
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte("Forbidden"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

const (
	GlobalRateLimitRPS   = 10
	GlobalRateLimitBurst = 20
	AuthRateLimitEvery   = 5 * time.Second
	AuthRateLimitBurst   = 3

	limiterCleanupInterval = 5 * time.Minute
	limiterIdleTTL         = 30 * time.Minute
)

type limiterEntry struct {
	limiter *rate.Limiter
	lastUse time.Time
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	limit      rate.Limit
	burst      int
	trustProxy bool
	message    string

	mu      sync.Mutex
	entries map[string]*limiterEntry
}

// NewRateLimiter builds a per-IP limiter. Idle entries are swept until ctx is done.
func NewRateLimiter(ctx context.Context, limit rate.Limit, burst int, trustProxy bool, message string) *RateLimiter {
	rl := &RateLimiter{
		limit:      limit,
		burst:      burst,
		trustProxy: trustProxy,
		message:    message,
		entries:    make(map[string]*limiterEntry),
	}
	go rl.cleanupLoop(ctx)
	return rl
}

// NewGlobalRateLimiter limits each IP to 10 req/s, burst 20.
func NewGlobalRateLimiter(ctx context.Context, trustProxy bool) *RateLimiter {
	return NewRateLimiter(ctx, rate.Limit(GlobalRateLimitRPS), GlobalRateLimitBurst, trustProxy,
		"Too many requests. Please slow down.")
}

// NewAuthRateLimiter limits sign-in and sign-up to 1 req per 5s, burst 3.
func NewAuthRateLimiter(ctx context.Context, trustProxy bool) *RateLimiter {
	return NewRateLimiter(ctx, rate.Every(AuthRateLimitEvery), AuthRateLimitBurst, trustProxy,
		"Too many login attempts. Please try again later.")
}

func (rl *RateLimiter) get(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	e, ok := rl.entries[ip]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.entries[ip] = e
	}
	e.lastUse = time.Now()
	return e.limiter
}

// Allow reports whether the IP may make another request now.
func (rl *RateLimiter) Allow(ip string) bool {
	return rl.get(ip).Allow()
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientip.FromRequest(r, rl.trustProxy)
		if !rl.Allow(ip) {
			writeError(w, http.StatusTooManyRequests, rl.message, "rate_limited")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.sweep(now)
		}
	}
}

func (rl *RateLimiter) sweep(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, e := range rl.entries {
		if now.Sub(e.lastUse) > limiterIdleTTL {
			delete(rl.entries, ip)
		}
	}
}

func (rl *RateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.entries)
}

// ProductionSecurity returns the production chain: SecurityHeaders, HostCheck, then the global limiter.
func ProductionSecurity(allowedHost string, global *RateLimiter) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		SecurityHeaders,
		HostCheck(allowedHost),
		global.Middleware,
	}
}

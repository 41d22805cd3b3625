package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/pitchside/server/internal/api/problem"
	"github.com/pitchside/server/internal/config"
)

type RateLimitTier string

const (
	// TierPublic covers the whole API, counted per minute.
	TierPublic RateLimitTier = "public"
	// TierAuth covers credential endpoints, counted per hour.
	TierAuth RateLimitTier = "auth"
)

const (
	limiterTTL      = time.Hour
	cleanupInterval = 5 * time.Minute
)

type tierLimit struct {
	events int
	window time.Duration
}

// RateLimiter keeps one token bucket per (tier, client). Buckets idle for
// longer than an hour are dropped by a background sweep; call Stop to end it.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	limits   map[RateLimitTier]tierLimit
	trusted  []*net.IPNet
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter builds the limiter. X-Forwarded-For is only honoured for
// requests arriving from trustedProxyCIDRs.
func NewRateLimiter(cfg config.RateLimitConfig, trustedProxyCIDRs []string) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		limits: map[RateLimitTier]tierLimit{
			TierPublic: {events: cfg.PublicPerMinute, window: time.Minute},
			TierAuth:   {events: cfg.AuthPerHour, window: time.Hour},
		},
		trusted: parseCIDRs(trustedProxyCIDRs),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Limit rejects requests over the tier's budget with 429 and Retry-After.
// A tier configured with zero events is unlimited.
func (rl *RateLimiter) Limit(tier RateLimitTier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter := rl.limiter(tier, rl.clientKey(r))
			if limiter == nil || limiter.AllowN(rl.now(), 1) {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfter(tier)))
			problem.Write(w, r, http.StatusTooManyRequests, "Too many requests, please try again later", nil, "")
		})
	}
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) limiter(tier RateLimitTier, key string) *rate.Limiter {
	limit := rl.limits[tier]
	if limit.events <= 0 {
		return nil
	}
	lookup := string(tier) + ":" + key

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if entry, ok := rl.limiters[lookup]; ok {
		entry.lastSeen = now
		return entry.limiter
	}
	// The full budget is available as a burst and refills evenly across the window.
	limiter := rate.NewLimiter(rate.Every(limit.window/time.Duration(limit.events)), limit.events)
	rl.limiters[lookup] = &limiterEntry{limiter: limiter, lastSeen: now}
	return limiter
}

// retryAfter is the refill interval of one token, in whole seconds.
func (rl *RateLimiter) retryAfter(tier RateLimitTier) int {
	limit := rl.limits[tier]
	if limit.events <= 0 {
		return 0
	}
	seconds := int((limit.window / time.Duration(limit.events)).Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stop:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	cutoff := rl.now().Add(-limiterTTL)
	for key, entry := range rl.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.limiters, key)
			removed++
		}
	}
	return removed
}

// clientKey is the remote IP, or the first X-Forwarded-For hop when the
// connection comes from a trusted proxy.
func (rl *RateLimiter) clientKey(r *http.Request) string {
	remoteIP := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		remoteIP = host
	}
	if !rl.isTrusted(remoteIP) {
		return remoteIP
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if hop := strings.TrimSpace(first); hop != "" {
			return hop
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return remoteIP
}

func (rl *RateLimiter) isTrusted(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, cidr := range rl.trusted {
		if cidr.Contains(parsed) {
			return true
		}
	}
	return false
}

func parseCIDRs(raw []string) []*net.IPNet {
	out := make([]*net.IPNet, 0, len(raw))
	for _, s := range raw {
		_, cidr, err := net.ParseCIDR(strings.TrimSpace(s))
		if err != nil {
			continue
		}
		out = append(out, cidr)
	}
	return out
}

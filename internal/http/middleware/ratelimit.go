// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the token-bucket rate limiter guarding the command API.
// Buckets are keyed per tenant tuple so one restaurant burning through its
// quota cannot starve another behind the same storefront proxy, with a client
// IP fallback for unattributed traffic.
//
// Features:
//   - Per-key token buckets using golang.org/x/time/rate
//   - Pluggable identity function (tenant tuple or client IP)
//   - Best-effort cleanup of idle buckets to bound memory
//   - Seamless bypass for idempotent replays (when paired with IdempotencyValidator)
//
// Notes:
//   - This limiter is process-local. The webhook endpoint additionally runs a
//     Redis-backed per-call counter, which is the one that holds across
//     replicas; this limiter is edge-level abuse control for the REST API.
//   - Rate limiting here is not an authorization mechanism.
package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// keyFunc selects the identity used to key a rate-limit bucket.
//
// Implementations should return a stable string for the duration of a request
// (e.g., "tenant:<id>/r<n>" or "ip:<addr>"). The returned key is used to look
// up the corresponding token bucket.
type keyFunc func(*gin.Context) string

// KeyByTenantOrIP returns a keyFunc that buckets requests by the tenant tuple
// carried in the X-Tenant-ID and X-Restaurant-ID headers, falling back to the
// client IP when neither is present (health checks, unattributed callers).
//
// Keys are prefixed to keep the tenant and IP namespaces from colliding
// (e.g., "tenant:tenant_demo/r1" vs "ip:203.0.113.7"). A tenant header alone
// is enough to leave the IP namespace; the restaurant id defaults to 0.
func KeyByTenantOrIP() keyFunc {
	return func(c *gin.Context) string {
		tenant := c.GetHeader("X-Tenant-ID")
		if tenant == "" {
			return "ip:" + c.ClientIP()
		}
		rid, _ := strconv.Atoi(c.GetHeader("X-Restaurant-ID"))
		return "tenant:" + tenant + "/r" + strconv.Itoa(rid)
	}
}

// bucket holds a single rate limiter and the last time its key was seen.
// Used to opportunistically evict idle entries.
type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter implements a per-key token-bucket rate limiter.
//
// Buckets are created on demand and stored in an internal map guarded by a
// mutex. Idle buckets are evicted after a TTL via opportunistic cleanup during
// lookups to keep memory usage bounded.
//
// This type is safe for concurrent use.
type RateLimiter struct {
	rps     rate.Limit
	burst   int
	keyFn   keyFunc
	mu      sync.Mutex
	buckets map[string]*bucket

	ttl    time.Duration
	sweepN uint64
}

// NewRateLimiter constructs a RateLimiter with the given tokens-per-second
// and burst size, keyed by keyFn.
//
//   - rps:   tokens replenished per second (0 allows no requests; use >0).
//   - burst: maximum burst size; values <= 0 are coerced to 1.
//   - keyFn: function that maps a request to a bucket identity.
//
// The returned limiter is ready to be installed as middleware via Handler().
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		keyFn:   keyFn,
		buckets: make(map[string]*bucket),
		ttl:     10 * time.Minute, // evict idle entries after TTL
	}
}

// bucketFor returns (and refreshes) the limiter for key, creating it if
// absent. It also performs opportunistic GC of idle entries after ~5000
// lookups.
//
// IMPORTANT: Run GC *before* touching the requested bucket so an "old" entry
// can be evicted even when it's the one being fetched.
func (rl *RateLimiter) bucketFor(key string) *rate.Limiter {
	now := time.Now()

	rl.mu.Lock()
	// Opportunistic cleanup after a threshold of lookups, then reset the counter.
	// Do this BEFORE updating/creating the requested bucket to avoid
	// refreshing an "old" entry that should be evicted.
	rl.sweepN++
	if rl.sweepN >= 5000 {
		for k, b := range rl.buckets {
			// Evict if idle for >= TTL (robust boundary check)
			if now.Sub(b.lastSeen) >= rl.ttl {
				delete(rl.buckets, k)
			}
		}
		rl.sweepN = 0
	}

	// Fetch or create this bucket.
	if b, ok := rl.buckets[key]; ok {
		b.lastSeen = now
		lim := b.limiter
		rl.mu.Unlock()
		return lim
	}

	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.buckets[key] = &bucket{limiter: lim, lastSeen: now}
	rl.mu.Unlock()
	return lim
}

// IsRateBypass reports whether IdempotencyValidator marked this request for
// rate-limit bypass (i.e., it is a replay of a previously completed request).
//
// When true, Handler() will skip limiting so replays are served without
// consuming tokens.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass) // set by IdempotencyValidator
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler returns a Gin middleware that enforces per-key token-bucket limits.
//
// Behavior:
//   - If IsRateBypass(c) is true (idempotent replay), limiting is skipped.
//   - Otherwise, the request is checked against the key's limiter. If allowed,
//     the request proceeds; if not, a 429 response is returned with a compact
//     JSON body and a minimal Retry-After header.
//
// The middleware emits:
//
//	HTTP/1.1 429 Too Many Requests
//	{
//	  "request_id": "<uuid>",
//	  "code":       "rate_limited",
//	  "message":    "rate limit exceeded"
//	}
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		key := rl.keyFn(c)
		lim := rl.bucketFor(key)

		if lim.Allow() {
			c.Next()
			return
		}

		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get("X-Request-ID"),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}

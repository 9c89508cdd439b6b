package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// window is a sliding log of request times over one span
type window struct {
	span  time.Duration
	limit int
	hits  []time.Time
}

// trim drops hits that fell out of the span
func (w *window) trim(now time.Time) {
	cutoff := now.Add(-w.span)
	kept := w.hits[:0]
	for _, t := range w.hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	w.hits = kept
}

func (w *window) full() bool {
	return w.limit > 0 && len(w.hits) >= w.limit
}

// wait is how long until the oldest hit leaves the span
func (w *window) wait(now time.Time) time.Duration {
	if len(w.hits) == 0 {
		return 0
	}
	return w.hits[0].Add(w.span).Sub(now)
}

// RateLimiter enforces per-minute, per-hour and per-day limits for one
// caller. A zero limit disables that window.
type RateLimiter struct {
	enabled bool
	now     func() time.Time

	mu      sync.Mutex
	windows []*window
}

// NewRateLimiter creates a new rate limiter with the given limits
func NewRateLimiter(requestsPerMinute, requestsPerHour, requestsPerDay int, enabled bool) *RateLimiter {
	return &RateLimiter{
		enabled: enabled,
		now:     time.Now,
		windows: []*window{
			{span: time.Minute, limit: requestsPerMinute},
			{span: time.Hour, limit: requestsPerHour},
			{span: 24 * time.Hour, limit: requestsPerDay},
		},
	}
}

// Allow records a request when every window has room. When one is full it
// returns false and how long the caller should wait.
func (rl *RateLimiter) Allow() (bool, time.Duration) {
	if !rl.enabled {
		return true, 0
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	var retry time.Duration
	for _, w := range rl.windows {
		w.trim(now)
		if w.full() {
			if d := w.wait(now); d > retry {
				retry = d
			}
		}
	}
	if retry > 0 {
		return false, retry
	}

	for _, w := range rl.windows {
		w.hits = append(w.hits, now)
	}
	return true, 0
}

// Remaining returns how many requests each window still accepts, keyed by
// span. Disabled windows are left out.
func (rl *RateLimiter) Remaining() map[time.Duration]int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	out := make(map[time.Duration]int, len(rl.windows))
	for _, w := range rl.windows {
		w.trim(now)
		if w.limit > 0 {
			out[w.span] = max(0, w.limit-len(w.hits))
		}
	}
	return out
}

// idle reports whether the longest window is empty
func (rl *RateLimiter) idle() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for _, w := range rl.windows {
		w.trim(now)
		if len(w.hits) > 0 {
			return false
		}
	}
	return true
}

// KeyedLimiter keeps one RateLimiter per caller key
type KeyedLimiter struct {
	perMinute, perHour, perDay int
	enabled                    bool
	now                        func() time.Time

	mu       sync.Mutex
	limiters map[string]*RateLimiter
}

// NewKeyedLimiter creates per-caller limiters sharing the same limits
func NewKeyedLimiter(requestsPerMinute, requestsPerHour, requestsPerDay int, enabled bool) *KeyedLimiter {
	return &KeyedLimiter{
		perMinute: requestsPerMinute,
		perHour:   requestsPerHour,
		perDay:    requestsPerDay,
		enabled:   enabled,
		now:       time.Now,
		limiters:  make(map[string]*RateLimiter),
	}
}

// Allow records a request for key
func (k *KeyedLimiter) Allow(key string) (bool, time.Duration) {
	if !k.enabled {
		return true, 0
	}
	k.mu.Lock()
	rl, ok := k.limiters[key]
	if !ok {
		rl = NewRateLimiter(k.perMinute, k.perHour, k.perDay, true)
		rl.now = k.now
		k.limiters[key] = rl
	}
	k.mu.Unlock()
	return rl.Allow()
}

// Prune drops limiters with no requests in the last day
func (k *KeyedLimiter) Prune() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	removed := 0
	for key, rl := range k.limiters {
		if rl.idle() {
			delete(k.limiters, key)
			removed++
		}
	}
	return removed
}

// Middleware rejects callers over their limit with 429 and a Retry-After
// header in whole seconds. Callers are keyed by client IP.
func (k *KeyedLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, retry := k.Allow(c.ClientIP())
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"detail": "Too many requests"})
			return
		}
		c.Next()
	}
}

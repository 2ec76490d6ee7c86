package utils

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"golang.org/x/time/rate"
)

// RateLimitConfig holds per-minute request budgets.
type RateLimitConfig struct {
	PublicPerMinute int
	AuthPerMinute   int
}

// DefaultRateLimitConfig matches the budgets used before configuration existed.
var DefaultRateLimitConfig = RateLimitConfig{PublicPerMinute: 60, AuthPerMinute: 120}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per key.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	idleTTL  time.Duration
}

// NewRateLimiter returns an empty limiter. Buckets idle longer than idleTTL
// are dropped by Sweep.
func NewRateLimiter(idleTTL time.Duration) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		idleTTL:  idleTTL,
	}
}

// Allow spends one token from key's bucket, which refills at perMinute per
// minute with a burst of perMinute.
func (rl *RateLimiter) Allow(key string, perMinute int, now time.Time) bool {
	if perMinute < 1 {
		perMinute = 1
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// Sweep removes idle buckets and returns how many were removed.
func (rl *RateLimiter) Sweep(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	removed := 0
	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.idleTTL {
			delete(rl.visitors, key)
			removed++
		}
	}
	return removed
}

func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(time.Minute)
	for now := range ticker.C {
		rl.Sweep(now)
	}
}

var (
	limiter       *RateLimiter
	limiterOnce   sync.Once
	limiterConfig = DefaultRateLimitConfig
)

// ConfigureRateLimits replaces the default budgets. Call before serving.
func ConfigureRateLimits(cfg RateLimitConfig) {
	if cfg.PublicPerMinute > 0 {
		limiterConfig.PublicPerMinute = cfg.PublicPerMinute
	}
	if cfg.AuthPerMinute > 0 {
		limiterConfig.AuthPerMinute = cfg.AuthPerMinute
	}
}

// GetRateLimiter returns the process-wide limiter.
func GetRateLimiter() *RateLimiter {
	limiterOnce.Do(func() {
		limiter = NewRateLimiter(3 * time.Minute)
		go limiter.sweepLoop()
		Logger("ratelimit").Info().
			Int("public", limiterConfig.PublicPerMinute).
			Int("auth", limiterConfig.AuthPerMinute).
			Msg("rate limiter initialized")
	})
	return limiter
}

func rateLimitResponse(e *core.RequestEvent, perMinute int) error {
	e.Response.Header().Set("Retry-After", strconv.Itoa(max(1, 60/perMinute)))
	return e.JSON(http.StatusTooManyRequests, map[string]string{
		"error": "Rate limit exceeded. Please try again later.",
	})
}

// RateLimitPublic limits unauthenticated endpoints by client IP.
func RateLimitPublic(e *core.RequestEvent) error {
	limit := limiterConfig.PublicPerMinute
	if !GetRateLimiter().Allow("public:"+e.RealIP(), limit, time.Now()) {
		RequestLogger(e, "ratelimit").Warn().Str("ip", e.RealIP()).Msg("public limit exceeded")
		return rateLimitResponse(e, limit)
	}
	return e.Next()
}

// RateLimitAuth limits authenticated endpoints by user, falling back to IP.
func RateLimitAuth(e *core.RequestEvent) error {
	key := "auth:" + e.RealIP()
	if e.Auth != nil {
		key = "auth:" + e.Auth.Id
	}
	limit := limiterConfig.AuthPerMinute
	if !GetRateLimiter().Allow(key, limit, time.Now()) {
		RequestLogger(e, "ratelimit").Warn().Str("key", key).Msg("auth limit exceeded")
		return rateLimitResponse(e, limit)
	}
	return e.Next()
}

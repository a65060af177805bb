package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/darkodi/sitebuilder/internal/errors"
	"github.com/darkodi/sitebuilder/internal/logger"
	"github.com/darkodi/sitebuilder/internal/metrics"
	"github.com/darkodi/sitebuilder/internal/model"
	"github.com/darkodi/sitebuilder/internal/store"
)

// RateLimiter implements a fixed-window counter per client, stored in an
// expiring KV so every instance shares the same counts. The read and the
// write are not atomic; concurrent requests in one window may undercount.
type RateLimiter struct {
	kv        store.KV
	max       int
	window    time.Duration
	keyPrefix string
	ipHeader  string
	now       func() time.Time
	log       *logger.Logger
	metrics   *metrics.Metrics
}

// RateLimiterConfig holds rate limiter settings
type RateLimiterConfig struct {
	MaxRequests    int           // Requests allowed per window
	Window         time.Duration // Window length, also the counter TTL
	KeyPrefix      string        // KV key prefix
	ClientIPHeader string        // Header trusted for the client address
}

// DefaultRateLimiterConfig returns sensible defaults
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		MaxRequests:    10,
		Window:         60 * time.Second,
		KeyPrefix:      "ratelimit:",
		ClientIPHeader: "CF-Connecting-IP",
	}
}

// counter is the stored window state
type counter struct {
	Count       int   `json:"count"`
	WindowStart int64 `json:"windowStart"` // epoch seconds
}

// NewRateLimiter creates a new rate limiter. A nil kv disables enforcement.
func NewRateLimiter(kv store.KV, cfg RateLimiterConfig, log *logger.Logger, m *metrics.Metrics) *RateLimiter {
	return &RateLimiter{
		kv:        kv,
		max:       cfg.MaxRequests,
		window:    cfg.Window,
		keyPrefix: cfg.KeyPrefix,
		ipHeader:  cfg.ClientIPHeader,
		now:       time.Now,
		log:       log.Component("ratelimit"),
		metrics:   m,
	}
}

// Check counts one request against clientID's current window.
// Store failures fail open.
func (rl *RateLimiter) Check(ctx context.Context, clientID string) model.RateLimitResult {
	open := model.RateLimitResult{Allowed: true, Limit: rl.max, Remaining: rl.max}
	if rl.kv == nil || clientID == "" {
		return open
	}

	key := rl.keyPrefix + clientID
	now := rl.now().Unix()
	windowSecs := int64(rl.window / time.Second)

	c := counter{WindowStart: now}
	raw, err := rl.kv.Get(ctx, key)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		rl.log.Warn("rate limit read failed, allowing request", "error", err.Error())
		return open
	default:
		var stored counter
		if jsonErr := json.Unmarshal([]byte(raw), &stored); jsonErr != nil {
			rl.log.Warn("corrupt rate limit counter, starting fresh window", "key", key)
		} else if now-stored.WindowStart < windowSecs {
			c = stored
		}
	}

	resetAt := c.WindowStart + windowSecs
	if c.Count >= rl.max {
		return model.RateLimitResult{Allowed: false, Limit: rl.max, Remaining: 0, ResetAt: resetAt}
	}

	next, _ := json.Marshal(counter{Count: c.Count + 1, WindowStart: c.WindowStart})
	if err := rl.kv.Set(ctx, key, string(next), rl.window); err != nil {
		rl.log.Warn("rate limit write failed, allowing request", "error", err.Error())
		return open
	}

	return model.RateLimitResult{
		Allowed:   true,
		Limit:     rl.max,
		Remaining: max(0, rl.max-c.Count-1),
		ResetAt:   resetAt,
	}
}

// Middleware returns the rate limiting middleware. It always sets the
// X-RateLimit-* headers and rejects over-quota clients with 429.
func (rl *RateLimiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := rl.clientID(r)
			res := rl.Check(r.Context(), ip)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt, 10))

			if !res.Allowed {
				retryAfter := max(0, res.ResetAt-rl.now().Unix())
				rl.log.Warn("rate limit exceeded",
					"request_id", GetRequestID(r.Context()),
					"ip", ip,
					"path", r.URL.Path,
				)
				if rl.metrics != nil {
					rl.metrics.RateLimited.Inc()
				}

				w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
				apperrors.RateLimitExceeded(retryAfter).WriteJSON(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientID prefers the configured edge header and falls back to the usual
// proxy headers. The value is client-controlled in some topologies.
func (rl *RateLimiter) clientID(r *http.Request) string {
	if rl.ipHeader != "" {
		if v := strings.TrimSpace(r.Header.Get(rl.ipHeader)); v != "" {
			return v
		}
	}
	return getClientIP(r)
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header (if behind proxy/load balancer)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Fall back to RemoteAddr without the port
	ip := r.RemoteAddr
	if i := strings.LastIndexByte(ip, ':'); i >= 0 {
		return ip[:i]
	}
	return ip
}

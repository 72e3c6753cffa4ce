package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/aeroweather/aeroweather/internal/api/models"
)

// RateLimitConfig is a sliding-window budget.
type RateLimitConfig struct {
	RequestLimit int
	WindowLength time.Duration
}

var (
	// LoginRateLimit guards password checks, per client IP.
	LoginRateLimit = RateLimitConfig{RequestLimit: 10, WindowLength: time.Minute}

	// WeatherRateLimit bounds lookups that can fan out to three upstream
	// providers, per user.
	WeatherRateLimit = RateLimitConfig{RequestLimit: 30, WindowLength: time.Minute}

	// StandardRateLimit applies to store-backed endpoints.
	StandardRateLimit = RateLimitConfig{RequestLimit: 100, WindowLength: time.Minute}
)

// RateLimitByIP limits per client IP. chi's RealIP must run first for
// proxied clients to be told apart.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return limiter(cfg, httprate.KeyByRealIP)
}

// RateLimitByUser limits per authenticated user, falling back to the client
// IP for anonymous requests. It must run after Auth to see the user.
func RateLimitByUser(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return limiter(cfg, func(r *http.Request) (string, error) {
		if userID := GetUserID(r.Context()); userID != "" {
			return "user:" + userID, nil
		}
		return httprate.KeyByRealIP(r)
	})
}

func limiter(cfg RateLimitConfig, key httprate.KeyFunc) func(http.Handler) http.Handler {
	return httprate.Limit(cfg.RequestLimit, cfg.WindowLength,
		httprate.WithKeyFuncs(key),
		httprate.WithLimitHandler(limitExceeded(cfg.WindowLength)),
	)
}

// limitExceeded writes a 429 problem. httprate does not expose when the
// window resets, so Retry-After is the whole window in whole seconds.
func limitExceeded(window time.Duration) http.HandlerFunc {
	retryAfter := strconv.Itoa(int(math.Ceil(window.Seconds())))

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", retryAfter)
		models.NewTooManyRequests(GetRequestID(r.Context()), "Rate limit exceeded. Please try again later.").
			WithInstance(r.URL.Path).
			Write(w)
	}
}

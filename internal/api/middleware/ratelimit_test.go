package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeroweather/aeroweather/internal/api/middleware"
	"github.com/aeroweather/aeroweather/internal/auth"
)

// tokenTable maps bearer tokens to principals.
type tokenTable map[string]*auth.Principal

func (t tokenTable) ValidateAccessToken(token string) (*auth.Principal, error) {
	if p, ok := t[token]; ok {
		return p, nil
	}
	return nil, auth.ErrInvalidAccessToken
}

// hit sends one request from remoteAddr, optionally with a bearer token.
func hit(h http.Handler, path, remoteAddr, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, http.NoBody)
	req.RemoteAddr = remoteAddr
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitByIP(t *testing.T) {
	handler := middleware.RateLimitByIP(middleware.RateLimitConfig{RequestLimit: 3, WindowLength: time.Minute})(okHandler)

	for i := range 3 {
		assert.Equal(t, http.StatusOK, hit(handler, "/v1/auth/login", "10.0.0.1:1111", "").Code, "request %d", i+1)
	}

	limited := hit(handler, "/v1/auth/login", "10.0.0.1:2222", "")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code, "the port does not matter")
	assert.Equal(t, "60", limited.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, hit(handler, "/v1/auth/login", "10.0.0.2:1111", "").Code, "other IPs keep their budget")
}

func TestRateLimitByUser_AnonymousFallsBackToIP(t *testing.T) {
	handler := middleware.RateLimitByUser(middleware.RateLimitConfig{RequestLimit: 2, WindowLength: time.Minute})(okHandler)

	assert.Equal(t, http.StatusOK, hit(handler, "/v1/aircraft", "192.168.1.1:1", "").Code)
	assert.Equal(t, http.StatusOK, hit(handler, "/v1/aircraft", "192.168.1.1:1", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(handler, "/v1/aircraft", "192.168.1.1:1", "").Code)
	assert.Equal(t, http.StatusOK, hit(handler, "/v1/aircraft", "192.168.1.2:1", "").Code)
}

func TestRateLimitByUser_KeysByAuthenticatedUser(t *testing.T) {
	validator := tokenTable{
		"alice-token": {UserID: "usr_alice", Username: "alice"},
		"bob-token":   {UserID: "usr_bob", Username: "bob"},
	}
	handler := middleware.Auth(validator)(
		middleware.RateLimitByUser(middleware.RateLimitConfig{RequestLimit: 2, WindowLength: time.Minute})(okHandler),
	)

	// One user roaming across addresses shares a budget.
	assert.Equal(t, http.StatusOK, hit(handler, "/v1/weather/KJFK", "198.51.100.1:1000", "alice-token").Code)
	assert.Equal(t, http.StatusOK, hit(handler, "/v1/weather/KJFK", "198.51.100.2:1000", "alice-token").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(handler, "/v1/weather/KJFK", "198.51.100.3:1000", "alice-token").Code)

	// Another user behind the same address is unaffected.
	assert.Equal(t, http.StatusOK, hit(handler, "/v1/weather/KJFK", "198.51.100.1:1000", "bob-token").Code)
}

func TestRateLimit_ProblemBody(t *testing.T) {
	handler := middleware.RequestID(
		middleware.RateLimitByIP(middleware.RateLimitConfig{RequestLimit: 1, WindowLength: time.Minute})(okHandler),
	)

	require.Equal(t, http.StatusOK, hit(handler, "/v1/auth/login", "203.0.113.1:1", "").Code)
	rec := hit(handler, "/v1/auth/login", "203.0.113.1:1", "")

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{
		"type": "https://api.aeroweather.local/problems/too-many-requests",
		"title": "Too many requests",
		"status": 429,
		"detail": "Rate limit exceeded. Please try again later.",
		"instance": "/v1/auth/login",
		"traceId": "`+rec.Header().Get(middleware.RequestIDHeader)+`"
	}`, rec.Body.String())
}

func TestRateLimit_RetryAfterRoundsUp(t *testing.T) {
	handler := middleware.RateLimitByIP(middleware.RateLimitConfig{RequestLimit: 1, WindowLength: 1500 * time.Millisecond})(okHandler)

	hit(handler, "/v1/auth/login", "203.0.113.77:4000", "")
	rec := hit(handler, "/v1/auth/login", "203.0.113.77:4000", "")

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
}

func TestRateLimit_Budgets(t *testing.T) {
	tests := []struct {
		name string
		cfg  middleware.RateLimitConfig
		want int
	}{
		{"login", middleware.LoginRateLimit, 10},
		{"weather", middleware.WeatherRateLimit, 30},
		{"standard", middleware.StandardRateLimit, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.cfg.RequestLimit, tt.name)
		assert.Equal(t, time.Minute, tt.cfg.WindowLength, tt.name)
	}
}

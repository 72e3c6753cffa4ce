package resilience_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeroweather/aeroweather/internal/provider/resilience"
)

// upstream counts calls and answers with the status returned by respond.
func upstream(t *testing.T, respond func(call int32) int) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(respond(calls.Add(1)))
		_, _ = w.Write([]byte(`{"raw":"KJFK 121651Z"}`))
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func get(t *testing.T, client *resilience.Client, ctx context.Context, url string) (*http.Response, error) {
	t.Helper()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	require.NoError(t, err)
	resp, err := client.Do(req)
	if resp != nil {
		t.Cleanup(func() { _ = resp.Body.Close() })
	}
	return resp, err
}

func TestClient_Success(t *testing.T) {
	server, calls := upstream(t, func(int32) int { return http.StatusOK })
	client := resilience.NewClient(resilience.DefaultClientConfig("avwx"))

	resp, err := get(t, client, context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "avwx", client.Name())
	assert.Equal(t, gobreaker.StateClosed, client.State())
}

func TestClient_DefaultAttemptsOnce(t *testing.T) {
	server, calls := upstream(t, func(int32) int { return http.StatusBadGateway })
	client := resilience.NewClient(resilience.DefaultClientConfig("aviationweather"))

	resp, err := get(t, client, context.Background(), server.URL)

	require.NoError(t, err, "a failing response is handed back for inspection")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, uint32(1), client.Counts().TotalFailures)
}

func TestClient_RetriesUpstreamFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"server error", http.StatusServiceUnavailable},
		{"throttled", http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, calls := upstream(t, func(call int32) int {
				if call < 3 {
					return tt.status
				}
				return http.StatusOK
			})

			cfg := resilience.DefaultClientConfig("openmeteo")
			cfg.MaxRetries = 4
			cfg.InitialInterval = time.Millisecond
			cfg.MaxInterval = 5 * time.Millisecond
			cfg.Breaker.ConsecutiveFailures = 10
			client := resilience.NewClient(cfg)

			resp, err := get(t, client, context.Background(), server.URL)

			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, int32(3), calls.Load())
		})
	}
}

func TestClient_ClientErrorsNotRetried(t *testing.T) {
	server, calls := upstream(t, func(int32) int { return http.StatusNotFound })

	cfg := resilience.DefaultClientConfig("avwx")
	cfg.MaxRetries = 3
	client := resilience.NewClient(cfg)

	resp, err := get(t, client, context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, uint32(0), client.Counts().TotalFailures, "unknown stations are not provider failures")
}

func TestClient_OpensAfterConsecutiveFailures(t *testing.T) {
	server, calls := upstream(t, func(int32) int { return http.StatusInternalServerError })
	client := resilience.NewClient(resilience.DefaultClientConfig("avwx"))

	for i := 0; i < 3; i++ {
		_, err := get(t, client, context.Background(), server.URL)
		require.NoError(t, err)
	}
	require.Equal(t, gobreaker.StateOpen, client.State())

	resp, err := get(t, client, context.Background(), server.URL)

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Contains(t, err.Error(), "avwx")
	assert.Equal(t, int32(3), calls.Load(), "open circuit short-circuits the call")
}

func TestClient_HalfOpenProbeCloses(t *testing.T) {
	failing := atomic.Bool{}
	failing.Store(true)
	server, _ := upstream(t, func(int32) int {
		if failing.Load() {
			return http.StatusInternalServerError
		}
		return http.StatusOK
	})

	cfg := resilience.DefaultClientConfig("aviationweather")
	cfg.Breaker.ConsecutiveFailures = 1
	cfg.Breaker.Cooldown = 20 * time.Millisecond
	client := resilience.NewClient(cfg)

	_, _ = get(t, client, context.Background(), server.URL)
	require.Equal(t, gobreaker.StateOpen, client.State())

	failing.Store(false)
	require.Eventually(t, func() bool {
		return client.State() == gobreaker.StateHalfOpen
	}, time.Second, 5*time.Millisecond)

	resp, err := get(t, client, context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, gobreaker.StateClosed, client.State())
}

func TestClient_TimeoutCountsAsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := resilience.DefaultClientConfig("openmeteo")
	cfg.Timeout = 50 * time.Millisecond
	client := resilience.NewClient(cfg)

	resp, err := get(t, client, context.Background(), server.URL)

	assert.Nil(t, resp)
	assert.Error(t, err)
	assert.Equal(t, uint32(1), client.Counts().TotalFailures)
}

func TestClient_CallerCancellationIsNotAFailure(t *testing.T) {
	server, calls := upstream(t, func(int32) int { return http.StatusOK })
	client := resilience.NewClient(resilience.DefaultClientConfig("avwx"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 5; i++ {
		_, err := get(t, client, ctx, server.URL)
		assert.ErrorIs(t, err, context.Canceled)
	}

	assert.Equal(t, gobreaker.StateClosed, client.State())
	assert.Equal(t, uint32(0), client.Counts().TotalFailures)
	assert.Equal(t, int32(0), calls.Load())
}

func TestBreakerConfig_ShouldTrip(t *testing.T) {
	cfg := resilience.DefaultBreakerConfig()

	tests := []struct {
		name   string
		counts gobreaker.Counts
		want   bool
	}{
		{"fresh", gobreaker.Counts{}, false},
		{"two in a row", gobreaker.Counts{Requests: 2, TotalFailures: 2, ConsecutiveFailures: 2}, false},
		{"three in a row", gobreaker.Counts{Requests: 3, TotalFailures: 3, ConsecutiveFailures: 3}, true},
		{"half of four", gobreaker.Counts{Requests: 4, TotalFailures: 2, ConsecutiveFailures: 1}, false},
		{"half of ten", gobreaker.Counts{Requests: 10, TotalFailures: 5, ConsecutiveFailures: 1}, true},
		{"four of ten", gobreaker.Counts{Requests: 10, TotalFailures: 4, ConsecutiveFailures: 2}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.ShouldTrip(tt.counts))
		})
	}

	ratioOnly := resilience.BreakerConfig{MinRequests: 4, FailureRatio: 0.75}
	assert.False(t, ratioOnly.ShouldTrip(gobreaker.Counts{Requests: 3, TotalFailures: 3, ConsecutiveFailures: 3}))
	assert.True(t, ratioOnly.ShouldTrip(gobreaker.Counts{Requests: 4, TotalFailures: 3}))
}

func TestDefaultClientConfig(t *testing.T) {
	cfg := resilience.DefaultClientConfig("avwx")

	assert.Equal(t, "avwx", cfg.Name)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Zero(t, cfg.MaxRetries)
	assert.Equal(t, resilience.DefaultBreakerConfig(), cfg.Breaker)
}

func TestUpstreamError(t *testing.T) {
	var err error = &resilience.UpstreamError{Provider: "avwx", StatusCode: http.StatusTooManyRequests}

	assert.Equal(t, "avwx responded 429 Too Many Requests", err.Error())

	var upstreamErr *resilience.UpstreamError
	require.True(t, errors.As(err, &upstreamErr))
	assert.Equal(t, http.StatusTooManyRequests, upstreamErr.StatusCode)
}

package resilience_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeroweather/aeroweather/internal/provider/resilience"
)

func newRegisteredClient(registry *resilience.Registry, name string) *resilience.Client {
	cfg := resilience.DefaultClientConfig(name)
	cfg.Registry = registry
	return resilience.NewClient(cfg)
}

func TestRegistry_RegisterOnConstruction(t *testing.T) {
	registry := resilience.NewRegistry()

	newRegisteredClient(registry, "openmeteo")
	newRegisteredClient(registry, "avwx")
	newRegisteredClient(registry, "aviationweather")

	assert.Equal(t, []string{"aviationweather", "avwx", "openmeteo"}, registry.Names())

	health, ok := registry.Health("avwx")
	require.True(t, ok)
	assert.Equal(t, "avwx", health.Name)
	assert.Equal(t, gobreaker.StateClosed, health.State)
	assert.True(t, health.Available())
	assert.False(t, health.LastCallFailed())
	assert.Zero(t, health.Trips)
}

func TestRegistry_UnknownProvider(t *testing.T) {
	registry := resilience.NewRegistry()

	_, ok := registry.Health("metoffice")
	assert.False(t, ok)

	assert.NotPanics(t, func() {
		registry.RecordSuccess("metoffice")
		registry.RecordFailure("metoffice", errors.New("boom"))
	})
	assert.Empty(t, registry.Snapshot())
}

func TestRegistry_RecordsOutcomesWithClock(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 12, 16, 51, 0, 0, time.UTC))
	registry := resilience.NewRegistryWithClock(clock)
	newRegisteredClient(registry, "aviationweather")

	registry.RecordSuccess("aviationweather")
	successAt := clock.Now()

	clock.Advance(time.Minute)
	registry.RecordFailure("aviationweather", errors.New("unexpected status code: 502"))

	health, ok := registry.Health("aviationweather")
	require.True(t, ok)
	require.NotNil(t, health.LastSuccessAt)
	require.NotNil(t, health.LastFailureAt)
	assert.Equal(t, successAt, *health.LastSuccessAt)
	assert.Equal(t, clock.Now(), *health.LastFailureAt)
	assert.Equal(t, "unexpected status code: 502", health.LastError)
	assert.True(t, health.LastCallFailed())

	clock.Advance(time.Minute)
	registry.RecordSuccess("aviationweather")

	health, _ = registry.Health("aviationweather")
	assert.False(t, health.LastCallFailed())
	assert.Equal(t, "unexpected status code: 502", health.LastError, "last error is kept for diagnosis")
}

func TestRegistry_TracksTrips(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 12, 17, 0, 0, 0, time.UTC))
	registry := resilience.NewRegistryWithClock(clock)

	server, _ := upstream(t, func(int32) int { return http.StatusServiceUnavailable })

	cfg := resilience.DefaultClientConfig("avwx")
	cfg.Registry = registry
	cfg.Breaker.ConsecutiveFailures = 2
	client := resilience.NewClient(cfg)

	for i := 0; i < 2; i++ {
		_, err := get(t, client, context.Background(), server.URL)
		require.NoError(t, err)
	}

	health, ok := registry.Health("avwx")
	require.True(t, ok)
	assert.Equal(t, gobreaker.StateOpen, health.State)
	assert.False(t, health.Available())
	assert.Equal(t, 1, health.Trips)
	require.NotNil(t, health.OpenedAt)
	assert.Equal(t, clock.Now(), *health.OpenedAt)
	assert.Equal(t, uint32(0), health.Counts.Requests, "counts reset when the circuit opens")
}

func TestRegistry_Snapshot(t *testing.T) {
	registry := resilience.NewRegistry()
	newRegisteredClient(registry, "openmeteo")
	newRegisteredClient(registry, "avwx")

	registry.RecordFailure("openmeteo", errors.New("timeout"))

	snapshot := registry.Snapshot()

	require.Len(t, snapshot, 2)
	assert.Equal(t, "avwx", snapshot[0].Name)
	assert.Equal(t, "openmeteo", snapshot[1].Name)
	assert.True(t, snapshot[1].LastCallFailed())
	assert.Equal(t, gobreaker.StateClosed, snapshot[1].State)
}

func TestRegistry_ReRegisterReplaces(t *testing.T) {
	registry := resilience.NewRegistry()
	newRegisteredClient(registry, "avwx")
	registry.RecordFailure("avwx", errors.New("boom"))

	newRegisteredClient(registry, "avwx")

	health, ok := registry.Health("avwx")
	require.True(t, ok)
	assert.Nil(t, health.LastFailureAt)
	assert.Len(t, registry.Names(), 1)
}

func TestProviderHealth_States(t *testing.T) {
	now := time.Now()
	earlier := now.Add(-time.Minute)

	tests := []struct {
		name           string
		health         resilience.ProviderHealth
		wantAvailable  bool
		wantRecovering bool
		wantFailed     bool
	}{
		{"closed", resilience.ProviderHealth{State: gobreaker.StateClosed}, true, false, false},
		{"half open", resilience.ProviderHealth{State: gobreaker.StateHalfOpen}, true, true, false},
		{"open", resilience.ProviderHealth{State: gobreaker.StateOpen}, false, false, false},
		{"only failures", resilience.ProviderHealth{LastFailureAt: &now}, true, false, true},
		{"failure after success", resilience.ProviderHealth{LastSuccessAt: &earlier, LastFailureAt: &now}, true, false, true},
		{"success after failure", resilience.ProviderHealth{LastSuccessAt: &now, LastFailureAt: &earlier}, true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantAvailable, tt.health.Available())
			assert.Equal(t, tt.wantRecovering, tt.health.Recovering())
			assert.Equal(t, tt.wantFailed, tt.health.LastCallFailed())
		})
	}
}

// Package handler provides HTTP handlers for the AeroWeather API.
package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/aeroweather/aeroweather/internal/api/models"
	"github.com/aeroweather/aeroweather/internal/api/response"
	"github.com/aeroweather/aeroweather/internal/featureflags"
	"github.com/aeroweather/aeroweather/internal/provider/resilience"
)

// Pinger checks connectivity to a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpsConfig holds the dependencies of the ops endpoints. Nil fields are skipped.
type OpsConfig struct {
	Version   string
	BuildTime string
	Registry  *resilience.Registry
	Flags     *featureflags.Service
	Database  Pinger
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	registry  *resilience.Registry
	flags     *featureflags.Service
	database  Pinger
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	return &OpsHandler{
		version:   cfg.Version,
		buildTime: cfg.BuildTime,
		registry:  cfg.Registry,
		flags:     cfg.Flags,
		database:  cfg.Database,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}

	if h.database != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.database.Ping(ctx); err != nil {
			health.Status = models.HealthStatusFail
			health.Details = map[string]interface{}{"database": err.Error()}
			response.JSON(w, r, http.StatusServiceUnavailable, health)
			return
		}
	}

	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(time.Now()),
		Subsystems: []models.SubsystemStatus{},
		Providers:  []models.ProviderStatus{},
	}

	if h.database != nil {
		sub := models.SubsystemStatus{Name: "postgres", Status: models.HealthStatusOK}
		if err := h.database.Ping(r.Context()); err != nil {
			detail := err.Error()
			sub.Status = models.HealthStatusFail
			sub.Detail = &detail
			status.Status = models.HealthStatusDegraded
		}
		status.Subsystems = append(status.Subsystems, sub)
	}

	if h.registry != nil {
		for _, ph := range h.registry.Snapshot() {
			ps := providerStatus(ph)
			if ps.Status != models.HealthStatusOK {
				status.Status = models.HealthStatusDegraded
			}
			status.Providers = append(status.Providers, ps)
		}
	}

	if h.flags != nil {
		for key, flag := range h.flags.GetAllFlags(r.Context()) {
			if flag.BoolValue(false) {
				status.EnabledFlags = append(status.EnabledFlags, key)
			}
		}
		sort.Strings(status.EnabledFlags)
	}

	response.JSON(w, r, http.StatusOK, status)
}

// providerStatus maps breaker state to a health status. A closed circuit
// whose latest call failed is reported as degraded.
func providerStatus(ph resilience.ProviderHealth) models.ProviderStatus {
	ps := models.ProviderStatus{
		Provider:      ph.Name,
		Status:        models.HealthStatusOK,
		CircuitState:  ph.State.String(),
		Requests:      ph.Counts.Requests,
		Failures:      ph.Counts.TotalFailures,
		Trips:         ph.Trips,
		OpenedAt:      models.TimestampPtr(ph.OpenedAt),
		LastSuccessAt: models.TimestampPtr(ph.LastSuccessAt),
		LastFailureAt: models.TimestampPtr(ph.LastFailureAt),
	}

	switch {
	case !ph.Available():
		ps.Status = models.HealthStatusFail
	case ph.Recovering(), ph.LastCallFailed():
		ps.Status = models.HealthStatusDegraded
	}

	if ph.LastError != "" {
		msg := ph.LastError
		ps.Message = &msg
	}

	return ps
}

package handler

import (
	"errors"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aeroweather/aeroweather/internal/api/middleware"
	"github.com/aeroweather/aeroweather/internal/api/models"
	"github.com/aeroweather/aeroweather/internal/api/response"
	"github.com/aeroweather/aeroweather/internal/featureflags"
)

// FeatureFlagsHandler handles feature flag endpoints.
type FeatureFlagsHandler struct {
	service *featureflags.Service
	logger  zerolog.Logger
}

// NewFeatureFlagsHandler creates a new FeatureFlagsHandler.
func NewFeatureFlagsHandler(service *featureflags.Service, logger zerolog.Logger) *FeatureFlagsHandler {
	return &FeatureFlagsHandler{service: service, logger: logger}
}

// ListFeatureFlags handles GET /v1/admin/feature-flags - list all feature flags.
func (h *FeatureFlagsHandler) ListFeatureFlags(w http.ResponseWriter, r *http.Request) {
	flags := h.service.GetAllFlags(r.Context())

	list := featureflags.FlagList{Items: make([]featureflags.Flag, 0, len(flags))}
	for _, flag := range flags {
		list.Items = append(list.Items, *flag)
	}
	sort.Slice(list.Items, func(i, j int) bool { return list.Items[i].Key < list.Items[j].Key })

	response.JSON(w, r, http.StatusOK, list)
}

// UpsertFeatureFlags handles PUT /v1/admin/feature-flags - update feature flags.
func (h *FeatureFlagsHandler) UpsertFeatureFlags(w http.ResponseWriter, r *http.Request) {
	var req featureflags.FlagUpdateRequest
	if !response.DecodeJSON(w, r, &req) {
		return
	}

	if len(req.Updates) == 0 {
		response.BadRequest(w, r, "validation error", []models.FieldError{
			{Field: "updates", Message: "at least one update is required", Code: "REQUIRED"},
		})
		return
	}

	flags, err := h.service.SetFlags(r.Context(), middleware.GetUsername(r.Context()), req.Updates)
	if err != nil {
		if errors.Is(err, featureflags.ErrUnknownFlag) {
			response.BadRequest(w, r, err.Error(), nil)
			return
		}
		h.logger.Error().Err(err).Msg("updating feature flags failed")
		response.InternalError(w, r, "failed to update feature flags")
		return
	}

	audit(h.logger, r).
		Str("reason", req.Reason).
		Int("count", len(flags)).
		Msg("feature flags updated")

	list := featureflags.FlagList{Items: make([]featureflags.Flag, 0, len(flags))}
	for _, flag := range flags {
		list.Items = append(list.Items, *flag)
	}
	response.JSON(w, r, http.StatusOK, list)
}

// ResetFeatureFlag handles DELETE /v1/admin/feature-flags/{key} - drop an
// override and go back to the code default.
func (h *FeatureFlagsHandler) ResetFeatureFlag(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	flag, err := h.service.ResetFlag(r.Context(), key)
	if err != nil {
		if errors.Is(err, featureflags.ErrUnknownFlag) {
			response.NotFound(w, r, "unknown feature flag "+key)
			return
		}
		h.logger.Error().Err(err).Str("flag", key).Msg("resetting feature flag failed")
		response.InternalError(w, r, "failed to reset feature flag")
		return
	}

	audit(h.logger, r).Str("flag", key).Msg("feature flag reset to default")
	response.JSON(w, r, http.StatusOK, flag)
}

// InvalidateCache handles POST /v1/admin/feature-flags/invalidate - invalidate flag cache.
func (h *FeatureFlagsHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.service.InvalidateCache()
	audit(h.logger, r).Msg("feature flag cache invalidated")
	response.NoContent(w, r)
}

package handler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aeroweather/aeroweather/internal/aircraft"
	"github.com/aeroweather/aeroweather/internal/api/response"
)

// ExportFilename is the download name of the flight leg CSV export.
const ExportFilename = "aircrafts.csv"

// AircraftHandler handles flight leg endpoints.
type AircraftHandler struct {
	service *aircraft.Service
	logger  zerolog.Logger
}

// NewAircraftHandler creates a new AircraftHandler.
func NewAircraftHandler(service *aircraft.Service, logger zerolog.Logger) *AircraftHandler {
	return &AircraftHandler{service: service, logger: logger}
}

// ListFlightLegs handles GET /v1/aircraft - list recorded flight legs.
func (h *AircraftHandler) ListFlightLegs(w http.ResponseWriter, r *http.Request) {
	legs, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("listing flight legs failed")
		response.InternalError(w, r, "failed to list flight legs")
		return
	}

	response.JSON(w, r, http.StatusOK, map[string]interface{}{
		"items": legs,
	})
}

// CreateFlightLeg handles POST /v1/aircraft - record a flight leg.
func (h *AircraftHandler) CreateFlightLeg(w http.ResponseWriter, r *http.Request) {
	var input aircraft.FlightLegInput
	if !response.DecodeJSON(w, r, &input) {
		return
	}

	leg, err := h.service.Add(r.Context(), input)
	if err != nil {
		var validationErr *aircraft.ValidationError
		if errors.As(err, &validationErr) {
			response.BadRequest(w, r, "validation error", validationErr.Errors)
			return
		}

		h.logger.Error().Err(err).Msg("recording flight leg failed")
		response.InternalError(w, r, "failed to record flight leg")
		return
	}

	audit(h.logger, r).
		Int("flight_leg_id", leg.ID).
		Str("aircraft_no", leg.AircraftNo).
		Msg("flight leg recorded")

	response.Created(w, r, fmt.Sprintf("/v1/aircraft/%d", leg.ID), leg)
}

// ExportCSV handles GET /v1/aircraft/export.csv - download all flight legs as CSV.
func (h *AircraftHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	// Buffer so a storage error can still produce a problem response.
	var buf bytes.Buffer
	if err := h.service.ExportCSV(r.Context(), &buf); err != nil {
		h.logger.Error().Err(err).Msg("exporting flight legs failed")
		response.InternalError(w, r, "failed to export flight legs")
		return
	}

	response.Attachment(w, r, "text/csv; charset=utf-8", ExportFilename, buf.Bytes())
}

package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aeroweather/aeroweather/internal/api/models"
	"github.com/aeroweather/aeroweather/internal/api/response"
	"github.com/aeroweather/aeroweather/internal/metar"
)

// ForecastSampleHours is how many hourly forecast entries are returned.
const ForecastSampleHours = 8

// WeatherHandler handles weather lookup endpoints.
type WeatherHandler struct {
	service *metar.Service
	logger  zerolog.Logger
}

// NewWeatherHandler creates a new WeatherHandler.
func NewWeatherHandler(service *metar.Service, logger zerolog.Logger) *WeatherHandler {
	return &WeatherHandler{service: service, logger: logger}
}

// GetWeather handles GET /v1/weather/{icao} - resolve the current weather for an airport.
func (h *WeatherHandler) GetWeather(w http.ResponseWriter, r *http.Request) {
	icao := chi.URLParam(r, "icao")

	res, err := h.service.Resolve(r.Context(), icao)
	if err != nil {
		switch {
		case errors.Is(err, metar.ErrInvalidStation):
			response.BadRequest(w, r, "invalid station", []models.FieldError{{
				Field:   "icao",
				Message: "must be a 4-character ICAO airport code",
				Code:    "INVALID_FORMAT",
			}})
		case errors.Is(err, metar.ErrNoCoordinates):
			response.StationNotFound(w, r, res.Station.String(), res.Message)
		case errors.Is(err, metar.ErrForecastFailed):
			response.ForecastUnavailable(w, r, res.Station.String(), res.Message)
		default:
			h.logger.Error().Err(err).Str("icao", icao).Msg("weather resolution failed")
			response.InternalError(w, r, "weather lookup failed")
		}
		return
	}

	if res.Forecast != nil {
		res.Forecast = res.Forecast.Sample(ForecastSampleHours)
	}

	response.JSON(w, r, http.StatusOK, res)
}

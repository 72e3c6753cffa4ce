package models_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeroweather/aeroweather/internal/api/models"
)

func TestProblemConstructors(t *testing.T) {
	tests := []struct {
		name       string
		problem    *models.Problem
		wantType   string
		wantTitle  string
		wantStatus int
	}{
		{"bad request", models.NewBadRequest("req_1", "d", nil),
			models.ProblemTypeValidation, "Validation error", http.StatusBadRequest},
		{"unauthorized", models.NewUnauthorized("req_1", "d"),
			models.ProblemTypeUnauthorized, "Unauthorized", http.StatusUnauthorized},
		{"forbidden", models.NewForbidden("req_1", models.ProblemTypeTLSRequired, "TLS required", "d"),
			models.ProblemTypeTLSRequired, "TLS required", http.StatusForbidden},
		{"not found", models.NewNotFound("req_1", "d"),
			models.ProblemTypeNotFound, "Not found", http.StatusNotFound},
		{"method not allowed", models.NewMethodNotAllowed("req_1", "d"),
			models.ProblemTypeMethodNotAllowed, "Method not allowed", http.StatusMethodNotAllowed},
		{"conflict", models.NewConflict("req_1", "d"),
			models.ProblemTypeConflict, "Conflict", http.StatusConflict},
		{"unsupported media", models.NewUnsupportedMediaType("req_1", "d"),
			models.ProblemTypeUnsupportedMedia, "Unsupported media type", http.StatusUnsupportedMediaType},
		{"too many requests", models.NewTooManyRequests("req_1", "d"),
			models.ProblemTypeTooManyRequests, "Too many requests", http.StatusTooManyRequests},
		{"internal", models.NewInternalError("req_1", "d"),
			models.ProblemTypeInternal, "Internal server error", http.StatusInternalServerError},
		{"unavailable", models.NewServiceUnavailable("req_1", "d"),
			models.ProblemTypeUnavailable, "Service unavailable", http.StatusServiceUnavailable},
		{"station not found", models.NewStationNotFound("req_1", "ZZZZ", "d"),
			models.ProblemTypeStationNotFound, "Station not found", http.StatusNotFound},
		{"forecast unavailable", models.NewForecastUnavailable("req_1", "KJFK", "d"),
			models.ProblemTypeForecastUnavailable, "Forecast unavailable", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.problem.Type)
			assert.Equal(t, tt.wantTitle, tt.problem.Title)
			assert.Equal(t, tt.wantStatus, tt.problem.Status)
			assert.Equal(t, "d", tt.problem.Detail)
			assert.Equal(t, "req_1", tt.problem.TraceID)
		})
	}
}

func TestProblem_Builders(t *testing.T) {
	p := models.NewProblem(models.ProblemTypeValidation, "Validation error", http.StatusBadRequest, "req_2")
	assert.Empty(t, p.Detail)
	assert.Empty(t, p.Instance)
	assert.Nil(t, p.Errors)

	p.WithDetail("departure must use YYYY-MM-DD HH:MM").
		WithInstance("/v1/aircraft").
		WithErrors([]models.FieldError{{Field: "departure", Message: "bad layout", Code: "INVALID_FORMAT"}})

	assert.Equal(t, "departure must use YYYY-MM-DD HH:MM", p.Detail)
	assert.Equal(t, "/v1/aircraft", p.Instance)
	require.Len(t, p.Errors, 1)
	assert.Equal(t, "INVALID_FORMAT", p.Errors[0].Code)
}

func TestProblem_Write(t *testing.T) {
	p := models.NewBadRequest("req_w", "invalid input", []models.FieldError{
		{Field: "username", Message: "is required"},
	}).WithInstance("/v1/admin/users")

	rec := httptest.NewRecorder()
	p.Write(rec)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "req_w", rec.Header().Get("X-Request-Id"))
	assert.JSONEq(t, `{
		"type": "https://api.aeroweather.local/problems/validation-error",
		"title": "Validation error",
		"status": 400,
		"detail": "invalid input",
		"instance": "/v1/admin/users",
		"traceId": "req_w",
		"errors": [{"field": "username", "message": "is required"}]
	}`, rec.Body.String())
}

func TestProblem_WriteWithoutTraceID(t *testing.T) {
	rec := httptest.NewRecorder()
	models.NewInternalError("", "boom").Write(rec)

	assert.Empty(t, rec.Header().Get("X-Request-Id"))
	assert.Contains(t, rec.Body.String(), `"traceId":""`)
}

func TestWeatherProblem_Body(t *testing.T) {
	rec := httptest.NewRecorder()
	models.NewForecastUnavailable("req_1", "KJFK", "forecast request failed").Write(rec)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{
		"type": "https://api.aeroweather.local/problems/forecast-unavailable",
		"title": "Forecast unavailable",
		"status": 503,
		"detail": "forecast request failed",
		"traceId": "req_1",
		"station": "KJFK"
	}`, rec.Body.String())
}

func TestTimestamp(t *testing.T) {
	local := time.FixedZone("CEST", 2*60*60)
	at := time.Date(2024, 6, 1, 11, 30, 15, 999, local)

	b, err := json.Marshal(models.Timestamp(at))
	require.NoError(t, err)
	assert.Equal(t, `"2024-06-01T09:30:15Z"`, string(b))

	var decoded models.Timestamp
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.True(t, decoded.Time().Equal(at.Truncate(time.Second)))

	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &decoded))
	assert.Error(t, json.Unmarshal([]byte(`42`), &decoded))
}

func TestTimestampPtr(t *testing.T) {
	assert.Nil(t, models.TimestampPtr(nil))
	assert.Nil(t, models.TimestampPtr(&time.Time{}))

	now := time.Now()
	ts := models.TimestampPtr(&now)
	require.NotNil(t, ts)
	assert.True(t, ts.Time().Equal(now))
}

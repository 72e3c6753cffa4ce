package models

import (
	"encoding/json"
	"net/http"
)

// ProblemBaseURI prefixes every problem type URI.
const ProblemBaseURI = "https://api.aeroweather.local/problems/"

// Problem type URIs.
const (
	ProblemTypeValidation          = ProblemBaseURI + "validation-error"
	ProblemTypeUnauthorized        = ProblemBaseURI + "unauthorized"
	ProblemTypeNotFound            = ProblemBaseURI + "not-found"
	ProblemTypeMethodNotAllowed    = ProblemBaseURI + "method-not-allowed"
	ProblemTypeConflict            = ProblemBaseURI + "conflict"
	ProblemTypeUnsupportedMedia    = ProblemBaseURI + "unsupported-media-type"
	ProblemTypeTooManyRequests     = ProblemBaseURI + "too-many-requests"
	ProblemTypeTLSRequired         = ProblemBaseURI + "tls-required"
	ProblemTypeInternal            = ProblemBaseURI + "internal-error"
	ProblemTypeUnavailable         = ProblemBaseURI + "service-unavailable"
	ProblemTypeStationNotFound     = ProblemBaseURI + "station-not-found"
	ProblemTypeForecastUnavailable = ProblemBaseURI + "forecast-unavailable"
)

// Problem is an RFC 7807 error body, served as application/problem+json.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// TraceID echoes the request ID for support requests.
	TraceID string `json:"traceId"`

	// Errors lists field validation failures.
	Errors []FieldError `json:"errors,omitempty"`

	// Station is the ICAO code a weather problem refers to.
	Station string `json:"station,omitempty"`
}

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// NewProblem creates a new Problem with the given parameters.
func NewProblem(problemType, title string, status int, traceID string) *Problem {
	return &Problem{
		Type:    problemType,
		Title:   title,
		Status:  status,
		TraceID: traceID,
	}
}

// WithDetail sets the occurrence-specific explanation.
func (p *Problem) WithDetail(detail string) *Problem {
	p.Detail = detail
	return p
}

// WithInstance sets the request path the problem occurred on.
func (p *Problem) WithInstance(instance string) *Problem {
	p.Instance = instance
	return p
}

// WithErrors attaches field errors.
func (p *Problem) WithErrors(errors []FieldError) *Problem {
	p.Errors = errors
	return p
}

// Write writes the Problem as JSON to the ResponseWriter.
func (p *Problem) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	if p.TraceID != "" {
		w.Header().Set("X-Request-Id", p.TraceID)
	}
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

func newDetailed(problemType, title string, status int, traceID, detail string) *Problem {
	return NewProblem(problemType, title, status, traceID).WithDetail(detail)
}

// NewBadRequest creates a 400 validation problem.
func NewBadRequest(traceID, detail string, errors []FieldError) *Problem {
	return newDetailed(ProblemTypeValidation, "Validation error", http.StatusBadRequest, traceID, detail).
		WithErrors(errors)
}

// NewUnauthorized creates a 401 problem.
func NewUnauthorized(traceID, detail string) *Problem {
	return newDetailed(ProblemTypeUnauthorized, "Unauthorized", http.StatusUnauthorized, traceID, detail)
}

// NewForbidden creates a 403 problem of the given type.
func NewForbidden(traceID, problemType, title, detail string) *Problem {
	return newDetailed(problemType, title, http.StatusForbidden, traceID, detail)
}

// NewNotFound creates a 404 problem.
func NewNotFound(traceID, detail string) *Problem {
	return newDetailed(ProblemTypeNotFound, "Not found", http.StatusNotFound, traceID, detail)
}

// NewMethodNotAllowed creates a 405 problem.
func NewMethodNotAllowed(traceID, detail string) *Problem {
	return newDetailed(ProblemTypeMethodNotAllowed, "Method not allowed", http.StatusMethodNotAllowed, traceID, detail)
}

// NewConflict creates a 409 problem.
func NewConflict(traceID, detail string) *Problem {
	return newDetailed(ProblemTypeConflict, "Conflict", http.StatusConflict, traceID, detail)
}

// NewUnsupportedMediaType creates a 415 problem.
func NewUnsupportedMediaType(traceID, detail string) *Problem {
	return newDetailed(ProblemTypeUnsupportedMedia, "Unsupported media type",
		http.StatusUnsupportedMediaType, traceID, detail)
}

// NewTooManyRequests creates a 429 problem.
func NewTooManyRequests(traceID, detail string) *Problem {
	return newDetailed(ProblemTypeTooManyRequests, "Too many requests", http.StatusTooManyRequests, traceID, detail)
}

// NewInternalError creates a 500 problem.
func NewInternalError(traceID, detail string) *Problem {
	return newDetailed(ProblemTypeInternal, "Internal server error", http.StatusInternalServerError, traceID, detail)
}

// NewServiceUnavailable creates a 503 problem.
func NewServiceUnavailable(traceID, detail string) *Problem {
	return newDetailed(ProblemTypeUnavailable, "Service unavailable", http.StatusServiceUnavailable, traceID, detail)
}

// NewStationNotFound is returned when no provider had an observation and the
// station is missing from the airport table, so no forecast can be fetched.
func NewStationNotFound(traceID, station, detail string) *Problem {
	p := newDetailed(ProblemTypeStationNotFound, "Station not found", http.StatusNotFound, traceID, detail)
	p.Station = station
	return p
}

// NewForecastUnavailable is returned when the forecast fallback itself failed.
func NewForecastUnavailable(traceID, station, detail string) *Problem {
	p := newDetailed(ProblemTypeForecastUnavailable, "Forecast unavailable",
		http.StatusServiceUnavailable, traceID, detail)
	p.Station = station
	return p
}

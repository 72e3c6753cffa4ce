// Package metar resolves weather observations for an airport station by
// querying providers in priority order, normalizing the first usable payload
// and deriving a flight-safety verdict from it.
package metar

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/aeroweather/aeroweather/internal/airport"
)

// METAR errors.
var (
	ErrInvalidStation      = errors.New("invalid station identifier")
	ErrProviderUnavailable = errors.New("weather provider unavailable")
	ErrNoCoordinates       = errors.New("no coordinates for station")
	ErrForecastFailed      = errors.New("forecast request failed")
)

var stationPattern = regexp.MustCompile(`^[A-Z0-9]{4}$`)

// StationQuery is a normalized ICAO station identifier.
type StationQuery string

// ParseStation trims and uppercases input and checks it is a 4 character
// ICAO identifier.
func ParseStation(input string) (StationQuery, error) {
	code := strings.ToUpper(strings.TrimSpace(input))
	if code == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidStation)
	}
	if !stationPattern.MatchString(code) {
		return "", fmt.Errorf("%w: %q", ErrInvalidStation, code)
	}
	return StationQuery(code), nil
}

// String returns the station code.
func (s StationQuery) String() string {
	return string(s)
}

// PayloadKind tags the shape of a RawObservation.
type PayloadKind int

const (
	PayloadText PayloadKind = iota + 1
	PayloadStructured
)

// String returns the payload kind name.
func (k PayloadKind) String() string {
	switch k {
	case PayloadText:
		return "text"
	case PayloadStructured:
		return "structured"
	default:
		return "unknown"
	}
}

// RawObservation is a provider payload as received. Exactly one of Text or
// Fields is meaningful, selected by Kind.
type RawObservation struct {
	Kind   PayloadKind
	Text   string
	Fields map[string]any
}

// TextPayload wraps an unstructured observation string.
func TextPayload(text string) RawObservation {
	return RawObservation{Kind: PayloadText, Text: text}
}

// StructuredPayload wraps a provider field mapping.
func StructuredPayload(fields map[string]any) RawObservation {
	return RawObservation{Kind: PayloadStructured, Fields: fields}
}

// IsEmpty reports whether the payload carries nothing usable.
func (r RawObservation) IsEmpty() bool {
	switch r.Kind {
	case PayloadText:
		return r.Text == ""
	case PayloadStructured:
		return len(r.Fields) == 0
	default:
		return true
	}
}

// MarshalJSON renders text payloads as a JSON string and structured payloads
// as an object.
func (r RawObservation) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case PayloadText:
		return json.Marshal(r.Text)
	case PayloadStructured:
		return json.Marshal(r.Fields)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a JSON string as a text payload and an object as a
// structured payload. Numbers inside objects are kept as json.Number.
func (r *RawObservation) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}

	switch val := v.(type) {
	case nil:
		*r = RawObservation{}
	case string:
		*r = TextPayload(val)
	case map[string]any:
		*r = StructuredPayload(val)
	default:
		*r = TextPayload(string(data))
	}
	return nil
}

// Value is an optional observation field. The zero Value is absent.
type Value struct {
	v       any
	present bool
}

// Some returns a present Value holding v.
func Some(v any) Value {
	return Value{v: v, present: true}
}

// None returns an absent Value.
func None() Value {
	return Value{}
}

// Get returns the held value and whether it is present.
func (v Value) Get() (any, bool) {
	return v.v, v.present
}

// IsPresent reports whether the field was populated.
func (v Value) IsPresent() bool {
	return v.present
}

// IsZero reports whether the value is absent. Used by omitzero.
func (v Value) IsZero() bool {
	return !v.present
}

// Float parses the value as a number. Numbers, json.Number and numeric
// strings parse; anything else reports false.
func (v Value) Float() (float64, bool) {
	if !v.present {
		return 0, false
	}
	return toFloat(v.v)
}

// MarshalJSON renders absent values as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.present {
		return []byte("null"), nil
	}
	return json.Marshal(v.v)
}

// UnmarshalJSON treats null as absent.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Value{}
		return nil
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = Some(raw)
	return nil
}

// Wind holds the wind fields of an observation. Only one of SpeedKt and
// SpeedKph is populated.
type Wind struct {
	DirectionDegrees Value `json:"direction_degrees,omitzero"`
	SpeedKt          Value `json:"speed_kt,omitzero"`
	SpeedKph         Value `json:"speed_kph,omitzero"`
}

// CanonicalObservation is the provider-independent observation record.
// Visibility is left in the unit the provider used (statute miles assumed).
type CanonicalObservation struct {
	RawText         string `json:"raw_text"`
	Visibility      Value  `json:"visibility"`
	Wind            *Wind  `json:"wind"`
	TemperatureC    Value  `json:"temperature_c"`
	Clouds          Value  `json:"clouds"`
	ObservationTime Value  `json:"observation_time"`
}

// Status is a flight-safety classification.
type Status string

const (
	StatusOK      Status = "OK"
	StatusCaution Status = "CAUTION"
	StatusDelay   Status = "DELAY"
)

// SafetyVerdict is the heuristic safety assessment of an observation.
type SafetyVerdict struct {
	Status  Status   `json:"status"`
	Reasons []string `json:"reasons"`
}

// ForecastFallback is an hourly forecast for a coordinate, used when no
// station observation is available.
type ForecastFallback struct {
	Latitude         float64           `json:"latitude"`
	Longitude        float64           `json:"longitude"`
	GenerationTimeMs float64           `json:"generationtime_ms"`
	Timezone         string            `json:"timezone,omitempty"`
	Hourly           map[string][]any  `json:"hourly"`
	HourlyUnits      map[string]string `json:"hourly_units,omitempty"`
}

// Sample returns a copy with every non-empty hourly series cut to its first
// n entries. Empty series are dropped.
func (f *ForecastFallback) Sample(n int) *ForecastFallback {
	if f == nil {
		return nil
	}
	out := *f
	out.Hourly = make(map[string][]any, len(f.Hourly))
	for name, series := range f.Hourly {
		if len(series) == 0 {
			continue
		}
		if n >= 0 && len(series) > n {
			series = series[:n]
		}
		out.Hourly[name] = append([]any(nil), series...)
	}
	return &out
}

// Outcome names the terminal state of a resolution.
type Outcome string

const (
	OutcomeObservation    Outcome = "observation"
	OutcomeForecast       Outcome = "forecast"
	OutcomeNoCoordinates  Outcome = "no_coordinates"
	OutcomeForecastFailed Outcome = "forecast_failed"
)

// Resolution is the result of resolving a station. Observation fields are set
// for OutcomeObservation, Coordinates and Forecast for OutcomeForecast.
type Resolution struct {
	Station     StationQuery          `json:"station"`
	Outcome     Outcome               `json:"outcome"`
	Source      string                `json:"source,omitempty"`
	Raw         *RawObservation       `json:"raw,omitempty"`
	Observation *CanonicalObservation `json:"observation,omitempty"`
	Verdict     *SafetyVerdict        `json:"verdict,omitempty"`
	Coordinates *airport.Coordinates  `json:"coordinates,omitempty"`
	Forecast    *ForecastFallback     `json:"forecast,omitempty"`
	Message     string                `json:"message"`
}

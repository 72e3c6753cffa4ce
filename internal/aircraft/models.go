// Package aircraft records flight legs and exports them as CSV.
package aircraft

import (
	"errors"
	"strings"
	"time"
)

// DepartureLayout is the canonical departure format, "YYYY-MM-DD HH:MM".
const DepartureLayout = "2006-01-02 15:04"

// Errors.
var (
	ErrFlightLegNotFound = errors.New("flight leg not found")
	ErrValidation        = errors.New("validation failed")
)

// FlightLeg is a recorded aircraft movement.
type FlightLeg struct {
	ID          int       `json:"id"`
	AircraftNo  string    `json:"aircraft_no"`
	Origin      string    `json:"origin"`
	Destination string    `json:"dest"`
	Departure   string    `json:"departure"`
	CreatedAt   time.Time `json:"created_at"`
}

// FlightLegInput is the user-supplied part of a flight leg.
type FlightLegInput struct {
	AircraftNo  string `json:"aircraft_no"`
	Origin      string `json:"origin"`
	Destination string `json:"dest"`
	Departure   string `json:"departure"`
}

// Normalize trims every field and uppercases the airport codes.
func (in *FlightLegInput) Normalize() {
	in.AircraftNo = strings.TrimSpace(in.AircraftNo)
	in.Origin = strings.ToUpper(strings.TrimSpace(in.Origin))
	in.Destination = strings.ToUpper(strings.TrimSpace(in.Destination))
	in.Departure = strings.TrimSpace(in.Departure)
}

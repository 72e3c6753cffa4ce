package aircraft

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/aeroweather/aeroweather/internal/api/models"
)

// Validation constants.
const (
	MaxAircraftNoLength = 16
	MaxAirportLength    = 8
)

// departureLayouts are the accepted departure input formats.
var departureLayouts = []string{
	DepartureLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// CSVHeader is the column order of ExportCSV.
var CSVHeader = []string{"aircraft_no", "origin", "dest", "departure", "id", "created_at"}

// Service provides flight leg operations.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

// NewService creates a new flight leg service.
func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// List returns every recorded flight leg.
func (s *Service) List(ctx context.Context) ([]*FlightLeg, error) {
	return s.repo.List(ctx)
}

// Add validates and records a flight leg.
func (s *Service) Add(ctx context.Context, input FlightLegInput) (*FlightLeg, error) {
	input.Normalize()

	departure, fieldErrors := s.validate(input)
	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	leg, err := s.repo.Append(ctx, &FlightLeg{
		AircraftNo:  input.AircraftNo,
		Origin:      input.Origin,
		Destination: input.Destination,
		Departure:   departure,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int("flight_leg_id", leg.ID).
		Str("aircraft_no", leg.AircraftNo).
		Str("origin", leg.Origin).
		Str("dest", leg.Destination).
		Msg("flight leg recorded")

	return leg, nil
}

// ExportCSV writes every flight leg to w as CSV with a header row.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) error {
	legs, err := s.repo.List(ctx)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, leg := range legs {
		record := []string{
			leg.AircraftNo,
			leg.Origin,
			leg.Destination,
			leg.Departure,
			strconv.Itoa(leg.ID),
			leg.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv row %d: %w", leg.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// validate checks a normalized input and returns the canonical departure.
func (s *Service) validate(input FlightLegInput) (string, []models.FieldError) {
	var errs []models.FieldError

	if input.AircraftNo == "" {
		errs = append(errs, models.FieldError{Field: "aircraft_no", Message: "is required"})
	} else if len(input.AircraftNo) > MaxAircraftNoLength {
		errs = append(errs, models.FieldError{Field: "aircraft_no", Message: "must be at most 16 characters"})
	}

	if len(input.Origin) > MaxAirportLength {
		errs = append(errs, models.FieldError{Field: "origin", Message: "must be at most 8 characters"})
	}
	if len(input.Destination) > MaxAirportLength {
		errs = append(errs, models.FieldError{Field: "dest", Message: "must be at most 8 characters"})
	}

	var departure string
	if input.Departure == "" {
		errs = append(errs, models.FieldError{Field: "departure", Message: "is required"})
	} else if t, ok := parseDeparture(input.Departure); ok {
		departure = t.Format(DepartureLayout)
	} else {
		errs = append(errs, models.FieldError{Field: "departure", Message: "must be in YYYY-MM-DD HH:MM format"})
	}

	return departure, errs
}

func parseDeparture(value string) (time.Time, bool) {
	for _, layout := range departureLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return ErrValidation.Error()
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

package metar

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/aeroweather/aeroweather/internal/airport"
	"github.com/aeroweather/aeroweather/internal/featureflags"
	"github.com/aeroweather/aeroweather/internal/observability"
	"github.com/aeroweather/aeroweather/internal/telemetry"
)

// DefaultHourlyVariables are requested from the forecast provider when none
// are configured.
var DefaultHourlyVariables = []string{"temperature_2m", "windspeed_10m", "winddirection_10m", "visibility"}

// ObservationProvider fetches the current observation for a station.
// A nil payload with a nil error means the provider has no data.
type ObservationProvider interface {
	// FetchObservation returns the newest observation for the station.
	FetchObservation(ctx context.Context, station StationQuery) (*RawObservation, error)

	// Name returns the provider name for logging.
	Name() string
}

// failureReporter is implemented by best-effort providers whose
// FetchObservation hides failures. Fetch returns the same payload along
// with the hidden failure so it is recorded against the provider.
type failureReporter interface {
	Fetch(ctx context.Context, station StationQuery) (*RawObservation, error)
}

// ForecastProvider fetches an hourly forecast for a coordinate.
type ForecastProvider interface {
	// FetchForecast returns the requested hourly variables in UTC.
	FetchForecast(ctx context.Context, lat, lon float64, hourly []string) (*ForecastFallback, error)

	// Name returns the provider name for logging.
	Name() string
}

// CoordinateLookup resolves a station to its coordinates. A missing station
// is reported with false, not an error.
type CoordinateLookup interface {
	Lookup(icao string) (airport.Coordinates, bool)
}

// FlagReader reports boolean feature flags.
type FlagReader interface {
	IsEnabled(ctx context.Context, key string) bool
}

// HealthRecorder receives provider call results.
type HealthRecorder interface {
	RecordSuccess(name string)
	RecordFailure(name string, err error)
}

// ServiceConfig holds configuration for the METAR service.
type ServiceConfig struct {
	// Commercial is tried first. Optional.
	Commercial ObservationProvider

	// Government is tried when the commercial provider has no data. Optional.
	Government ObservationProvider

	// Forecast is the last resort when no station observation exists.
	Forecast ForecastProvider

	// Airports maps stations to coordinates for the forecast fallback.
	Airports CoordinateLookup

	// Flags selects the zero-value policy per request. Optional.
	Flags FlagReader

	// Health records provider successes and failures. Optional.
	Health HealthRecorder

	// Metrics counts provider calls and outcomes. Optional.
	Metrics *observability.Metrics

	// HourlyVariables requested from the forecast provider
	// (default: DefaultHourlyVariables).
	HourlyVariables []string

	// Tracer wraps each provider call in a client span
	// (default: the global tracer).
	Tracer trace.Tracer

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service resolves station weather through the provider fallback chain.
type Service struct {
	commercial ObservationProvider
	government ObservationProvider
	forecast   ForecastProvider
	airports   CoordinateLookup
	flags      FlagReader
	health     HealthRecorder
	metrics    *observability.Metrics
	hourly     []string
	tracer     trace.Tracer
	logger     zerolog.Logger
}

// NewService creates a new METAR service.
func NewService(cfg ServiceConfig) *Service {
	hourly := cfg.HourlyVariables
	if len(hourly) == 0 {
		hourly = DefaultHourlyVariables
	}

	return &Service{
		commercial: cfg.Commercial,
		government: cfg.Government,
		forecast:   cfg.Forecast,
		airports:   cfg.Airports,
		flags:      cfg.Flags,
		health:     cfg.Health,
		metrics:    cfg.Metrics,
		hourly:     hourly,
		tracer:     cfg.Tracer,
		logger:     cfg.Logger,
	}
}

type resolveState int

const (
	stateTryCommercial resolveState = iota
	stateTryGovernment
	stateTryForecast
	stateDone
)

// Resolve runs the fallback chain for a station: commercial source, then
// government source, then a coordinate forecast. Providers are called at most
// once each, in order, and the chain stops at the first usable result.
//
// Invalid input returns ErrInvalidStation before any provider is called.
// Terminal failures return a non-nil Resolution describing the failure
// together with an error wrapping ErrNoCoordinates or ErrForecastFailed.
func (s *Service) Resolve(ctx context.Context, input string) (*Resolution, error) {
	station, err := ParseStation(input)
	if err != nil {
		return nil, err
	}

	opts := NormalizeOptions{PreserveZeroValues: s.preserveZeroValues(ctx)}
	res := &Resolution{Station: station}

	state := stateTryCommercial
	for state != stateDone {
		switch state {
		case stateTryCommercial:
			state = stateTryGovernment
			if raw := s.fetchObservation(ctx, s.commercial, station); raw != nil {
				s.observed(res, s.commercial.Name(), raw, opts)
				state = stateDone
			}
		case stateTryGovernment:
			state = stateTryForecast
			if raw := s.fetchObservation(ctx, s.government, station); raw != nil {
				s.observed(res, s.government.Name(), raw, opts)
				state = stateDone
			}
		case stateTryForecast:
			err = s.fallbackToForecast(ctx, res)
			state = stateDone
		}
	}

	if s.metrics != nil {
		s.metrics.Resolutions.WithLabelValues(string(res.Outcome)).Inc()
	}

	s.logger.Info().
		Str("station", station.String()).
		Str("outcome", string(res.Outcome)).
		Str("source", res.Source).
		Msg("resolved station weather")

	return res, err
}

// fetchObservation calls one provider and returns its payload, or nil when the
// provider is unset, has no data or fails. Failures never abort the chain.
func (s *Service) fetchObservation(ctx context.Context, p ObservationProvider, station StationQuery) *RawObservation {
	if p == nil {
		return nil
	}

	ctx, span := telemetry.StartProviderSpan(ctx, s.tracer, p.Name(), station.String())
	start := time.Now()
	fetch := p.FetchObservation
	if fr, ok := p.(failureReporter); ok {
		fetch = fr.Fetch
	}
	raw, err := fetch(ctx, station)
	s.observeDuration(p.Name(), start)

	if err != nil {
		telemetry.EndProviderSpan(span, observability.ProviderOutcomeError, err)
		s.logger.Warn().
			Err(err).
			Str("provider", p.Name()).
			Str("station", station.String()).
			Msg("observation provider failed, treating as no data")
		s.recordCall(p.Name(), observability.ProviderOutcomeError, err)
		return nil
	}

	if raw == nil || raw.IsEmpty() {
		s.logger.Debug().
			Str("provider", p.Name()).
			Str("station", station.String()).
			Msg("observation provider returned no data")
		telemetry.EndProviderSpan(span, observability.ProviderOutcomeEmpty, nil)
		s.recordCall(p.Name(), observability.ProviderOutcomeEmpty, nil)
		return nil
	}

	telemetry.EndProviderSpan(span, observability.ProviderOutcomeData, nil)
	s.recordCall(p.Name(), observability.ProviderOutcomeData, nil)
	return raw
}

func (s *Service) observed(res *Resolution, source string, raw *RawObservation, opts NormalizeOptions) {
	obs := Normalize(*raw, opts)
	verdict := Evaluate(obs)

	res.Outcome = OutcomeObservation
	res.Source = source
	res.Raw = raw
	res.Observation = &obs
	res.Verdict = &verdict
	res.Message = fmt.Sprintf("Observation from %s", source)

	if s.metrics != nil {
		s.metrics.Verdicts.WithLabelValues(string(verdict.Status)).Inc()
	}
}

func (s *Service) fallbackToForecast(ctx context.Context, res *Resolution) error {
	var (
		coords airport.Coordinates
		ok     bool
	)
	if s.airports != nil {
		coords, ok = s.airports.Lookup(res.Station.String())
	}
	if !ok {
		res.Outcome = OutcomeNoCoordinates
		res.Message = "No METAR found. ICAO not found in the airport table. Add it (icao,lat,lon,...)."
		return fmt.Errorf("station %s: %w", res.Station, ErrNoCoordinates)
	}
	res.Coordinates = &coords

	if s.forecast == nil {
		res.Outcome = OutcomeForecastFailed
		res.Message = "No METAR found. No forecast provider is configured."
		return fmt.Errorf("station %s: %w", res.Station, ErrForecastFailed)
	}

	s.logger.Info().
		Str("station", res.Station.String()).
		Float64("lat", coords.Lat).
		Float64("lon", coords.Lon).
		Msg("no observation available, falling back to forecast")

	spanCtx, span := telemetry.StartProviderSpan(ctx, s.tracer, s.forecast.Name(), res.Station.String())
	start := time.Now()
	forecast, err := s.forecast.FetchForecast(spanCtx, coords.Lat, coords.Lon, s.hourly)
	s.observeDuration(s.forecast.Name(), start)

	if err != nil {
		telemetry.EndProviderSpan(span, observability.ProviderOutcomeError, err)
		s.logger.Error().
			Err(err).
			Str("provider", s.forecast.Name()).
			Str("station", res.Station.String()).
			Msg("forecast provider failed")
		s.recordCall(s.forecast.Name(), observability.ProviderOutcomeError, err)
		res.Outcome = OutcomeForecastFailed
		res.Message = fmt.Sprintf("No METAR found. Forecast request failed: %v", err)
		return fmt.Errorf("%w: %w", ErrForecastFailed, err)
	}
	telemetry.EndProviderSpan(span, observability.ProviderOutcomeData, nil)
	s.recordCall(s.forecast.Name(), observability.ProviderOutcomeData, nil)

	res.Outcome = OutcomeForecast
	res.Source = s.forecast.Name()
	res.Forecast = forecast
	res.Message = "No METAR found. Falling back to the hourly forecast at the airport coordinates."
	return nil
}

func (s *Service) preserveZeroValues(ctx context.Context) bool {
	if s.flags == nil {
		return false
	}
	return s.flags.IsEnabled(ctx, featureflags.FlagMetarPreserveZeroValues)
}

func (s *Service) recordCall(provider, outcome string, err error) {
	if s.metrics != nil {
		s.metrics.ProviderRequests.WithLabelValues(provider, outcome).Inc()
	}
	if s.health == nil {
		return
	}
	if err != nil {
		s.health.RecordFailure(provider, err)
		return
	}
	s.health.RecordSuccess(provider)
}

func (s *Service) observeDuration(provider string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ProviderDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	}
}

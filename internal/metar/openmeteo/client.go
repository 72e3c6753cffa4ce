// Package openmeteo is the coordinate forecast source used when no station
// observation is available.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aeroweather/aeroweather/internal/metar"
	"github.com/aeroweather/aeroweather/internal/provider/resilience"
)

const (
	// ProviderName identifies this forecast provider.
	ProviderName = "openmeteo"

	// DefaultBaseURL is the Open-Meteo forecast endpoint.
	DefaultBaseURL = "https://api.open-meteo.com/v1/forecast"

	// DefaultTimeout is the per-call timeout.
	DefaultTimeout = 10 * time.Second

	maxBodyBytes = 8 << 20
)

// ClientConfig holds configuration for the Open-Meteo client.
type ClientConfig struct {
	// BaseURL is the forecast endpoint (optional, defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with a 10 second timeout and no retries.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an Open-Meteo forecast client.
type Client struct {
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new Open-Meteo client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpCfg := resilience.DefaultClientConfig(ProviderName)
		httpCfg.Timeout = DefaultTimeout
		httpClient = resilience.NewClient(httpCfg)
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// forecastResponse is the subset of the Open-Meteo response we read.
type forecastResponse struct {
	Latitude         float64           `json:"latitude"`
	Longitude        float64           `json:"longitude"`
	GenerationTimeMs float64           `json:"generationtime_ms"`
	Timezone         string            `json:"timezone"`
	Hourly           map[string][]any  `json:"hourly"`
	HourlyUnits      map[string]string `json:"hourly_units"`
}

// FetchForecast requests the hourly variables for a coordinate in UTC. An
// empty variable list uses metar.DefaultHourlyVariables. Every failure is
// returned as an error wrapping metar.ErrProviderUnavailable.
func (c *Client) FetchForecast(ctx context.Context, lat, lon float64, hourly []string) (*metar.ForecastFallback, error) {
	if len(hourly) == 0 {
		hourly = metar.DefaultHourlyVariables
	}

	params := url.Values{
		"latitude":  {strconv.FormatFloat(lat, 'f', -1, 64)},
		"longitude": {strconv.FormatFloat(lon, 'f', -1, 64)},
		"hourly":    {strings.Join(hourly, ",")},
		"timezone":  {"UTC"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", metar.ErrProviderUnavailable, ProviderName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s: unexpected status code: %d", metar.ErrProviderUnavailable, ProviderName, resp.StatusCode)
	}

	var body forecastResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %s: decoding response: %w", metar.ErrProviderUnavailable, ProviderName, err)
	}

	c.logger.Debug().
		Float64("lat", lat).
		Float64("lon", lon).
		Int("variables", len(body.Hourly)).
		Msg("fetched hourly forecast")

	return &metar.ForecastFallback{
		Latitude:         body.Latitude,
		Longitude:        body.Longitude,
		GenerationTimeMs: body.GenerationTimeMs,
		Timezone:         body.Timezone,
		Hourly:           body.Hourly,
		HourlyUnits:      body.HourlyUnits,
	}, nil
}

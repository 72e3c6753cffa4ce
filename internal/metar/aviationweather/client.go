// Package aviationweather is the government METAR source backed by the
// aviationweather.gov data server.
package aviationweather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/aeroweather/aeroweather/internal/metar"
	"github.com/aeroweather/aeroweather/internal/provider/resilience"
)

const (
	// ProviderName identifies this METAR provider.
	ProviderName = "aviationweather"

	// DefaultBaseURL is the data server endpoint.
	DefaultBaseURL = "https://aviationweather.gov/adds/dataserver_current/httpparam"

	// DefaultTimeout is the per-call timeout.
	DefaultTimeout = 10 * time.Second

	// LookbackHours bounds how old an observation may be.
	LookbackHours = 4

	maxBodyBytes = 4 << 20
)

// ClientConfig holds configuration for the AviationWeather client.
type ClientConfig struct {
	// BaseURL is the data server endpoint (optional, defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with a 10 second timeout and no retries.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an AviationWeather data server client.
type Client struct {
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new AviationWeather client.
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

// FetchObservation returns the most recent observation for the station
// within the lookback window, or nil when the server has none. Transport
// failures, non-2xx responses and undecodable bodies are returned as errors
// wrapping metar.ErrProviderUnavailable.
func (c *Client) FetchObservation(ctx context.Context, station metar.StationQuery) (*metar.RawObservation, error) {
	params := url.Values{
		"datasource":               {"metars"},
		"requestType":              {"retrieve"},
		"format":                   {"json"},
		"stationString":            {station.String()},
		"hoursBeforeNow":           {strconv.Itoa(LookbackHours)},
		"mostRecentForEachStation": {"true"},
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

	dec := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes))
	dec.UseNumber()

	var body any
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %s: decoding response: %w", metar.ErrProviderUnavailable, ProviderName, err)
	}

	record := firstRecord(body)
	if record == nil {
		c.logger.Debug().
			Str("station", station.String()).
			Msg("no METAR records in response")
		return nil, nil
	}

	return record, nil
}

// firstRecord finds the METAR list under data.METAR or top-level METAR and
// returns its first entry. A single object in place of the list counts as a
// one-element list.
func firstRecord(body any) *metar.RawObservation {
	root, ok := body.(map[string]any)
	if !ok {
		return nil
	}

	var records any
	if data, ok := root["data"].(map[string]any); ok {
		records = data["METAR"]
	}
	if records == nil {
		records = root["METAR"]
	}

	var first any
	switch v := records.(type) {
	case []any:
		if len(v) == 0 {
			return nil
		}
		first = v[0]
	case map[string]any:
		first = v
	default:
		return nil
	}

	var raw metar.RawObservation
	switch v := first.(type) {
	case map[string]any:
		raw = metar.StructuredPayload(v)
	case string:
		raw = metar.TextPayload(v)
	default:
		return nil
	}
	if raw.IsEmpty() {
		return nil
	}
	return &raw
}

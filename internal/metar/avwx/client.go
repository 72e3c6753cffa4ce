// Package avwx is the commercial METAR source. It is best effort: every
// failure is logged and reported as "no data".
package avwx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aeroweather/aeroweather/internal/metar"
	"github.com/aeroweather/aeroweather/internal/provider/resilience"
)

const (
	// ProviderName identifies this METAR provider.
	ProviderName = "avwx"

	// DefaultBaseURL is the AVWX METAR endpoint; the station is appended.
	DefaultBaseURL = "https://avwx.rest/api/metar/"

	// DefaultTimeout is the per-call timeout.
	DefaultTimeout = 8 * time.Second

	maxBodyBytes = 1 << 20
)

// ClientConfig holds configuration for the AVWX client.
type ClientConfig struct {
	// APIKey is sent as a bearer token when set (optional).
	APIKey string

	// BaseURL is the METAR endpoint (optional, defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with an 8 second timeout and no retries.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an AVWX METAR client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new AVWX client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpCfg := resilience.DefaultClientConfig(ProviderName)
		httpCfg.Timeout = DefaultTimeout
		httpClient = resilience.NewClient(httpCfg)
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// FetchObservation returns the station's current observation, or nil when
// the request fails in any way. It never returns an error.
func (c *Client) FetchObservation(ctx context.Context, station metar.StationQuery) (*metar.RawObservation, error) {
	raw, err := c.Fetch(ctx, station)
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("provider", ProviderName).
			Str("station", station.String()).
			Msg("commercial METAR lookup failed, continuing without it")
		return nil, nil
	}
	return raw, nil
}

// Fetch is FetchObservation with the failure returned instead of logged.
// A falsy body (false, 0, "", [], {}) is no data.
func (c *Client) Fetch(ctx context.Context, station metar.StationQuery) (*metar.RawObservation, error) {
	endpoint := c.baseURL + url.PathEscape(station.String()) + "?" + url.Values{"options": {"info"}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes))
	dec.UseNumber()

	var body any
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return toRawObservation(body), nil
}

// toRawObservation keeps JSON objects as structured payloads and renders
// anything else as text.
func toRawObservation(body any) *metar.RawObservation {
	if !metar.Truthy(body) {
		return nil
	}

	var raw metar.RawObservation
	switch v := body.(type) {
	case map[string]any:
		raw = metar.StructuredPayload(v)
	case string:
		raw = metar.TextPayload(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			raw = metar.TextPayload(fmt.Sprint(v))
		} else {
			raw = metar.TextPayload(string(b))
		}
	}
	return &raw
}

package resilience

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned without calling the provider while its circuit
// is open or its half-open probe budget is used up.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// UpstreamError reports a provider response that counts as a failure: any
// 5xx, and 429 since a throttled provider has no data for us either.
type UpstreamError struct {
	Provider   string
	StatusCode int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s responded %d %s", e.Provider, e.StatusCode, http.StatusText(e.StatusCode))
}

// ClientConfig holds configuration for a provider client.
type ClientConfig struct {
	// Name identifies the provider in logs, the breaker and the registry.
	Name string

	// Timeout bounds each HTTP call. Defaults to 10 seconds.
	Timeout time.Duration

	// MaxRetries is the number of extra attempts after a failed call.
	// Zero means the request is attempted exactly once.
	MaxRetries uint64

	// InitialInterval and MaxInterval shape the exponential backoff
	// between retries.
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// Breaker is the trip policy. The zero value means DefaultBreakerConfig.
	Breaker BreakerConfig

	// Registry tracks the client's health when set.
	Registry *Registry

	// Logger receives breaker transitions and retries.
	Logger zerolog.Logger
}

// DefaultClientConfig returns defaults for a provider client. Lookups are
// user-driven, so providers are attempted once per request.
func DefaultClientConfig(name string) ClientConfig {
	return ClientConfig{
		Name:            name,
		Timeout:         10 * time.Second,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Breaker:         DefaultBreakerConfig(),
		Logger:          zerolog.Nop(),
	}
}

// Client performs provider HTTP calls through a circuit breaker.
type Client struct {
	name            string
	httpClient      *http.Client
	breaker         *gobreaker.CircuitBreaker[*http.Response]
	maxRetries      uint64
	initialInterval time.Duration
	maxInterval     time.Duration
	logger          zerolog.Logger
}

// NewClient creates a provider client and registers it with cfg.Registry.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 2 * time.Second
	}
	if cfg.Breaker == (BreakerConfig{}) {
		cfg.Breaker = DefaultBreakerConfig()
	}

	c := &Client{
		name:            cfg.Name,
		httpClient:      &http.Client{Timeout: cfg.Timeout},
		maxRetries:      cfg.MaxRetries,
		initialInterval: cfg.InitialInterval,
		maxInterval:     cfg.MaxInterval,
		logger:          cfg.Logger.With().Str("provider", cfg.Name).Logger(),
	}

	registry := cfg.Registry
	c.breaker = newBreaker[*http.Response](cfg.Name, cfg.Breaker, func(from, to gobreaker.State) {
		event := c.logger.Info()
		if to == gobreaker.StateOpen {
			event = c.logger.Warn()
		}
		event.Str("from", from.String()).Str("to", to.String()).Msg("provider circuit changed state")

		if registry != nil {
			registry.recordTransition(c.name, to)
		}
	})

	if registry != nil {
		registry.Register(c)
	}
	return c
}

// Name returns the provider name.
func (c *Client) Name() string {
	return c.name
}

// State returns the current breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// Counts returns the breaker's counts for the current window.
func (c *Client) Counts() gobreaker.Counts {
	return c.breaker.Counts()
}

// Do sends req through the breaker. Failed calls are retried up to
// MaxRetries times with exponential backoff; only bodiless requests are safe
// to retry. When the last attempt got a failing response, that response is
// returned with a nil error so the caller can inspect its status. 4xx
// responses other than 429 are returned as is and never retried.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialInterval
	bo.MaxInterval = c.maxInterval
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.maxRetries), ctx)

	var last *http.Response
	attempt := func() error {
		if last != nil {
			discard(last)
			last = nil
		}

		resp, err := c.breaker.Execute(func() (*http.Response, error) {
			return c.send(req)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(fmt.Errorf("%s: %w", c.name, ErrCircuitOpen))
		}
		last = resp
		return err
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Debug().Err(err).Dur("wait", wait).Msg("retrying provider request")
	}

	if err := backoff.RetryNotify(attempt, policy, notify); err != nil {
		var upstream *UpstreamError
		if last != nil && errors.As(err, &upstream) {
			return last, nil
		}
		if last != nil {
			discard(last)
		}
		return nil, err
	}
	return last, nil
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req.Clone(req.Context()))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return resp, &UpstreamError{Provider: c.name, StatusCode: resp.StatusCode}
	}
	return resp, nil
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

// Package openmeteo retrieves forecast inputs from the Open-Meteo APIs:
// geocoding, hourly forecast weather, archived weather and PM2.5 history.
package openmeteo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/pm25-forecast-service/internal/observability"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	endpointGeocode    = "geocode"
	endpointForecast   = "forecast"
	endpointArchive    = "archive"
	endpointAirQuality = "air_quality"
)

var (
	// ErrCityNotFound is returned by Geocode when the search has no results.
	ErrCityNotFound = errors.New("city not found")

	errCircuitOpen = errors.New("open-meteo circuit open")
)

// URLs are the Open-Meteo endpoints the client talks to.
type URLs struct {
	Geocoding  string
	Forecast   string
	Archive    string
	AirQuality string
}

// DefaultURLs returns the public Open-Meteo endpoints.
func DefaultURLs() URLs {
	return URLs{
		Geocoding:  "https://geocoding-api.open-meteo.com/v1/search",
		Forecast:   "https://api.open-meteo.com/v1/forecast",
		Archive:    "https://archive-api.open-meteo.com/v1/archive",
		AirQuality: "https://air-quality-api.open-meteo.com/v1/air-quality",
	}
}

// Client implements domain.Geocoder and the pipeline's data source on top of
// Open-Meteo. Requests wait on a shared rate limiter and run inside a
// circuit breaker; failed requests are not retried.
type Client struct {
	httpClient *http.Client
	urls       URLs
	limiter    *rate.Limiter
	circuit    *gobreaker.CircuitBreaker
	now        func() time.Time
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithURLs overrides the API endpoints.
func WithURLs(u URLs) Option { return func(c *Client) { c.urls = u } }

// WithRateLimit sets the request rate (per second) and burst shared by all endpoints.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// NewClient creates an Open-Meteo client.
func NewClient(timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		urls:       DefaultURLs(),
		limiter:    rate.NewLimiter(rate.Limit(5), 5),
		circuit: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "openmeteo",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			},
		}),
		now:     time.Now,
		metrics: metrics,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get performs a GET against base with params and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, endpoint, base string, params url.Values, out any) (err error) {
	start := time.Now()
	defer func() { c.observe(endpoint, start, err) }()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: rate limit wait canceled: %w", endpoint, err)
	}

	_, err = c.circuit.Execute(func() (interface{}, error) {
		return nil, c.do(ctx, base+"?"+params.Encode(), out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s: %w: %v", endpoint, errCircuitOpen, err)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", endpoint, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, fullURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("open-meteo API error: status %d: %s", resp.StatusCode, apiReason(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// apiReason extracts the "reason" of an Open-Meteo error body, falling back
// to the raw body.
func apiReason(body []byte) string {
	var e struct {
		Reason string `json:"reason"`
	}
	if json.Unmarshal(body, &e) == nil && e.Reason != "" {
		return e.Reason
	}
	return string(body)
}

func (c *Client) observe(endpoint string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	c.metrics.UpstreamRequests.WithLabelValues(endpoint, outcome).Inc()
	c.metrics.UpstreamDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/couchcryptid/pm25-forecast-service/internal/domain"
	"github.com/sony/gobreaker"
)

var errCircuitOpen = errors.New("model endpoint circuit open")

// Remote calls an HTTP inference endpoint with one feature row per request.
// Requests are not retried; the circuit breaker fails fast while the
// endpoint is unhealthy.
type Remote struct {
	endpoint string
	client   *http.Client
	circuit  *gobreaker.CircuitBreaker
	features []string
}

// RemoteOption configures a Remote.
type RemoteOption func(*Remote)

// WithFeatures declares the feature columns the endpoint's model was trained
// on, in training order.
func WithFeatures(names []string) RemoteOption {
	return func(r *Remote) { r.features = append([]string(nil), names...) }
}

// NewRemote creates a client for endpoint. A zero timeout falls back to 5s.
func NewRemote(endpoint string, timeout time.Duration, opts ...RemoteOption) *Remote {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	r := &Remote{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		circuit: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "model",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
		}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FeatureNames implements forecast.SchemaDescriber. Without WithFeatures it
// returns domain.ErrSchemaUndeclared.
func (r *Remote) FeatureNames() ([]string, error) {
	if len(r.features) == 0 {
		return nil, domain.ErrSchemaUndeclared
	}
	return append([]string(nil), r.features...), nil
}

type predictRequest struct {
	Features map[string]any `json:"features"`
}

type predictResponse struct {
	Prediction *float64 `json:"prediction"`
}

// Predict posts the row as a column-name keyed JSON object. Missing (NaN)
// numeric values are sent as null.
func (r *Remote) Predict(ctx context.Context, row domain.FeatureRow) (float64, error) {
	features := row.Map()
	for name, v := range features {
		if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			features[name] = nil
		}
	}
	body, err := json.Marshal(predictRequest{Features: features})
	if err != nil {
		return 0, fmt.Errorf("encode features: %w", err)
	}

	result, err := r.circuit.Execute(func() (interface{}, error) {
		return r.post(ctx, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return 0, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		return 0, err
	}
	return result.(float64), nil
}

func (r *Remote) post(ctx context.Context, body []byte) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("model request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("model endpoint returned status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode prediction: %w", err)
	}
	if out.Prediction == nil {
		return 0, errors.New("model response has no prediction")
	}
	return *out.Prediction, nil
}

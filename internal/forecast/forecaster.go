// Package forecast runs the recursive multi-step PM2.5 forecast: one feature
// row per hour, one model call per row, each prediction fed back into the
// history the next row is built from.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/couchcryptid/pm25-forecast-service/internal/domain"
	"github.com/couchcryptid/pm25-forecast-service/internal/observability"
)

const (
	// DefaultHorizon is the number of hourly steps in a forecast.
	DefaultHorizon = 72
	// DefaultLookback is the number of observed hours seeded into the history.
	DefaultLookback = 24
)

// Model is the trained regressor. Implementations must not retain the row.
type Model interface {
	Predict(ctx context.Context, row domain.FeatureRow) (float64, error)
}

// SchemaDescriber is implemented by models that can report the feature
// columns they were trained on. Returning domain.ErrSchemaUndeclared skips
// the startup check.
type SchemaDescriber interface {
	FeatureNames() ([]string, error)
}

// Inputs are the already-fetched series a run consumes. HistoricalWeather is
// optional and only informs the first step's precipitation hours.
type Inputs struct {
	Weather           []domain.WeatherRow
	AirQuality        []domain.Observation
	HistoricalWeather []domain.WeatherRow
}

// Forecaster drives the step loop. It holds no per-run state, so one
// Forecaster may serve sequential runs; each run owns its HistoryBuffer.
type Forecaster struct {
	model    Model
	horizon  int
	lookback int
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// Option configures a Forecaster.
type Option func(*Forecaster)

// WithHorizon sets the number of forecast hours.
func WithHorizon(h int) Option { return func(f *Forecaster) { f.horizon = h } }

// WithLookback sets how many observed hours seed the history.
func WithLookback(n int) Option { return func(f *Forecaster) { f.lookback = n } }

// WithLogger sets the logger for degraded-input warnings.
func WithLogger(l *slog.Logger) Option { return func(f *Forecaster) { f.logger = l } }

// WithMetrics records model call outcomes and latency.
func WithMetrics(m *observability.Metrics) Option { return func(f *Forecaster) { f.metrics = m } }

// New creates a Forecaster. If the model declares its feature columns they
// must match domain.FeatureSchema exactly.
func New(model Model, opts ...Option) (*Forecaster, error) {
	if model == nil {
		return nil, errors.New("forecast: model is required")
	}
	f := &Forecaster{
		model:    model,
		horizon:  DefaultHorizon,
		lookback: DefaultLookback,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.horizon <= 0 {
		return nil, fmt.Errorf("forecast: horizon must be positive, got %d", f.horizon)
	}
	if f.lookback <= 0 {
		return nil, fmt.Errorf("forecast: lookback must be positive, got %d", f.lookback)
	}

	if sd, ok := model.(SchemaDescriber); ok {
		names, err := sd.FeatureNames()
		switch {
		case errors.Is(err, domain.ErrSchemaUndeclared):
			f.logger.Warn("model does not declare its feature columns, schema unchecked")
		case err != nil:
			return nil, fmt.Errorf("forecast: read model schema: %w", err)
		default:
			if err := domain.CheckSchema(names); err != nil {
				return nil, fmt.Errorf("forecast: %w", err)
			}
		}
	}
	return f, nil
}

// Horizon returns the number of steps a run produces.
func (f *Forecaster) Horizon() int { return f.horizon }

// state is the loop-carried state of one run.
type state struct {
	step    int
	history *domain.HistoryBuffer
}

// Run produces exactly Horizon() steps whose timestamps are the first
// Horizon() weather timestamps. Any error aborts the run and no series is
// returned: an *domain.InputSchemaError before the first model call, or an
// *domain.ModelInvocationError naming the failed step.
func (f *Forecaster) Run(ctx context.Context, in Inputs) (domain.ForecastSeries, error) {
	weather, err := f.checkWeather(in.Weather)
	if err != nil {
		return nil, err
	}

	seed := domain.TailValues(domain.NormalizeObservations(in.AirQuality), f.lookback)
	if len(seed) < f.lookback {
		f.logger.Warn("pm2.5 history shorter than lookback, using degraded fill",
			"have", len(seed),
			"want", f.lookback,
		)
	}
	if len(in.HistoricalWeather) == 0 {
		f.logger.Debug("no historical weather, first step estimates precipitation hours from the current row")
	}

	st := &state{history: domain.NewHistoryBuffer(seed)}
	series := make(domain.ForecastSeries, 0, f.horizon)
	for st.step < f.horizon {
		step, err := f.advance(ctx, st, weather[st.step], in.HistoricalWeather)
		if err != nil {
			return nil, err
		}
		series = append(series, step)
	}
	return series, nil
}

// advance performs one transition: build the row, predict, append the
// prediction to the history, move to the next step.
func (f *Forecaster) advance(ctx context.Context, st *state, row domain.WeatherRow, historical []domain.WeatherRow) (domain.ForecastStep, error) {
	// Observed weather only exists behind the first step.
	var window []domain.WeatherRow
	if st.step == 0 {
		window = observedBefore(historical, row.Time)
	}

	features, err := domain.BuildFeatureRow(row, st.history, window)
	if err != nil {
		var schemaErr *domain.InputSchemaError
		if errors.As(err, &schemaErr) {
			schemaErr.Step = st.step
		}
		return domain.ForecastStep{}, err
	}

	yhat, err := f.predict(ctx, features)
	if err != nil {
		return domain.ForecastStep{}, &domain.ModelInvocationError{Step: st.step, Err: err}
	}

	st.history.Append(yhat)
	st.step++
	return domain.ForecastStep{Time: row.Time, Features: features, PM25: yhat}, nil
}

// observedBefore keeps the rows strictly earlier than t, in order. Archive
// responses overlap the forecast range, so later rows are dropped.
func observedBefore(rows []domain.WeatherRow, t time.Time) []domain.WeatherRow {
	var out []domain.WeatherRow
	for _, r := range rows {
		if r.Time.Before(t) {
			out = append(out, r)
		}
	}
	return out
}

func (f *Forecaster) predict(ctx context.Context, row domain.FeatureRow) (float64, error) {
	start := time.Now()
	yhat, err := f.model.Predict(ctx, row)
	if err == nil && (math.IsNaN(yhat) || math.IsInf(yhat, 0)) {
		err = fmt.Errorf("non-finite prediction %v", yhat)
	}
	if f.metrics != nil {
		f.metrics.ModelLatency.Observe(time.Since(start).Seconds())
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		f.metrics.ModelInvocations.WithLabelValues(outcome).Inc()
	}
	return yhat, err
}

// checkWeather validates the horizon's rows before any model call.
func (f *Forecaster) checkWeather(rows []domain.WeatherRow) ([]domain.WeatherRow, error) {
	if len(rows) < f.horizon {
		return nil, &domain.InputSchemaError{
			Step:   len(rows),
			Reason: fmt.Sprintf("weather series has %d rows, horizon needs %d", len(rows), f.horizon),
		}
	}
	rows = rows[:f.horizon]
	for i, r := range rows {
		if err := r.Validate(); err != nil {
			var schemaErr *domain.InputSchemaError
			if errors.As(err, &schemaErr) {
				schemaErr.Step = i
			}
			return nil, err
		}
		if i > 0 && !r.Time.After(rows[i-1].Time) {
			return nil, &domain.InputSchemaError{
				Step:   i,
				Reason: "weather timestamps must be strictly increasing",
			}
		}
	}
	return rows, nil
}

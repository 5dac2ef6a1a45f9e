package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/pm25-forecast-service/internal/domain"
	"github.com/couchcryptid/pm25-forecast-service/internal/forecast"
	"github.com/couchcryptid/pm25-forecast-service/internal/observability"
)

// DataSource retrieves the series a forecast run consumes.
type DataSource interface {
	Weather(ctx context.Context, loc domain.Location, hours int) ([]domain.WeatherRow, error)
	HistoricalWeather(ctx context.Context, loc domain.Location, days int) ([]domain.WeatherRow, error)
	PM25History(ctx context.Context, loc domain.Location, days int) ([]domain.Observation, error)
}

// ForecastTransformer implements Transformer: it resolves the requested
// location, fetches its inputs, runs the recursive forecaster and projects
// the series into a ForecastResult.
type ForecastTransformer struct {
	geocoder    domain.Geocoder
	source      DataSource
	forecaster  *forecast.Forecaster
	historyDays int
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewTransformer creates a ForecastTransformer. historyDays bounds the
// observed PM2.5 and archived weather fetched per request.
func NewTransformer(geocoder domain.Geocoder, source DataSource, forecaster *forecast.Forecaster, historyDays int, logger *slog.Logger, metrics *observability.Metrics) *ForecastTransformer {
	return &ForecastTransformer{
		geocoder:    geocoder,
		source:      source,
		forecaster:  forecaster,
		historyDays: historyDays,
		logger:      logger,
		metrics:     metrics,
	}
}

func (t *ForecastTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.ForecastResult, error) {
	req, err := domain.ParseForecastRequest(raw)
	if err != nil {
		return domain.ForecastResult{}, err
	}
	loc, err := domain.ResolveLocation(ctx, req, t.geocoder)
	if err != nil {
		return domain.ForecastResult{}, err
	}

	in, err := t.fetch(ctx, loc)
	if err != nil {
		return domain.ForecastResult{}, fmt.Errorf("fetch inputs for %s: %w", loc.Name, err)
	}

	start := time.Now()
	series, err := t.forecaster.Run(ctx, in)
	if err != nil {
		return domain.ForecastResult{}, fmt.Errorf("forecast %s: %w", loc.Name, err)
	}
	t.metrics.ForecastDuration.Observe(time.Since(start).Seconds())

	result := domain.NewForecastResult(loc, series)
	if peak := result.Summary.Peak; peak != nil {
		t.metrics.ForecastPeakCategory.WithLabelValues(peak.Category.Label).Inc()
	}
	t.logger.Info("forecast complete",
		"id", result.ID,
		"location", loc.Name,
		"hours", result.Horizon,
		"headline", result.Summary.Headline,
	)
	return result, nil
}

// fetch retrieves the run inputs. Archived weather is optional: when it
// cannot be fetched the first step falls back to the current hour's
// precipitation.
func (t *ForecastTransformer) fetch(ctx context.Context, loc domain.Location) (forecast.Inputs, error) {
	weather, err := t.source.Weather(ctx, loc, t.forecaster.Horizon())
	if err != nil {
		return forecast.Inputs{}, err
	}
	airQuality, err := t.source.PM25History(ctx, loc, t.historyDays)
	if err != nil {
		return forecast.Inputs{}, err
	}
	historical, err := t.source.HistoricalWeather(ctx, loc, t.historyDays)
	if err != nil {
		t.logger.Warn("historical weather unavailable, estimating precipitation hours",
			"location", loc.Name,
			"error", err,
		)
		historical = nil
	}
	return forecast.Inputs{
		Weather:           weather,
		AirQuality:        airQuality,
		HistoricalWeather: historical,
	}, nil
}

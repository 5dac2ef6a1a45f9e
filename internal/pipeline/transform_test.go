package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/couchcryptid/pm25-forecast-service/internal/domain"
	"github.com/couchcryptid/pm25-forecast-service/internal/forecast"
	"github.com/couchcryptid/pm25-forecast-service/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

type fakeGeocoder struct {
	calls int
	err   error
}

func (g *fakeGeocoder) Geocode(_ context.Context, city string) (domain.Location, error) {
	g.calls++
	if g.err != nil {
		return domain.Location{}, g.err
	}
	return domain.Location{Name: city, Latitude: 31.5, Longitude: 74.3, Timezone: "UTC"}, nil
}

type fakeSource struct {
	weather        []domain.WeatherRow
	airQuality     []domain.Observation
	historical     []domain.WeatherRow
	weatherErr     error
	airQualityErr  error
	historicalErr  error
	requestedHours int
	requestedDays  int
}

func (s *fakeSource) Weather(_ context.Context, _ domain.Location, hours int) ([]domain.WeatherRow, error) {
	s.requestedHours = hours
	return s.weather, s.weatherErr
}

func (s *fakeSource) HistoricalWeather(_ context.Context, _ domain.Location, _ int) ([]domain.WeatherRow, error) {
	return s.historical, s.historicalErr
}

func (s *fakeSource) PM25History(_ context.Context, _ domain.Location, days int) ([]domain.Observation, error) {
	s.requestedDays = days
	return s.airQuality, s.airQualityErr
}

type constantModel struct {
	value  float64
	failAt int
	calls  int
}

func (m *constantModel) Predict(_ context.Context, _ domain.FeatureRow) (float64, error) {
	defer func() { m.calls++ }()
	if m.failAt > 0 && m.calls == m.failAt {
		return 0, errors.New("model crashed")
	}
	return m.value, nil
}

func newSource(hours int) *fakeSource {
	weather := make([]domain.WeatherRow, hours)
	for i := range weather {
		weather[i] = domain.WeatherRow{
			Time: testStart.Add(time.Duration(i) * time.Hour), Temp: 10, DewPoint: 2, Pressure: 1015,
			WindSpeed: 5, WindDir: 180, Humidity: 55, Precipitation: 0, Snowfall: 0,
		}
	}
	obs := make([]domain.Observation, 24)
	for i := range obs {
		obs[i] = domain.Observation{Time: testStart.Add(time.Duration(i-24) * time.Hour), PM25: 30}
	}
	return &fakeSource{weather: weather, airQuality: obs}
}

func newTestTransformer(t *testing.T, g domain.Geocoder, src pipeline.DataSource, m forecast.Model, horizon int) *pipeline.ForecastTransformer {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(testStart.Add(-time.Hour)))
	t.Cleanup(func() { domain.SetClock(nil) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f, err := forecast.New(m, forecast.WithHorizon(horizon), forecast.WithLogger(logger))
	require.NoError(t, err)
	return pipeline.NewTransformer(g, src, f, 3, logger, newTestMetrics())
}

func TestForecastTransformer_ByCity(t *testing.T) {
	geo := &fakeGeocoder{}
	src := newSource(72)
	tfm := newTestTransformer(t, geo, src, &constantModel{value: 60}, 72)

	result, err := tfm.Transform(context.Background(), domain.RawEvent{Value: []byte(`{"city":"Lahore"}`)})
	require.NoError(t, err)

	assert.Equal(t, 1, geo.calls)
	assert.Equal(t, 72, src.requestedHours)
	assert.Equal(t, 3, src.requestedDays)
	assert.Equal(t, "Lahore", result.Location.Name)
	assert.Equal(t, 72, result.Horizon)
	require.Len(t, result.Points, 72)
	assert.Equal(t, testStart, result.Points[0].Time)
	assert.Equal(t, domain.AQIUnhealthy, result.Points[0].Category.Label)
	assert.Equal(t, testStart.Add(-time.Hour), result.IssuedAt)
	assert.Regexp(t, `^pm25-[0-9a-f]{16}$`, result.ID)
	assert.Equal(t,
		"Air quality will be worst on Tomorrow during night (12-6 AM), reaching Unhealthy levels.",
		result.Summary.Headline)
	assert.Equal(t, "Outdoor activity is not recommended.", result.Summary.Advisory)
}

func TestForecastTransformer_ByCoordinatesSkipsGeocoder(t *testing.T) {
	geo := &fakeGeocoder{}
	tfm := newTestTransformer(t, geo, newSource(4), &constantModel{value: 8}, 4)

	raw := domain.RawEvent{Value: []byte(`{"name":"Station 7","latitude":51.5,"longitude":-0.12,"timezone":"Europe/London"}`)}
	result, err := tfm.Transform(context.Background(), raw)
	require.NoError(t, err)

	assert.Zero(t, geo.calls)
	assert.Equal(t, "Station 7", result.Location.Name)
	assert.Len(t, result.Points, 4)
	assert.Empty(t, result.Summary.Advisory)
}

func TestForecastTransformer_Deterministic(t *testing.T) {
	src := newSource(6)
	tfm := newTestTransformer(t, &fakeGeocoder{}, src, &constantModel{value: 20}, 6)

	raw := domain.RawEvent{Value: []byte(`{"city":"Lahore"}`)}
	r1, err := tfm.Transform(context.Background(), raw)
	require.NoError(t, err)
	r2, err := tfm.Transform(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
}

func TestForecastTransformer_Errors(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		geoErr  error
		mutate  func(s *fakeSource)
		model   *constantModel
		wantErr error
	}{
		{name: "invalid json", raw: `not json`},
		{name: "empty request", raw: `{}`},
		{name: "geocode failure", raw: `{"city":"Atlantis"}`, geoErr: errors.New("city not found")},
		{
			name:   "weather fetch failure",
			raw:    `{"city":"Lahore"}`,
			mutate: func(s *fakeSource) { s.weatherErr = errors.New("status 500") },
		},
		{
			name:   "air quality fetch failure",
			raw:    `{"city":"Lahore"}`,
			mutate: func(s *fakeSource) { s.airQualityErr = errors.New("status 502") },
		},
		{
			name:    "short weather series",
			raw:     `{"city":"Lahore"}`,
			mutate:  func(s *fakeSource) { s.weather = s.weather[:10] },
			wantErr: domain.ErrInputSchema,
		},
		{
			name:    "missing weather field",
			raw:     `{"city":"Lahore"}`,
			mutate:  func(s *fakeSource) { s.weather[3].Humidity = math.NaN() },
			wantErr: domain.ErrInputSchema,
		},
		{
			name:    "model failure",
			raw:     `{"city":"Lahore"}`,
			model:   &constantModel{value: 10, failAt: 5},
			wantErr: domain.ErrModelInvocation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newSource(24)
			if tt.mutate != nil {
				tt.mutate(src)
			}
			m := tt.model
			if m == nil {
				m = &constantModel{value: 10}
			}
			tfm := newTestTransformer(t, &fakeGeocoder{err: tt.geoErr}, src, m, 24)

			_, err := tfm.Transform(context.Background(), domain.RawEvent{Value: []byte(tt.raw)})
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestForecastTransformer_HistoricalWeatherOptional(t *testing.T) {
	src := newSource(2)
	src.weather[0].Precipitation = 0.6
	src.historicalErr = errors.New("archive unavailable")
	model := &constantModel{value: 10}
	tfm := newTestTransformer(t, &fakeGeocoder{}, src, model, 2)

	result, err := tfm.Transform(context.Background(), domain.RawEvent{Value: []byte(`{"city":"Lahore"}`)})
	require.NoError(t, err)
	assert.Len(t, result.Points, 2)
	assert.Equal(t, 2, model.calls)
}

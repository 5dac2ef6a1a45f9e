package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const tolerance = 1e-9

func TestWindComponents(t *testing.T) {
	tests := []struct {
		name       string
		speed, dir float64
		wantU      float64
		wantV      float64
	}{
		{"from north", 10, 0, 0, -10},
		{"from east", 10, 90, -10, 0},
		{"from south", 10, 180, 0, 10},
		{"from west", 10, 270, 10, 0},
		{"calm", 0, 45, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, v := WindComponents(tt.speed, tt.dir)
			assert.InDelta(t, tt.wantU, u, tolerance)
			assert.InDelta(t, tt.wantV, v, tolerance)
		})
	}
}

func TestQuantile(t *testing.T) {
	values := []float64{4, 1, 3, 2, 5}
	assert.InDelta(t, 1.0, Quantile(values, 0), tolerance)
	assert.InDelta(t, 3.0, Quantile(values, 0.5), tolerance)
	assert.InDelta(t, 5.0, Quantile(values, 1), tolerance)
	assert.InDelta(t, 1.2, Quantile(values, 0.05), tolerance)
	assert.InDelta(t, 4.8, Quantile(values, 0.95), tolerance)
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
	assert.Equal(t, []float64{4, 1, 3, 2, 5}, values, "input must not be reordered")
}

func TestWinsorize(t *testing.T) {
	values := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 100}
	got := Winsorize(values, 0.05, 0.95)

	assert.InDelta(t, 0.5, got[0], tolerance)
	assert.InDelta(t, 54.5, got[10], tolerance)
	assert.InDelta(t, 5.0, got[5], tolerance)
}

func TestWinsorize_SingleValueUnchanged(t *testing.T) {
	assert.Equal(t, []float64{42.5}, Winsorize([]float64{42.5}, 0.05, 0.95))
	assert.Empty(t, Winsorize(nil, 0.05, 0.95))
}

func TestCountPrecipitationHours(t *testing.T) {
	assert.Equal(t, 3, CountPrecipitationHours([]float64{0, 0.1, 0.09, 2, 0.1}, 0.1))
	assert.Equal(t, 0, CountPrecipitationHours([]float64{math.NaN(), 0}, 0.1))
	assert.Equal(t, 0, CountPrecipitationHours(nil, 0.1))
}

func TestDeriveWeatherFeatures_Fallback(t *testing.T) {
	tests := []struct {
		name     string
		precip   float64
		snow     float64
		wantRain int
		wantSnow int
	}{
		{"dry", 0, 0, 0, 0},
		{"threshold is exclusive", 0.1, 0.1, 0, 0},
		{"raining", 0.5, 0, 3, 0},
		{"snowing", 0, 1.2, 0, 3},
		{"both", 0.2, 0.2, 3, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := testWeatherRow(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
			row.Precipitation = tt.precip
			row.Snowfall = tt.snow

			wf := DeriveWeatherFeatures(row, nil, nil)
			assert.Equal(t, tt.wantRain, wf.HoursOfRain)
			assert.Equal(t, tt.wantSnow, wf.HoursOfSnow)
			assert.Equal(t, wf.HoursOfRain, wf.HoursOfRainRolling)
			assert.Equal(t, wf.HoursOfSnow, wf.HoursOfSnowRolling)
		})
	}
}

func TestDeriveWeatherFeatures_HistoricalWindow(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	window := make([]WeatherRow, 30)
	for i := range window {
		window[i] = testWeatherRow(start.Add(time.Duration(i) * time.Hour))
	}
	// Rain in the first 6 hours falls outside the trailing 24.
	for i := 0; i < 6; i++ {
		window[i].Precipitation = 5
	}
	window[10].Precipitation = 0.1
	window[20].Precipitation = 1
	window[29].Snowfall = 0.3
	window[28].Snowfall = math.NaN()

	row := testWeatherRow(start.Add(30 * time.Hour))
	row.Precipitation = 9 // ignored when a window is supplied

	wf := DeriveWeatherFeatures(row, nil, window)
	assert.Equal(t, 2, wf.HoursOfRain)
	assert.Equal(t, 1, wf.HoursOfSnow)
	assert.Equal(t, 2, wf.HoursOfRainRolling)
	assert.Equal(t, 1, wf.HoursOfSnowRolling)
}

func TestDeriveWeatherFeatures_WindSpeedCap(t *testing.T) {
	row := testWeatherRow(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	row.WindSpeed = 80

	assert.InDelta(t, 80, DeriveWeatherFeatures(row, nil, nil).WindSpeedWinsorized, tolerance)

	batch := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 80}
	assert.InDelta(t, 44.5, DeriveWeatherFeatures(row, batch, nil).WindSpeedWinsorized, tolerance)
}

func testWeatherRow(ts time.Time) WeatherRow {
	return WeatherRow{
		Time:          ts,
		Temp:          5,
		DewPoint:      -2,
		Pressure:      1020,
		WindSpeed:     10,
		WindDir:       0,
		Humidity:      60,
		Precipitation: 0,
		Snowfall:      0,
	}
}

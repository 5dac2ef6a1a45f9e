package domain

import (
	"math"
	"sort"
)

const (
	// PrecipitationThreshold is the hourly amount (mm) at which an hour counts
	// as rainy or snowy.
	PrecipitationThreshold = 0.1

	// fallbackPrecipitationHours is reported when only the current row is
	// known and it exceeds the threshold.
	fallbackPrecipitationHours = 3

	winsorLower = 0.05
	winsorUpper = 0.95

	precipitationWindow = 24
)

// WeatherFeatures holds the columns derived from the raw weather variables.
type WeatherFeatures struct {
	WindU               float64
	WindV               float64
	WindSpeedWinsorized float64
	HoursOfRain         int
	HoursOfSnow         int
	HoursOfRainRolling  int
	HoursOfSnowRolling  int
}

// WindComponents decomposes a meteorological wind (speed, direction the wind
// blows from in degrees) into eastward U and northward V components.
func WindComponents(speed, dirDeg float64) (u, v float64) {
	rad := dirDeg * math.Pi / 180
	return -speed * math.Sin(rad), -speed * math.Cos(rad)
}

// Quantile returns the q-th quantile of values using linear interpolation
// between closest ranks. Returns NaN for an empty slice.
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Winsorize clips every value to the [lower, upper] quantile range of the
// batch itself. A one-element batch is returned unchanged.
func Winsorize(values []float64, lower, upper float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	lo := Quantile(values, lower)
	hi := Quantile(values, upper)
	for i, v := range values {
		out[i] = math.Min(math.Max(v, lo), hi)
	}
	return out
}

// CountPrecipitationHours counts values at or above threshold. NaN never counts.
func CountPrecipitationHours(values []float64, threshold float64) int {
	n := 0
	for _, v := range values {
		if v >= threshold {
			n++
		}
	}
	return n
}

// DeriveWeatherFeatures computes the wind and precipitation columns for row.
//
// capBatch is the set of wind speeds the current value is winsorized against;
// nil means the row alone, which leaves the speed unchanged. precipWindow is
// the trailing observed weather; when empty, precipitation hours are
// estimated from the current row only.
func DeriveWeatherFeatures(row WeatherRow, capBatch []float64, precipWindow []WeatherRow) WeatherFeatures {
	u, v := WindComponents(row.WindSpeed, row.WindDir)

	if len(capBatch) == 0 {
		capBatch = []float64{row.WindSpeed}
	}
	lo := Quantile(capBatch, winsorLower)
	hi := Quantile(capBatch, winsorUpper)
	capped := math.Min(math.Max(row.WindSpeed, lo), hi)

	rain, snow := precipitationHours(row, precipWindow)
	return WeatherFeatures{
		WindU:               u,
		WindV:               v,
		WindSpeedWinsorized: capped,
		HoursOfRain:         rain,
		HoursOfSnow:         snow,
		HoursOfRainRolling:  rain,
		HoursOfSnowRolling:  snow,
	}
}

func precipitationHours(row WeatherRow, window []WeatherRow) (rain, snow int) {
	if len(window) == 0 {
		if row.Precipitation > PrecipitationThreshold {
			rain = fallbackPrecipitationHours
		}
		if row.Snowfall > PrecipitationThreshold {
			snow = fallbackPrecipitationHours
		}
		return rain, snow
	}

	if len(window) > precipitationWindow {
		window = window[len(window)-precipitationWindow:]
	}
	precip := make([]float64, len(window))
	snowfall := make([]float64, len(window))
	for i, w := range window {
		precip[i] = w.Precipitation
		snowfall[i] = w.Snowfall
	}
	return CountPrecipitationHours(precip, PrecipitationThreshold), CountPrecipitationHours(snowfall, PrecipitationThreshold)
}

package domain

import (
	"math"
	"sort"
	"time"
)

// Training column names for the raw weather variables.
const (
	ColTemp          = "Temp"
	ColDewPoint      = "DewP"
	ColPressure      = "Press"
	ColWindSpeed     = "WindSpeed"
	ColWindDir       = "WindDir"
	ColHumidity      = "Humidity"
	ColPrecipitation = "precipitation"
	ColSnowfall      = "snowfall"
)

// WeatherRow is one hour of weather for a location. NaN marks a missing value.
type WeatherRow struct {
	Time          time.Time `json:"time"`
	Temp          float64   `json:"temp"`
	DewPoint      float64   `json:"dew_point"`
	Pressure      float64   `json:"pressure"`
	WindSpeed     float64   `json:"wind_speed"`
	WindDir       float64   `json:"wind_dir"`
	Humidity      float64   `json:"humidity"`
	Precipitation float64   `json:"precipitation"`
	Snowfall      float64   `json:"snowfall"`
}

// MissingFields returns the training names of every NaN or infinite field,
// in schema order.
func (r WeatherRow) MissingFields() []string {
	fields := []struct {
		name string
		v    float64
	}{
		{ColTemp, r.Temp},
		{ColDewPoint, r.DewPoint},
		{ColPressure, r.Pressure},
		{ColWindSpeed, r.WindSpeed},
		{ColWindDir, r.WindDir},
		{ColHumidity, r.Humidity},
		{ColPrecipitation, r.Precipitation},
		{ColSnowfall, r.Snowfall},
	}
	var missing []string
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// Validate returns an *InputSchemaError (step 0) if the row has no timestamp
// or any missing field. Callers that know the step overwrite it.
func (r WeatherRow) Validate() error {
	if r.Time.IsZero() {
		return &InputSchemaError{Reason: "weather row has no timestamp"}
	}
	if missing := r.MissingFields(); len(missing) > 0 {
		return &InputSchemaError{Reason: "incomplete weather row at " + r.Time.Format(time.RFC3339), Fields: missing}
	}
	return nil
}

// Observation is one measured (or predicted) PM2.5 concentration in µg/m³.
type Observation struct {
	Time time.Time `json:"time"`
	PM25 float64   `json:"pm25"`
}

// NormalizeObservations returns a time-ordered copy with one entry per
// timestamp (the last one supplied wins) and non-finite values removed.
func NormalizeObservations(obs []Observation) []Observation {
	byTime := make(map[int64]int, len(obs))
	out := make([]Observation, 0, len(obs))
	for _, o := range obs {
		if math.IsNaN(o.PM25) || math.IsInf(o.PM25, 0) {
			continue
		}
		key := o.Time.UnixNano()
		if i, ok := byTime[key]; ok {
			out[i] = o
			continue
		}
		byTime[key] = len(out)
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

// TailValues returns the PM2.5 values of the last n observations, oldest first.
func TailValues(obs []Observation, n int) []float64 {
	if n < len(obs) {
		obs = obs[len(obs)-n:]
	}
	values := make([]float64, len(obs))
	for i, o := range obs {
		values[i] = o.PM25
	}
	return values
}

package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// LagPeriods are the PM2.5 lag columns, in hours.
var LagPeriods = []int{1, 2, 3, 6, 12, 24}

// RollingWindow is the window (hours) of the rolling PM2.5 statistics.
const RollingWindow = 24

// FeatureKind distinguishes numeric from categorical model columns.
type FeatureKind int

const (
	Numeric FeatureKind = iota
	Categorical
)

func (k FeatureKind) String() string {
	if k == Categorical {
		return "categorical"
	}
	return "numeric"
}

// FeatureSpec names one model column.
type FeatureSpec struct {
	Name string
	Kind FeatureKind
}

// FeatureValue is a single column value; Cat is set for categorical columns,
// Num for numeric ones.
type FeatureValue struct {
	Kind FeatureKind
	Num  float64
	Cat  string
}

// Column pairs a column name with its value.
type Column struct {
	Name  string
	Value FeatureValue
}

// FeatureRow is one model input row. Every field maps to exactly one column
// of FeatureSchema.
type FeatureRow struct {
	Time time.Time `json:"time"`

	Temp          float64 `json:"Temp"`
	DewPoint      float64 `json:"DewP"`
	Pressure      float64 `json:"Press"`
	WindSpeed     float64 `json:"WindSpeed"`
	WindDir       float64 `json:"WindDir"`
	Humidity      float64 `json:"Humidity"`
	Precipitation float64 `json:"precipitation"`
	Snowfall      float64 `json:"snowfall"`

	Year      int    `json:"Year"`
	Month     int    `json:"month"`
	Day       int    `json:"Day"`
	Hour      int    `json:"hour"`
	DayOfWeek int    `json:"day_of_week"`
	DayOfYear int    `json:"day_of_year"`
	IsWeekend int    `json:"is_weekend"`
	TimeOfDay string `json:"time_of_day"`
	Season    string `json:"Season"`

	WindU               float64 `json:"WinDir_U"`
	WindV               float64 `json:"WinDir_V"`
	WindSpeedWinsorized float64 `json:"WindSpeed_Winsorized"`
	HoursOfRain         int     `json:"HoursOfRain"`
	HoursOfSnow         int     `json:"HoursOfSnow"`
	HoursOfRainRolling  int     `json:"HoursOfRain_rolling"`
	HoursOfSnowRolling  int     `json:"HoursOfSnow_rolling"`

	Lag1  float64 `json:"pm2.5_lag1"`
	Lag2  float64 `json:"pm2.5_lag2"`
	Lag3  float64 `json:"pm2.5_lag3"`
	Lag6  float64 `json:"pm2.5_lag6"`
	Lag12 float64 `json:"pm2.5_lag12"`
	Lag24 float64 `json:"pm2.5_lag24"`

	RollingMean float64 `json:"pm2.5_roll24_mean"`
	RollingStd  float64 `json:"pm2.5_roll24_std"`

	ExtremePM25   string `json:"Extreme_PM2.5"`
	ExtremeShift1 string `json:"Extreme_Event_VMD_shift1"`
}

type column struct {
	spec FeatureSpec
	get  func(r *FeatureRow) FeatureValue
}

func num(name string, get func(r *FeatureRow) float64) column {
	return column{
		spec: FeatureSpec{Name: name, Kind: Numeric},
		get:  func(r *FeatureRow) FeatureValue { return FeatureValue{Kind: Numeric, Num: get(r)} },
	}
}

func cat(name string, get func(r *FeatureRow) string) column {
	return column{
		spec: FeatureSpec{Name: name, Kind: Categorical},
		get:  func(r *FeatureRow) FeatureValue { return FeatureValue{Kind: Categorical, Cat: get(r)} },
	}
}

// columns is the single source of truth for column order, names and kinds.
var columns = []column{
	num(ColTemp, func(r *FeatureRow) float64 { return r.Temp }),
	num(ColDewPoint, func(r *FeatureRow) float64 { return r.DewPoint }),
	num(ColPressure, func(r *FeatureRow) float64 { return r.Pressure }),
	num(ColWindSpeed, func(r *FeatureRow) float64 { return r.WindSpeed }),
	num(ColWindDir, func(r *FeatureRow) float64 { return r.WindDir }),
	num(ColHumidity, func(r *FeatureRow) float64 { return r.Humidity }),
	num(ColPrecipitation, func(r *FeatureRow) float64 { return r.Precipitation }),
	num(ColSnowfall, func(r *FeatureRow) float64 { return r.Snowfall }),

	num("Year", func(r *FeatureRow) float64 { return float64(r.Year) }),
	num("month", func(r *FeatureRow) float64 { return float64(r.Month) }),
	num("Day", func(r *FeatureRow) float64 { return float64(r.Day) }),
	num("hour", func(r *FeatureRow) float64 { return float64(r.Hour) }),
	num("day_of_week", func(r *FeatureRow) float64 { return float64(r.DayOfWeek) }),
	num("day_of_year", func(r *FeatureRow) float64 { return float64(r.DayOfYear) }),
	num("is_weekend", func(r *FeatureRow) float64 { return float64(r.IsWeekend) }),
	cat("time_of_day", func(r *FeatureRow) string { return r.TimeOfDay }),
	cat("Season", func(r *FeatureRow) string { return r.Season }),

	num("WinDir_U", func(r *FeatureRow) float64 { return r.WindU }),
	num("WinDir_V", func(r *FeatureRow) float64 { return r.WindV }),
	num("WindSpeed_Winsorized", func(r *FeatureRow) float64 { return r.WindSpeedWinsorized }),
	num("HoursOfRain", func(r *FeatureRow) float64 { return float64(r.HoursOfRain) }),
	num("HoursOfSnow", func(r *FeatureRow) float64 { return float64(r.HoursOfSnow) }),
	num("HoursOfRain_rolling", func(r *FeatureRow) float64 { return float64(r.HoursOfRainRolling) }),
	num("HoursOfSnow_rolling", func(r *FeatureRow) float64 { return float64(r.HoursOfSnowRolling) }),

	num("pm2.5_lag1", func(r *FeatureRow) float64 { return r.Lag1 }),
	num("pm2.5_lag2", func(r *FeatureRow) float64 { return r.Lag2 }),
	num("pm2.5_lag3", func(r *FeatureRow) float64 { return r.Lag3 }),
	num("pm2.5_lag6", func(r *FeatureRow) float64 { return r.Lag6 }),
	num("pm2.5_lag12", func(r *FeatureRow) float64 { return r.Lag12 }),
	num("pm2.5_lag24", func(r *FeatureRow) float64 { return r.Lag24 }),

	num("pm2.5_roll24_mean", func(r *FeatureRow) float64 { return r.RollingMean }),
	num("pm2.5_roll24_std", func(r *FeatureRow) float64 { return r.RollingStd }),

	cat("Extreme_PM2.5", func(r *FeatureRow) string { return r.ExtremePM25 }),
	cat("Extreme_Event_VMD_shift1", func(r *FeatureRow) string { return r.ExtremeShift1 }),
}

// FeatureSchema is the ordered column list the model was trained on.
var FeatureSchema = func() []FeatureSpec {
	specs := make([]FeatureSpec, len(columns))
	for i, c := range columns {
		specs[i] = c.spec
	}
	return specs
}()

var columnIndex = func() map[string]int {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		idx[c.spec.Name] = i
	}
	return idx
}()

// Columns returns every schema column of the row, in schema order.
func (r FeatureRow) Columns() []Column {
	out := make([]Column, len(columns))
	for i, c := range columns {
		out[i] = Column{Name: c.spec.Name, Value: c.get(&r)}
	}
	return out
}

// Value looks up a single column by its training name.
func (r FeatureRow) Value(name string) (FeatureValue, bool) {
	i, ok := columnIndex[name]
	if !ok {
		return FeatureValue{}, false
	}
	return columns[i].get(&r), true
}

// Map returns the row as a column-name keyed map: float64 for numeric
// columns, string for categorical ones.
func (r FeatureRow) Map() map[string]any {
	m := make(map[string]any, len(columns))
	for _, c := range columns {
		v := c.get(&r)
		if v.Kind == Categorical {
			m[c.spec.Name] = v.Cat
			continue
		}
		m[c.spec.Name] = v.Num
	}
	return m
}

// FeatureNames returns the schema column names in order.
func FeatureNames() []string {
	names := make([]string, len(FeatureSchema))
	for i, s := range FeatureSchema {
		names[i] = s.Name
	}
	return names
}

// CheckSchema compares a model's declared feature names against
// FeatureSchema, ignoring order. Any missing or extraneous column is an error.
func CheckSchema(names []string) error {
	seen := make(map[string]bool, len(names))
	var extra []string
	for _, n := range names {
		if _, ok := columnIndex[n]; !ok {
			extra = append(extra, n)
		}
		seen[n] = true
	}
	var missing []string
	for _, s := range FeatureSchema {
		if !seen[s.Name] {
			missing = append(missing, s.Name)
		}
	}
	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}
	sort.Strings(extra)
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing "+strings.Join(missing, ", "))
	}
	if len(extra) > 0 {
		parts = append(parts, "unexpected "+strings.Join(extra, ", "))
	}
	return fmt.Errorf("feature schema mismatch: %s", strings.Join(parts, "; "))
}

// BuildFeatureRow composes the model input for one forecast hour from the
// hour's weather, the PM2.5 history and, on the first step only, the
// trailing observed weather used for precipitation hours.
func BuildFeatureRow(row WeatherRow, history *HistoryBuffer, precipWindow []WeatherRow) (FeatureRow, error) {
	if err := row.Validate(); err != nil {
		return FeatureRow{}, err
	}

	tf := DeriveTimeFeatures(row.Time)
	wf := DeriveWeatherFeatures(row, nil, precipWindow)

	return FeatureRow{
		Time: row.Time,

		Temp:          row.Temp,
		DewPoint:      row.DewPoint,
		Pressure:      row.Pressure,
		WindSpeed:     row.WindSpeed,
		WindDir:       row.WindDir,
		Humidity:      row.Humidity,
		Precipitation: row.Precipitation,
		Snowfall:      row.Snowfall,

		Year:      tf.Year,
		Month:     tf.Month,
		Day:       tf.Day,
		Hour:      tf.Hour,
		DayOfWeek: tf.DayOfWeek,
		DayOfYear: tf.DayOfYear,
		IsWeekend: tf.IsWeekend,
		TimeOfDay: tf.TimeOfDay,
		Season:    tf.Season,

		WindU:               wf.WindU,
		WindV:               wf.WindV,
		WindSpeedWinsorized: wf.WindSpeedWinsorized,
		HoursOfRain:         wf.HoursOfRain,
		HoursOfSnow:         wf.HoursOfSnow,
		HoursOfRainRolling:  wf.HoursOfRainRolling,
		HoursOfSnowRolling:  wf.HoursOfSnowRolling,

		Lag1:  history.Lag(1),
		Lag2:  history.Lag(2),
		Lag3:  history.Lag(3),
		Lag6:  history.Lag(6),
		Lag12: history.Lag(12),
		Lag24: history.Lag(24),

		RollingMean: history.RollingMean(RollingWindow),
		RollingStd:  history.RollingStd(RollingWindow),

		ExtremePM25:   history.IsExtreme(0),
		ExtremeShift1: history.IsExtreme(1),
	}, nil
}

// Package domain models the PM2.5 forecast core: the feature schema the
// regression model was trained on, the per-step feature derivation, the
// rolling PM2.5 history, AQI classification and the forecast summary.
//
// # Feature Schema
//
// The model consumes one row per forecast hour. Column names follow the
// training dataset verbatim (mixed case, dots included), e.g. "Temp", "DewP",
// "pm2.5_lag24", "Extreme_PM2.5". The full ordered list lives in
// [FeatureSchema]; a [FeatureRow] always carries every column exactly once,
// and [CheckSchema] compares it against the feature list a model declares.
//
// Categorical columns carry the training labels as strings:
//
//	time_of_day:                Morning | Afternoon | Evening | Night
//	Season:                     Winter | Spring | Summer | Fall
//	Extreme_PM2.5:              Yes | No
//	Extreme_Event_VMD_shift1:   Yes | No
//
// # Weather Conventions
//
// Wind direction is meteorological (the direction the wind blows FROM, in
// degrees). Components are U = -s*sin(d), V = -s*cos(d): wind from due north
// has U=0, V=-s. Precipitation and snowfall are hourly millimetres; an hour
// counts as rainy or snowy at >= 0.1mm.
//
// Missing upstream values are carried as NaN. A [WeatherRow] with any NaN
// or infinite field fails [WeatherRow.Validate] with an [InputSchemaError].
//
// # Recursive Feedback
//
// Each forecast step appends its prediction to the [HistoryBuffer], so lag,
// rolling and extreme-event columns of later steps are computed partly from
// earlier predictions. Short history never fails: lags fall back to the oldest
// entry, a single-entry window has zero deviation, missing offsets are "No".
//
// # Precipitation Asymmetry
//
// Only the first step sees the trailing 24 hours of observed weather, taken
// from archive rows strictly before the first forecast hour; later
// steps fall back to the current-row estimate (3 hours if the current value
// exceeds 0.1mm, else 0). The model was fit against features produced this
// way, so the two paths must not be unified without retraining.
package domain

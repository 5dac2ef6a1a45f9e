package domain

import (
	"context"
	"time"
)

// RawEvent represents an unprocessed forecast request from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Location is a resolved forecast location. Timezone is an IANA zone name;
// all hourly series for the location are expressed in it.
type Location struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
}

// ForecastRequest asks for a forecast either by city name (to be geocoded)
// or by an already resolved location.
type ForecastRequest struct {
	City     string    `json:"city,omitempty"`
	Location *Location `json:"location,omitempty"`
}

// ForecastStep is one hour of a forecast run: the model input and its
// prediction. Steps are never modified after the forecaster emits them.
type ForecastStep struct {
	Time     time.Time
	Features FeatureRow
	PM25     float64
}

// ForecastSeries is the ordered output of one forecast run.
type ForecastSeries []ForecastStep

// ForecastPoint is the published view of a ForecastStep.
type ForecastPoint struct {
	Time     time.Time   `json:"time"`
	PM25     float64     `json:"pm25"`
	Category AQICategory `json:"category"`
}

// ForecastResult is the serialized form destined for the sink topic and the
// latest-forecast store.
type ForecastResult struct {
	ID       string          `json:"id"`
	Location Location        `json:"location"`
	IssuedAt time.Time       `json:"issued_at"`
	Horizon  int             `json:"horizon_hours"`
	Points   []ForecastPoint `json:"points"`
	Summary  Summary         `json:"summary"`
}

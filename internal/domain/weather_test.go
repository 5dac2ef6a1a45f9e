package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeatherRow_Validate(t *testing.T) {
	row := testWeatherRow(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.NoError(t, row.Validate())

	row.Snowfall = math.NaN()
	err := row.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snowfall")

	assert.Error(t, WeatherRow{}.Validate(), "zero timestamp")
}

func TestWeatherRow_InfiniteFieldsAreMissing(t *testing.T) {
	row := testWeatherRow(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	row.WindSpeed = math.Inf(1)
	row.Temp = math.Inf(-1)

	assert.Equal(t, []string{ColTemp, ColWindSpeed}, row.MissingFields())

	err := row.Validate()
	require.Error(t, err)
	var schemaErr *InputSchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, []string{ColTemp, ColWindSpeed}, schemaErr.Fields)
}

func TestNormalizeObservations(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	obs := []Observation{
		{Time: base.Add(2 * time.Hour), PM25: 30},
		{Time: base, PM25: 10},
		{Time: base.Add(time.Hour), PM25: math.NaN()},
		{Time: base.Add(2 * time.Hour), PM25: 33},
		{Time: base.Add(3 * time.Hour), PM25: math.Inf(1)},
	}

	got := NormalizeObservations(obs)
	assert.Equal(t, []Observation{
		{Time: base, PM25: 10},
		{Time: base.Add(2 * time.Hour), PM25: 33},
	}, got)
}

func TestTailValues(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	obs := make([]Observation, 30)
	for i := range obs {
		obs[i] = Observation{Time: base.Add(time.Duration(i) * time.Hour), PM25: float64(i)}
	}

	tail := TailValues(obs, 24)
	assert.Len(t, tail, 24)
	assert.Equal(t, 6.0, tail[0])
	assert.Equal(t, 29.0, tail[23])

	assert.Len(t, TailValues(obs[:5], 24), 5)
	assert.Empty(t, TailValues(nil, 24))
}

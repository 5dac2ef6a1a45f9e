package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seriesFrom(start time.Time, values ...float64) ForecastSeries {
	s := make(ForecastSeries, len(values))
	for i, v := range values {
		ts := start.Add(time.Duration(i) * time.Hour)
		s[i] = ForecastStep{Time: ts, PM25: v}
	}
	return s
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, time.Now())
	assert.Equal(t, "No forecast data available.", s.String())
	assert.Nil(t, s.Peak)
}

func TestSummarize_TodayAfternoonUnhealthy(t *testing.T) {
	now := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)
	series := seriesFrom(now, 30, 50, 80, 80, 20) // ties: first max at 11:00

	s := Summarize(series, now)
	require.NotNil(t, s.Peak)
	assert.Equal(t, now.Add(2*time.Hour), s.Peak.Time)
	assert.Equal(t, "Today", s.Peak.Day)
	assert.Equal(t, "morning (6-12 AM)", s.Peak.Period)
	assert.Equal(t, "Air quality will be worst on Today during morning (6-12 AM), reaching Unhealthy levels.", s.Headline)
	assert.Equal(t, "Outdoor activity is not recommended.", s.Advisory)
	assert.Equal(t, s.Headline+"\n\nOutdoor activity is not recommended.", s.String())
}

func TestSummarize_TomorrowSensitive(t *testing.T) {
	now := time.Date(2024, time.March, 4, 20, 0, 0, 0, time.UTC)
	series := seriesFrom(now, 10, 12, 14, 40, 41, 45, 45, 39, 38, 30, 20)
	// Peak at 01:00 on March 5.

	s := Summarize(series, now)
	assert.Equal(t, "Tomorrow", s.Peak.Day)
	assert.Equal(t, "night (12-6 AM)", s.Peak.Period)
	assert.Equal(t, AQIUnhealthySensitive, s.Peak.Category.Label)
	assert.Equal(t, "Sensitive individuals should limit outdoor activity.", s.Advisory)
}

func TestSummarize_LaterDayNoAdvisory(t *testing.T) {
	now := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	series := seriesFrom(now.Add(50*time.Hour), 8, 20) // peak at 03:00 on March 6

	s := Summarize(series, now)
	assert.Equal(t, "Wednesday, March 06", s.Peak.Day)
	assert.Equal(t, AQIModerate, s.Peak.Category.Label)
	assert.Empty(t, s.Advisory)
	assert.Equal(t, s.Headline, s.String())
}

func TestSummarize_UsesForecastZone(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 23:00 UTC on March 4 is 08:00 on March 5 in Tokyo.
	now := time.Date(2024, time.March, 4, 23, 0, 0, 0, time.UTC)
	series := seriesFrom(time.Date(2024, time.March, 5, 18, 0, 0, 0, tokyo), 100)

	s := Summarize(series, now)
	assert.Equal(t, "Today", s.Peak.Day)
	assert.Equal(t, "evening (6-12 PM)", s.Peak.Period)
}

func TestPeriodLabel(t *testing.T) {
	assert.Equal(t, "night (12-6 AM)", periodLabel(0))
	assert.Equal(t, "night (12-6 AM)", periodLabel(5))
	assert.Equal(t, "morning (6-12 AM)", periodLabel(6))
	assert.Equal(t, "afternoon (12-6 PM)", periodLabel(12))
	assert.Equal(t, "afternoon (12-6 PM)", periodLabel(17))
	assert.Equal(t, "evening (6-12 PM)", periodLabel(18))
	assert.Equal(t, "evening (6-12 PM)", periodLabel(23))
}

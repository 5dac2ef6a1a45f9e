package domain

import "time"

const noForecastData = "No forecast data available."

// Summary is the worst-case narrative of a forecast.
type Summary struct {
	Headline string      `json:"headline"`
	Advisory string      `json:"advisory,omitempty"`
	Peak     *PeakWindow `json:"peak,omitempty"`
}

// PeakWindow describes the step with the highest predicted PM2.5.
type PeakWindow struct {
	Time     time.Time   `json:"time"`
	PM25     float64     `json:"pm25"`
	Category AQICategory `json:"category"`
	Day      string      `json:"day"`
	Period   string      `json:"period"`
}

// String renders the headline and, when present, the advisory separated by
// a blank line.
func (s Summary) String() string {
	if s.Advisory == "" {
		return s.Headline
	}
	return s.Headline + "\n\n" + s.Advisory
}

// Summarize finds the worst hour of the forecast (the first one on ties) and
// describes it relative to now. now is converted to the forecast's zone
// before comparing dates.
func Summarize(series ForecastSeries, now time.Time) Summary {
	if len(series) == 0 {
		return Summary{Headline: noForecastData}
	}

	worst := 0
	for i, s := range series {
		if s.PM25 > series[worst].PM25 {
			worst = i
		}
	}
	step := series[worst]
	category := ClassifyPM25(step.PM25)
	day := dayLabel(step.Time, now.In(step.Time.Location()))
	period := periodLabel(step.Time.Hour())

	return Summary{
		Headline: "Air quality will be worst on " + day + " during " + period + ", reaching " + category.Label + " levels.",
		Advisory: advisory(category),
		Peak: &PeakWindow{
			Time:     step.Time,
			PM25:     step.PM25,
			Category: category,
			Day:      day,
			Period:   period,
		},
	}
}

func dayLabel(t, now time.Time) string {
	switch {
	case sameDate(t, now):
		return "Today"
	case sameDate(t, now.AddDate(0, 0, 1)):
		return "Tomorrow"
	default:
		return t.Format("Monday, January 02")
	}
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func periodLabel(hour int) string {
	switch {
	case hour >= 6 && hour < 12:
		return "morning (6-12 AM)"
	case hour >= 12 && hour < 18:
		return "afternoon (12-6 PM)"
	case hour >= 18:
		return "evening (6-12 PM)"
	default:
		return "night (12-6 AM)"
	}
}

func advisory(c AQICategory) string {
	switch {
	case c.Severity() >= 3:
		return "Outdoor activity is not recommended."
	case c.Label == AQIUnhealthySensitive:
		return "Sensitive individuals should limit outdoor activity."
	default:
		return ""
	}
}

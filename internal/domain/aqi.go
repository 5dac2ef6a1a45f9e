package domain

// AQI category labels for PM2.5.
const (
	AQIGood               = "Good"
	AQIModerate           = "Moderate"
	AQIUnhealthySensitive = "Unhealthy for Sensitive Groups"
	AQIUnhealthy          = "Unhealthy"
	AQIVeryUnhealthy      = "Very Unhealthy"
	AQIHazardous          = "Hazardous"
)

// AQICategory is the AQI band a PM2.5 concentration falls in.
type AQICategory struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

// Severity orders categories from 0 (Good) to 5 (Hazardous); -1 for an
// unknown label.
func (c AQICategory) Severity() int {
	for i, b := range aqiBands {
		if b.Category.Label == c.Label {
			return i
		}
	}
	return -1
}

// AQIBand is one row of the PM2.5 breakpoint table. Upper is inclusive;
// the last band has no upper bound.
type AQIBand struct {
	Category AQICategory `json:"category"`
	Lower    float64     `json:"lower"`
	Upper    float64     `json:"upper,omitempty"`
}

var aqiBands = []AQIBand{
	{Category: AQICategory{Label: AQIGood, Color: "#00e400"}, Lower: 0, Upper: 12},
	{Category: AQICategory{Label: AQIModerate, Color: "#ffff00"}, Lower: 12.1, Upper: 35.4},
	{Category: AQICategory{Label: AQIUnhealthySensitive, Color: "#ff7e00"}, Lower: 35.5, Upper: 55.4},
	{Category: AQICategory{Label: AQIUnhealthy, Color: "#ff0000"}, Lower: 55.5, Upper: 150.4},
	{Category: AQICategory{Label: AQIVeryUnhealthy, Color: "#8f3f97"}, Lower: 150.5, Upper: 250.4},
	{Category: AQICategory{Label: AQIHazardous, Color: "#7e0023"}, Lower: 250.5},
}

// AQIBands returns a copy of the PM2.5 breakpoint table, lowest band first.
func AQIBands() []AQIBand {
	return append([]AQIBand(nil), aqiBands...)
}

// ClassifyPM25 maps a concentration in µg/m³ to its AQI category. Upper
// breakpoints are inclusive: 12.0 is Good, 12.1 is Moderate.
func ClassifyPM25(pm25 float64) AQICategory {
	for _, b := range aqiBands[:len(aqiBands)-1] {
		if pm25 <= b.Upper {
			return b.Category
		}
	}
	return aqiBands[len(aqiBands)-1].Category
}

package domain

import "time"

// Time-of-day labels.
const (
	Morning   = "Morning"
	Afternoon = "Afternoon"
	Evening   = "Evening"
	Night     = "Night"
)

// Season labels (meteorological seasons).
const (
	Winter = "Winter"
	Spring = "Spring"
	Summer = "Summer"
	Fall   = "Fall"
)

// TimeFeatures holds the calendar columns derived from a timestamp.
type TimeFeatures struct {
	Year      int
	Month     int
	Day       int
	Hour      int
	DayOfWeek int // 0 = Monday
	DayOfYear int
	IsWeekend int // 1 on Saturday and Sunday
	TimeOfDay string
	Season    string
}

// DeriveTimeFeatures maps a timestamp, already in the location's zone, to
// its calendar features.
func DeriveTimeFeatures(t time.Time) TimeFeatures {
	dow := (int(t.Weekday()) + 6) % 7
	weekend := 0
	if dow >= 5 {
		weekend = 1
	}
	return TimeFeatures{
		Year:      t.Year(),
		Month:     int(t.Month()),
		Day:       t.Day(),
		Hour:      t.Hour(),
		DayOfWeek: dow,
		DayOfYear: t.YearDay(),
		IsWeekend: weekend,
		TimeOfDay: timeOfDay(t.Hour()),
		Season:    season(t.Month()),
	}
}

// timeOfDay buckets an hour: 05-11 Morning, 12-16 Afternoon, 17-20 Evening,
// everything else Night.
func timeOfDay(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return Morning
	case hour >= 12 && hour < 17:
		return Afternoon
	case hour >= 17 && hour < 21:
		return Evening
	default:
		return Night
	}
}

func season(m time.Month) string {
	switch m {
	case time.December, time.January, time.February:
		return Winter
	case time.March, time.April, time.May:
		return Spring
	case time.June, time.July, time.August:
		return Summer
	default:
		return Fall
	}
}

package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// NewForecastResult projects a completed series into its published form,
// classifying every hour and attaching the summary. IssuedAt is taken from
// the package clock.
func NewForecastResult(loc Location, series ForecastSeries) ForecastResult {
	issuedAt := clock.Now()
	points := make([]ForecastPoint, len(series))
	for i, s := range series {
		points[i] = ForecastPoint{
			Time:     s.Time,
			PM25:     s.PM25,
			Category: ClassifyPM25(s.PM25),
		}
	}

	var start time.Time
	if len(series) > 0 {
		start = series[0].Time
	}

	return ForecastResult{
		ID:       generateID(loc, start),
		Location: loc,
		IssuedAt: issuedAt,
		Horizon:  len(series),
		Points:   points,
		Summary:  Summarize(series, issuedAt),
	}
}

// generateID produces a deterministic ID from the location and the first
// forecast hour, so re-running the same request for the same hour replaces
// rather than duplicates the published forecast.
func generateID(loc Location, start time.Time) string {
	input := fmt.Sprintf("%s|%.4f|%.4f|%s", strings.ToLower(loc.Name), loc.Latitude, loc.Longitude, start.UTC().Format(time.RFC3339))
	hash := sha256.Sum256([]byte(input))
	return "pm25-" + hex.EncodeToString(hash[:8])
}

// LocationKey returns a stable, lower-case slug for a location name, used as
// the store key and message header.
func LocationKey(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	dash := false
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r > 127 {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

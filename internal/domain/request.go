package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ParseForecastRequest deserializes a RawEvent's value into a ForecastRequest.
// It accepts either {"city": "..."} or a resolved location
// {"name", "latitude", "longitude", "timezone"}.
func ParseForecastRequest(raw RawEvent) (ForecastRequest, error) {
	var rec struct {
		City      string   `json:"city"`
		Name      string   `json:"name"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
		Timezone  string   `json:"timezone"`
	}
	if err := json.Unmarshal(raw.Value, &rec); err != nil {
		return ForecastRequest{}, fmt.Errorf("parse forecast request: %w", err)
	}

	if rec.Latitude != nil || rec.Longitude != nil {
		if rec.Latitude == nil || rec.Longitude == nil {
			return ForecastRequest{}, errors.New("parse forecast request: latitude and longitude must be set together")
		}
		loc := Location{
			Name:      strings.TrimSpace(rec.Name),
			Latitude:  *rec.Latitude,
			Longitude: *rec.Longitude,
			Timezone:  strings.TrimSpace(rec.Timezone),
		}
		if err := validateLocation(loc); err != nil {
			return ForecastRequest{}, fmt.Errorf("parse forecast request: %w", err)
		}
		return ForecastRequest{Location: &loc}, nil
	}

	city := strings.TrimSpace(rec.City)
	if city == "" {
		return ForecastRequest{}, errors.New("parse forecast request: city or coordinates required")
	}
	return ForecastRequest{City: city}, nil
}

func validateLocation(loc Location) error {
	if loc.Latitude < -90 || loc.Latitude > 90 {
		return fmt.Errorf("latitude %g out of range", loc.Latitude)
	}
	if loc.Longitude < -180 || loc.Longitude > 180 {
		return fmt.Errorf("longitude %g out of range", loc.Longitude)
	}
	if loc.Timezone == "" {
		return errors.New("timezone is required with coordinates")
	}
	if _, err := time.LoadLocation(loc.Timezone); err != nil {
		return fmt.Errorf("unknown timezone %q", loc.Timezone)
	}
	return nil
}

// ResolveLocation returns the request's location, geocoding the city name
// when no location was supplied.
func ResolveLocation(ctx context.Context, req ForecastRequest, geocoder Geocoder) (Location, error) {
	if req.Location != nil {
		loc := *req.Location
		if loc.Name == "" {
			loc.Name = fmt.Sprintf("%.4f,%.4f", loc.Latitude, loc.Longitude)
		}
		return loc, nil
	}
	if geocoder == nil {
		return Location{}, fmt.Errorf("resolve %q: no geocoder configured", req.City)
	}
	loc, err := geocoder.Geocode(ctx, req.City)
	if err != nil {
		return Location{}, fmt.Errorf("resolve %q: %w", req.City, err)
	}
	return loc, nil
}

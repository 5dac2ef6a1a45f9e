package domain

import "context"

// Geocoder resolves a city name to a forecast location.
type Geocoder interface {
	Geocode(ctx context.Context, city string) (Location, error)
}

package openmeteo

import (
	"context"
	"fmt"
	"net/url"

	"github.com/couchcryptid/pm25-forecast-service/internal/domain"
)

type geocodeResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Timezone  string  `json:"timezone"`
		Country   string  `json:"country"`
	} `json:"results"`
}

// Geocode resolves a city name to its best match. The returned Location
// carries the canonical name and IANA time zone reported by Open-Meteo.
func (c *Client) Geocode(ctx context.Context, city string) (domain.Location, error) {
	params := url.Values{
		"name":     {city},
		"count":    {"1"},
		"language": {"en"},
		"format":   {"json"},
	}

	var resp geocodeResponse
	if err := c.get(ctx, endpointGeocode, c.urls.Geocoding, params, &resp); err != nil {
		return domain.Location{}, err
	}
	if len(resp.Results) == 0 {
		return domain.Location{}, fmt.Errorf("%w: %q", ErrCityNotFound, city)
	}

	r := resp.Results[0]
	c.logger.Debug("geocoded city", "city", city, "name", r.Name, "country", r.Country, "timezone", r.Timezone)
	return domain.Location{
		Name:      r.Name,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		Timezone:  r.Timezone,
	}, nil
}

package openmeteo

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/pm25-forecast-service/internal/domain"
)

// hourlyTimeLayout is the local-time format of Open-Meteo hourly timestamps.
const hourlyTimeLayout = "2006-01-02T15:04"

var hourlyWeatherVars = []string{
	"temperature_2m",
	"dew_point_2m",
	"pressure_msl",
	"wind_speed_10m",
	"wind_direction_10m",
	"relative_humidity_2m",
	"precipitation",
	"snowfall",
}

type weatherResponse struct {
	Hourly struct {
		Time          []string   `json:"time"`
		Temperature   []*float64 `json:"temperature_2m"`
		DewPoint      []*float64 `json:"dew_point_2m"`
		Pressure      []*float64 `json:"pressure_msl"`
		WindSpeed     []*float64 `json:"wind_speed_10m"`
		WindDirection []*float64 `json:"wind_direction_10m"`
		Humidity      []*float64 `json:"relative_humidity_2m"`
		Precipitation []*float64 `json:"precipitation"`
		Snowfall      []*float64 `json:"snowfall"`
	} `json:"hourly"`
}

type airQualityResponse struct {
	Hourly struct {
		Time []string   `json:"time"`
		PM25 []*float64 `json:"pm2_5"`
	} `json:"hourly"`
}

// Weather returns the next hours of forecast weather for loc, in loc's time zone.
func (c *Client) Weather(ctx context.Context, loc domain.Location, hours int) ([]domain.WeatherRow, error) {
	params := locationParams(loc)
	params.Set("hourly", strings.Join(hourlyWeatherVars, ","))
	params.Set("forecast_hours", strconv.Itoa(hours))

	var resp weatherResponse
	if err := c.get(ctx, endpointForecast, c.urls.Forecast, params, &resp); err != nil {
		return nil, err
	}
	return resp.rows(loc)
}

// HistoricalWeather returns archived hourly weather from days ago through
// today. Hours the archive has not filled yet come back with NaN fields.
func (c *Client) HistoricalWeather(ctx context.Context, loc domain.Location, days int) ([]domain.WeatherRow, error) {
	zone, err := loadZone(loc)
	if err != nil {
		return nil, err
	}
	today := c.now().In(zone)

	params := locationParams(loc)
	params.Set("hourly", strings.Join(hourlyWeatherVars, ","))
	params.Set("start_date", today.AddDate(0, 0, -days).Format(time.DateOnly))
	params.Set("end_date", today.Format(time.DateOnly))

	var resp weatherResponse
	if err := c.get(ctx, endpointArchive, c.urls.Archive, params, &resp); err != nil {
		return nil, err
	}
	return resp.rows(loc)
}

// PM25History returns the observed hourly PM2.5 of the past days. Missing
// hours are NaN.
func (c *Client) PM25History(ctx context.Context, loc domain.Location, days int) ([]domain.Observation, error) {
	params := locationParams(loc)
	params.Set("hourly", "pm2_5")
	params.Set("past_days", strconv.Itoa(days))
	params.Set("forecast_hours", "0")

	var resp airQualityResponse
	if err := c.get(ctx, endpointAirQuality, c.urls.AirQuality, params, &resp); err != nil {
		return nil, err
	}

	zone, err := loadZone(loc)
	if err != nil {
		return nil, err
	}
	h := resp.Hourly
	obs := make([]domain.Observation, 0, len(h.Time))
	for i, s := range h.Time {
		ts, err := time.ParseInLocation(hourlyTimeLayout, s, zone)
		if err != nil {
			return nil, fmt.Errorf("%s: parse time %q: %w", endpointAirQuality, s, err)
		}
		obs = append(obs, domain.Observation{Time: ts, PM25: at(h.PM25, i)})
	}
	return obs, nil
}

func (r *weatherResponse) rows(loc domain.Location) ([]domain.WeatherRow, error) {
	zone, err := loadZone(loc)
	if err != nil {
		return nil, err
	}
	h := r.Hourly
	rows := make([]domain.WeatherRow, 0, len(h.Time))
	for i, s := range h.Time {
		ts, err := time.ParseInLocation(hourlyTimeLayout, s, zone)
		if err != nil {
			return nil, fmt.Errorf("parse time %q: %w", s, err)
		}
		rows = append(rows, domain.WeatherRow{
			Time:          ts,
			Temp:          at(h.Temperature, i),
			DewPoint:      at(h.DewPoint, i),
			Pressure:      at(h.Pressure, i),
			WindSpeed:     at(h.WindSpeed, i),
			WindDir:       at(h.WindDirection, i),
			Humidity:      at(h.Humidity, i),
			Precipitation: at(h.Precipitation, i),
			Snowfall:      at(h.Snowfall, i),
		})
	}
	return rows, nil
}

func locationParams(loc domain.Location) url.Values {
	return url.Values{
		"latitude":  {strconv.FormatFloat(loc.Latitude, 'f', 4, 64)},
		"longitude": {strconv.FormatFloat(loc.Longitude, 'f', 4, 64)},
		"timezone":  {loc.Timezone},
	}
}

func loadZone(loc domain.Location) (*time.Location, error) {
	zone, err := time.LoadLocation(loc.Timezone)
	if err != nil {
		return nil, fmt.Errorf("location %q: %w", loc.Name, err)
	}
	return zone, nil
}

// at returns values[i], or NaN when the value is null or absent.
func at(values []*float64, i int) float64 {
	if i >= len(values) || values[i] == nil {
		return math.NaN()
	}
	return *values[i]
}

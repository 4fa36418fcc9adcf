package external

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"surfcast/internal/types"
)

const (
	geoJSON          = "application/geo+json"
	knotsPerMileHour = 0.868976
)

var compassPoints = map[string]float64{
	"N": 0, "NNE": 22.5, "NE": 45, "ENE": 67.5,
	"E": 90, "ESE": 112.5, "SE": 135, "SSE": 157.5,
	"S": 180, "SSW": 202.5, "SW": 225, "WSW": 247.5,
	"W": 270, "WNW": 292.5, "NW": 315, "NNW": 337.5,
}

// NWSClient reads hourly forecasts and active alerts from api.weather.gov.
// Grid lookups from /points are cached for the lifetime of the client since
// a coordinate's forecast office never changes.
type NWSClient struct {
	base    *BaseClient
	baseURL string

	mu     sync.RWMutex
	points map[string]string
}

// NewNWSClient creates an NWSClient rooted at baseURL.
func NewNWSClient(base *BaseClient, baseURL string) *NWSClient {
	return &NWSClient{
		base:    base,
		baseURL: strings.TrimRight(baseURL, "/"),
		points:  make(map[string]string),
	}
}

type pointResponse struct {
	Properties struct {
		ForecastHourly string `json:"forecastHourly"`
	} `json:"properties"`
}

type hourlyResponse struct {
	Properties struct {
		Periods []struct {
			StartTime     time.Time `json:"startTime"`
			Temperature   *float64  `json:"temperature"`
			WindSpeed     string    `json:"windSpeed"`
			WindDirection string    `json:"windDirection"`
			ShortForecast string    `json:"shortForecast"`
		} `json:"periods"`
	} `json:"properties"`
}

type alertResponse struct {
	Features []struct {
		Properties struct {
			Headline string `json:"headline"`
		} `json:"properties"`
	} `json:"features"`
}

// HourlyForecast returns the NWS hourly forecast nearest to the coordinate.
// Wind speed is converted to knots; temperature is kept as reported.
func (c *NWSClient) HourlyForecast(ctx context.Context, lat, lon float64) ([]types.WeatherPoint, error) {
	hourlyURL, err := c.forecastURL(ctx, lat, lon)
	if err != nil {
		return nil, err
	}

	body, err := c.base.Get(ctx, hourlyURL, geoJSON)
	if err != nil {
		return nil, err
	}

	var doc hourlyResponse
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamWeather, "failed to decode hourly forecast", err)
	}

	out := make([]types.WeatherPoint, 0, len(doc.Properties.Periods))
	for _, p := range doc.Properties.Periods {
		wp := types.WeatherPoint{
			Time:           p.StartTime.UTC(),
			AirTemperature: p.Temperature,
			WindSpeed:      parseWindSpeed(p.WindSpeed),
			ShortForecast:  p.ShortForecast,
		}
		if deg, ok := compassPoints[strings.ToUpper(p.WindDirection)]; ok {
			wp.WindDirection = &deg
		}
		out = append(out, wp)
	}
	return out, nil
}

// ActiveAlertHeadline returns the headline of the first active alert at the
// coordinate, or "" when none is in effect.
func (c *NWSClient) ActiveAlertHeadline(ctx context.Context, lat, lon float64) (string, error) {
	url := fmt.Sprintf("%s/alerts/active?point=%.4f,%.4f", c.baseURL, lat, lon)
	body, err := c.base.Get(ctx, url, geoJSON)
	if err != nil {
		return "", err
	}

	var doc alertResponse
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", types.NewAppError(types.ErrCodeUpstreamWeather, "failed to decode alerts", err)
	}
	if len(doc.Features) == 0 {
		return "", nil
	}
	return doc.Features[0].Properties.Headline, nil
}

func (c *NWSClient) forecastURL(ctx context.Context, lat, lon float64) (string, error) {
	key := fmt.Sprintf("%.4f,%.4f", lat, lon)

	c.mu.RLock()
	url, ok := c.points[key]
	c.mu.RUnlock()
	if ok {
		return url, nil
	}

	body, err := c.base.Get(ctx, c.baseURL+"/points/"+key, geoJSON)
	if err != nil {
		return "", err
	}
	var doc pointResponse
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", types.NewAppError(types.ErrCodeUpstreamWeather, "failed to decode grid point", err)
	}
	if doc.Properties.ForecastHourly == "" {
		return "", types.NewAppErrorWithDetails(types.ErrCodeUpstreamWeather, "grid point has no hourly forecast", nil,
			map[string]any{"point": key})
	}

	c.mu.Lock()
	c.points[key] = doc.Properties.ForecastHourly
	c.mu.Unlock()
	return doc.Properties.ForecastHourly, nil
}

// parseWindSpeed reads the leading number of strings such as "10 mph" or
// "5 to 10 mph" and converts it to knots.
func parseWindSpeed(s string) *float64 {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	mph, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return nil
	}
	knots := math.Round(mph*knotsPerMileHour*100) / 100
	return &knots
}

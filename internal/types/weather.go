package types

import "time"

// WeatherPoint is one hour of the NWS hourly forecast. Nil fields were not
// reported for that hour.
type WeatherPoint struct {
	Time           time.Time `json:"time"`
	AirTemperature *float64  `json:"air_temperature"`
	WindSpeed      *float64  `json:"wind_speed"`     // knots
	WindDirection  *float64  `json:"wind_direction"` // degrees, direction wind blows from
	ShortForecast  string    `json:"short_forecast"`
}

package external

import (
	"context"
	"time"

	"surfcast/internal/surf"
	"surfcast/internal/types"
)

// GribSource downloads one GRIB2 tile. An empty result with a nil error
// means the tile does not exist upstream.
type GribSource interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// WeatherProvider serves hourly point forecasts and active alerts.
type WeatherProvider interface {
	HourlyForecast(ctx context.Context, lat, lon float64) ([]types.WeatherPoint, error)
	ActiveAlertHeadline(ctx context.Context, lat, lon float64) (string, error)
}

// TideProvider serves high/low water predictions for a station.
type TideProvider interface {
	HighLow(ctx context.Context, station string, start, end time.Time) ([]surf.TideEvent, error)
}

var (
	_ GribSource      = (*GribClient)(nil)
	_ WeatherProvider = (*NWSClient)(nil)
	_ TideProvider    = (*TideClient)(nil)
)

package external

import (
	"context"
	"log/slog"
	"math"
	"time"

	"surfcast/internal/surf"
	"surfcast/internal/types"
)

// Stubs let the services boot in test mode without network access. They log
// every call and return deterministic data.

// StubGribSource reports every tile as not yet published.
type StubGribSource struct {
	logger *slog.Logger
}

// NewStubGribSource creates a StubGribSource.
func NewStubGribSource(logger *slog.Logger) *StubGribSource {
	return &StubGribSource{logger: logger}
}

func (s *StubGribSource) Fetch(ctx context.Context, url string) ([]byte, error) {
	s.logger.DebugContext(ctx, "stub: Fetch called", "url", url)
	return nil, nil
}

// StubWeatherProvider returns two days of light offshore wind.
type StubWeatherProvider struct {
	logger *slog.Logger
	clock  types.Clock
}

// NewStubWeatherProvider creates a StubWeatherProvider.
func NewStubWeatherProvider(logger *slog.Logger) *StubWeatherProvider {
	return &StubWeatherProvider{logger: logger, clock: types.RealClock{}}
}

func (s *StubWeatherProvider) HourlyForecast(ctx context.Context, lat, lon float64) ([]types.WeatherPoint, error) {
	s.logger.InfoContext(ctx, "stub: HourlyForecast called", "lat", lat, "lon", lon)

	start := s.clock.Now().Truncate(time.Hour)
	out := make([]types.WeatherPoint, 48)
	for i := range out {
		temp, speed, dir := 65.0, 5.0, 270.0
		out[i] = types.WeatherPoint{
			Time:           start.Add(time.Duration(i) * time.Hour),
			AirTemperature: &temp,
			WindSpeed:      &speed,
			WindDirection:  &dir,
			ShortForecast:  "Sunny",
		}
	}
	return out, nil
}

func (s *StubWeatherProvider) ActiveAlertHeadline(ctx context.Context, lat, lon float64) (string, error) {
	s.logger.InfoContext(ctx, "stub: ActiveAlertHeadline called", "lat", lat, "lon", lon)
	return "", nil
}

// StubTideProvider returns a semi-diurnal tide with a 1.5 m range.
type StubTideProvider struct {
	logger *slog.Logger
}

// NewStubTideProvider creates a StubTideProvider.
func NewStubTideProvider(logger *slog.Logger) *StubTideProvider {
	return &StubTideProvider{logger: logger}
}

// halfTidalDay is the mean spacing between a high and the following low.
const halfTidalDay = 6*time.Hour + 12*time.Minute

func (s *StubTideProvider) HighLow(ctx context.Context, station string, start, end time.Time) ([]surf.TideEvent, error) {
	s.logger.InfoContext(ctx, "stub: HighLow called", "station", station, "start", start, "end", end)

	n := int(math.Ceil(end.Sub(start).Hours() / halfTidalDay.Hours()))
	out := make([]surf.TideEvent, 0, n+1)
	t := start.Truncate(time.Hour)
	for i := 0; i <= n; i++ {
		e := surf.TideEvent{Time: t, WaterLevel: 0.1, Event: surf.TideLow}
		if i%2 == 0 {
			e.WaterLevel, e.Event = 1.6, surf.TideHigh
		}
		out = append(out, e)
		t = t.Add(halfTidalDay)
	}
	return out, nil
}

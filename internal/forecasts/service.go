// Package forecasts turns NOAA wave model output, NWS weather and CO-OPS
// tide predictions into per-location surf forecasts.
package forecasts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"surfcast/internal/grib"
	"surfcast/internal/surf"
	"surfcast/internal/types"
)

const (
	// FetchConcurrencyLimit bounds concurrent GRIB tile downloads per location.
	FetchConcurrencyLimit = 10
	// TideWindow is how far ahead tide predictions are requested.
	TideWindow = 16 * 24 * time.Hour
	// gribPadding is the half-width in degrees of the subregion requested from NOMADS.
	gribPadding = 1.0
)

// CacheKey is the memoization key for a location's forecast.
func CacheKey(locationID string) string {
	return "ttl-short/forecast/v1/" + locationID
}

// Upstream collaborators.
type (
	RunFinder interface {
		LatestRun(ctx context.Context, m Model, maxHour int) (time.Time, error)
	}
	GribFetcher interface {
		Fetch(ctx context.Context, url string) ([]byte, error)
	}
	WeatherSource interface {
		HourlyForecast(ctx context.Context, lat, lon float64) ([]types.WeatherPoint, error)
		ActiveAlertHeadline(ctx context.Context, lat, lon float64) (string, error)
	}
	TideSource interface {
		HighLow(ctx context.Context, station string, start, end time.Time) ([]surf.TideEvent, error)
	}
	// Memoizer computes a value once per key across concurrent callers and
	// serves it from cache while younger than maxAge.
	Memoizer interface {
		Do(ctx context.Context, key string, maxAge time.Duration, fn func(ctx context.Context) ([]byte, error)) ([]byte, error)
	}
)

// ServiceConfig tunes a forecast run.
type ServiceConfig struct {
	HoursToForecast int
	Resolution      float64
	CacheMaxAge     time.Duration
	GribBaseURL     string
	Concurrency     int
	Policy          Policy
}

// Service runs the forecast pipeline for one location at a time.
type Service struct {
	cfg       ServiceConfig
	runs      RunFinder
	gribs     GribFetcher
	weather   WeatherSource
	tides     TideSource
	memo      Memoizer
	decoder   *grib.Decoder
	assembler *Assembler
	clock     types.Clock
	logger    *slog.Logger
}

// NewService wires a Service. memo may be nil to disable caching.
func NewService(
	cfg ServiceConfig,
	runs RunFinder,
	gribs GribFetcher,
	weather WeatherSource,
	tides TideSource,
	memo Memoizer,
	clock types.Clock,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = types.RealClock{}
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = FetchConcurrencyLimit
	}
	if cfg.Resolution <= 0 {
		cfg.Resolution = grib.DefaultResolution
	}
	return &Service{
		cfg:       cfg,
		runs:      runs,
		gribs:     gribs,
		weather:   weather,
		tides:     tides,
		memo:      memo,
		decoder:   grib.NewDecoder(logger),
		assembler: NewAssembler(cfg.Policy, logger),
		clock:     clock,
		logger:    logger,
	}
}

// Forecast returns the forecast for loc, computing it at most once per
// cache period.
func (s *Service) Forecast(ctx context.Context, loc types.SurfLocation) (*Record, error) {
	if s.memo == nil {
		return s.compute(ctx, loc)
	}

	data, err := s.memo.Do(ctx, CacheKey(loc.ID), s.cfg.CacheMaxAge, func(ctx context.Context) ([]byte, error) {
		rec, err := s.compute(ctx, loc)
		if err != nil {
			return nil, err
		}
		return json.Marshal(rec)
	})
	if err != nil {
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalCache, "cached forecast is corrupt", err)
	}
	return &rec, nil
}

func (s *Service) compute(ctx context.Context, loc types.SurfLocation) (*Record, error) {
	start := s.clock.Now()
	model := SelectModel(loc.Buoy.Lat, loc.Buoy.Lon)

	run, err := s.runs.LatestRun(ctx, model, s.cfg.HoursToForecast)
	if err != nil {
		if run.IsZero() {
			return nil, fmt.Errorf("locating %s run: %w", model.Name, err)
		}
		// Mirrors were unreachable; NOMADS may still serve the estimated run.
		s.logger.WarnContext(ctx, "using estimated model run", "model", model.Name, "run", run, "error", err)
	}

	urls := model.GribURLs(s.cfg.GribBaseURL, run, s.cfg.HoursToForecast, loc.Buoy.Lat, loc.Buoy.Lon, gribPadding)
	windows := s.fetchWindows(ctx, urls, grib.Query{Lat: loc.Buoy.Lat, Lon: loc.Buoy.Lon, Resolution: s.cfg.Resolution})
	series := grib.Aggregate(windows)

	in := AssemblyInput{
		Location:    loc,
		Geometry:    loc.EffectiveGeometry(),
		Model:       model.Description,
		Series:      series,
		GeneratedAt: start,
	}
	if series.Len() > 0 {
		s.gatherAuxiliary(ctx, loc, &in)
	}

	rec := s.assembler.Assemble(in)
	s.logger.InfoContext(ctx, "forecast assembled",
		"location_id", loc.ID,
		"model", model.Name,
		"run", run,
		"tiles", len(urls),
		"hours", series.Len(),
		"state", rec.State,
		"duration_ms", s.clock.Now().Sub(start).Milliseconds(),
	)
	return rec, nil
}

// fetchWindows downloads and decodes every tile in parallel. The result is
// in URL order; tiles that fail to fetch or decode are nil.
func (s *Service) fetchWindows(ctx context.Context, urls []string, q grib.Query) []*grib.TimeWindow {
	windows := make([]*grib.TimeWindow, len(urls))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, u := range urls {
		g.Go(func() error {
			data, err := s.gribs.Fetch(gCtx, u)
			if err != nil {
				s.logger.WarnContext(gCtx, "grib fetch failed", "url", u, "error", err)
				return nil
			}
			if len(data) == 0 {
				return nil
			}
			w, err := s.decoder.Decode(data, q)
			if err != nil {
				s.logger.DebugContext(gCtx, "grib tile had no data", "url", u, "error", err)
				return nil
			}
			windows[i] = w
			return nil
		})
	}
	_ = g.Wait()
	return windows
}

// gatherAuxiliary fetches weather, alerts and tides concurrently. Each
// source degrades to empty on failure.
func (s *Service) gatherAuxiliary(ctx context.Context, loc types.SurfLocation, in *AssemblyInput) {
	var g errgroup.Group

	g.Go(func() error {
		points, err := s.weather.HourlyForecast(ctx, loc.Beach.Lat, loc.Beach.Lon)
		if err != nil {
			s.logger.WarnContext(ctx, "hourly forecast unavailable", "location_id", loc.ID, "error", err)
			return nil
		}
		in.Weather = points
		return nil
	})
	g.Go(func() error {
		headline, err := s.weather.ActiveAlertHeadline(ctx, loc.Beach.Lat, loc.Beach.Lon)
		if err != nil {
			s.logger.WarnContext(ctx, "weather alerts unavailable", "location_id", loc.ID, "error", err)
			return nil
		}
		in.AlertHeadline = headline
		return nil
	})
	g.Go(func() error {
		in.TideEvents = s.tideEvents(ctx, loc)
		return nil
	})
	_ = g.Wait()
}

// tideEvents tries each configured station in order and returns the first
// non-empty prediction set.
func (s *Service) tideEvents(ctx context.Context, loc types.SurfLocation) []surf.TideEvent {
	start := s.clock.Now()
	end := start.Add(TideWindow)
	for _, station := range loc.TideStations {
		events, err := s.tides.HighLow(ctx, station, start, end)
		if err != nil {
			s.logger.WarnContext(ctx, "tide station unavailable", "location_id", loc.ID, "station", station, "error", err)
			continue
		}
		if len(events) > 0 {
			return events
		}
	}
	return nil
}

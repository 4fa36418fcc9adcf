package external

import (
	"log/slog"
	"net/http"

	"surfcast/internal/config"
	"surfcast/internal/types"
)

// ClientRegistry holds the upstream clients. It is the single place the rest
// of the application obtains NOAA access from.
type ClientRegistry struct {
	Gribs   GribSource
	Weather WeatherProvider
	Tides   TideProvider
}

// NewClientRegistry builds the upstream clients. With cfg.IsTestMode set the
// registry holds stubs that never touch the network; otherwise each provider
// gets its own BaseClient so one failing service cannot trip another's
// breaker.
func NewClientRegistry(cfg *config.Config, logger *slog.Logger) *ClientRegistry {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.IsTestMode {
		logger.Info("initializing upstream clients in STUB mode", "environment", cfg.Environment)
		return newStubRegistry(logger.With("mode", "stub"))
	}

	logger.Info("initializing upstream clients",
		"environment", cfg.Environment,
		"nomads_url", cfg.Upstream.NomadsURL,
		"nws_url", cfg.Upstream.WeatherURL,
		"coops_url", cfg.Upstream.TidesURL,
	)

	httpClient := &http.Client{Timeout: cfg.Upstream.HTTPTimeout}
	ua := cfg.Upstream.UserAgent
	policy := DefaultRetryPolicy()

	return &ClientRegistry{
		Gribs: NewGribClient(NewBaseClient(httpClient, "nomads", policy, ua,
			WithUnavailableCode(types.ErrCodeUpstreamForecast))),
		Weather: NewNWSClient(NewBaseClient(httpClient, "nws", policy, ua,
			WithUnavailableCode(types.ErrCodeUpstreamWeather)), cfg.Upstream.WeatherURL),
		Tides: NewTideClient(NewBaseClient(httpClient, "coops", policy, ua,
			WithUnavailableCode(types.ErrCodeUpstreamTides)), cfg.Upstream.TidesURL, cfg.Service),
	}
}

func newStubRegistry(logger *slog.Logger) *ClientRegistry {
	return &ClientRegistry{
		Gribs:   NewStubGribSource(logger),
		Weather: NewStubWeatherProvider(logger),
		Tides:   NewStubTideProvider(logger),
	}
}

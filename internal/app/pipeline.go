// Package app assembles the forecast pipeline from configuration. The
// binaries under cmd/ share it so every entry point wires the same stack.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"surfcast/internal/cache"
	"surfcast/internal/config"
	"surfcast/internal/db"
	"surfcast/internal/external"
	"surfcast/internal/forecasts"
	"surfcast/internal/locations"
	"surfcast/internal/publish"
	"surfcast/internal/queue"
	"surfcast/internal/scheduler"
	"surfcast/internal/telemetry"
	"surfcast/internal/types"
)

// noaaRegion hosts the NOAA open-data buckets.
const noaaRegion = "us-east-1"

// Pipeline holds the wired components.
type Pipeline struct {
	Config    *config.Config
	Catalog   *locations.Catalog
	Service   *forecasts.Service
	Store     db.ForecastStore
	Publisher *publish.S3Publisher  // nil without FORECAST_BUCKET
	Trigger   *queue.RefreshTrigger // nil without SQS_REFRESH
	Metrics   telemetry.PipelineMetrics
	Worker    *scheduler.Worker

	closeStore func()
}

// Close releases the database connection.
func (p *Pipeline) Close() error {
	if p.closeStore != nil {
		p.closeStore()
	}
	return nil
}

// NewLogger returns the JSON stdout logger at level.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// LoadConfig loads the configuration. SSM pointers are resolved outside
// local mode; the provider connects lazily so local runs never touch AWS.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(config.NewSSMProvider(os.Getenv("AWS_REGION")))
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, nil
}

// New wires the pipeline. AWS-backed pieces are only created when their
// resource is configured.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Pipeline, error) {
	catalog, err := locations.LoadFile(cfg.Forecast.LocationCatalog)
	if err != nil {
		return nil, err
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	s3Client := s3.NewFromConfig(awsCfg, withEndpoint(cfg.AWS.EndpointURL))

	store, closeStore, err := db.Open(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	clock := types.RealClock{}
	clients := external.NewClientRegistry(cfg, logger)

	var runs forecasts.RunFinder = forecasts.EstimatedRunFinder{Clock: clock}
	if !cfg.IsTestMode {
		noaa := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.Region = noaaRegion
			o.Credentials = aws.AnonymousCredentials{}
		})
		runs = forecasts.NewRunLocator(noaa, cfg.Upstream.Mirrors, clock, logger)
	}

	var objects cache.ObjectStore = cache.NewMemoryStore(clock)
	if cfg.AWS.CacheBucket != "" {
		objects = cache.NewS3Store(s3Client, cfg.AWS.CacheBucket, clock, logger)
	}

	svc := forecasts.NewService(
		forecasts.ServiceConfig{
			HoursToForecast: cfg.Forecast.HoursToForecast,
			Resolution:      cfg.Forecast.Resolution,
			CacheMaxAge:     cfg.Forecast.CacheMaxAge,
			GribBaseURL:     cfg.Upstream.NomadsURL,
			Concurrency:     cfg.Forecast.FetchConcurrency,
			Policy: forecasts.Policy{
				StrictIncidentAngle: cfg.Feature.StrictIncidentAngle,
				WindAdjustment:      cfg.Feature.EnableWindAdjustment,
				JettyShadowing:      cfg.Feature.EnableJettyShadowing,
				TideStepHours:       cfg.Forecast.TideStepHours,
			},
		},
		runs,
		clients.Gribs,
		clients.Weather,
		clients.Tides,
		cache.NewMemoizer(objects, logger),
		clock,
		logger,
	)

	p := &Pipeline{
		Config:     cfg,
		Catalog:    catalog,
		Service:    svc,
		Store:      store,
		Metrics:    telemetry.NoopMetrics{},
		closeStore: closeStore,
	}

	if cfg.AWS.ForecastBucket != "" {
		p.Publisher = publish.NewS3Publisher(s3Client, cfg.AWS.ForecastBucket, logger)
	}
	if cfg.AWS.RefreshQueue != "" {
		sqsClient := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
			if cfg.AWS.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
			}
		})
		p.Trigger = queue.NewRefreshTrigger(sqsClient, cfg.AWS.RefreshQueue, clock, logger)
	}
	if cfg.Observability.EnableMetrics && !cfg.IsLocal() {
		p.Metrics = telemetry.NewCloudWatchMetrics(cloudwatch.NewFromConfig(awsCfg), cfg.Observability.MetricNamespace, logger)
	}

	var publisher scheduler.RecordPublisher
	if p.Publisher != nil {
		publisher = p.Publisher
	}
	p.Worker = scheduler.NewWorker(catalog, svc, store, publisher, p.Metrics, clock, logger)

	logger.Info("pipeline initialized",
		"locations", catalog.Len(),
		"forecast_bucket", cfg.AWS.ForecastBucket,
		"cache_bucket", cfg.AWS.CacheBucket,
		"refresh_queue", cfg.AWS.RefreshQueue,
		"test_mode", cfg.IsTestMode,
	)
	return p, nil
}

// Refresher builds a Refresher over the pipeline: queued when a refresh
// queue is configured, inline otherwise.
func (p *Pipeline) Refresher(logger *slog.Logger) *scheduler.Refresher {
	var opts []scheduler.RefresherOption
	if p.Trigger != nil {
		opts = append(opts, scheduler.WithQueue(p.Trigger))
	}
	if p.Publisher != nil {
		opts = append(opts, scheduler.WithIndexPublisher(p.Publisher))
	}
	if p.Config.Feature.DevSingleLocation {
		opts = append(opts, scheduler.WithSingleLocation())
	}
	return scheduler.NewRefresher(p.Catalog, p.Worker, logger, opts...)
}

func withEndpoint(endpoint string) func(*s3.Options) {
	return func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}
}

package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"surfcast/internal/db"
	"surfcast/internal/forecasts"
	"surfcast/internal/queue"
	"surfcast/internal/telemetry"
	"surfcast/internal/types"
)

// Forecaster produces a location's forecast.
type Forecaster interface {
	Forecast(ctx context.Context, loc types.SurfLocation) (*forecasts.Record, error)
}

// RecordPublisher uploads a finished forecast.
type RecordPublisher interface {
	Publish(ctx context.Context, rec *forecasts.Record) error
}

// LocationLookup resolves a location ID from a queue message.
type LocationLookup interface {
	Get(id string) (types.SurfLocation, error)
}

// Worker rebuilds, stores and publishes forecasts.
type Worker struct {
	locations  LocationLookup
	forecaster Forecaster
	store      db.ForecastStore
	publisher  RecordPublisher
	metrics    telemetry.PipelineMetrics
	clock      types.Clock
	logger     *slog.Logger
}

// NewWorker wires a Worker. publisher may be nil when no bucket is
// configured; metrics may be nil to disable emission.
func NewWorker(
	locations LocationLookup,
	forecaster Forecaster,
	store db.ForecastStore,
	publisher RecordPublisher,
	metrics telemetry.PipelineMetrics,
	clock types.Clock,
	logger *slog.Logger,
) *Worker {
	if metrics == nil {
		metrics = telemetry.NoopMetrics{}
	}
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		locations:  locations,
		forecaster: forecaster,
		store:      store,
		publisher:  publisher,
		metrics:    metrics,
		clock:      clock,
		logger:     logger,
	}
}

// Process runs the pipeline for loc and persists the result. An empty
// forecast is still stored and published so clients see the outage.
func (w *Worker) Process(ctx context.Context, loc types.SurfLocation) error {
	start := w.clock.Now()
	ctx = types.WithLocationID(ctx, loc.ID)

	rec, err := w.forecaster.Forecast(ctx, loc)
	if err != nil {
		w.metrics.RecordUpstreamFailure(ctx, "forecast")
		return fmt.Errorf("forecasting %s: %w", loc.ID, err)
	}

	doc, err := json.Marshal(rec)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode forecast", err)
	}

	hours := len(rec.HourlyForecast)
	if rec.IsEmpty() {
		hours = 0
	}
	row := db.ForecastRow{
		LocationID:  loc.ID,
		State:       string(rec.State),
		Model:       rec.WaveModel,
		GeneratedAt: rec.GeneratedAt,
		Hours:       hours,
		Document:    doc,
	}
	if err := w.store.Upsert(ctx, row); err != nil {
		return fmt.Errorf("storing %s: %w", loc.ID, err)
	}

	if w.publisher != nil {
		if err := w.publisher.Publish(ctx, rec); err != nil {
			return fmt.Errorf("publishing %s: %w", loc.ID, err)
		}
	}

	latency := w.clock.Now().Sub(start)
	w.metrics.RecordForecast(ctx, rec.WaveModel, rec.State, latency)
	w.logger.InfoContext(ctx, "forecast refreshed",
		"location_id", loc.ID,
		"state", string(rec.State),
		"hours", hours,
		"duration_ms", latency.Milliseconds(),
	)
	return nil
}

// HandleSQS processes a batch of refresh messages. Malformed messages and
// unknown locations are acknowledged and dropped; pipeline failures are
// reported as batch item failures so SQS redelivers only those.
func (w *Worker) HandleSQS(ctx context.Context, sqsEvent events.SQSEvent) (events.SQSEventResponse, error) {
	response := events.SQSEventResponse{}

	for _, record := range sqsEvent.Records {
		msg, err := queue.DecodeRefreshMessage(record.Body)
		if err != nil {
			w.logger.ErrorContext(ctx, "discarding refresh message",
				"message_id", record.MessageId,
				"error", err,
			)
			continue
		}

		loc, err := w.locations.Get(msg.LocationID)
		if err != nil {
			w.logger.ErrorContext(ctx, "refresh message for unknown location",
				"message_id", record.MessageId,
				"location_id", msg.LocationID,
			)
			continue
		}

		msgCtx := types.WithRequestID(ctx, msg.TraceID)
		w.logger.InfoContext(msgCtx, "processing refresh message",
			"message_id", record.MessageId,
			"batch_id", msg.BatchID,
			"trace_id", msg.TraceID,
			"location_id", msg.LocationID,
			"queue_lag_ms", queue.Since(msg, w.clock.Now()).Milliseconds(),
		)

		if err := w.Process(msgCtx, loc); err != nil {
			w.logger.ErrorContext(msgCtx, "failed to process refresh message",
				"message_id", record.MessageId,
				"location_id", msg.LocationID,
				"error", err,
			)
			response.BatchItemFailures = append(response.BatchItemFailures,
				events.SQSBatchItemFailure{ItemIdentifier: record.MessageId},
			)
		}
	}

	return response, nil
}

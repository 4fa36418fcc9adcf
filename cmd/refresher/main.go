// Package main is the entry point for the Refresher Lambda function.
//
// An EventBridge schedule invokes it after each GFS-Wave cycle. It publishes
// the location index and enqueues one refresh message per location for the
// forecast worker. Without a refresh queue every location is processed in
// this process instead.
//
// Local usage:
//
//	echo '{"location_ids":["ocean-city-md"],"reason":"manual"}' | go run ./cmd/refresher
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"surfcast/internal/app"
	"surfcast/internal/scheduler"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	logger := app.NewLogger(cfg.LogLevel)
	logger.Info("refresher initializing", "environment", cfg.Environment, "version", cfg.Build.Version)

	ctx := context.Background()
	pipeline, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing pipeline: %w", err)
	}
	defer pipeline.Close()

	handler := newHandler(pipeline.Refresher(logger), logger)

	if cfg.IsLocal() {
		logger.Info("APP_ENV=local: reading refresh payload from stdin")
		payload, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		res, err := handler(ctx, json.RawMessage(payload))
		if err != nil {
			return err
		}
		return json.NewEncoder(os.Stdout).Encode(res)
	}

	lambda.Start(handler)
	return nil
}

// newHandler accepts the scheduled event or a manual payload. Anything that
// is not a RefreshPayload (the EventBridge envelope) refreshes everything.
func newHandler(r *scheduler.Refresher, logger *slog.Logger) func(context.Context, json.RawMessage) (scheduler.RefreshResult, error) {
	return func(ctx context.Context, raw json.RawMessage) (scheduler.RefreshResult, error) {
		var payload scheduler.RefreshPayload
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &payload); err != nil {
				logger.WarnContext(ctx, "ignoring unrecognized refresh payload", "error", err)
				payload = scheduler.RefreshPayload{}
			}
		}
		return r.RefreshAll(ctx, payload)
	}
}

// Package main is the entry point for the Forecast Worker Lambda function.
//
// It consumes refresh messages from SQS, runs the forecast pipeline for the
// named location, stores the result and publishes it to the forecast bucket.
// Failed messages are reported as partial batch failures and retried by SQS.
//
// Local usage (APP_ENV=local) reads one SQS event from stdin:
//
//	echo '{"Records":[{"messageId":"1","body":"{\"location_id\":\"ocean-city-md\"}"}]}' | go run ./cmd/forecast-worker
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"surfcast/internal/app"
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
	logger.Info("forecast worker initializing", "environment", cfg.Environment, "version", cfg.Build.Version)

	ctx := context.Background()
	pipeline, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing pipeline: %w", err)
	}
	defer pipeline.Close()

	if cfg.IsLocal() {
		logger.Info("APP_ENV=local: reading SQS event from stdin")
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		var event events.SQSEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			return fmt.Errorf("decoding SQS event: %w", err)
		}
		resp, err := pipeline.Worker.HandleSQS(ctx, event)
		if err != nil {
			return err
		}
		if n := len(resp.BatchItemFailures); n > 0 {
			return fmt.Errorf("%d of %d messages failed", n, len(event.Records))
		}
		return nil
	}

	lambda.Start(pipeline.Worker.HandleSQS)
	return nil
}

// Package main is the entry point for the surfcast read API.
//
// It serves the stored forecasts and the location catalog. Locally
// (APP_ENV=local) it listens on the configured port; inside Lambda it serves
// function URL events through the same chi router via chiadapter.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"

	"surfcast/internal/api/handlers"
	"surfcast/internal/app"
	"surfcast/internal/config"
	"surfcast/internal/core"
	"surfcast/internal/telemetry"
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
	logger.Info("surfcast API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	ctx := context.Background()
	pipeline, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing pipeline: %w", err)
	}

	srv, err := buildServer(cfg, pipeline, logger)
	if err != nil {
		return err
	}

	if isLambdaEnvironment() {
		// Function URLs send the 2.0 payload format.
		lambda.Start(chiadapter.NewV2(srv.Router()).ProxyWithContextV2)
		return nil
	}
	return runHTTPServer(srv, cfg, logger)
}

func buildServer(cfg *config.Config, pipeline *app.Pipeline, logger *slog.Logger) (*core.Server, error) {
	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}
	if cfg.Observability.EnableMetrics {
		srv.Metrics = telemetry.NewHTTPMetrics()
	}

	h := handlers.NewForecastHandler(pipeline.Store, pipeline.Catalog, logger)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, h.RegisterRoutes)

	srv.HealthProbes = []core.HealthProbe{
		core.ProbeFunc{ProbeName: "database", Fn: func(ctx context.Context) error {
			_, err := pipeline.Store.List(ctx)
			return err
		}},
		core.ProbeFunc{ProbeName: "catalog", Fn: func(context.Context) error {
			if pipeline.Catalog.Len() == 0 {
				return errors.New("location catalog is empty")
			}
			return nil
		}},
	}
	srv.Closers = append(srv.Closers, pipeline.Close)

	srv.MountRoutes()
	return srv, nil
}

// isLambdaEnvironment reports whether the process runs inside the Lambda runtime.
func isLambdaEnvironment() bool {
	_, hasRuntimeAPI := os.LookupEnv("AWS_LAMBDA_RUNTIME_API")
	_, hasServerPort := os.LookupEnv("_LAMBDA_SERVER_PORT")
	return hasRuntimeAPI || hasServerPort
}

func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// Package telemetry emits pipeline metrics to CloudWatch and serves API
// metrics in Prometheus format.
package telemetry

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"surfcast/internal/forecasts"
	"surfcast/internal/types"
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// PipelineMetrics records the outcome of forecast runs. Implementations
// never fail the caller; emission errors are logged.
type PipelineMetrics interface {
	RecordForecast(ctx context.Context, model string, state forecasts.State, latency time.Duration)
	RecordUpstreamFailure(ctx context.Context, provider string)
}

var (
	_ PipelineMetrics = (*CloudWatchMetrics)(nil)
	_ PipelineMetrics = NoopMetrics{}
)

// CloudWatchMetrics emits:
//   - ForecastReady / ForecastPartial / ForecastEmpty: Dims {Model}
//   - PipelineLatency: Dims {Model}, milliseconds
//   - UpstreamFailure: Dims {Provider}
type CloudWatchMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
}

// NewCloudWatchMetrics publishes to namespace, defaulting to types.MetricNamespace.
func NewCloudWatchMetrics(client CloudWatchClient, namespace string, logger *slog.Logger) *CloudWatchMetrics {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudWatchMetrics{client: client, namespace: namespace, logger: logger}
}

func stateMetric(state forecasts.State) string {
	switch state {
	case forecasts.StateComplete:
		return types.MetricForecastReady
	case forecasts.StatePartial:
		return types.MetricForecastPartial
	default:
		return types.MetricForecastEmpty
	}
}

func (m *CloudWatchMetrics) RecordForecast(ctx context.Context, model string, state forecasts.State, latency time.Duration) {
	dims := []cwtypes.Dimension{{Name: aws.String(types.DimModel), Value: aws.String(model)}}
	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String(stateMetric(state)),
				Value:      aws.Float64(1),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: dims,
			},
			{
				MetricName: aws.String(types.MetricPipelineLatency),
				Value:      aws.Float64(float64(latency.Milliseconds())),
				Unit:       cwtypes.StandardUnitMilliseconds,
				Dimensions: dims,
			},
		},
	})
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to record forecast metric",
			"error", err,
			"model", model,
			"state", string(state),
			"location_id", types.GetLocationID(ctx),
		)
	}
}

func (m *CloudWatchMetrics) RecordUpstreamFailure(ctx context.Context, provider string) {
	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{{
			MetricName: aws.String(types.MetricUpstreamFailure),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: []cwtypes.Dimension{{Name: aws.String(types.DimProvider), Value: aws.String(provider)}},
		}},
	})
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to record upstream failure metric",
			"error", err,
			"provider", provider,
			"location_id", types.GetLocationID(ctx),
		)
	}
}

// NoopMetrics discards everything. Used when metrics are disabled.
type NoopMetrics struct{}

func (NoopMetrics) RecordForecast(context.Context, string, forecasts.State, time.Duration) {}
func (NoopMetrics) RecordUpstreamFailure(context.Context, string)                          {}

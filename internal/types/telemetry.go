package types

// CloudWatch metric names and dimensions emitted by the forecast worker.
const (
	MetricForecastReady   = "ForecastReady"
	MetricForecastEmpty   = "ForecastEmpty"
	MetricForecastPartial = "ForecastPartial"
	MetricPipelineLatency = "PipelineLatency"
	MetricUpstreamFailure = "UpstreamFailure"

	DimModel    = "Model"
	DimProvider = "Provider"

	MetricNamespace = "Surfcast"
)

// Prometheus metric names served by the API on /metrics.
const (
	PromHTTPRequests        = "surfcast_http_requests_total"
	PromHTTPRequestDuration = "surfcast_http_request_duration_seconds"
)

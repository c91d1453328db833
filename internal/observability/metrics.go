package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MetricsCollector manages the service metrics. A zero-value collector is
// valid and records nothing, so callers never need nil checks.
type MetricsCollector struct {
	meter metric.Meter

	// HTTP surface
	httpRequests metric.Int64Counter
	httpDuration metric.Float64Histogram

	// Solver runs
	solverRuns    metric.Int64Counter
	solverLatency metric.Float64Histogram

	// Tool calls made on behalf of the agent
	toolExecutions metric.Int64Counter
}

// NewMetricsCollector wires an otel meter backed by the Prometheus exporter.
func NewMetricsCollector(enabled bool) (*MetricsCollector, error) {
	if !enabled {
		return &MetricsCollector{}, nil
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(provider)

	meter := provider.Meter("quizd")

	httpRequests, err := meter.Int64Counter(
		"quizd.http.requests.total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_requests counter: %w", err)
	}

	httpDuration, err := meter.Float64Histogram(
		"quizd.http.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_duration histogram: %w", err)
	}

	solverRuns, err := meter.Int64Counter(
		"quizd.solver.runs.total",
		metric.WithDescription("Total number of quiz solver runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create solver_runs counter: %w", err)
	}

	solverLatency, err := meter.Float64Histogram(
		"quizd.solver.latency",
		metric.WithDescription("Quiz solver run latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create solver_latency histogram: %w", err)
	}

	toolExecutions, err := meter.Int64Counter(
		"quizd.tool.executions.total",
		metric.WithDescription("Total number of tool executions"),
		metric.WithUnit("{execution}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create tool_executions counter: %w", err)
	}

	return &MetricsCollector{
		meter:          meter,
		httpRequests:   httpRequests,
		httpDuration:   httpDuration,
		solverRuns:     solverRuns,
		solverLatency:  solverLatency,
		toolExecutions: toolExecutions,
	}, nil
}

// Handler exposes the Prometheus scrape endpoint.
func (m *MetricsCollector) Handler() http.Handler {
	return promclient.Handler()
}

// RecordHTTPRequest records one handled request.
func (m *MetricsCollector) RecordHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	if m == nil || m.httpRequests == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status", status),
	}

	m.httpRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordSolverRun records one quiz solver invocation.
func (m *MetricsCollector) RecordSolverRun(ctx context.Context, status string, duration time.Duration) {
	if m == nil || m.solverRuns == nil {
		return
	}

	attrs := []attribute.KeyValue{attribute.String("status", status)}
	m.solverRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.solverLatency.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordToolExecution records one tool call.
func (m *MetricsCollector) RecordToolExecution(ctx context.Context, toolName, status string) {
	if m == nil || m.toolExecutions == nil {
		return
	}
	m.toolExecutions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool_name", toolName),
		attribute.String("status", status),
	))
}

package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/ocobra/meeting-minutes-sub000/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "dev",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the diarization pipeline's instruments. A nil *Metrics
// records nothing.
type Metrics struct {
	jobsTotal       metric.Int64Counter
	jobsActive      metric.Int64UpDownCounter
	stageDuration   metric.Float64Histogram
	fallbacksTotal  metric.Int64Counter
	retriesTotal    metric.Int64Counter
	routerDecisions metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	jobsTotal, err := meter.Int64Counter("diarization.jobs.total",
		metric.WithDescription("Diarization jobs by final status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating diarization.jobs.total counter: %w", err)
	}

	jobsActive, err := meter.Int64UpDownCounter("diarization.jobs.active",
		metric.WithDescription("Diarization jobs currently running"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating diarization.jobs.active gauge: %w", err)
	}

	stageDuration, err := meter.Float64Histogram("diarization.stage.duration",
		metric.WithDescription("Duration of pipeline stages in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating diarization.stage.duration histogram: %w", err)
	}

	fallbacksTotal, err := meter.Int64Counter("diarization.fallbacks.total",
		metric.WithDescription("Fallbacks taken by stage and action"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating diarization.fallbacks.total counter: %w", err)
	}

	retriesTotal, err := meter.Int64Counter("diarization.retries.total",
		metric.WithDescription("Backend call retries by stage and backend"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating diarization.retries.total counter: %w", err)
	}

	routerDecisions, err := meter.Int64Counter("diarization.router.decisions",
		metric.WithDescription("Backend routing decisions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating diarization.router.decisions counter: %w", err)
	}

	return &Metrics{
		jobsTotal:       jobsTotal,
		jobsActive:      jobsActive,
		stageDuration:   stageDuration,
		fallbacksTotal:  fallbacksTotal,
		retriesTotal:    retriesTotal,
		routerDecisions: routerDecisions,
	}, nil
}

// NopMetrics returns instruments backed by the no-op meter.
func NopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter("nop"))
	return m
}

// RecordJobStart increments the active job count.
func (m *Metrics) RecordJobStart(ctx context.Context) {
	if m == nil {
		return
	}
	m.jobsActive.Add(ctx, 1)
}

// RecordJobEnd decrements active jobs and counts the finished job.
func (m *Metrics) RecordJobEnd(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.jobsActive.Add(ctx, -1)
	m.jobsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrStatus, status)))
}

// RecordStage records a pipeline stage execution.
func (m *Metrics) RecordStage(ctx context.Context, stage, backend, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(AttrStage, stage),
		attribute.String(AttrBackend, backend),
		attribute.String(AttrStatus, status),
	))
}

// RecordFallback counts a fallback.
func (m *Metrics) RecordFallback(ctx context.Context, stage, action string) {
	if m == nil {
		return
	}
	m.fallbacksTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrStage, stage),
		attribute.String(AttrAction, action),
	))
}

// RecordRetry counts a retried backend call.
func (m *Metrics) RecordRetry(ctx context.Context, stage, backend string) {
	if m == nil {
		return
	}
	m.retriesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrStage, stage),
		attribute.String(AttrBackend, backend),
	))
}

// RecordRouterDecision counts a routing decision.
func (m *Metrics) RecordRouterDecision(ctx context.Context, capability, backend, reason string) {
	if m == nil {
		return
	}
	m.routerDecisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrCapability, capability),
		attribute.String(AttrBackend, backend),
		attribute.String(AttrReason, reason),
	))
}

package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/streamkit/logger"
	"github.com/kbukum/streamkit/sse"
)

type MeterConfig struct {
	Exporter
	// Interval between periodic exports. Zero keeps the SDK default.
	Interval time.Duration
}

func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{Exporter: defaultExporter(serviceName), Interval: 15 * time.Second}
}

// InitMeter installs a global meter provider exporting over OTLP HTTP.
// The provider must be shut down on exit.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("metric exporter: %w", err)
	}
	res, err := config.resource()
	if err != nil {
		return nil, fmt.Errorf("metric resource: %w", err)
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

	logger.Info("metrics enabled", logger.Fields(
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

// StreamMetrics records event stream activity. It implements sse.Metrics.
type StreamMetrics struct {
	active     metric.Int64UpDownCounter
	streams    metric.Int64Counter
	duration   metric.Float64Histogram
	events     metric.Int64Counter
	keepAlives metric.Int64Counter
	failures   metric.Int64Counter
}

var _ sse.Metrics = (*StreamMetrics)(nil)

// NewStreamMetrics creates the stream instruments on meter.
func NewStreamMetrics(meter metric.Meter) (*StreamMetrics, error) {
	active, err := meter.Int64UpDownCounter("sse.streams.active",
		metric.WithDescription("Number of streams currently running"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sse.streams.active gauge: %w", err)
	}

	streams, err := meter.Int64Counter("sse.streams.total",
		metric.WithDescription("Finished streams by stop reason"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sse.streams.total counter: %w", err)
	}

	duration, err := meter.Float64Histogram("sse.stream.duration",
		metric.WithDescription("Lifetime of streams in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sse.stream.duration histogram: %w", err)
	}

	events, err := meter.Int64Counter("sse.events.sent",
		metric.WithDescription("Data events written to clients"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sse.events.sent counter: %w", err)
	}

	keepAlives, err := meter.Int64Counter("sse.keepalives.sent",
		metric.WithDescription("Keep-alive comments written to clients"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sse.keepalives.sent counter: %w", err)
	}

	failures, err := meter.Int64Counter("sse.producer.failures",
		metric.WithDescription("Producer errors that ended a stream"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sse.producer.failures counter: %w", err)
	}

	return &StreamMetrics{
		active:     active,
		streams:    streams,
		duration:   duration,
		events:     events,
		keepAlives: keepAlives,
		failures:   failures,
	}, nil
}

func (m *StreamMetrics) StreamStarted(ctx context.Context) {
	m.active.Add(ctx, 1)
}

func (m *StreamMetrics) StreamStopped(ctx context.Context, reason string, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String(AttrStopReason, reason))
	m.active.Add(ctx, -1)
	m.streams.Add(ctx, 1, attrs)
	m.duration.Record(ctx, d.Seconds(), attrs)
}

func (m *StreamMetrics) EventSent(ctx context.Context, event string, typ sse.Type) {
	m.events.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrEvent, event),
		attribute.String(AttrEventType, string(typ)),
	))
}

func (m *StreamMetrics) KeepAliveSent(ctx context.Context) {
	m.keepAlives.Add(ctx, 1)
}

func (m *StreamMetrics) ProducerFailed(ctx context.Context, event string) {
	m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrEvent, event)))
}

// Attribute keys on stream instruments.
const (
	AttrEvent      = "sse.event"
	AttrEventType  = "sse.event_type"
	AttrStopReason = "sse.stop_reason"
)

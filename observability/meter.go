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

	"github.com/kbukum/streamkit/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
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

// StreamMetrics holds the instruments recorded by transforms and their
// queuing primitives. A nil *StreamMetrics records nothing.
type StreamMetrics struct {
	chunksWritten           metric.Int64Counter
	chunksEnqueued          metric.Int64Counter
	backpressureTransitions metric.Int64Counter
	writesSuspended         metric.Int64UpDownCounter
	algorithmDuration       metric.Float64Histogram
	terminal                metric.Int64Counter
}

// NewStreamMetrics creates metric instruments on the given meter.
func NewStreamMetrics(meter metric.Meter) (*StreamMetrics, error) {
	chunksWritten, err := meter.Int64Counter("stream.chunks.written",
		metric.WithDescription("Chunks accepted by the writable side"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stream.chunks.written counter: %w", err)
	}

	chunksEnqueued, err := meter.Int64Counter("stream.chunks.enqueued",
		metric.WithDescription("Chunks enqueued on the readable side"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stream.chunks.enqueued counter: %w", err)
	}

	backpressureTransitions, err := meter.Int64Counter("stream.backpressure.transitions",
		metric.WithDescription("Backpressure flips, by new value"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stream.backpressure.transitions counter: %w", err)
	}

	writesSuspended, err := meter.Int64UpDownCounter("stream.writes.suspended",
		metric.WithDescription("Writes currently waiting for backpressure to clear"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stream.writes.suspended gauge: %w", err)
	}

	algorithmDuration, err := meter.Float64Histogram("stream.algorithm.duration",
		metric.WithDescription("Duration of user algorithms in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stream.algorithm.duration histogram: %w", err)
	}

	terminal, err := meter.Int64Counter("stream.terminal",
		metric.WithDescription("Streams that reached a terminal state, by state"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stream.terminal counter: %w", err)
	}

	return &StreamMetrics{
		chunksWritten:           chunksWritten,
		chunksEnqueued:          chunksEnqueued,
		backpressureTransitions: backpressureTransitions,
		writesSuspended:         writesSuspended,
		algorithmDuration:       algorithmDuration,
		terminal:                terminal,
	}, nil
}

// DefaultStreamMetrics builds StreamMetrics on the global meter provider,
// falling back to no-op instruments if the provider rejects them.
func DefaultStreamMetrics() *StreamMetrics {
	m, err := NewStreamMetrics(Meter(InstrumentationName))
	if err != nil {
		logger.Warn("stream metrics disabled", logger.ErrorFields("metrics", err))
		m, _ = NewStreamMetrics(noop.NewMeterProvider().Meter(InstrumentationName))
	}
	return m
}

func streamAttrs(stream string, extra ...attribute.KeyValue) metric.MeasurementOption {
	return metric.WithAttributes(append([]attribute.KeyValue{attribute.String(AttrStreamName, stream)}, extra...)...)
}

// RecordWrite counts a chunk accepted by a writable.
func (m *StreamMetrics) RecordWrite(ctx context.Context, stream string) {
	if m == nil {
		return
	}
	m.chunksWritten.Add(ctx, 1, streamAttrs(stream))
}

// RecordEnqueue counts a chunk enqueued on a readable.
func (m *StreamMetrics) RecordEnqueue(ctx context.Context, stream string) {
	if m == nil {
		return
	}
	m.chunksEnqueued.Add(ctx, 1, streamAttrs(stream))
}

// RecordBackpressure counts a backpressure flip to value.
func (m *StreamMetrics) RecordBackpressure(ctx context.Context, stream string, value bool) {
	if m == nil {
		return
	}
	m.backpressureTransitions.Add(ctx, 1, streamAttrs(stream, attribute.Bool("backpressure", value)))
}

// RecordSuspend adjusts the number of writes waiting on backpressure.
func (m *StreamMetrics) RecordSuspend(ctx context.Context, stream string, delta int64) {
	if m == nil {
		return
	}
	m.writesSuspended.Add(ctx, delta, streamAttrs(stream))
}

// RecordAlgorithm records a finished user algorithm.
func (m *StreamMetrics) RecordAlgorithm(ctx context.Context, stream, algorithm string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.algorithmDuration.Record(ctx, duration.Seconds(), streamAttrs(stream,
		attribute.String(AttrAlgorithm, algorithm),
		attribute.String(AttrStatus, status),
	))
}

// RecordTerminal counts a stream reaching a terminal state.
func (m *StreamMetrics) RecordTerminal(ctx context.Context, stream, state string) {
	if m == nil {
		return
	}
	m.terminal.Add(ctx, 1, streamAttrs(stream, attribute.String(AttrState, state)))
}

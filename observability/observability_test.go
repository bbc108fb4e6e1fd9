package observability

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestDefaultTracerConfig(t *testing.T) {
	cfg := DefaultTracerConfig("test-service")

	if cfg.ServiceName != "test-service" {
		t.Errorf("expected ServiceName 'test-service', got %s", cfg.ServiceName)
	}
	if cfg.Endpoint != "localhost:4318" {
		t.Errorf("expected Endpoint 'localhost:4318', got %s", cfg.Endpoint)
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("expected SampleRate 1.0, got %f", cfg.SampleRate)
	}
	if !cfg.Insecure {
		t.Error("expected Insecure to be true")
	}
}

func TestDefaultMeterConfig(t *testing.T) {
	cfg := DefaultMeterConfig("test-service")

	if cfg.ServiceName != "test-service" {
		t.Errorf("expected ServiceName 'test-service', got %s", cfg.ServiceName)
	}
	if cfg.Interval != 15*time.Second {
		t.Errorf("expected Interval 15s, got %v", cfg.Interval)
	}
}

func TestNewResource(t *testing.T) {
	res, err := newResource("svc", "1.2.3", "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, kv := range res.Attributes() {
		if string(kv.Key) == "service.name" && kv.Value.AsString() == "svc" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected service.name=svc in %v", res.Attributes())
	}
}

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{0.5, "TraceIDRatioBased{0.5}"},
	}
	for _, tc := range tests {
		if got := samplerFor(tc.rate).Description(); got != tc.want {
			t.Errorf("samplerFor(%v) = %q, want %q", tc.rate, got, tc.want)
		}
	}
}

func TestStreamMetrics_NoopMeter(t *testing.T) {
	metrics, err := NewStreamMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error creating metrics: %v", err)
	}

	ctx := context.Background()
	metrics.RecordWrite(ctx, "s")
	metrics.RecordEnqueue(ctx, "s")
	metrics.RecordBackpressure(ctx, "s", true)
	metrics.RecordSuspend(ctx, "s", 1)
	metrics.RecordAlgorithm(ctx, "s", "transform", time.Millisecond, nil)
	metrics.RecordTerminal(ctx, "s", "closed")
}

func TestStreamMetrics_NilIsSafe(t *testing.T) {
	var metrics *StreamMetrics
	ctx := context.Background()
	// Should not panic
	metrics.RecordWrite(ctx, "s")
	metrics.RecordEnqueue(ctx, "s")
	metrics.RecordBackpressure(ctx, "s", false)
	metrics.RecordSuspend(ctx, "s", -1)
	metrics.RecordAlgorithm(ctx, "s", "flush", 0, fmt.Errorf("x"))
	metrics.RecordTerminal(ctx, "s", "errored")
}

func TestStreamMetrics_Recorded(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	metrics, err := NewStreamMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	metrics.RecordWrite(ctx, "upper")
	metrics.RecordWrite(ctx, "upper")
	metrics.RecordEnqueue(ctx, "upper")
	metrics.RecordAlgorithm(ctx, "upper", "transform", 2*time.Millisecond, nil)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect failed: %v", err)
	}

	sums := map[string]int64{}
	histograms := map[string]uint64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					histograms[m.Name] += dp.Count
				}
			}
		}
	}

	if sums["stream.chunks.written"] != 2 {
		t.Errorf("expected 2 written chunks, got %d", sums["stream.chunks.written"])
	}
	if sums["stream.chunks.enqueued"] != 1 {
		t.Errorf("expected 1 enqueued chunk, got %d", sums["stream.chunks.enqueued"])
	}
	if histograms["stream.algorithm.duration"] != 1 {
		t.Errorf("expected 1 algorithm sample, got %d", histograms["stream.algorithm.duration"])
	}
}

func TestDefaultStreamMetrics(t *testing.T) {
	if DefaultStreamMetrics() == nil {
		t.Fatal("expected non-nil default metrics")
	}
}

func TestMeter(t *testing.T) {
	if Meter("test-meter") == nil {
		t.Fatal("expected non-nil meter")
	}
}

func TestStartSpan(t *testing.T) {
	ctx, span := StartSpan(context.Background(), SpanTransform)
	defer span.End()

	if span == nil {
		t.Fatal("expected non-nil span")
	}
	if SpanFromContext(ctx) == nil {
		t.Fatal("expected non-nil span from context")
	}
}

func withRecorder(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return exporter
}

func TestSetSpanAttribute(t *testing.T) {
	exporter := withRecorder(t)

	ctx, span := StartSpan(context.Background(), "test-attrs")
	SetSpanAttribute(ctx, AttrStreamName, "upper")
	SetSpanAttribute(ctx, "int-key", 42)
	SetSpanAttribute(ctx, "int64-key", int64(100))
	SetSpanAttribute(ctx, "float-key", 3.14)
	SetSpanAttribute(ctx, "bool-key", true)
	// Unsupported type - ignored
	SetSpanAttribute(ctx, "unsupported-key", struct{}{})
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if got := len(spans[0].Attributes); got != 5 {
		t.Errorf("expected 5 attributes, got %d", got)
	}
}

func TestSetSpanAttributeNoSpan(t *testing.T) {
	// With background context (no recording span), should not panic
	SetSpanAttribute(context.Background(), "key", "value")
}

func TestSetSpanError(t *testing.T) {
	exporter := withRecorder(t)

	ctx, span := StartSpan(context.Background(), "test-error")
	SetSpanError(ctx, fmt.Errorf("test error"))
	SetSpanError(ctx, nil)
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("expected error status, got %v", spans[0].Status.Code)
	}
	if len(spans[0].Events) != 1 {
		t.Errorf("expected 1 recorded error event, got %d", len(spans[0].Events))
	}
}

func TestSetSpanErrorNoSpan(t *testing.T) {
	// Should not panic with background context
	SetSpanError(context.Background(), fmt.Errorf("no span error"))
}

func TestInitTracer(t *testing.T) {
	cfg := DefaultTracerConfig("test-service")

	tp, err := InitTracer(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("InitTracer failed: %v", err)
	}
	defer func() {
		otel.SetTracerProvider(sdktrace.NewTracerProvider())
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		_ = tp.Shutdown(ctx)
	}()
}

func TestInitMeter(t *testing.T) {
	cfg := DefaultMeterConfig("test-service")
	cfg.Interval = 0

	mp, err := InitMeter(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("InitMeter failed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = mp.Shutdown(ctx)
}

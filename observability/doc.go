// Package observability provides OpenTelemetry tracing and metrics for
// streamkit transforms.
//
// Tracing:
//
//	cfg := observability.DefaultTracerConfig("my-service")
//	tp, err := observability.InitTracer(ctx, &cfg)
//	defer tp.Shutdown(ctx)
//
// Metrics:
//
//	cfg := observability.DefaultMeterConfig("my-service")
//	mp, err := observability.InitMeter(ctx, &cfg)
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewStreamMetrics(observability.Meter("my-service"))
//	t, err := stream.New(ctx, transformer, nil, nil, stream.WithMetrics(metrics))
package observability

// Package observability wires OpenTelemetry tracing and metrics for
// streamkit services.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, cfg.TracerConfig("sseld", version, env))
//	defer tp.Shutdown(ctx)
//
// Stream metrics:
//
//	mp, err := observability.InitMeter(ctx, cfg.MeterConfig("sseld", version, env))
//	defer mp.Shutdown(ctx)
//
//	m, err := observability.NewStreamMetrics(observability.Meter("sseld"))
//	h, err := sse.NewHandler(sseCfg, sse.HandlerOptions{Metrics: m})
//
// Health:
//
//	health := observability.NewServiceHealth("sseld", version)
//	for _, h := range registry.HealthAll(ctx) {
//		health.AddComponent(h)
//	}
package observability

// Package observability wires OpenTelemetry tracing and metrics into the
// request pipeline.
//
// Setup installs OTLP HTTP exporters when telemetry is enabled:
//
//	shutdown, err := observability.Setup(ctx, cfg.Telemetry, "billing-api", version.Version, "prod")
//	defer shutdown(ctx)
//
// The client starts a span per physical request and records response
// counters through Metrics:
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanRequest)
//	defer span.End()
//
//	metrics, err := observability.NewMetrics(observability.Meter("tapioca"))
//	metrics.RecordResponse(ctx, "GET", "success", 200, elapsed)
package observability

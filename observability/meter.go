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

	"github.com/kbukum/tapioca/logger"
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

// InitMeter initializes the OpenTelemetry meter provider and installs it
// globally. The provider should be shut down on application exit.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
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

	var readerOpts []sdkmetric.PeriodicReaderOption
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

// Metrics holds the instruments recorded by the request pipeline.
type Metrics struct {
	responses metric.Int64Counter
	duration  metric.Float64Histogram
	retries   metric.Int64Counter
	refreshes metric.Int64Counter
}

// NewMetrics creates the pipeline instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	responses, err := meter.Int64Counter("tapioca.responses",
		metric.WithDescription("Responses received, by classification"),
		metric.WithUnit("{response}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating responses counter: %w", err)
	}

	duration, err := meter.Float64Histogram("tapioca.request.duration",
		metric.WithDescription("Physical request duration"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	retries, err := meter.Int64Counter("tapioca.retries",
		metric.WithDescription("Requests sent again after a retry decision"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating retries counter: %w", err)
	}

	refreshes, err := meter.Int64Counter("tapioca.auth.refreshes",
		metric.WithDescription("Authentication refreshes, by outcome"),
		metric.WithUnit("{refresh}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating refreshes counter: %w", err)
	}

	return &Metrics{
		responses: responses,
		duration:  duration,
		retries:   retries,
		refreshes: refreshes,
	}, nil
}

// RecordResponse counts one classified response and records its duration.
// kind is "success" or the failure kind; statusCode is 0 when no response
// was received.
func (m *Metrics) RecordResponse(ctx context.Context, method, kind string, statusCode int, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(AttrMethod, method),
		attribute.String(AttrKind, kind),
		attribute.Int(AttrStatusCode, statusCode),
	)
	m.responses.Add(ctx, 1, attrs)
	m.duration.Record(ctx, float64(d.Microseconds())/1000.0, attrs)
}

// RecordRetry counts one retry.
func (m *Metrics) RecordRetry(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.retries.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrKind, kind)))
}

// RecordRefresh counts one authentication refresh attempt.
func (m *Metrics) RecordRefresh(ctx context.Context, ok bool) {
	if m == nil {
		return
	}
	m.refreshes.Add(ctx, 1, metric.WithAttributes(attribute.Bool("refreshed", ok)))
}

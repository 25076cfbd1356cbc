package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

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
}

func TestDefaultMeterConfig(t *testing.T) {
	cfg := DefaultMeterConfig("test-service")
	if cfg.Interval != 15*time.Second {
		t.Errorf("expected Interval 15s, got %v", cfg.Interval)
	}
}

func TestStartSpanAttributes(t *testing.T) {
	rec := withRecorder(t)

	ctx, span := StartSpan(context.Background(), SpanRequest)
	SetSpanAttribute(ctx, AttrMethod, "GET")
	SetSpanAttribute(ctx, AttrStatusCode, 404)
	SetSpanAttribute(ctx, AttrAttempt, int64(2))
	SetSpanAttribute(ctx, "ratio", 0.5)
	SetSpanAttribute(ctx, "cached", true)
	SetSpanAttribute(ctx, "tags", []string{"a", "b"})
	SetSpanAttribute(ctx, "ignored", struct{}{})
	span.End()

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if s.Name() != SpanRequest {
		t.Errorf("expected span %q, got %q", SpanRequest, s.Name())
	}
	if v, ok := attrValue(s.Attributes(), AttrMethod); !ok || v.AsString() != "GET" {
		t.Errorf("method attribute = %v", v)
	}
	if v, ok := attrValue(s.Attributes(), AttrStatusCode); !ok || v.AsInt64() != 404 {
		t.Errorf("status attribute = %v", v)
	}
	if v, ok := attrValue(s.Attributes(), AttrAttempt); !ok || v.AsInt64() != 2 {
		t.Errorf("attempt attribute = %v", v)
	}
	if _, ok := attrValue(s.Attributes(), "ignored"); ok {
		t.Error("unsupported value type should be ignored")
	}
	if len(s.Attributes()) != 6 {
		t.Errorf("expected 6 attributes, got %d", len(s.Attributes()))
	}
	if s.InstrumentationScope().Name != defaultTracerName {
		t.Errorf("expected tracer %q, got %q", defaultTracerName, s.InstrumentationScope().Name)
	}
}

func TestSetSpanError(t *testing.T) {
	rec := withRecorder(t)

	ctx, span := StartSpan(context.Background(), SpanCall)
	SetSpanError(ctx, nil)
	SetSpanError(ctx, errors.New("boom"))
	span.End()

	s := rec.Ended()[0]
	if s.Status().Code != codes.Error || s.Status().Description != "boom" {
		t.Errorf("unexpected status %+v", s.Status())
	}
	if len(s.Events()) != 1 || s.Events()[0].Name != "exception" {
		t.Errorf("expected one exception event, got %+v", s.Events())
	}
}

func TestSpanHelpersWithoutSpan(t *testing.T) {
	ctx := context.Background()
	// Must not panic on the non-recording span.
	SetSpanAttribute(ctx, "k", "v")
	SetSpanError(ctx, errors.New("boom"))
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{2.0, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
	}
	for _, tc := range tests {
		if got := sampler(tc.rate).Description(); got != tc.want {
			t.Errorf("sampler(%v) = %q, want %q", tc.rate, got, tc.want)
		}
	}
	if got := sampler(0.5).Description(); got == "AlwaysOnSampler" || got == "AlwaysOffSampler" {
		t.Errorf("sampler(0.5) = %q, want ratio based", got)
	}
}

func TestNewResource(t *testing.T) {
	res, err := newResource("svc", "1.2.3", "test")
	if err != nil {
		t.Fatalf("newResource: %v", err)
	}
	v, ok := res.Set().Value(AttrServiceName)
	if !ok || v.AsString() != "svc" {
		t.Errorf("service.name = %v", v)
	}
}

func TestMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	ctx := context.Background()
	m.RecordResponse(ctx, "GET", "success", 200, 5*time.Millisecond)
	m.RecordResponse(ctx, "GET", "success", 200, 7*time.Millisecond)
	m.RecordResponse(ctx, "GET", "ServerError", 503, time.Millisecond)
	m.RecordRetry(ctx, "ServerError")
	m.RecordRefresh(ctx, true)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	sums := map[string]int64{}
	var histograms int
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			switch data := md.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					sums[md.Name] += dp.Value
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					histograms += int(dp.Count)
				}
			}
		}
	}

	if sums["tapioca.responses"] != 3 {
		t.Errorf("expected 3 responses, got %d", sums["tapioca.responses"])
	}
	if sums["tapioca.retries"] != 1 {
		t.Errorf("expected 1 retry, got %d", sums["tapioca.retries"])
	}
	if sums["tapioca.auth.refreshes"] != 1 {
		t.Errorf("expected 1 refresh, got %d", sums["tapioca.auth.refreshes"])
	}
	if histograms != 3 {
		t.Errorf("expected 3 duration samples, got %d", histograms)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordResponse(ctx, "GET", "success", 200, time.Millisecond)
	m.RecordRetry(ctx, "ServerError")
	m.RecordRefresh(ctx, false)
}

func TestConfig(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Endpoint != "localhost:4318" || cfg.MetricInterval != 15*time.Second {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if err := (&Config{SampleRate: 1.5}).Validate(); err == nil {
		t.Error("expected error for sample rate above 1")
	}
	if err := (&Config{SampleRate: 0.25}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSetupDisabled(t *testing.T) {
	prev := otel.GetTracerProvider()
	shutdown, err := Setup(context.Background(), Config{}, "svc", "1.0.0", "test")
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
	if otel.GetTracerProvider() != prev {
		t.Error("disabled setup must not replace the tracer provider")
	}
}

func TestSetupInvalid(t *testing.T) {
	_, err := Setup(context.Background(), Config{Enabled: true, SampleRate: -0.5}, "svc", "1.0.0", "test")
	if err == nil {
		t.Fatal("expected validation error")
	}
}

package observability

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentation = "projectboard"

// Tracer starts every board span. It points at the global no-op provider until
// SetupTracing installs a real one.
var Tracer trace.Tracer = otel.Tracer(instrumentation)

// TraceSettings selects where board spans go.
type TraceSettings struct {
	Enabled     bool
	Exporter    string // stdout | otlp
	Endpoint    string
	Environment string
	Version     string
	SampleRatio float64
}

func noopShutdown(context.Context) error { return nil }

// SetupTracing installs a tracer provider for settings and returns its shutdown hook.
// Disabled tracing leaves the no-op provider in place.
func SetupTracing(ctx context.Context, s TraceSettings) (func(context.Context) error, error) {
	if !s.Enabled {
		return noopShutdown, nil
	}

	exporter, err := newExporter(ctx, s)
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(instrumentation),
		semconv.ServiceVersion(s.Version),
		semconv.DeploymentEnvironment(s.Environment),
	))
	if err != nil {
		return nil, fmt.Errorf("trace resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(samplerFor(s.SampleRatio)),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	Tracer = provider.Tracer(instrumentation)
	return provider.Shutdown, nil
}

func newExporter(ctx context.Context, s TraceSettings) (sdktrace.SpanExporter, error) {
	switch strings.ToLower(s.Exporter) {
	case "otlp":
		return otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(s.Endpoint), otlptracehttp.WithInsecure())
	case "", "stdout":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", s.Exporter)
	}
}

// samplerFor samples everything at ratio >= 1 or <= 0 (unset), otherwise a parent-based share.
func samplerFor(ratio float64) sdktrace.Sampler {
	if ratio <= 0 || ratio >= 1 {
		return sdktrace.AlwaysSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}

// Span is an internal span around one board operation.
type Span struct {
	span trace.Span
}

// StartSpan opens an internal span named op.
func StartSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, *Span) {
	ctx, span := Tracer.Start(ctx, op, trace.WithSpanKind(trace.SpanKindInternal), trace.WithAttributes(attrs...))
	return ctx, &Span{span: span}
}

// Board tags the span with the board it touched.
func (s *Span) Board(id uint) {
	s.span.SetAttributes(attribute.Int64("board.id", int64(id)))
}

// Set adds arbitrary attributes.
func (s *Span) Set(attrs ...attribute.KeyValue) {
	s.span.SetAttributes(attrs...)
}

// Fail marks the span failed. A nil error is ignored.
func (s *Span) Fail(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// End finishes the span.
func (s *Span) End() {
	s.span.End()
}

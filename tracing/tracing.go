// Package tracing wires OpenTelemetry spans around creditstream
// sessions: one span per session, with a child span around each
// worker's Generate call, exported via OTLP/gRPC in production or to
// stdout for local debugging.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/trace"
)

// Exporter selects which span exporter NewProvider wires up.
type Exporter string

const (
	// ExporterStdout writes spans to stdout as indented JSON; useful for
	// local development and tests.
	ExporterStdout Exporter = "stdout"
	// ExporterOTLPGRPC ships spans to a collector over OTLP/gRPC.
	ExporterOTLPGRPC Exporter = "otlp-grpc"
)

// NewProvider builds and registers a TracerProvider as the global
// provider, returning a shutdown func the caller must invoke on exit.
func NewProvider(ctx context.Context, serviceName string, exp Exporter) (shutdown func(context.Context) error, err error) {
	var spanExporter sdktrace.SpanExporter

	switch exp {
	case ExporterOTLPGRPC:
		spanExporter, err = otlptracegrpc.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("tracing: build otlp exporter: %w", err)
		}
	case ExporterStdout, "":
		spanExporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("tracing: build stdout exporter: %w", err)
		}
	default:
		return nil, fmt.Errorf("tracing: unknown exporter %q", exp)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing: build resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spanExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// tracer is the package-level tracer used by the session/worker span
// helpers below.
var tracer = otel.Tracer("github.com/kenneth/creditstream")

// StartSession starts the top-level span for one stream session.
func StartSession(ctx context.Context, sessionID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "creditstream.session", trace.WithAttributes(
		attribute.String("creditstream.session_id", sessionID),
	))
}

// StartWorkerGenerate starts a child span around one worker's Generate
// call; the caller must End it when Generate returns.
func StartWorkerGenerate(ctx context.Context, sessionID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "creditstream.worker.generate", trace.WithAttributes(
		attribute.String("creditstream.session_id", sessionID),
	))
}

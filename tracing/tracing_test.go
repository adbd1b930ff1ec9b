package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartSessionAndWorkerGenerateProduceChildSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prevTracer := tracer
	tracer = tp.Tracer("test")
	defer func() { tracer = prevTracer }()

	ctx, sessionSpan := StartSession(context.Background(), "sess-1")
	_, workerSpan := StartWorkerGenerate(ctx, "sess-1")
	workerSpan.End()
	sessionSpan.End()

	require.NoError(t, tp.Shutdown(context.Background()))

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	require.Equal(t, "creditstream.worker.generate", spans[0].Name)
	require.Equal(t, "creditstream.session", spans[1].Name)
	require.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())
}

package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	flowerrors "github.com/mrz1836/taskflow/internal/errors"
)

func setupTestTracer(t *testing.T) (*sdktrace.TracerProvider, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp, exporter
}

func attributesToMap(attrs []attribute.KeyValue) map[string]any {
	out := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		out[string(kv.Key)] = kv.Value.AsInterface()
	}
	return out
}

func TestEnd(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode codes.Code
		wantKind any
	}{
		{"success", nil, codes.Ok, nil},
		{"validation is not a failure", flowerrors.ErrDependencyCycle, codes.Unset, "VALIDATION_ERROR"},
		{"wip denial is not a failure", &flowerrors.WIPLimitError{Status: "todo", Limit: 1, Current: 1}, codes.Unset, "WIP_LIMIT_EXCEEDED"},
		{"internal errors fail the span", errors.New("disk full"), codes.Error, "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp, exporter := setupTestTracer(t)
			_, span := Tracer(tp).Start(context.Background(), "op")
			End(span, tt.err)

			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			assert.Equal(t, tt.wantCode, spans[0].Status.Code)
			assert.Equal(t, tt.wantKind, attributesToMap(spans[0].Attributes)["taskflow.error.kind"])
		})
	}
}

func TestScopeAttributes(t *testing.T) {
	attrs := attributesToMap(ScopeAttributes("acme", "eng"))
	assert.Equal(t, "acme", attrs["taskflow.organization_id"])
	assert.Equal(t, "eng", attrs["taskflow.workspace_id"])
}

// Package tracing holds the OpenTelemetry helpers shared by engine services.
package tracing

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	flowerrors "github.com/mrz1836/taskflow/internal/errors"
)

// InstrumentationName is the tracer name used by every engine service.
const InstrumentationName = "github.com/mrz1836/taskflow"

// Tracer returns the engine tracer from tp, or from the global provider when tp is nil.
func Tracer(tp trace.TracerProvider) trace.Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(InstrumentationName)
}

// End records err on span and ends it. Domain rejections (validation,
// not found, conflict, WIP denials) are tagged with their kind but do not
// mark the span as failed.
func End(span trace.Span, err error) {
	defer span.End()
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}

	kind := flowerrors.KindOf(err)
	span.SetAttributes(attribute.String("taskflow.error.kind", string(kind)))
	if kind == flowerrors.KindInternal || errors.Is(err, context.DeadlineExceeded) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Unset, "")
}

// ScopeAttributes tags a span with the tenancy scope.
func ScopeAttributes(organizationID, workspaceID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("taskflow.organization_id", organizationID),
		attribute.String("taskflow.workspace_id", workspaceID),
	}
}

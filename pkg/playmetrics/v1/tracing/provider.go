package tracing

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// TracerProvider defines the interface for accessing the collector's tracer
// provider, letting embedders integrate with an existing OpenTelemetry setup
// or supply their own implementation.
type TracerProvider interface {
	// GetTracer returns a Tracer instance with the specified name and options.
	GetTracer(name string, opts ...trace.TracerOption) trace.Tracer

	// Shutdown gracefully shuts down the tracer provider, flushing any
	// buffered spans. Implementations should tolerate being NoOp.
	Shutdown(ctx context.Context) error
}

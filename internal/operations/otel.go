package operations

import (
	"context"
	"fmt"
	"time"

	"funnelcli/internal/infrastructure"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	TracerName = "funnelcli.operation"
)

// OperationTracer provides OpenTelemetry instrumentation for pipeline runs
type OperationTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics
	system  *infrastructure.SystemMetrics
}

// NewOperationTracer creates a new operation tracer. With nil providers the
// global tracer and no-op metrics are used.
func NewOperationTracer(providers *infrastructure.OTelProviders) (*OperationTracer, error) {
	tracer := otel.Tracer(TracerName)
	var meter metric.Meter
	if providers != nil {
		if providers.Tracer != nil {
			tracer = providers.Tracer
		}
		if providers.Meter != nil {
			meter = providers.Meter
		}
	}

	metrics, err := infrastructure.CreatePipelineMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	system, err := infrastructure.NewSystemMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create system metrics: %w", err)
	}

	return &OperationTracer{
		tracer:  tracer,
		metrics: metrics,
		system:  system,
	}, nil
}

// TraceRun creates a span for the entire run
func (t *OperationTracer) TraceRun(ctx context.Context, runID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "etl.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("run.id", runID)),
	)
}

// TraceStage creates a span for a single step
func (t *OperationTracer) TraceStage(ctx context.Context, runID, stepID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "etl.stage."+stepID,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("stage.id", stepID),
		),
	)
}

// RecordStageCompletion closes out a step span and records its duration
func (t *OperationTracer) RecordStageCompletion(ctx context.Context, span trace.Span, stepID string, duration time.Duration, rows map[string]int, err error) {
	span.SetAttributes(attribute.Float64("stage.duration_seconds", duration.Seconds()))
	for table, n := range rows {
		span.SetAttributes(attribute.Int("stage.rows."+table, n))
	}

	t.metrics.RecordStage(ctx, stepID, duration, err == nil)
	stats := t.system.Collect(ctx, stepID)
	span.SetAttributes(attribute.Int64("stage.heap_inuse_bytes", stats.HeapInUse))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "stage completed")
}

// RecordRunCompletion closes out the run span and counts the run
func (t *OperationTracer) RecordRunCompletion(ctx context.Context, span trace.Span, status OperationStatus, duration time.Duration, err error) {
	infrastructure.SetSpanAttributes(ctx, map[string]interface{}{
		"run.status":           string(status),
		"run.duration_seconds": duration.Seconds(),
	})
	t.metrics.RecordRun(ctx, string(status))

	infrastructure.AddSpanEvent(ctx, "run.finished", map[string]interface{}{
		"status":   string(status),
		"duration": duration.Seconds(),
	})

	if err != nil {
		infrastructure.RecordError(ctx, err)
		return
	}
	span.SetStatus(codes.Ok, "run completed")
}

// RecordRows counts rows written for a warehouse table
func (t *OperationTracer) RecordRows(ctx context.Context, table string, n int) {
	t.metrics.RecordRows(ctx, table, n)
}

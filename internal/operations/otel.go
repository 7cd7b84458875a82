package operations

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	apperrors "impedancecli/internal/errors"
	"impedancecli/internal/infrastructure"
)

const (
	TracerName = "impedancecli.operation"
)

// OperationTracer provides spans and metrics for runs and steps
type OperationTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.BusinessMetrics
}

// NewOperationTracer creates a tracer backed by the run's providers. A nil
// providers value gives a tracer that records nothing.
func NewOperationTracer(providers *infrastructure.OTelProviders) *OperationTracer {
	if providers == nil {
		return &OperationTracer{tracer: noop.NewTracerProvider().Tracer(TracerName)}
	}
	return &OperationTracer{
		tracer:  providers.TracerProvider.Tracer(TracerName),
		metrics: providers.Metrics,
	}
}

// TraceRun creates the root span of a run
func (t *OperationTracer) TraceRun(ctx context.Context, runID, week string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "report.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("run.week", week),
		),
	)
}

// TraceStep creates a span for one step
func (t *OperationTracer) TraceStep(ctx context.Context, runID, stepID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "report.step."+stepID,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("step.id", stepID),
		),
	)
}

// RecordStep closes a step span and records its duration
func (t *OperationTracer) RecordStep(ctx context.Context, span trace.Span, stepID string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.SetAttributes(
		attribute.String("step.status", status),
		attribute.Float64("step.duration_seconds", duration.Seconds()),
	)
	span.End()

	if t.metrics != nil {
		t.metrics.StepDuration.Record(ctx, duration.Seconds(),
			metric.WithAttributes(
				attribute.String("step", stepID),
				attribute.String("status", status),
			))
	}
}

// RecordRunError counts an aborted run by error type
func (t *OperationTracer) RecordRunError(ctx context.Context, span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if t.metrics == nil {
		return
	}
	errType := string(apperrors.TypeOf(err))
	if errType == "" {
		errType = string(GetErrorType(err))
	}
	t.metrics.RunErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("error_type", errType),
			attribute.String("step", FailedStep(err)),
		))
}

// RecordFiles counts processed measurement files
func (t *OperationTracer) RecordFiles(ctx context.Context, n int) {
	if t.metrics != nil && n > 0 {
		t.metrics.FilesProcessed.Add(ctx, int64(n))
	}
}

// RecordFigure counts one rendered figure
func (t *OperationTracer) RecordFigure(ctx context.Context) {
	if t.metrics != nil {
		t.metrics.FiguresRendered.Add(ctx, 1)
	}
}

// RecordArchive records the size of a written archive
func (t *OperationTracer) RecordArchive(ctx context.Context, bytes int64) {
	if t.metrics != nil {
		t.metrics.ArchiveBytes.Add(ctx, bytes)
	}
}

// RecordNotification counts a notification attempt
func (t *OperationTracer) RecordNotification(ctx context.Context, mode string, err error) {
	if t.metrics == nil {
		return
	}
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	t.metrics.NotificationsSent.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("mode", mode),
			attribute.String("outcome", outcome),
		))
}

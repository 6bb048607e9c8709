package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Stage statuses.
const (
	StatusOK     = "ok"
	StatusError  = "error"
	StatusFailed = "failed"
)

// StageContext tracks one traced, timed pipeline stage.
type StageContext struct {
	Stage     string
	Backend   string
	StartTime time.Time
	Metrics   *Metrics

	ctx  context.Context
	span trace.Span
}

// StartStage starts a span for stage and returns the derived context.
// If metrics is nil, metric recording is silently skipped.
func StartStage(ctx context.Context, metrics *Metrics, meetingID, stage, backend string) (context.Context, *StageContext) {
	ctx, span := StartSpan(ctx, SpanStage)
	span.SetAttributes(
		attribute.String(AttrMeetingID, meetingID),
		attribute.String(AttrStage, stage),
	)
	if backend != "" {
		span.SetAttributes(attribute.String(AttrBackend, backend))
	}
	return ctx, &StageContext{
		Stage:     stage,
		Backend:   backend,
		StartTime: time.Now(),
		Metrics:   metrics,
		ctx:       ctx,
		span:      span,
	}
}

// SetBackend records the backend once it is known.
func (sc *StageContext) SetBackend(backend string) {
	sc.Backend = backend
	sc.span.SetAttributes(attribute.String(AttrBackend, backend))
}

// End ends the span and records the stage duration.
func (sc *StageContext) End(err error) {
	duration := time.Since(sc.StartTime)
	status := StatusOK
	if err != nil {
		status = StatusError
		sc.span.RecordError(err)
		sc.span.SetStatus(codes.Error, err.Error())
		sc.span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
	}
	sc.span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrDurationMs, duration.Milliseconds()),
	)
	sc.span.End()

	sc.Metrics.RecordStage(sc.ctx, sc.Stage, sc.Backend, status, duration)
}

// Duration returns the elapsed time since the stage started.
func (sc *StageContext) Duration() time.Duration {
	return time.Since(sc.StartTime)
}

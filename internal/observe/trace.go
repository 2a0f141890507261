package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/MrWong99/wordgate"

// Span and attribute names of an answer check.
const (
	checkSpanName        = "answer.check"
	attrClipContentType  = "audio.content_type"
	attrClipBytes        = "audio.bytes"
	attrCheckStatus      = "answer.status"
	checkFailedStatusMsg = "transcription failed"
)

func tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartCheck opens the span of one answer check: the clip posted to
// /check_answer or delivered by a live session, up to the journalled
// verdict. The returned context carries the span, so [CorrelationID] and
// [Logger] tie the transcription call, the journal entry and the log lines
// to it. The span must be finished with [EndCheck].
func StartCheck(ctx context.Context, contentType string, size int) (context.Context, trace.Span) {
	return tracer().Start(ctx, checkSpanName, trace.WithAttributes(
		attribute.String(attrClipContentType, contentType),
		attribute.Int(attrClipBytes, size),
	))
}

// EndCheck records the check status (one of the Check* constants) and ends
// span. For [CheckFailed] the provider error is attached and the span is
// marked as errored; silence and unrecognised speech are not span errors.
func EndCheck(span trace.Span, status string, err error) {
	span.SetAttributes(attribute.String(attrCheckStatus, status))
	if status == CheckFailed {
		if err != nil {
			span.RecordError(err)
		}
		span.SetStatus(codes.Error, checkFailedStatusMsg)
	}
	span.End()
}

// CorrelationID is the trace ID of the request or check span in ctx, or ""
// outside one. The middleware returns it as X-Correlation-ID, and it is
// stored on the check's journal record so a row listed by /checks can be
// matched to the server's log lines.
func CorrelationID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

// Logger is the default logger tagged with the trace_id and span_id of ctx.
// HTTP handlers and live sessions log through it so every line written while
// a check runs can be found by its correlation ID.
func Logger(ctx context.Context) *slog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return slog.Default()
	}
	return slog.Default().With(
		slog.String("trace_id", sc.TraceID().String()),
		slog.String("span_id", sc.SpanID().String()),
	)
}

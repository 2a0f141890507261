package observe

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
	"go.opentelemetry.io/otel/trace"
)

// statusRecorder wraps [http.ResponseWriter] to capture the status code
// written by the downstream handler.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code and delegates to the wrapped writer.
func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap exposes the wrapped writer to [http.ResponseController].
func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Hijack lets websocket upgrades pass through the middleware.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("observe: response writer does not support hijacking")
	}
	r.statusCode = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// Flush forwards to the wrapped writer when it supports flushing.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Middleware returns an [http.Handler] that:
//
//  1. Extracts W3C Trace Context from incoming request headers (or starts a
//     new trace).
//  2. Starts an OTel span for the HTTP request.
//  3. Sets the X-Correlation-ID response header from the trace ID.
//  4. Records request duration to [Metrics.HTTPRequestDuration], labelled with
//     the matched route pattern when the request went through a ServeMux.
//  5. Logs request completion with status code, duration, and trace info.
func Middleware(m *Metrics) func(http.Handler) http.Handler {
	prop := propagation.TraceContext{}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ctx := prop.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			ctx, span := tracer().Start(ctx, "HTTP "+r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.URLPath(r.URL.Path),
				),
			)
			defer span.End()

			cid := CorrelationID(ctx)
			if cid != "" {
				w.Header().Set("X-Correlation-ID", cid)
			}
			prop.Inject(ctx, propagation.HeaderCarrier(w.Header()))

			r = r.WithContext(ctx)
			rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rec, r)

			// ServeMux fills in Pattern on the request it was handed.
			path := r.Pattern
			if path == "" {
				path = r.URL.Path
			}

			duration := time.Since(start)
			m.HTTPRequestDuration.Record(ctx, duration.Seconds(),
				metric.WithAttributes(
					attribute.String("method", r.Method),
					attribute.String("path", path),
				),
			)

			span.SetAttributes(semconv.HTTPResponseStatusCode(rec.statusCode))

			level := slog.LevelInfo
			if rec.statusCode >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			slog.LogAttrs(ctx, level, "request completed",
				slog.String("trace_id", cid),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.statusCode),
				slog.Duration("duration", duration),
			)
		})
	}
}

// Package observe provides application-wide observability primitives for
// wordgate: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint ([Handler]). A package-level
// default [Metrics] instance ([DefaultMetrics]) is provided for convenience;
// tests should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all wordgate metrics.
const meterName = "github.com/MrWong99/wordgate"

// Check statuses used with [Metrics.RecordCheck].
const (
	CheckRecognized   = "recognized"
	CheckUnrecognized = "unrecognized"
	CheckFailed       = "failed"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// STTDuration tracks speech-to-text transcription latency.
	STTDuration metric.Float64Histogram

	// DecodeDuration tracks how long uploaded clips take to decode to PCM.
	DecodeDuration metric.Float64Histogram

	// --- Counters ---

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// Checks counts answer checks. Use with attribute:
	//   attribute.String("status", ...) (one of the Check* constants)
	Checks metric.Int64Counter

	// GatesPassed counts gates passed in live sessions.
	GatesPassed metric.Int64Counter

	// SessionsFinished counts live sessions that reached the last gate.
	SessionsFinished metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// LiveSessions tracks the number of connected live game sessions.
	LiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// short spoken answers.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.STTDuration, err = m.Float64Histogram("wordgate.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.DecodeDuration, err = m.Float64Histogram("wordgate.decode.duration",
		metric.WithDescription("Latency of decoding uploaded audio to PCM."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ProviderRequests, err = m.Int64Counter("wordgate.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.Checks, err = m.Int64Counter("wordgate.checks",
		metric.WithDescription("Total answer checks by status."),
	); err != nil {
		return nil, err
	}
	if met.GatesPassed, err = m.Int64Counter("wordgate.gates.passed",
		metric.WithDescription("Total gates passed in live sessions."),
	); err != nil {
		return nil, err
	}
	if met.SessionsFinished, err = m.Int64Counter("wordgate.sessions.finished",
		metric.WithDescription("Total live sessions that passed every gate."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ProviderErrors, err = m.Int64Counter("wordgate.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.LiveSessions, err = m.Int64UpDownCounter("wordgate.live_sessions",
		metric.WithDescription("Number of connected live game sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("wordgate.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordProviderRequest records a provider request counter increment with the
// standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError records a provider error counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordCheck counts one answer check with the given status.
func (m *Metrics) RecordCheck(ctx context.Context, status string) {
	m.Checks.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordGatePassed counts one passed gate.
func (m *Metrics) RecordGatePassed(ctx context.Context) {
	m.GatesPassed.Add(ctx, 1)
}

// RecordSessionFinished counts one finished live session.
func (m *Metrics) RecordSessionFinished(ctx context.Context) {
	m.SessionsFinished.Add(ctx, 1)
}

package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestHistogramObservation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	histograms := []struct {
		name string
		h    metric.Float64Histogram
	}{
		{"wordgate.stt.duration", m.STTDuration},
		{"wordgate.decode.duration", m.DecodeDuration},
	}

	for _, tc := range histograms {
		tc.h.Record(ctx, 0.123)
		tc.h.Record(ctx, 0.456)
	}

	rm := collect(t, reader)

	for _, tc := range histograms {
		t.Run(tc.name, func(t *testing.T) {
			met := findMetric(rm, tc.name)
			if met == nil {
				t.Fatalf("metric %q not found", tc.name)
			}
			hist, ok := met.Data.(metricdata.Histogram[float64])
			if !ok {
				t.Fatalf("metric %q is not a histogram", tc.name)
			}
			if len(hist.DataPoints) == 0 {
				t.Fatalf("metric %q has no data points", tc.name)
			}
			if got := hist.DataPoints[0].Count; got != 2 {
				t.Errorf("sample count = %d, want 2", got)
			}
		})
	}
}

// sumFor returns the value of the data point of the named sum whose
// attribute key equals value.
func sumFor(t *testing.T, rm metricdata.ResourceMetrics, name, key, value string) (int64, bool) {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is not a sum", name)
	}
	for _, dp := range sum.DataPoints {
		if key == "" {
			return dp.Value, true
		}
		for _, kv := range dp.Attributes.ToSlice() {
			if string(kv.Key) == key && kv.Value.AsString() == value {
				return dp.Value, true
			}
		}
	}
	return 0, false
}

func TestCounterIncrement(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	attrs := metric.WithAttributes(
		attribute.String("provider", "deepgram"),
		attribute.String("kind", "stt"),
		attribute.String("status", "ok"),
	)
	m.ProviderRequests.Add(ctx, 1, attrs)
	m.ProviderRequests.Add(ctx, 1, attrs)
	m.RecordProviderRequest(ctx, "deepgram", "stt", "error")

	rm := collect(t, reader)
	got, ok := sumFor(t, rm, "wordgate.provider.requests", "status", "ok")
	if !ok {
		t.Fatal("data point with status=ok not found")
	}
	if got != 2 {
		t.Errorf("counter value = %d, want 2", got)
	}
	if got, _ := sumFor(t, rm, "wordgate.provider.requests", "status", "error"); got != 1 {
		t.Errorf("error counter value = %d, want 1", got)
	}
}

func TestChecksCounter(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordCheck(ctx, CheckRecognized)
	m.RecordCheck(ctx, CheckRecognized)
	m.RecordCheck(ctx, CheckUnrecognized)
	m.RecordCheck(ctx, CheckFailed)

	rm := collect(t, reader)
	tests := []struct {
		status string
		want   int64
	}{
		{CheckRecognized, 2},
		{CheckUnrecognized, 1},
		{CheckFailed, 1},
	}
	for _, tc := range tests {
		t.Run(tc.status, func(t *testing.T) {
			got, ok := sumFor(t, rm, "wordgate.checks", "status", tc.status)
			if !ok {
				t.Fatalf("data point with status=%s not found", tc.status)
			}
			if got != tc.want {
				t.Errorf("counter value = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestGameCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordGatePassed(ctx)
	m.RecordGatePassed(ctx)
	m.RecordGatePassed(ctx)
	m.RecordSessionFinished(ctx)

	rm := collect(t, reader)
	if got, _ := sumFor(t, rm, "wordgate.gates.passed", "", ""); got != 3 {
		t.Errorf("gates passed = %d, want 3", got)
	}
	if got, _ := sumFor(t, rm, "wordgate.sessions.finished", "", ""); got != 1 {
		t.Errorf("sessions finished = %d, want 1", got)
	}
}

func TestProviderErrorsCounter(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordProviderError(ctx, "whisper", "stt")

	rm := collect(t, reader)
	got, ok := sumFor(t, rm, "wordgate.provider.errors", "provider", "whisper")
	if !ok {
		t.Fatal("no data points")
	}
	if got != 1 {
		t.Errorf("counter value = %d, want 1", got)
	}
}

func TestLiveSessionsGauge(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.LiveSessions.Add(ctx, 1)
	m.LiveSessions.Add(ctx, 1)
	m.LiveSessions.Add(ctx, 1)
	m.LiveSessions.Add(ctx, -1)

	rm := collect(t, reader)
	if got, _ := sumFor(t, rm, "wordgate.live_sessions", "", ""); got != 2 {
		t.Errorf("gauge value = %d, want 2", got)
	}
}

func TestHTTPRequestDuration(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.HTTPRequestDuration.Record(ctx, 0.05,
		metric.WithAttributes(
			attribute.String("method", "GET"),
			attribute.String("path", "/healthz"),
		),
	)

	rm := collect(t, reader)
	met := findMetric(rm, "wordgate.http.request.duration")
	if met == nil {
		t.Fatal("metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("metric is not a histogram")
	}
	if len(hist.DataPoints) == 0 {
		t.Fatal("no data points")
	}
	if got := hist.DataPoints[0].Count; got != 1 {
		t.Errorf("sample count = %d, want 1", got)
	}
}

func TestDefaultMetrics_ReturnsSameInstance(t *testing.T) {
	a := DefaultMetrics()
	b := DefaultMetrics()
	if a != b {
		t.Error("DefaultMetrics returned different pointers")
	}
}

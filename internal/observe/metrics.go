// Package observe provides application-wide observability primitives for
// voxa: OpenTelemetry metrics, distributed tracing, structured logging,
// instrumented provider wrappers and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all voxa metrics.
const meterName = "github.com/MrWong99/voxa"

// Provider kinds used as the "kind" attribute.
const (
	KindSTT        = "stt"
	KindLLM        = "llm"
	KindTTS        = "tts"
	KindModeration = "moderation"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// --- Latency histograms per provider kind ---

	// STTDuration tracks speech-to-text transcription latency.
	STTDuration metric.Float64Histogram

	// LLMDuration tracks chat completion latency.
	LLMDuration metric.Float64Histogram

	// TTSDuration tracks text-to-speech synthesis latency.
	TTSDuration metric.Float64Histogram

	// ModerationDuration tracks moderation check latency.
	ModerationDuration metric.Float64Histogram

	// ToolExecutionDuration tracks tool execution latency.
	ToolExecutionDuration metric.Float64Histogram

	// RecordingDuration tracks the length of captured recordings.
	RecordingDuration metric.Float64Histogram

	// --- Counters ---

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// ToolCalls counts tool invocations. Use with attributes:
	//   attribute.String("tool", ...), attribute.String("status", ...)
	ToolCalls metric.Int64Counter

	// Recordings counts finished recordings. Use with attribute:
	//   attribute.String("stop_reason", ...)
	Recordings metric.Int64Counter

	// Generations counts text generations. Use with attribute:
	//   attribute.String("outcome", ...) (success, retryable, terminal)
	Generations metric.Int64Counter

	// ModerationFlags counts inputs rejected by the moderation gate.
	ModerationFlags metric.Int64Counter

	// Exports counts written export files. Use with attribute:
	//   attribute.String("format", ...)
	Exports metric.Int64Counter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("route", ...),
	//   attribute.String("status", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) suited to
// hosted speech and chat API latencies.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	histograms := []struct {
		dst  *metric.Float64Histogram
		name string
		desc string
	}{
		{&met.STTDuration, "voxa.stt.duration", "Latency of speech-to-text transcription."},
		{&met.LLMDuration, "voxa.llm.duration", "Latency of chat completions."},
		{&met.TTSDuration, "voxa.tts.duration", "Latency of text-to-speech synthesis."},
		{&met.ModerationDuration, "voxa.moderation.duration", "Latency of moderation checks."},
		{&met.ToolExecutionDuration, "voxa.tool_execution.duration", "Latency of tool execution."},
		{&met.RecordingDuration, "voxa.recording.duration", "Length of captured recordings."},
	}
	for _, h := range histograms {
		if *h.dst, err = m.Float64Histogram(h.name,
			metric.WithDescription(h.desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(latencyBuckets...),
		); err != nil {
			return nil, err
		}
	}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&met.ProviderRequests, "voxa.provider.requests", "Total provider API requests by provider, kind, and status."},
		{&met.ProviderErrors, "voxa.provider.errors", "Total provider errors by provider and kind."},
		{&met.ToolCalls, "voxa.tool.calls", "Total tool invocations by tool name and status."},
		{&met.Recordings, "voxa.recordings", "Total finished recordings by stop reason."},
		{&met.Generations, "voxa.generations", "Total text generations by outcome."},
		{&met.ModerationFlags, "voxa.moderation.flagged", "Total inputs rejected by the moderation gate."},
		{&met.Exports, "voxa.exports", "Total export files written by format."},
	}
	for _, c := range counters {
		if *c.dst, err = m.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, err
		}
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("voxa.http.request.duration",
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

// RecordProviderCall records latency, the request counter and, when err is
// non-nil, the error counter for one provider call that started at start.
func (m *Metrics) RecordProviderCall(ctx context.Context, provider, kind string, start time.Time, err error) {
	elapsed := time.Since(start).Seconds()
	attrs := metric.WithAttributes(attribute.String("provider", provider))
	switch kind {
	case KindSTT:
		m.STTDuration.Record(ctx, elapsed, attrs)
	case KindLLM:
		m.LLMDuration.Record(ctx, elapsed, attrs)
	case KindTTS:
		m.TTSDuration.Record(ctx, elapsed, attrs)
	case KindModeration:
		m.ModerationDuration.Record(ctx, elapsed, attrs)
	}
	status := "ok"
	if err != nil {
		status = "error"
		m.RecordProviderError(ctx, provider, kind)
	}
	m.RecordProviderRequest(ctx, provider, kind, status)
}

// RecordToolCall records a tool call counter increment with the standard
// attribute set.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, status string) {
	m.ToolCalls.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("status", status),
		),
	)
}

// RecordToolDuration records the latency of one tool execution.
func (m *Metrics) RecordToolDuration(ctx context.Context, tool string, d time.Duration) {
	m.ToolExecutionDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("tool", tool)),
	)
}

// RecordRecording records one finished recording of length d.
func (m *Metrics) RecordRecording(ctx context.Context, stopReason string, d time.Duration) {
	m.Recordings.Add(ctx, 1, metric.WithAttributes(attribute.String("stop_reason", stopReason)))
	m.RecordingDuration.Record(ctx, d.Seconds())
}

// RecordGeneration records one text generation by its outcome name.
func (m *Metrics) RecordGeneration(ctx context.Context, outcome string) {
	m.Generations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordModerationFlag records one input rejected by the moderation gate.
func (m *Metrics) RecordModerationFlag(ctx context.Context) {
	m.ModerationFlags.Add(ctx, 1)
}

// RecordExport records one written export file.
func (m *Metrics) RecordExport(ctx context.Context, format string) {
	m.Exports.Add(ctx, 1, metric.WithAttributes(attribute.String("format", format)))
}

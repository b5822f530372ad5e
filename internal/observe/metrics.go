// Package observe provides application-wide observability primitives for
// VoiceHive: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all VoiceHive metrics.
const meterName = "github.com/voicehive/voicehive"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// ASRDuration tracks speech-recognition latency as reported with
	// transcription events.
	ASRDuration metric.Float64Histogram

	// IntentDuration tracks intent-detection latency.
	IntentDuration metric.Float64Histogram

	// LLMDuration tracks the full LLM tool-loop latency per turn.
	LLMDuration metric.Float64Histogram

	// TTSDuration tracks text-to-speech synthesis latency, retries included.
	TTSDuration metric.Float64Histogram

	// ToolExecutionDuration tracks PMS function execution latency.
	ToolExecutionDuration metric.Float64Histogram

	// PersistDuration tracks session snapshot write latency.
	PersistDuration metric.Float64Histogram

	// --- Counters ---

	// Events counts inbound call events. Use with attributes:
	//   attribute.String("event", ...), attribute.String("status", ...)
	Events metric.Int64Counter

	// ToolCalls counts dispatched PMS functions. Use with attributes:
	//   attribute.String("function", ...), attribute.String("status", ...)
	ToolCalls metric.Int64Counter

	// Fallbacks counts degraded responses. Use with attribute:
	//   attribute.String("kind", "llm_template"|"tts_text_only")
	Fallbacks metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveCalls tracks the number of live call sessions.
	ActiveCalls metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for voice-pipeline latencies.
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
	if met.ASRDuration, err = m.Float64Histogram("voicehive.asr.duration",
		metric.WithDescription("Latency of speech recognition as reported by the ASR service."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.IntentDuration, err = m.Float64Histogram("voicehive.intent.duration",
		metric.WithDescription("Latency of intent detection."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LLMDuration, err = m.Float64Histogram("voicehive.llm.duration",
		metric.WithDescription("Latency of the LLM tool loop per turn."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("voicehive.tts.duration",
		metric.WithDescription("Latency of text-to-speech synthesis, retries included."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ToolExecutionDuration, err = m.Float64Histogram("voicehive.tool_execution.duration",
		metric.WithDescription("Latency of PMS function execution."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PersistDuration, err = m.Float64Histogram("voicehive.persist.duration",
		metric.WithDescription("Latency of session snapshot writes."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Events, err = m.Int64Counter("voicehive.events",
		metric.WithDescription("Total inbound call events by event name and status."),
	); err != nil {
		return nil, err
	}
	if met.ToolCalls, err = m.Int64Counter("voicehive.tool.calls",
		metric.WithDescription("Total PMS function invocations by function name and status."),
	); err != nil {
		return nil, err
	}
	if met.Fallbacks, err = m.Int64Counter("voicehive.fallbacks",
		metric.WithDescription("Total degraded responses by kind."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ProviderErrors, err = m.Int64Counter("voicehive.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveCalls, err = m.Int64UpDownCounter("voicehive.active_calls",
		metric.WithDescription("Number of live call sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("voicehive.http.request.duration",
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

// RecordEvent records an inbound event counter increment. Safe to call on a
// nil receiver so callers need not guard optional metrics wiring.
func (m *Metrics) RecordEvent(ctx context.Context, event, status string) {
	if m == nil {
		return
	}
	m.Events.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("event", event),
			attribute.String("status", status),
		),
	)
}

// RecordToolCall records a PMS function invocation. Safe to call on a nil
// receiver.
func (m *Metrics) RecordToolCall(ctx context.Context, function, status string) {
	if m == nil {
		return
	}
	m.ToolCalls.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("function", function),
			attribute.String("status", status),
		),
	)
}

// RecordFallback records a degraded response. Safe to call on a nil receiver.
func (m *Metrics) RecordFallback(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.Fallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordProviderError records a provider error counter increment. Safe to
// call on a nil receiver.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	if m == nil {
		return
	}
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

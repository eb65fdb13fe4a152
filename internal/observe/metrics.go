// Package observe provides application-wide observability primitives
// for the interpreter: OpenTelemetry metrics, tracing, structured
// logging helpers, and HTTP middleware tying them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API and
// exposed for scraping through a Prometheus exporter bridge set up by
// [InitProvider]. A package-level default [Metrics] instance
// ([DefaultMetrics]) is provided for convenience; tests should use
// [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/intgg/translator"

// Metrics holds all OpenTelemetry metric instruments for the
// application. All fields are safe for concurrent use; the underlying
// OTel types handle their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// RecognizeDuration tracks speech recognition latency per window.
	RecognizeDuration metric.Float64Histogram

	// PunctuateDuration tracks punctuation restoration latency.
	PunctuateDuration metric.Float64Histogram

	// TranslateDuration tracks translation latency per sentence.
	TranslateDuration metric.Float64Histogram

	// SynthesisDuration tracks speech synthesis latency per utterance.
	SynthesisDuration metric.Float64Histogram

	// --- Counters ---

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// SentencesCompleted counts sentences that reached the complete state.
	SentencesCompleted metric.Int64Counter

	// SentencesPlayed counts sentences spoken by synthesis. Use with attribute:
	//   attribute.String("reason", ...)
	SentencesPlayed metric.Int64Counter

	// ForcedFlushes counts segment finalizations not caused by the
	// voice activity detector. Use with attribute:
	//   attribute.String("cause", "silence"|"max_duration")
	ForcedFlushes metric.Int64Counter

	// SuppressedExtensions counts playback candidates dropped as minor
	// extensions of already-played sentences.
	SuppressedExtensions metric.Int64Counter

	// DroppedFrames counts audio frames discarded because the intake
	// queue was full.
	DroppedFrames metric.Int64Counter

	// TranslationCacheHits counts translations served from the cache.
	TranslationCacheHits metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live interpretation sessions.
	ActiveSessions metric.Int64UpDownCounter

	// PendingSentences tracks sentences waiting for translation or
	// playback across all sessions.
	PendingSentences metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds)
// optimised for interpretation-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the
// given [metric.MeterProvider]. Returns an error if any instrument
// creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.RecognizeDuration, err = m.Float64Histogram("interpreter.recognize.duration",
		metric.WithDescription("Latency of speech recognition per audio window."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PunctuateDuration, err = m.Float64Histogram("interpreter.punctuate.duration",
		metric.WithDescription("Latency of punctuation restoration."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranslateDuration, err = m.Float64Histogram("interpreter.translate.duration",
		metric.WithDescription("Latency of sentence translation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SynthesisDuration, err = m.Float64Histogram("interpreter.synthesis.duration",
		metric.WithDescription("Latency of speech synthesis per utterance."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ProviderRequests, err = m.Int64Counter("interpreter.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.SentencesCompleted, err = m.Int64Counter("interpreter.sentences.completed",
		metric.WithDescription("Total sentences that reached the complete state."),
	); err != nil {
		return nil, err
	}
	if met.SentencesPlayed, err = m.Int64Counter("interpreter.sentences.played",
		metric.WithDescription("Total sentences spoken by synthesis, by trigger reason."),
	); err != nil {
		return nil, err
	}
	if met.ForcedFlushes, err = m.Int64Counter("interpreter.forced_flushes",
		metric.WithDescription("Segment finalizations by silence or maximum-duration cause."),
	); err != nil {
		return nil, err
	}
	if met.SuppressedExtensions, err = m.Int64Counter("interpreter.suppressed_extensions",
		metric.WithDescription("Playback candidates dropped as minor extensions."),
	); err != nil {
		return nil, err
	}
	if met.DroppedFrames, err = m.Int64Counter("interpreter.dropped_frames",
		metric.WithDescription("Audio frames discarded because the intake queue was full."),
	); err != nil {
		return nil, err
	}
	if met.TranslationCacheHits, err = m.Int64Counter("interpreter.translation.cache_hits",
		metric.WithDescription("Translations served from the result cache."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ProviderErrors, err = m.Int64Counter("interpreter.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("interpreter.active_sessions",
		metric.WithDescription("Number of live interpretation sessions."),
	); err != nil {
		return nil, err
	}
	if met.PendingSentences, err = m.Int64UpDownCounter("interpreter.pending_sentences",
		metric.WithDescription("Sentences waiting for translation or playback."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("interpreter.http.request.duration",
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

// DefaultMetrics returns the package-level [Metrics] instance, creating
// it on first call using [otel.GetMeterProvider]. Subsequent calls
// return the same pointer. Panics if instrument creation fails (should
// not happen with the global provider).
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

// Attr is a convenience alias for [attribute.String] to reduce
// verbosity at call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordProviderRequest records a provider request counter increment
// with the standard attribute set.
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

// RecordSentencePlayed records a played sentence with the trigger
// reason that released it.
func (m *Metrics) RecordSentencePlayed(ctx context.Context, reason string) {
	m.SentencesPlayed.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}

// RecordForcedFlush records a non-VAD segment finalization.
func (m *Metrics) RecordForcedFlush(ctx context.Context, cause string) {
	m.ForcedFlushes.Add(ctx, 1,
		metric.WithAttributes(attribute.String("cause", cause)),
	)
}

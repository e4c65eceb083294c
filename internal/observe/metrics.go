// Package observe provides application-wide observability primitives for
// interviewassist: OpenTelemetry metrics, tracing, trace-aware structured
// logging and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is installed by [InitProvider] so that metrics can be
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

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/MrWong99/interviewassist"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// --- Pipeline ---

	// FramesProcessed counts normalized frames classified by the pipeline.
	// Use with attribute.Bool("speech", ...).
	FramesProcessed metric.Int64Counter

	// SegmentsFinalized counts speech segments handed to transcription. Use
	// with attribute.Bool("forced", ...) for segments closed at the length
	// limit.
	SegmentsFinalized metric.Int64Counter

	// SegmentDuration tracks the audio length of finalized segments.
	SegmentDuration metric.Float64Histogram

	// CaptureErrors counts capture failures. Use with attribute:
	//   attribute.String("stage", "enumerate"|"open"|"read")
	CaptureErrors metric.Int64Counter

	// --- Transcription ---

	// TranscriptionDuration tracks per-segment transcription latency. Use with
	// attribute.String("engine", ...).
	TranscriptionDuration metric.Float64Histogram

	// TranscriptionErrors counts segments whose transcription failed. Use with
	// attribute.String("engine", ...).
	TranscriptionErrors metric.Int64Counter

	// --- Events ---

	// EventsPublished counts transcript events handed to sinks. Use with
	// attribute.String("kind", ...).
	EventsPublished metric.Int64Counter

	// EventsDropped counts events a sink discarded because its consumer was
	// too slow. Use with attribute.String("sink", ...).
	EventsDropped metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of running capture sessions.
	ActiveSessions metric.Int64UpDownCounter

	// FeedClients tracks the number of connected live-feed clients.
	FeedClients metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("route", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) for
// transcription latency.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30,
}

// segmentBuckets defines histogram bucket boundaries (in seconds) for
// segment lengths.
var segmentBuckets = []float64{
	0.25, 0.5, 1, 2, 4, 8, 15, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.FramesProcessed, err = m.Int64Counter("interviewassist.pipeline.frames",
		metric.WithDescription("Normalized audio frames classified by the pipeline."),
	); err != nil {
		return nil, err
	}
	if met.SegmentsFinalized, err = m.Int64Counter("interviewassist.pipeline.segments",
		metric.WithDescription("Speech segments finalized for transcription."),
	); err != nil {
		return nil, err
	}
	if met.SegmentDuration, err = m.Float64Histogram("interviewassist.pipeline.segment.duration",
		metric.WithDescription("Audio length of finalized speech segments."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(segmentBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CaptureErrors, err = m.Int64Counter("interviewassist.capture.errors",
		metric.WithDescription("Capture failures by stage."),
	); err != nil {
		return nil, err
	}

	if met.TranscriptionDuration, err = m.Float64Histogram("interviewassist.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription per segment."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranscriptionErrors, err = m.Int64Counter("interviewassist.stt.errors",
		metric.WithDescription("Segments whose transcription failed, by engine."),
	); err != nil {
		return nil, err
	}

	if met.EventsPublished, err = m.Int64Counter("interviewassist.events.published",
		metric.WithDescription("Transcript events published, by kind."),
	); err != nil {
		return nil, err
	}
	if met.EventsDropped, err = m.Int64Counter("interviewassist.events.dropped",
		metric.WithDescription("Transcript events dropped by a full sink, by sink."),
	); err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("interviewassist.active_sessions",
		metric.WithDescription("Number of running capture sessions."),
	); err != nil {
		return nil, err
	}
	if met.FeedClients, err = m.Int64UpDownCounter("interviewassist.feed.clients",
		metric.WithDescription("Number of connected live-feed clients."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("interviewassist.http.request.duration",
		metric.WithDescription("HTTP request latency by method and route."),
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
// first call using [otel.GetMeterProvider]. Panics if instrument creation
// fails (should not happen with the global provider).
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

// RecordFrame counts one classified frame.
func (m *Metrics) RecordFrame(ctx context.Context, speech bool) {
	m.FramesProcessed.Add(ctx, 1, metric.WithAttributes(attribute.Bool("speech", speech)))
}

// RecordSegment counts a finalized segment and records its length.
func (m *Metrics) RecordSegment(ctx context.Context, seconds float64, forced bool) {
	attrs := metric.WithAttributes(attribute.Bool("forced", forced))
	m.SegmentsFinalized.Add(ctx, 1, attrs)
	m.SegmentDuration.Record(ctx, seconds, attrs)
}

// RecordTranscription records transcription latency and, when failed, an
// error count for engine.
func (m *Metrics) RecordTranscription(ctx context.Context, engine string, seconds float64, failed bool) {
	attrs := metric.WithAttributes(attribute.String("engine", engine))
	m.TranscriptionDuration.Record(ctx, seconds, attrs)
	if failed {
		m.TranscriptionErrors.Add(ctx, 1, attrs)
	}
}

// RecordCaptureError counts a capture failure at stage.
func (m *Metrics) RecordCaptureError(ctx context.Context, stage string) {
	m.CaptureErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordEvent counts a published event of kind.
func (m *Metrics) RecordEvent(ctx context.Context, kind string) {
	m.EventsPublished.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordDrop counts an event dropped by sink.
func (m *Metrics) RecordDrop(ctx context.Context, sink string) {
	m.EventsDropped.Add(ctx, 1, metric.WithAttributes(attribute.String("sink", sink)))
}

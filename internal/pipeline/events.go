package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Kind classifies a [TranscriptEvent].
type Kind string

const (
	// KindSimulated marks canned text produced when no capture backend exists.
	KindSimulated Kind = "simulated"

	// KindLive marks text derived from a captured speech segment, including the
	// placeholder published when transcription yields nothing.
	KindLive Kind = "live"

	// KindDiagnostic marks human-readable status and error messages.
	KindDiagnostic Kind = "diagnostic"
)

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindSimulated, KindLive, KindDiagnostic:
		return true
	}
	return false
}

// String implements [fmt.Stringer].
func (k Kind) String() string { return string(k) }

// TranscriptEvent is one unit of output from a pipeline. Events are created
// once and published once; sinks must treat them as immutable.
type TranscriptEvent struct {
	// Text is the transcript or diagnostic message.
	Text string `json:"text"`

	// Timestamp is when the event was produced.
	Timestamp time.Time `json:"timestamp"`

	// Kind classifies the event.
	Kind Kind `json:"kind"`

	// SessionID identifies the session that produced the event. It is empty
	// for events produced outside a managed session.
	SessionID string `json:"session_id,omitempty"`

	// Duration is the audio length of the originating segment for live
	// events, and zero otherwise.
	Duration time.Duration `json:"-"`
}

// MarshalJSON encodes Duration as fractional seconds.
func (e TranscriptEvent) MarshalJSON() ([]byte, error) {
	type alias TranscriptEvent
	return json.Marshal(struct {
		alias
		DurationSeconds float64 `json:"duration_seconds,omitempty"`
	}{alias: alias(e), DurationSeconds: e.Duration.Seconds()})
}

// Sink consumes published events.
//
// Publish is called from the pipeline goroutine and must not block. Sinks
// that hand events to slower consumers buffer and drop instead.
type Sink interface {
	Publish(ev TranscriptEvent)
}

// SinkFunc adapts an ordinary function to the [Sink] interface.
type SinkFunc func(ev TranscriptEvent)

// Publish calls f(ev).
func (f SinkFunc) Publish(ev TranscriptEvent) { f(ev) }

// MultiSink publishes every event to each sink in order.
type MultiSink []Sink

// Publish implements [Sink].
func (m MultiSink) Publish(ev TranscriptEvent) {
	for _, s := range m {
		if s != nil {
			s.Publish(ev)
		}
	}
}

// ChannelSink delivers events on a buffered channel. When the channel is full
// the event is dropped and counted rather than blocking the pipeline.
type ChannelSink struct {
	ch      chan TranscriptEvent
	dropped atomic.Int64
	onDrop  func()
}

// NewChannelSink creates a ChannelSink with the given buffer size (minimum 1).
// onDrop, if non-nil, is called for every dropped event.
func NewChannelSink(size int, onDrop func()) *ChannelSink {
	return &ChannelSink{ch: make(chan TranscriptEvent, max(size, 1)), onDrop: onDrop}
}

// Publish implements [Sink].
func (c *ChannelSink) Publish(ev TranscriptEvent) {
	select {
	case c.ch <- ev:
	default:
		c.dropped.Add(1)
		if c.onDrop != nil {
			c.onDrop()
		}
	}
}

// Events returns the receive side of the channel. It is never closed.
func (c *ChannelSink) Events() <-chan TranscriptEvent { return c.ch }

// Dropped returns the number of events discarded because the buffer was full.
func (c *ChannelSink) Dropped() int64 { return c.dropped.Load() }

// LogSink writes every event to a structured logger.
type LogSink struct {
	Logger *slog.Logger
}

// Publish implements [Sink].
func (l LogSink) Publish(ev TranscriptEvent) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelInfo
	if ev.Kind == KindDiagnostic {
		level = slog.LevelWarn
	}
	logger.Log(context.Background(), level, "transcript event",
		"kind", ev.Kind,
		"session_id", ev.SessionID,
		"text", ev.Text,
		"duration", ev.Duration,
	)
}

// RecordingSink stores every event in memory. It is safe for concurrent use
// and mainly useful in tests and for short-lived diagnostics.
type RecordingSink struct {
	mu     sync.Mutex
	events []TranscriptEvent
	notify chan struct{}
}

// NewRecordingSink returns an empty RecordingSink.
func NewRecordingSink() *RecordingSink {
	return &RecordingSink{notify: make(chan struct{}, 1)}
}

// Publish implements [Sink].
func (r *RecordingSink) Publish(ev TranscriptEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Events returns a snapshot of the recorded events.
func (r *RecordingSink) Events() []TranscriptEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]TranscriptEvent(nil), r.events...)
}

// WaitFor blocks until at least n events were recorded or timeout elapses,
// and returns the snapshot at that point.
func (r *RecordingSink) WaitFor(n int, timeout time.Duration) ([]TranscriptEvent, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		if evs := r.Events(); len(evs) >= n {
			return evs, nil
		}
		select {
		case <-r.notify:
		case <-deadline.C:
			evs := r.Events()
			return evs, fmt.Errorf("pipeline: got %d events, want %d within %v", len(evs), n, timeout)
		}
	}
}

var (
	_ Sink = SinkFunc(nil)
	_ Sink = MultiSink(nil)
	_ Sink = (*ChannelSink)(nil)
	_ Sink = LogSink{}
	_ Sink = (*RecordingSink)(nil)
)

// Package pipeline turns captured audio into transcript events.
//
// A [Worker] owns one capture session. It negotiates a device through a
// [capture.Backend], normalizes every frame to 16 kHz mono, classifies it with
// a voice-activity [vad.Classifier], groups speech into segments with an
// [Assembler] and transcribes each segment through an [stt.Capability]. Every
// outcome, including failures, reaches the consumer as a [TranscriptEvent]
// published to a [Sink]; nothing in a running worker propagates an error to
// its caller.
//
// When no capture backend is available the worker runs a simulator that
// publishes canned interview prompts instead.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/interviewassist/internal/observe"
	"github.com/MrWong99/interviewassist/pkg/audio"
	"github.com/MrWong99/interviewassist/pkg/capture"
	"github.com/MrWong99/interviewassist/pkg/provider/stt"
	"github.com/MrWong99/interviewassist/pkg/provider/vad"
)

var (
	// ErrAlreadyStarted is returned by [Worker.Start] on a worker that was
	// already started.
	ErrAlreadyStarted = errors.New("pipeline: worker already started")

	// ErrStopTimeout is returned by [Worker.Stop] when the worker did not exit
	// within the configured stop timeout.
	ErrStopTimeout = errors.New("pipeline: worker did not stop in time")
)

// Dependencies are the external capabilities a [Worker] uses. Every field is
// optional.
type Dependencies struct {
	// Capture enumerates and opens devices. Nil runs the simulator.
	Capture capture.Backend

	// Detectors builds the external voice-activity detector. Nil or a failing
	// factory selects the energy classifier.
	Detectors vad.DetectorFactory

	// DetectorName labels the external detector in logs and diagnostics.
	DetectorName string

	// STT transcribes finalized segments. The zero value is unavailable and
	// yields placeholder events.
	STT stt.Capability

	// Sink receives every event. Nil logs events via [LogSink].
	Sink Sink

	// Metrics records pipeline instrumentation. Nil uses
	// [observe.DefaultMetrics].
	Metrics *observe.Metrics

	// SessionID is stamped on every published event.
	SessionID string
}

// Worker runs one pipeline session on its own goroutine.
type Worker struct {
	cfg     Config
	deps    Dependencies
	metrics *observe.Metrics
	logger  *slog.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewWorker creates a worker. Zero-valued fields in cfg take their defaults
// from [DefaultConfig].
func NewWorker(cfg Config, deps Dependencies) *Worker {
	if deps.Sink == nil {
		deps.Sink = LogSink{}
	}
	if deps.DetectorName == "" {
		deps.DetectorName = "external"
	}
	m := deps.Metrics
	if m == nil {
		m = observe.DefaultMetrics()
	}
	logger := slog.Default()
	if deps.SessionID != "" {
		logger = logger.With("session_id", deps.SessionID)
	}
	return &Worker{
		cfg:     cfg.withDefaults(),
		deps:    deps,
		metrics: m,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Config returns the effective configuration.
func (w *Worker) Config() Config { return w.cfg }

// Start launches the worker goroutine. The worker runs until ctx is cancelled
// or [Worker.Stop] is called.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return ErrAlreadyStarted
	}
	w.started = true
	if w.deps.SessionID != "" {
		ctx = observe.ContextWithSession(ctx, w.deps.SessionID)
	}
	ctx, w.cancel = context.WithCancel(ctx)
	go func() {
		defer close(w.done)
		w.Run(ctx)
	}()
	return nil
}

// Stop cancels the worker and waits for it to exit, bounded by
// Config.StopTimeout. It is safe to call before Start and more than once.
func (w *Worker) Stop() error {
	w.mu.Lock()
	started, cancel := w.started, w.cancel
	w.mu.Unlock()
	if !started {
		return nil
	}
	cancel()
	t := time.NewTimer(w.cfg.StopTimeout)
	defer t.Stop()
	select {
	case <-w.done:
		return nil
	case <-t.C:
		return fmt.Errorf("%w after %v", ErrStopTimeout, w.cfg.StopTimeout)
	}
}

// Done returns a channel that is closed when a started worker has exited.
func (w *Worker) Done() <-chan struct{} { return w.done }

// Run executes the pipeline on the calling goroutine until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	if w.deps.Capture == nil {
		w.simulate(ctx)
		return
	}

	devices, err := w.deps.Capture.Devices(w.cfg.LoopbackOnly)
	if err != nil {
		w.metrics.RecordCaptureError(ctx, "enumerate")
		w.logger.Warn("pipeline: device enumeration failed", "err", err)
	}
	dev, ok := capture.SelectDevice(devices, w.cfg.DeviceName)
	if !ok {
		w.noDevice(ctx)
		return
	}

	stream, rate, err := capture.Negotiate(w.deps.Capture, dev, w.cfg.FrameDuration())
	if err != nil {
		w.metrics.RecordCaptureError(ctx, "open")
		w.logger.Error("pipeline: device negotiation failed", "device", dev.Name, "err", err)
		w.diagnose(ctx, fmt.Sprintf("[Capture error] could not open %q at any supported sample rate", dev.Name))
		<-ctx.Done()
		return
	}
	defer func() {
		if err := stream.Close(); err != nil {
			w.logger.Warn("pipeline: closing stream", "err", err)
		}
	}()

	classifier := vad.Select(w.deps.DetectorName, w.deps.Detectors, w.cfg.VADAggressiveness, w.cfg.EnergyThreshold)
	defer func() {
		if err := classifier.Close(); err != nil {
			w.logger.Warn("pipeline: closing classifier", "err", err)
		}
	}()

	w.logger.Info("pipeline: capture started",
		"device", dev.Name,
		"sample_rate", rate,
		"channels", stream.Channels(),
		"vad", classifier.Name(),
		"stt", w.deps.STT.String(),
	)
	w.diagnose(ctx, fmt.Sprintf("[Audio Ready] capturing %q at %d Hz (voice activity: %s, transcription: %s)",
		dev.Name, rate, classifier.Name(), w.deps.STT))

	if err := w.capture(ctx, stream, classifier); err != nil {
		w.metrics.RecordCaptureError(ctx, "read")
		w.logger.Error("pipeline: capture failed", "device", dev.Name, "err", err)
		if cerr := stream.Close(); cerr != nil {
			w.logger.Warn("pipeline: closing failed stream", "err", cerr)
		}
		w.degraded(ctx, err)
	}
}

// capture runs the steady-state loop. It returns nil when ctx is done and the
// read error otherwise.
func (w *Worker) capture(ctx context.Context, stream capture.Stream, classifier vad.Classifier) error {
	asm := NewAssembler(w.cfg.StartSpeechMarginFrames, w.cfg.EndSpeechMarginFrames,
		time.Duration(w.cfg.MaxSegmentMs)*time.Millisecond)
	defer asm.Reset()

	for {
		raw, err := stream.Read(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}
		frame, ok := audio.Normalize(raw)
		if !ok {
			continue
		}
		speech := classifier.Classify(frame)
		w.metrics.RecordFrame(ctx, speech)
		if seg, done := asm.Push(Decision{Frame: frame, IsSpeech: speech}); done {
			w.finalize(ctx, seg)
		}
	}
}

// finalize transcribes seg and publishes the result.
func (w *Worker) finalize(ctx context.Context, seg Segment) {
	dur := seg.Duration()
	if dur <= 0 {
		return
	}
	ctx, span := observe.StartSpan(ctx, "pipeline.transcribe", trace.WithAttributes(
		attribute.Float64("segment.seconds", dur.Seconds()),
		attribute.Bool("segment.forced", seg.Forced),
		attribute.String("stt.engine", w.deps.STT.Name()),
	))
	defer span.End()

	w.metrics.RecordSegment(ctx, dur.Seconds(), seg.Forced)

	start := time.Now()
	text, err := w.deps.STT.TranscribeErr(ctx, seg.Samples())
	if w.deps.STT.IsAvailable() {
		w.metrics.RecordTranscription(ctx, w.deps.STT.Name(), time.Since(start).Seconds(), err != nil)
	}
	if err != nil && !errors.Is(err, stt.ErrUnavailable) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transcription failed")
		observe.Logger(ctx).Warn("pipeline: transcription failed", "seconds", dur.Seconds(), "err", err)
	}
	if ctx.Err() != nil {
		return
	}
	if text == "" {
		text = Placeholder(dur)
	}
	w.publish(ctx, TranscriptEvent{
		Text:      text,
		Timestamp: time.Now(),
		Kind:      KindLive,
		Duration:  dur,
	})
}

// Placeholder is the text published for a segment that produced no
// transcript.
func Placeholder(d time.Duration) string {
	return fmt.Sprintf("[No transcript] segment of approximately %.1f seconds, no transcription available", d.Seconds())
}

// noDevice publishes the no-device diagnostic immediately and then every
// NoDeviceInterval until ctx is done.
func (w *Worker) noDevice(ctx context.Context) {
	w.logger.Info("pipeline: no capture device found",
		"preferred", w.cfg.DeviceName, "loopback_only", w.cfg.LoopbackOnly)
	msg := "[No audio device] no capture device found; start a new session once one is connected"
	repeat(ctx, w.cfg.NoDeviceInterval, func() { w.diagnose(ctx, msg) })
}

// degraded publishes a description of err immediately and then every
// DegradedInterval until ctx is done.
func (w *Worker) degraded(ctx context.Context, err error) {
	msg := fmt.Sprintf("[Capture error] %s: %v", ErrorClass(err), err)
	repeat(ctx, w.cfg.DegradedInterval, func() { w.diagnose(ctx, msg) })
}

// ErrorClass names the category of a capture failure for diagnostics.
func ErrorClass(err error) string {
	switch {
	case errors.Is(err, capture.ErrDeviceLost):
		return "device lost"
	case errors.Is(err, capture.ErrStreamClosed):
		return "stream closed"
	case errors.Is(err, capture.ErrOpenFailed):
		return "open failed"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "read error"
	}
}

func (w *Worker) diagnose(ctx context.Context, text string) {
	w.publish(ctx, TranscriptEvent{Text: text, Timestamp: time.Now(), Kind: KindDiagnostic})
}

func (w *Worker) publish(ctx context.Context, ev TranscriptEvent) {
	ev.SessionID = w.deps.SessionID
	w.metrics.RecordEvent(ctx, ev.Kind.String())
	w.deps.Sink.Publish(ev)
}

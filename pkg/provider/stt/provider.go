// Package stt defines the Provider interface for speech-to-text backends and
// the Capability wrapper the pipeline uses to call them.
//
// A Provider turns one finished speech segment (16 kHz mono float32 samples)
// into text. Backends include a whisper.cpp server reached over HTTP, the
// whisper.cpp library linked through CGO (build tag "whispercpp") and the
// OpenAI transcription API.
//
// The pipeline never talks to a Provider directly. It holds a [Capability],
// which is either Available (wrapping a Provider) or Unavailable (carrying the
// reason construction failed). [Capability.Transcribe] never fails: errors,
// panics and the unavailable variant all yield the empty string, and the caller
// decides what to publish instead.
package stt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrUnavailable is returned by provider constructors whose backend is not
// compiled in or not configured.
var ErrUnavailable = errors.New("stt: engine unavailable")

// Provider transcribes a complete audio segment.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Transcribe returns the text spoken in samples, which are mono float32 at
	// 16 kHz. An empty string with a nil error means no speech was recognised.
	Transcribe(ctx context.Context, samples []float32) (string, error)
}

// Capability is the explicit availability state of a transcription engine.
// The zero value is unavailable.
type Capability struct {
	name     string
	provider Provider
	reason   string
}

// Available wraps p under the given diagnostic name.
func Available(name string, p Provider) Capability {
	if p == nil {
		return Unavailable("no provider configured")
	}
	return Capability{name: name, provider: p}
}

// Unavailable records why no engine could be constructed.
func Unavailable(reason string) Capability {
	return Capability{reason: reason}
}

// IsAvailable reports whether an engine is present.
func (c Capability) IsAvailable() bool { return c.provider != nil }

// Name returns the engine name, or "none" when unavailable.
func (c Capability) Name() string {
	if c.provider == nil {
		return "none"
	}
	return c.name
}

// Reason returns why the engine is unavailable, or "" when available.
func (c Capability) Reason() string {
	if c.provider != nil {
		return ""
	}
	if c.reason == "" {
		return "not configured"
	}
	return c.reason
}

// String describes the capability for diagnostics.
func (c Capability) String() string {
	if c.provider == nil {
		return "unavailable (" + c.Reason() + ")"
	}
	return c.name
}

// Transcribe runs the engine and returns its text. It returns "" when the
// engine is unavailable, fails or panics.
func (c Capability) Transcribe(ctx context.Context, samples []float32) (text string) {
	text, _ = c.TranscribeErr(ctx, samples)
	return text
}

// TranscribeErr is like [Capability.Transcribe] but also reports the failure
// that produced an empty result, for metrics and logging.
func (c Capability) TranscribeErr(ctx context.Context, samples []float32) (text string, err error) {
	if c.provider == nil {
		return "", ErrUnavailable
	}
	if len(samples) == 0 {
		return "", nil
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("stt: engine panicked", "engine", c.name, "panic", r)
			text, err = "", fmt.Errorf("stt: %s: panic: %v", c.name, r)
		}
	}()
	text, err = c.provider.Transcribe(ctx, samples)
	if err != nil {
		return "", fmt.Errorf("stt: %s: %w", c.name, err)
	}
	return text, nil
}

// Close closes the wrapped provider when it implements io.Closer.
func (c Capability) Close() error {
	if cl, ok := c.provider.(interface{ Close() error }); ok {
		return cl.Close()
	}
	return nil
}

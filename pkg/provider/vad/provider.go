// Package vad classifies normalized audio frames as speech or non-speech.
//
// Two kinds of classifier exist:
//
//   - [External] wraps a frame-level [Detector] such as WebRTC VAD or Silero
//     VAD. Detectors consume 16-bit PCM and are constructed through a
//     [DetectorFactory] so that the aggressiveness level can be applied.
//   - [Energy] is a pure-Go RMS threshold used whenever no detector is
//     available.
//
// [Select] picks between them once, when a pipeline starts. Detector backends
// that need CGO live in sub-packages (vad/webrtc, vad/silero) and are compiled
// only with their build tag; without it their factories return
// [ErrUnavailable].
//
// A Classifier is owned by a single pipeline goroutine and need not be safe for
// concurrent use.
package vad

import (
	"errors"

	"github.com/MrWong99/interviewassist/pkg/audio"
)

// ErrUnavailable is returned by detector factories whose backend is not
// compiled into the binary or cannot be initialised.
var ErrUnavailable = errors.New("vad: detector unavailable")

// MaxAggressiveness is the highest accepted aggressiveness level. Level 0 is
// the least aggressive (most frames classified as speech).
const MaxAggressiveness = 3

// Detector is a frame-level speech detector operating on 16-bit signed
// little-endian mono PCM.
type Detector interface {
	// Process reports whether pcm, sampled at sampleRate, contains speech. An
	// error means this frame could not be classified; the detector remains
	// usable for subsequent frames.
	Process(sampleRate int, pcm []byte) (bool, error)

	// Close releases the detector's resources. Calling Close more than once is
	// safe and returns nil.
	Close() error
}

// DetectorFactory constructs a [Detector] at the given aggressiveness level
// (0..[MaxAggressiveness]).
type DetectorFactory func(aggressiveness int) (Detector, error)

// Classifier maps a normalized frame to a speech / non-speech decision.
type Classifier interface {
	// Classify returns true when frame contains speech. It never fails: a
	// frame that cannot be classified is treated as non-speech.
	Classify(frame audio.NormalizedFrame) bool

	// Name identifies the variant for diagnostics (e.g. "webrtc", "energy").
	Name() string

	// Close releases any underlying detector.
	Close() error
}

// ClampAggressiveness limits level to the accepted range.
func ClampAggressiveness(level int) int {
	return min(max(level, 0), MaxAggressiveness)
}

// Package audio defines the frame types that flow through the capture
// pipeline and the pure conversion functions between them.
//
// Capture backends produce [RawFrame] values at whatever rate and channel
// layout the device was opened with. [Normalize] mixes them down to mono and
// resamples to [CanonicalSampleRate], yielding a [NormalizedFrame] that the
// voice-activity classifier, the segment assembler and the transcription
// engines all consume.
//
// All functions in this package are pure and safe for concurrent use.
package audio

import "time"

// CanonicalSampleRate is the rate in Hz of every [NormalizedFrame]. Both the
// voice-activity detectors and the transcription engines expect 16 kHz mono.
const CanonicalSampleRate = 16000

// RawFrame is a block of samples exactly as delivered by a capture device.
type RawFrame struct {
	// Samples holds interleaved float32 samples (frame-major: L0 R0 L1 R1 …
	// for stereo). Values are nominally in [-1, 1] but are not clamped.
	Samples []float32

	// Channels is the number of interleaved channels in Samples.
	Channels int

	// SampleRate is the capture rate in Hz.
	SampleRate int

	// Timestamp is the wall-clock time the frame was captured.
	Timestamp time.Time
}

// Frames returns the number of sample frames (samples per channel).
func (f RawFrame) Frames() int {
	if f.Channels <= 0 {
		return len(f.Samples)
	}
	return len(f.Samples) / f.Channels
}

// Duration returns the wall-clock duration covered by the frame.
func (f RawFrame) Duration() time.Duration {
	return samplesDuration(f.Frames(), f.SampleRate)
}

// NormalizedFrame is mono float32 audio at [CanonicalSampleRate]. A
// NormalizedFrame produced by [Normalize] is never empty.
type NormalizedFrame struct {
	Samples []float32

	// Timestamp is copied from the originating [RawFrame].
	Timestamp time.Time
}

// Duration returns the wall-clock duration covered by the frame.
func (f NormalizedFrame) Duration() time.Duration {
	return samplesDuration(len(f.Samples), CanonicalSampleRate)
}

// SamplesDuration returns how long n mono samples last at CanonicalSampleRate.
func SamplesDuration(n int) time.Duration {
	return samplesDuration(n, CanonicalSampleRate)
}

func samplesDuration(n, rate int) time.Duration {
	if rate <= 0 || n <= 0 {
		return 0
	}
	return time.Duration(int64(n) * int64(time.Second) / int64(rate))
}

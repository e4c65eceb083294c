package vad

import (
	"log/slog"

	"github.com/MrWong99/interviewassist/pkg/audio"
)

// DefaultEnergyThreshold is the RMS level above which [Energy] reports speech.
const DefaultEnergyThreshold = 0.01

// Energy classifies a frame as speech when its RMS amplitude exceeds
// Threshold.
type Energy struct {
	Threshold float64
}

// NewEnergy returns an Energy classifier. A non-positive threshold selects
// [DefaultEnergyThreshold].
func NewEnergy(threshold float64) *Energy {
	if threshold <= 0 {
		threshold = DefaultEnergyThreshold
	}
	return &Energy{Threshold: threshold}
}

// Classify implements [Classifier].
func (e *Energy) Classify(frame audio.NormalizedFrame) bool {
	return audio.RMS(frame.Samples) > e.Threshold
}

// Name implements [Classifier].
func (e *Energy) Name() string { return "energy" }

// Close implements [Classifier]. It is a no-op.
func (e *Energy) Close() error { return nil }

// External delegates classification to a [Detector].
type External struct {
	name     string
	detector Detector
	failures int
}

// NewExternal wraps detector under the given diagnostic name.
func NewExternal(name string, detector Detector) *External {
	return &External{name: name, detector: detector}
}

// Classify encodes frame as 16-bit PCM and asks the detector. Detector errors
// classify the frame as non-speech.
func (x *External) Classify(frame audio.NormalizedFrame) bool {
	speech, err := x.detector.Process(audio.CanonicalSampleRate, audio.EncodePCM16(frame.Samples))
	if err != nil {
		x.failures++
		if x.failures == 1 || x.failures%500 == 0 {
			slog.Warn("vad: detector failed on frame, treating as non-speech",
				"detector", x.name, "failures", x.failures, "err", err)
		}
		return false
	}
	return speech
}

// Failures returns the number of frames the detector failed to classify.
func (x *External) Failures() int { return x.failures }

// Name implements [Classifier].
func (x *External) Name() string { return x.name }

// Close closes the wrapped detector.
func (x *External) Close() error { return x.detector.Close() }

// Select builds the classifier for a pipeline run. When factory is non-nil and
// succeeds, the returned classifier is an [External] named name; otherwise it
// is an [Energy] classifier at energyThreshold.
func Select(name string, factory DetectorFactory, aggressiveness int, energyThreshold float64) Classifier {
	if factory != nil {
		det, err := factory(ClampAggressiveness(aggressiveness))
		if err == nil {
			return NewExternal(name, det)
		}
		slog.Info("vad: detector unavailable, using energy threshold",
			"detector", name, "err", err)
	}
	return NewEnergy(energyThreshold)
}

var (
	_ Classifier = (*Energy)(nil)
	_ Classifier = (*External)(nil)
)

package pipeline

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the tunables for a single [Worker]. A Config is copied into the
// worker at construction and never changes afterwards.
type Config struct {
	// DeviceName is matched case-insensitively against device names. Empty
	// selects the first loopback device.
	DeviceName string

	// LoopbackOnly restricts enumeration to loopback devices.
	LoopbackOnly bool

	// VADAggressiveness ranges from 0 (least aggressive) to 3.
	VADAggressiveness int

	// FrameDurationMs is the length of each captured frame.
	FrameDurationMs int

	// StartSpeechMarginFrames is the number of consecutive speech frames that
	// opens a segment.
	StartSpeechMarginFrames int

	// EndSpeechMarginFrames is the number of consecutive silence frames that
	// closes a segment.
	EndSpeechMarginFrames int

	// MaxSegmentMs force-closes a segment that grows past this length. Zero
	// disables the limit.
	MaxSegmentMs int

	// EnergyThreshold is the RMS level above which the energy classifier
	// reports speech.
	EnergyThreshold float64

	// SimulatorInterval is the delay between simulated transcripts.
	SimulatorInterval time.Duration

	// NoDeviceInterval is the delay between repeated no-device diagnostics.
	NoDeviceInterval time.Duration

	// DegradedInterval is the delay between repeated capture-error diagnostics.
	DegradedInterval time.Duration

	// StopTimeout bounds how long [Worker.Stop] waits for the worker to exit.
	StopTimeout time.Duration
}

// DefaultConfig returns the standard pipeline settings: 30 ms frames, a
// 3-frame onset, an 8-frame hangover and 30 s maximum segments.
func DefaultConfig() Config {
	return Config{
		VADAggressiveness:       2,
		FrameDurationMs:         30,
		StartSpeechMarginFrames: 3,
		EndSpeechMarginFrames:   8,
		MaxSegmentMs:            30000,
		EnergyThreshold:         0.01,
		SimulatorInterval:       1200 * time.Millisecond,
		NoDeviceInterval:        time.Second,
		DegradedInterval:        2 * time.Second,
		StopTimeout:             2 * time.Second,
	}
}

// FrameDuration returns FrameDurationMs as a [time.Duration].
func (c Config) FrameDuration() time.Duration {
	return time.Duration(c.FrameDurationMs) * time.Millisecond
}

// withDefaults fills zero-valued fields from [DefaultConfig].
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.FrameDurationMs <= 0 {
		c.FrameDurationMs = d.FrameDurationMs
	}
	if c.StartSpeechMarginFrames <= 0 {
		c.StartSpeechMarginFrames = d.StartSpeechMarginFrames
	}
	if c.EndSpeechMarginFrames <= 0 {
		c.EndSpeechMarginFrames = d.EndSpeechMarginFrames
	}
	if c.EnergyThreshold <= 0 {
		c.EnergyThreshold = d.EnergyThreshold
	}
	if c.SimulatorInterval <= 0 {
		c.SimulatorInterval = d.SimulatorInterval
	}
	if c.NoDeviceInterval <= 0 {
		c.NoDeviceInterval = d.NoDeviceInterval
	}
	if c.DegradedInterval <= 0 {
		c.DegradedInterval = d.DegradedInterval
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = d.StopTimeout
	}
	return c
}

// Validate reports every out-of-range field.
func (c Config) Validate() error {
	var errs []error
	if c.VADAggressiveness < 0 || c.VADAggressiveness > 3 {
		errs = append(errs, fmt.Errorf("vad aggressiveness %d out of range [0,3]", c.VADAggressiveness))
	}
	switch c.FrameDurationMs {
	case 0, 10, 20, 30:
	default:
		errs = append(errs, fmt.Errorf("frame duration %d ms must be 10, 20 or 30", c.FrameDurationMs))
	}
	if c.StartSpeechMarginFrames < 0 {
		errs = append(errs, fmt.Errorf("start speech margin %d must not be negative", c.StartSpeechMarginFrames))
	}
	if c.EndSpeechMarginFrames < 0 {
		errs = append(errs, fmt.Errorf("end speech margin %d must not be negative", c.EndSpeechMarginFrames))
	}
	if c.MaxSegmentMs < 0 {
		errs = append(errs, fmt.Errorf("max segment %d ms must not be negative", c.MaxSegmentMs))
	}
	if c.EnergyThreshold < 0 || c.EnergyThreshold >= 1 {
		errs = append(errs, fmt.Errorf("energy threshold %v out of range [0,1)", c.EnergyThreshold))
	}
	return errors.Join(errs...)
}

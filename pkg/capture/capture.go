// Package capture defines the interfaces for audio input devices and the
// device-selection and sample-rate negotiation logic shared by all backends.
//
// The two primary abstractions are:
//
//   - [Backend]: enumerates devices and opens capture streams.
//   - [Stream]: an open device delivering [audio.RawFrame] values until it is
//     closed or the device goes away.
//
// Backends live in sub-packages. The miniaudio backend (capture/miniaudio)
// provides system loopback on Windows via WASAPI and regular input capture
// elsewhere; it is compiled only with the "miniaudio" build tag. When no backend
// is compiled in, the pipeline falls back to its transcript simulator.
package capture

import (
	"context"
	"errors"
	"time"

	"github.com/MrWong99/interviewassist/pkg/audio"
)

var (
	// ErrNoBackend is returned by backend constructors that were not compiled
	// into the binary.
	ErrNoBackend = errors.New("capture: no capture backend available")

	// ErrOpenFailed is returned by [Negotiate] when no candidate sample rate
	// could be opened. The wrapped error joins every per-rate failure.
	ErrOpenFailed = errors.New("capture: failed to open device at any supported rate")

	// ErrDeviceLost is returned by [Stream.Read] when the device disappears or
	// stops delivering audio unexpectedly.
	ErrDeviceLost = errors.New("capture: device lost")

	// ErrStreamClosed is returned by [Stream.Read] after [Stream.Close].
	ErrStreamClosed = errors.New("capture: stream closed")
)

// FallbackRates lists the sample rates tried, in order, after a device's
// reported default rate.
var FallbackRates = []int{48000, 44100, 32000, 16000}

// Device describes an audio input endpoint.
type Device struct {
	// ID is the backend-specific identifier used to open the device.
	ID string

	// Name is the human-readable device name.
	Name string

	// IsLoopback reports whether the device captures system output rather than
	// a microphone.
	IsLoopback bool

	// DefaultSampleRate is the device's native rate in Hz, or 0 when unknown.
	DefaultSampleRate int
}

// Stream is an open capture device.
//
// Read blocks until one frame of roughly the configured frame duration is
// available. Implementations must be safe for a single reader plus a
// concurrent Close.
type Stream interface {
	// Read returns the next raw frame. It returns ctx.Err() when ctx is
	// cancelled, [ErrDeviceLost] when the device fails, and [ErrStreamClosed]
	// after Close.
	Read(ctx context.Context) (audio.RawFrame, error)

	// SampleRate returns the rate the stream was opened at.
	SampleRate() int

	// Channels returns the number of interleaved channels per frame.
	Channels() int

	// Close stops the device and releases its resources. Calling Close more
	// than once is safe and returns nil.
	Close() error
}

// Backend enumerates and opens capture devices.
type Backend interface {
	// Devices lists the available input devices. When loopbackOnly is true
	// only loopback endpoints are returned.
	Devices(loopbackOnly bool) ([]Device, error)

	// Open starts capturing from dev at sampleRate. frameDuration controls how
	// much audio each [Stream.Read] returns. Open fails when the device does
	// not accept the rate.
	Open(dev Device, sampleRate int, frameDuration time.Duration) (Stream, error)

	// Close releases backend-wide resources such as the audio context.
	Close() error
}

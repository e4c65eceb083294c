// Package mock provides test doubles for the capture package interfaces.
//
// Use Backend to control device enumeration and which sample rates open
// successfully. Use Stream to script the frames a pipeline reads and the error
// it sees once the script runs out.
//
// Example:
//
//	stream := &mock.Stream{Frames: frames, Rate: 48000, Chans: 2}
//	b := &mock.Backend{
//	    DeviceList: []capture.Device{{ID: "1", Name: "Speakers (loopback)", IsLoopback: true}},
//	    Stream:     stream,
//	}
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/MrWong99/interviewassist/pkg/audio"
	"github.com/MrWong99/interviewassist/pkg/capture"
)

// DevicesCall records a single invocation of Backend.Devices.
type DevicesCall struct {
	LoopbackOnly bool
}

// OpenCall records a single invocation of Backend.Open.
type OpenCall struct {
	Device        capture.Device
	SampleRate    int
	FrameDuration time.Duration
}

// Backend is a mock implementation of capture.Backend.
type Backend struct {
	mu sync.Mutex

	// DeviceList is returned by Devices. When Devices is called with
	// loopbackOnly set, only entries with IsLoopback are returned.
	DeviceList []capture.Device

	// DevicesErr, if non-nil, is returned as the error from Devices.
	DevicesErr error

	// OpenErrs maps a sample rate to the error Open returns for it. Rates not
	// present open successfully.
	OpenErrs map[int]error

	// Stream is returned by successful Open calls. If nil, Open returns a new
	// empty Stream at the requested rate.
	Stream *Stream

	// CloseErr, if non-nil, is returned by Close.
	CloseErr error

	// --- Call records ---

	DevicesCalls   []DevicesCall
	OpenCalls      []OpenCall
	CloseCallCount int
}

// Devices records the call and returns DeviceList, DevicesErr.
func (b *Backend) Devices(loopbackOnly bool) ([]capture.Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.DevicesCalls = append(b.DevicesCalls, DevicesCall{LoopbackOnly: loopbackOnly})
	if b.DevicesErr != nil {
		return nil, b.DevicesErr
	}
	if !loopbackOnly {
		return append([]capture.Device(nil), b.DeviceList...), nil
	}
	var out []capture.Device
	for _, d := range b.DeviceList {
		if d.IsLoopback {
			out = append(out, d)
		}
	}
	return out, nil
}

// Open records the call and returns Stream or the error configured for the
// requested rate.
func (b *Backend) Open(dev capture.Device, sampleRate int, frameDuration time.Duration) (capture.Stream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.OpenCalls = append(b.OpenCalls, OpenCall{Device: dev, SampleRate: sampleRate, FrameDuration: frameDuration})
	if err := b.OpenErrs[sampleRate]; err != nil {
		return nil, err
	}
	if b.Stream != nil {
		return b.Stream, nil
	}
	return &Stream{Rate: sampleRate, Chans: 1}, nil
}

// Close records the call and returns CloseErr.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.CloseCallCount++
	return b.CloseErr
}

// Calls returns a snapshot of the recorded Open calls. Thread-safe.
func (b *Backend) Calls() []OpenCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]OpenCall(nil), b.OpenCalls...)
}

var _ capture.Backend = (*Backend)(nil)

// Stream is a mock implementation of capture.Stream.
//
// Read returns Frames in order. Once they are exhausted it returns ReadErr if
// set, and otherwise blocks until the context is cancelled or Close is called.
type Stream struct {
	mu sync.Mutex

	// Frames are delivered by successive Read calls.
	Frames []audio.RawFrame

	// ReadErr, if non-nil, is returned once Frames is exhausted.
	ReadErr error

	// Rate and Chans are reported by SampleRate and Channels.
	Rate  int
	Chans int

	// CloseErr, if non-nil, is returned by Close.
	CloseErr error

	// --- Call records ---

	ReadCallCount  int
	CloseCallCount int

	next   int
	closed chan struct{}
}

func (s *Stream) closedCh() chan struct{} {
	if s.closed == nil {
		s.closed = make(chan struct{})
	}
	return s.closed
}

// Read returns the next scripted frame.
func (s *Stream) Read(ctx context.Context) (audio.RawFrame, error) {
	s.mu.Lock()
	s.ReadCallCount++
	closed := s.closedCh()
	select {
	case <-closed:
		s.mu.Unlock()
		return audio.RawFrame{}, capture.ErrStreamClosed
	default:
	}
	if s.next < len(s.Frames) {
		f := s.Frames[s.next]
		s.next++
		s.mu.Unlock()
		return f, nil
	}
	err := s.ReadErr
	s.mu.Unlock()
	if err != nil {
		return audio.RawFrame{}, err
	}
	select {
	case <-ctx.Done():
		return audio.RawFrame{}, ctx.Err()
	case <-closed:
		return audio.RawFrame{}, capture.ErrStreamClosed
	}
}

// SampleRate returns Rate.
func (s *Stream) SampleRate() int { return s.Rate }

// Channels returns Chans.
func (s *Stream) Channels() int { return s.Chans }

// Close records the call, unblocks pending reads and returns CloseErr.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCallCount++
	ch := s.closedCh()
	select {
	case <-ch:
	default:
		close(ch)
	}
	return s.CloseErr
}

// Reads returns the number of Read calls. Thread-safe.
func (s *Stream) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ReadCallCount
}

// Closes returns the number of Close calls. Thread-safe.
func (s *Stream) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.CloseCallCount
}

var _ capture.Stream = (*Stream)(nil)

// Package mock provides test doubles for the vad package interfaces.
//
// Use Detector to script speech decisions and inspect the PCM frames that
// were submitted. Use Factory to hand a Detector (or an error) to code that
// takes a vad.DetectorFactory.
//
// Example:
//
//	det := &mock.Detector{Results: []bool{false, true, true}}
//	factory := mock.Factory(det, nil)
//	cls := vad.Select("mock", factory, 2, 0)
package mock

import (
	"sync"

	"github.com/MrWong99/interviewassist/pkg/provider/vad"
)

// ProcessCall records a single invocation of Detector.Process.
type ProcessCall struct {
	// SampleRate is the rate passed to Process.
	SampleRate int
	// PCM is a copy of the bytes passed to Process.
	PCM []byte
}

// Detector is a mock implementation of vad.Detector.
type Detector struct {
	mu sync.Mutex

	// Results are returned by successive Process calls. Once exhausted,
	// Default is returned.
	Results []bool

	// Default is returned after Results is exhausted.
	Default bool

	// ProcessErr, if non-nil, is returned by every Process call.
	ProcessErr error

	// CloseErr, if non-nil, is returned by Close.
	CloseErr error

	// --- Call records ---

	// ProcessCalls records every call to Process in order.
	ProcessCalls []ProcessCall

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int
}

// Process records the call and returns the next scripted result.
func (d *Detector) Process(sampleRate int, pcm []byte) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := make([]byte, len(pcm))
	copy(cp, pcm)
	idx := len(d.ProcessCalls)
	d.ProcessCalls = append(d.ProcessCalls, ProcessCall{SampleRate: sampleRate, PCM: cp})
	if d.ProcessErr != nil {
		return false, d.ProcessErr
	}
	if idx < len(d.Results) {
		return d.Results[idx], nil
	}
	return d.Default, nil
}

// Close records the call and returns CloseErr.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CloseCallCount++
	return d.CloseErr
}

// Calls returns the number of Process calls. Thread-safe.
func (d *Detector) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.ProcessCalls)
}

var _ vad.Detector = (*Detector)(nil)

// Factory returns a vad.DetectorFactory yielding det, or err when non-nil.
func Factory(det vad.Detector, err error) vad.DetectorFactory {
	return func(int) (vad.Detector, error) {
		if err != nil {
			return nil, err
		}
		return det, nil
	}
}

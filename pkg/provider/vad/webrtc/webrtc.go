//go:build webrtcvad

// Package webrtc provides a vad.Detector backed by the WebRTC voice activity
// detector. WebRTC VAD accepts 10, 20 or 30 ms frames; longer frames are split
// into the largest accepted chunks and report speech when any chunk does.
package webrtc

import (
	"errors"
	"fmt"
	"sync"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"

	"github.com/MrWong99/interviewassist/pkg/provider/vad"
)

// chunkMs lists the accepted frame durations, longest first.
var chunkMs = []int{30, 20, 10}

// Available reports that the WebRTC detector is compiled in.
func Available() bool { return true }

// Detector wraps a single WebRTC VAD instance.
type Detector struct {
	mu  sync.Mutex
	vad *webrtcvad.VAD
}

// New creates a WebRTC detector at the given aggressiveness (0..3).
func New(aggressiveness int) (vad.Detector, error) {
	v, err := webrtcvad.New()
	if err != nil {
		return nil, fmt.Errorf("webrtc vad: create: %w", err)
	}
	if err := v.SetMode(vad.ClampAggressiveness(aggressiveness)); err != nil {
		return nil, fmt.Errorf("webrtc vad: set mode %d: %w", aggressiveness, err)
	}
	return &Detector{vad: v}, nil
}

// Process implements vad.Detector.
func (d *Detector) Process(sampleRate int, pcm []byte) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.vad == nil {
		return false, errors.New("webrtc vad: detector closed")
	}

	samples := len(pcm) / 2
	processed := false
	for off := 0; off < samples; {
		n := d.chunkSamples(sampleRate, samples-off)
		if n == 0 {
			break
		}
		speech, err := d.vad.Process(sampleRate, pcm[off*2:(off+n)*2])
		if err != nil {
			return false, fmt.Errorf("webrtc vad: process: %w", err)
		}
		if speech {
			return true, nil
		}
		processed = true
		off += n
	}
	if !processed {
		return false, fmt.Errorf("webrtc vad: frame of %d samples at %d Hz is shorter than 10 ms", samples, sampleRate)
	}
	return false, nil
}

// chunkSamples returns the largest accepted chunk that fits in remaining
// samples, or 0 when none does.
func (d *Detector) chunkSamples(sampleRate, remaining int) int {
	for _, ms := range chunkMs {
		n := sampleRate * ms / 1000
		if n <= remaining && d.vad.ValidRateAndFrameLength(sampleRate, n) {
			return n
		}
	}
	return 0
}

// Close implements vad.Detector.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.vad = nil
	return nil
}

var _ vad.Detector = (*Detector)(nil)

//go:build !webrtcvad

package webrtc

import (
	"fmt"

	"github.com/MrWong99/interviewassist/pkg/provider/vad"
)

// Available reports that no WebRTC detector is compiled in.
func Available() bool { return false }

// New returns vad.ErrUnavailable when built without the webrtcvad tag.
func New(_ int) (vad.Detector, error) {
	return nil, fmt.Errorf("webrtc vad: build without -tags webrtcvad: %w", vad.ErrUnavailable)
}

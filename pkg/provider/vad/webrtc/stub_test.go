//go:build !webrtcvad

package webrtc_test

import (
	"errors"
	"testing"

	"github.com/MrWong99/interviewassist/pkg/provider/vad"
	"github.com/MrWong99/interviewassist/pkg/provider/vad/webrtc"
)

func TestStub(t *testing.T) {
	if webrtc.Available() {
		t.Error("Available() = true without webrtcvad tag")
	}
	if _, err := webrtc.New(2); !errors.Is(err, vad.ErrUnavailable) {
		t.Errorf("New: got %v, want ErrUnavailable", err)
	}
	// Select must degrade to the energy classifier.
	if c := vad.Select("webrtc", webrtc.New, 2, 0); c.Name() != "energy" {
		t.Errorf("Select: got %q, want energy", c.Name())
	}
}

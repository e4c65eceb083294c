package health

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrWong99/interviewassist/pkg/capture"
	"github.com/MrWong99/interviewassist/pkg/provider/stt"
)

// CaptureChecker reports whether backend can see a capture device. A nil
// backend means the binary runs the simulator, which always passes.
func CaptureChecker(backend capture.Backend, loopbackOnly bool) Checker {
	return Checker{
		Name:     "capture",
		Optional: true,
		Check: func(context.Context) error {
			if backend == nil {
				return nil
			}
			devices, err := backend.Devices(loopbackOnly)
			if err != nil {
				return fmt.Errorf("enumerate devices: %w", err)
			}
			if len(devices) == 0 {
				return errors.New("no capture device found")
			}
			return nil
		},
	}
}

// TranscriptionChecker reports whether a transcription engine is available.
func TranscriptionChecker(c stt.Capability) Checker {
	return Checker{
		Name:     "transcription",
		Optional: true,
		Check: func(context.Context) error {
			if !c.IsAvailable() {
				return errors.New(c.Reason())
			}
			return nil
		},
	}
}

// PingChecker wraps a required dependency probe such as a database ping.
func PingChecker(name string, ping func(ctx context.Context) error) Checker {
	return Checker{Name: name, Check: ping}
}

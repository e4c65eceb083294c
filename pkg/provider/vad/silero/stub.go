//go:build !silero

package silero

import (
	"fmt"

	"github.com/MrWong99/interviewassist/pkg/provider/vad"
)

// Available reports that no Silero detector is compiled in.
func Available() bool { return false }

// NewFactory returns a factory that always fails with vad.ErrUnavailable
// when built without the silero tag.
func NewFactory(_ Options) vad.DetectorFactory {
	return func(int) (vad.Detector, error) {
		return nil, fmt.Errorf("silero: build without -tags silero: %w", vad.ErrUnavailable)
	}
}

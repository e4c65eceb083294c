// Package silero provides a vad.Detector running the Silero VAD v5 ONNX model
// through ONNX Runtime. It is compiled in only with the "silero" build tag;
// otherwise [NewFactory] yields factories that return vad.ErrUnavailable.
package silero

import (
	"os"
	"runtime"

	"github.com/MrWong99/interviewassist/pkg/provider/vad"
)

// LibraryPathEnv overrides the ONNX Runtime shared library location when no
// path is configured.
const LibraryPathEnv = "ONNXRUNTIME_LIB_PATH"

// thresholds maps aggressiveness 0..3 to the speech probability threshold.
var thresholds = [vad.MaxAggressiveness + 1]float32{0.3, 0.5, 0.65, 0.8}

// Threshold returns the speech probability threshold for an aggressiveness
// level. Out-of-range levels are clamped.
func Threshold(aggressiveness int) float32 {
	return thresholds[vad.ClampAggressiveness(aggressiveness)]
}

// Options configures the Silero detector.
type Options struct {
	// ModelPath is the path to silero_vad.onnx. Required.
	ModelPath string

	// LibraryPath is the ONNX Runtime shared library. When empty,
	// [LibraryPathEnv] is consulted, then the platform default filename is
	// left to the system loader.
	LibraryPath string
}

// libraryPath resolves the ONNX Runtime library to load.
func (o Options) libraryPath() string {
	if o.LibraryPath != "" {
		return o.LibraryPath
	}
	if p := os.Getenv(LibraryPathEnv); p != "" {
		return p
	}
	switch runtime.GOOS {
	case "darwin":
		return "libonnxruntime.dylib"
	case "windows":
		return "onnxruntime.dll"
	default:
		return "libonnxruntime.so"
	}
}

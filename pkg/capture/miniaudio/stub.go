//go:build !miniaudio

package miniaudio

import "github.com/MrWong99/interviewassist/pkg/capture"

// Available reports that no miniaudio backend is compiled in.
func Available() bool { return false }

// Backend is the placeholder type used when built without the miniaudio tag.
// It cannot be constructed.
type Backend struct{ capture.Backend }

// New returns [capture.ErrNoBackend] when built without the miniaudio tag.
func New() (*Backend, error) {
	return nil, capture.ErrNoBackend
}

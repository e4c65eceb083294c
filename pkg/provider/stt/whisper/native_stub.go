//go:build !whispercpp

package whisper

import (
	"context"
	"fmt"

	"github.com/MrWong99/interviewassist/pkg/provider/stt"
)

// NativeAvailable reports that the whisper.cpp bindings are not compiled in.
func NativeAvailable() bool { return false }

// NativeProvider is the placeholder type used when built without the
// whispercpp tag. It cannot be constructed.
type NativeProvider struct{}

// NativeOption is a functional option for configuring a NativeProvider.
type NativeOption func(*NativeProvider)

// WithNativeLanguage is accepted for API compatibility and has no effect.
func WithNativeLanguage(string) NativeOption {
	return func(*NativeProvider) {}
}

// NewNative returns stt.ErrUnavailable when built without the whispercpp tag.
func NewNative(string, ...NativeOption) (*NativeProvider, error) {
	return nil, fmt.Errorf("whisper: build without -tags whispercpp: %w", stt.ErrUnavailable)
}

// Transcribe always fails; see [NewNative].
func (*NativeProvider) Transcribe(context.Context, []float32) (string, error) {
	return "", stt.ErrUnavailable
}

// Close is a no-op.
func (*NativeProvider) Close() error { return nil }

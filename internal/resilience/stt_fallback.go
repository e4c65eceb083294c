package resilience

import (
	"context"
	"io"

	"github.com/MrWong99/interviewassist/pkg/provider/stt"
)

// STTFallback is an [stt.Provider] that sends each segment to the first
// healthy engine in priority order.
type STTFallback struct {
	group *FallbackGroup[stt.Provider]
}

var _ stt.Provider = (*STTFallback)(nil)

// NewSTTFallback creates an [STTFallback] with primary as the preferred engine.
func NewSTTFallback(primary stt.Provider, primaryName string, cfg FallbackConfig) *STTFallback {
	return &STTFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers an engine tried after all earlier ones.
func (f *STTFallback) AddFallback(name string, p stt.Provider) {
	f.group.AddFallback(name, p)
}

// Names returns the engine names in priority order.
func (f *STTFallback) Names() []string { return f.group.Names() }

// Transcribe implements [stt.Provider].
func (f *STTFallback) Transcribe(ctx context.Context, samples []float32) (string, error) {
	return ExecuteWithResult(ctx, f.group, func(p stt.Provider) (string, error) {
		return p.Transcribe(ctx, samples)
	})
}

// Close closes every engine that implements [io.Closer].
func (f *STTFallback) Close() error {
	var firstErr error
	for _, e := range f.group.entries {
		if c, ok := e.value.(io.Closer); ok {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

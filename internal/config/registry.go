package config

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/MrWong99/interviewassist/pkg/capture"
	"github.com/MrWong99/interviewassist/pkg/provider/stt"
	"github.com/MrWong99/interviewassist/pkg/provider/vad"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps names to constructor functions for capture backends, voice
// activity detectors and transcription engines. It is safe for concurrent
// use.
type Registry struct {
	mu      sync.RWMutex
	capture map[CaptureBackend]func(CaptureConfig) (capture.Backend, error)
	vad     map[VADBackend]func(VADConfig) (vad.DetectorFactory, error)
	stt     map[string]func(EngineEntry) (stt.Provider, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		capture: make(map[CaptureBackend]func(CaptureConfig) (capture.Backend, error)),
		vad:     make(map[VADBackend]func(VADConfig) (vad.DetectorFactory, error)),
		stt:     make(map[string]func(EngineEntry) (stt.Provider, error)),
	}
}

// RegisterCapture registers a capture backend factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterCapture(name CaptureBackend, factory func(CaptureConfig) (capture.Backend, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capture[name] = factory
}

// RegisterVAD registers a voice-activity detector factory under name.
func (r *Registry) RegisterVAD(name VADBackend, factory func(VADConfig) (vad.DetectorFactory, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vad[name] = factory
}

// RegisterSTT registers a transcription engine factory under name.
func (r *Registry) RegisterSTT(name string, factory func(EngineEntry) (stt.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stt[name] = factory
}

// CreateCapture instantiates the capture backend selected by cfg.Backend.
// Returns [ErrProviderNotRegistered] if no factory has been registered for it.
func (r *Registry) CreateCapture(cfg CaptureConfig) (capture.Backend, error) {
	r.mu.RLock()
	factory, ok := r.capture[cfg.Backend]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: capture/%q", ErrProviderNotRegistered, cfg.Backend)
	}
	return factory(cfg)
}

// CreateVAD instantiates the detector factory selected by cfg.Backend.
func (r *Registry) CreateVAD(cfg VADConfig) (vad.DetectorFactory, error) {
	r.mu.RLock()
	factory, ok := r.vad[cfg.Backend]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: vad/%q", ErrProviderNotRegistered, cfg.Backend)
	}
	return factory(cfg)
}

// CreateSTT instantiates the transcription engine registered under
// entry.Name.
func (r *Registry) CreateSTT(entry EngineEntry) (stt.Provider, error) {
	r.mu.RLock()
	factory, ok := r.stt[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: stt/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// STTNames returns the registered transcription engine names, sorted.
func (r *Registry) STTNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.stt))
	for n := range r.stt {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

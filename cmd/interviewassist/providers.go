package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrWong99/interviewassist/internal/config"
	"github.com/MrWong99/interviewassist/internal/pipeline"
	"github.com/MrWong99/interviewassist/internal/resilience"
	"github.com/MrWong99/interviewassist/pkg/capture"
	"github.com/MrWong99/interviewassist/pkg/capture/miniaudio"
	"github.com/MrWong99/interviewassist/pkg/provider/stt"
	"github.com/MrWong99/interviewassist/pkg/provider/stt/deepgram"
	"github.com/MrWong99/interviewassist/pkg/provider/stt/openai"
	"github.com/MrWong99/interviewassist/pkg/provider/stt/whisper"
	"github.com/MrWong99/interviewassist/pkg/provider/vad"
	"github.com/MrWong99/interviewassist/pkg/provider/vad/silero"
	"github.com/MrWong99/interviewassist/pkg/provider/vad/webrtc"
)

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires every built-in factory into reg. Backends
// compiled without their build tag register anyway and fail at creation with
// an unavailable error.
func registerBuiltinProviders(reg *config.Registry) {
	// ── Capture ───────────────────────────────────────────────────────────────
	reg.RegisterCapture(config.CaptureMiniaudio, func(config.CaptureConfig) (capture.Backend, error) {
		b, err := miniaudio.New()
		if err != nil {
			return nil, err
		}
		return b, nil
	})
	reg.RegisterCapture(config.CaptureNone, func(config.CaptureConfig) (capture.Backend, error) {
		return nil, nil
	})

	// ── VAD ───────────────────────────────────────────────────────────────────
	reg.RegisterVAD(config.VADWebRTC, func(config.VADConfig) (vad.DetectorFactory, error) {
		return webrtc.New, nil
	})
	reg.RegisterVAD(config.VADSilero, func(c config.VADConfig) (vad.DetectorFactory, error) {
		return silero.NewFactory(silero.Options{ModelPath: c.ModelPath, LibraryPath: c.LibraryPath}), nil
	})
	reg.RegisterVAD(config.VADEnergy, func(config.VADConfig) (vad.DetectorFactory, error) {
		return nil, nil
	})

	// ── STT ───────────────────────────────────────────────────────────────────
	reg.RegisterSTT("openai", func(entry config.EngineEntry) (stt.Provider, error) {
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		if entry.Language != "" {
			opts = append(opts, openai.WithLanguage(entry.Language))
		}
		if d := optDuration(entry.Options, "timeout"); d > 0 {
			opts = append(opts, openai.WithTimeout(d))
		}
		return openai.New(entry.APIKey, entry.Model, opts...)
	})

	reg.RegisterSTT("deepgram", func(entry config.EngineEntry) (stt.Provider, error) {
		var opts []deepgram.Option
		if entry.Language != "" {
			opts = append(opts, deepgram.WithLanguage(entry.Language))
		}
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, deepgram.WithEndpoint(entry.BaseURL))
		}
		return deepgram.New(entry.APIKey, opts...)
	})

	reg.RegisterSTT("whisper", func(entry config.EngineEntry) (stt.Provider, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if entry.Language != "" {
			opts = append(opts, whisper.WithLanguage(entry.Language))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterSTT("whisper-native", func(entry config.EngineEntry) (stt.Provider, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = optString(entry.Options, "model_path")
		}
		var opts []whisper.NativeOption
		if entry.Language != "" {
			opts = append(opts, whisper.WithNativeLanguage(entry.Language))
		}
		return whisper.NewNative(modelPath, opts...)
	})

	for _, name := range reg.STTNames() {
		slog.Debug("registered provider", "kind", "stt", "name", name)
	}
}

// buildDependencies instantiates the capture backend, voice-activity
// detector and transcription engines named in cfg. Failures degrade rather
// than abort: a missing capture backend selects the simulator, a missing
// detector the energy classifier, and missing engines placeholder transcripts.
// The returned func releases everything that was opened.
func buildDependencies(cfg *config.Config, reg *config.Registry) (pipeline.Dependencies, func()) {
	var (
		deps    pipeline.Dependencies
		closers []func() error
	)

	backend, err := reg.CreateCapture(cfg.Capture)
	switch {
	case err != nil:
		slog.Warn("capture backend unavailable, sessions will run the simulator",
			"backend", cfg.Capture.Backend, "err", err)
	case backend != nil:
		deps.Capture = backend
		closers = append(closers, backend.Close)
		slog.Info("provider created", "kind", "capture", "name", cfg.Capture.Backend)
	}

	factory, err := reg.CreateVAD(cfg.VAD)
	if err != nil {
		slog.Warn("vad backend unavailable, using energy threshold", "backend", cfg.VAD.Backend, "err", err)
	}
	deps.Detectors = factory
	deps.DetectorName = string(cfg.VAD.Backend)

	deps.STT = buildTranscription(cfg.Transcription, reg)
	closers = append(closers, deps.STT.Close)

	return deps, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				slog.Warn("provider close error", "err", err)
			}
		}
	}
}

// buildTranscription creates every configured engine. Engines that fail to
// construct are skipped; two or more survivors are combined behind a
// [resilience.STTFallback].
func buildTranscription(tc config.TranscriptionConfig, reg *config.Registry) stt.Capability {
	type built struct {
		name string
		p    stt.Provider
	}
	var (
		engines []built
		errs    []error
	)
	for _, entry := range tc.Engines {
		p, err := reg.CreateSTT(entry)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", entry.Name, err))
			slog.Warn("transcription engine unavailable", "name", entry.Name, "err", err)
			continue
		}
		engines = append(engines, built{name: entry.Name, p: p})
		slog.Info("provider created", "kind", "stt", "name", entry.Name, "model", entry.Model)
	}

	switch len(engines) {
	case 0:
		if len(errs) == 0 {
			return stt.Unavailable("no transcription engine configured")
		}
		return stt.Unavailable(errors.Join(errs...).Error())
	case 1:
		return stt.Available(engines[0].name, engines[0].p)
	}

	fb := resilience.NewSTTFallback(engines[0].p, engines[0].name, resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{
			MaxFailures:  3,
			ResetTimeout: 30 * time.Second,
		},
	})
	for _, e := range engines[1:] {
		fb.AddFallback(e.name, e.p)
	}
	return stt.Available(engines[0].name+"+fallback", fb)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from an engine Options map. Returns "" if
// the key is absent or not a string.
func optString(opts map[string]any, key string) string {
	s, _ := opts[key].(string)
	return s
}

// optDuration parses a duration string from an engine Options map. Returns 0
// if the key is absent or malformed.
func optDuration(opts map[string]any, key string) time.Duration {
	d, err := time.ParseDuration(optString(opts, key))
	if err != nil {
		return 0
	}
	return d
}

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// ValidEngineNames lists the transcription engines known to the binary. Used
// by [Validate] to warn about unrecognised names.
var ValidEngineNames = []string{"openai", "deepgram", "whisper", "whisper-native"}

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied. It is a convenience wrapper around
// [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and validates
// the result. An empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadBytes parses an in-memory YAML document.
func loadBytes(data []byte) (*Config, error) {
	return LoadFromReader(bytes.NewReader(data))
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Capture.Backend != "" && !cfg.Capture.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("capture.backend %q is invalid; valid values: miniaudio, none", cfg.Capture.Backend))
	}
	if cfg.VAD.Backend != "" && !cfg.VAD.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("vad.backend %q is invalid; valid values: webrtc, silero, energy", cfg.VAD.Backend))
	}
	if cfg.VAD.Backend == VADSilero && cfg.VAD.ModelPath == "" {
		errs = append(errs, errors.New("vad.model_path is required when vad.backend is silero"))
	}

	p := cfg.Pipeline
	if p.VADAggressiveness != nil && (*p.VADAggressiveness < 0 || *p.VADAggressiveness > 3) {
		errs = append(errs, fmt.Errorf("pipeline.vad_aggressiveness %d is out of range [0, 3]", *p.VADAggressiveness))
	}
	switch p.FrameDurationMs {
	case 0, 10, 20, 30:
	default:
		errs = append(errs, fmt.Errorf("pipeline.frame_duration_ms %d is invalid; valid values: 10, 20, 30", p.FrameDurationMs))
	}
	if p.StartSpeechMarginFrames < 0 {
		errs = append(errs, fmt.Errorf("pipeline.start_speech_margin_frames %d must not be negative", p.StartSpeechMarginFrames))
	}
	if p.EndSpeechMarginFrames < 0 {
		errs = append(errs, fmt.Errorf("pipeline.end_speech_margin_frames %d must not be negative", p.EndSpeechMarginFrames))
	}
	if p.MaxSegmentMs != nil && *p.MaxSegmentMs < 0 {
		errs = append(errs, fmt.Errorf("pipeline.max_segment_ms %d must not be negative", *p.MaxSegmentMs))
	}
	if p.EnergyThreshold < 0 || p.EnergyThreshold >= 1 {
		errs = append(errs, fmt.Errorf("pipeline.energy_threshold %v is out of range [0, 1)", p.EnergyThreshold))
	}
	for _, iv := range []struct {
		name string
		d    time.Duration
	}{
		{"simulator_interval", p.SimulatorInterval},
		{"no_device_interval", p.NoDeviceInterval},
		{"degraded_interval", p.DegradedInterval},
	} {
		if iv.d < 0 {
			errs = append(errs, fmt.Errorf("pipeline.%s %v must not be negative", iv.name, iv.d))
		}
	}

	if r := cfg.Telemetry.SampleRatio; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("telemetry.sample_ratio %v is out of range [0, 1]", r))
	}

	seen := make(map[string]int, len(cfg.Transcription.Engines))
	for i, e := range cfg.Transcription.Engines {
		prefix := fmt.Sprintf("transcription.engines[%d]", i)
		if e.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
			continue
		}
		if prev, ok := seen[e.Name]; ok {
			errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of transcription.engines[%d]", prefix, e.Name, prev))
		}
		seen[e.Name] = i
		validateEngineName(e.Name)
	}

	if len(cfg.Transcription.Engines) == 0 {
		slog.Warn("no transcription engine configured; segments will be reported as placeholders")
	}

	return errors.Join(errs...)
}

// validateEngineName logs a warning if name is not in [ValidEngineNames].
func validateEngineName(name string) {
	if slices.Contains(ValidEngineNames, name) {
		return
	}
	slog.Warn("unknown transcription engine name, may be a typo or third-party engine",
		"name", name,
		"known", ValidEngineNames,
	)
}

// Package config provides the configuration schema, loader, hot-reload watcher
// and provider registry for interviewassist.
package config

import (
	"log/slog"
	"time"

	"github.com/MrWong99/interviewassist/internal/pipeline"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// SlogLevel converts l to the matching [slog.Level]. Unknown values map to
// info.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// CaptureBackend selects the audio capture implementation.
type CaptureBackend string

const (
	// CaptureMiniaudio captures through miniaudio (WASAPI loopback on Windows).
	CaptureMiniaudio CaptureBackend = "miniaudio"

	// CaptureNone disables capture; sessions run the transcript simulator.
	CaptureNone CaptureBackend = "none"
)

// IsValid reports whether b is a recognised capture backend.
func (b CaptureBackend) IsValid() bool {
	return b == CaptureMiniaudio || b == CaptureNone
}

// VADBackend selects the voice-activity detector.
type VADBackend string

const (
	VADWebRTC VADBackend = "webrtc"
	VADSilero VADBackend = "silero"
	VADEnergy VADBackend = "energy"
)

// IsValid reports whether b is a recognised VAD backend.
func (b VADBackend) IsValid() bool {
	switch b {
	case VADWebRTC, VADSilero, VADEnergy:
		return true
	}
	return false
}

// Config is the root configuration structure. It is typically loaded from a
// YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Pipeline      PipelineSettings    `yaml:"pipeline"`
	Capture       CaptureConfig       `yaml:"capture"`
	VAD           VADConfig           `yaml:"vad"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Store         StoreConfig         `yaml:"store"`
	Telemetry     TelemetryConfig     `yaml:"telemetry"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address of the control API (e.g., "127.0.0.1:8765").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// AllowedOrigins lists host patterns allowed to open the live event feed
	// from a browser on another origin.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// PipelineSettings holds the defaults for every capture session. Zero values
// take the defaults of [pipeline.DefaultConfig].
type PipelineSettings struct {
	DeviceName              string        `yaml:"device_name"`
	LoopbackOnly            bool          `yaml:"loopback_only"`
	VADAggressiveness       *int          `yaml:"vad_aggressiveness"`
	FrameDurationMs         int           `yaml:"frame_duration_ms"`
	StartSpeechMarginFrames int           `yaml:"start_speech_margin_frames"`
	EndSpeechMarginFrames   int           `yaml:"end_speech_margin_frames"`
	MaxSegmentMs            *int          `yaml:"max_segment_ms"`
	EnergyThreshold         float64       `yaml:"energy_threshold"`
	SimulatorInterval       time.Duration `yaml:"simulator_interval"`
	NoDeviceInterval        time.Duration `yaml:"no_device_interval"`
	DegradedInterval        time.Duration `yaml:"degraded_interval"`

	// Autostart starts a session as soon as the server is up.
	Autostart bool `yaml:"autostart"`
}

// CaptureConfig selects the capture backend.
type CaptureConfig struct {
	// Backend defaults to miniaudio; binaries built without the miniaudio tag
	// fall back to the simulator.
	Backend CaptureBackend `yaml:"backend"`
}

// VADConfig selects and configures the voice-activity detector.
type VADConfig struct {
	// Backend defaults to webrtc. Unavailable detectors fall back to the
	// energy classifier.
	Backend VADBackend `yaml:"backend"`

	// ModelPath is the Silero ONNX model file.
	ModelPath string `yaml:"model_path"`

	// LibraryPath is the ONNX Runtime shared library.
	LibraryPath string `yaml:"library_path"`
}

// TranscriptionConfig lists transcription engines in priority order. When
// more than one is configured, later engines serve as fallbacks.
type TranscriptionConfig struct {
	// Language is the ISO-639-1 hint passed to every engine.
	Language string `yaml:"language"`

	// Engines are tried in order.
	Engines []EngineEntry `yaml:"engines"`
}

// EngineEntry is the common configuration block for a transcription engine.
// The Name field selects the constructor in the [Registry].
type EngineEntry struct {
	// Name selects the registered engine (e.g., "openai", "whisper").
	Name string `yaml:"name"`

	// APIKey authenticates against hosted engines.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the engine's default endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a model within the engine.
	Model string `yaml:"model"`

	// Language overrides transcription.language for this engine.
	Language string `yaml:"language"`

	// Options holds engine-specific values not covered above.
	Options map[string]any `yaml:"options"`
}

// StoreConfig configures transcript persistence.
type StoreConfig struct {
	// PostgresDSN enables the PostgreSQL transcript log when non-empty.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// TelemetryConfig configures OpenTelemetry resource attributes and tracing.
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`

	// SampleRatio is the fraction of root traces kept. 0 keeps all.
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills empty fields that have a non-zero default.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = "127.0.0.1:8765"
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Capture.Backend == "" {
		cfg.Capture.Backend = CaptureMiniaudio
	}
	if cfg.VAD.Backend == "" {
		cfg.VAD.Backend = VADWebRTC
	}
	if cfg.Transcription.Language == "" {
		cfg.Transcription.Language = "en"
	}
	for i := range cfg.Transcription.Engines {
		if cfg.Transcription.Engines[i].Language == "" {
			cfg.Transcription.Engines[i].Language = cfg.Transcription.Language
		}
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "interviewassist"
	}
}

// PipelineConfig converts the pipeline section into a [pipeline.Config],
// starting from [pipeline.DefaultConfig].
func (c *Config) PipelineConfig() pipeline.Config {
	p := pipeline.DefaultConfig()
	s := c.Pipeline
	p.DeviceName = s.DeviceName
	p.LoopbackOnly = s.LoopbackOnly
	if s.VADAggressiveness != nil {
		p.VADAggressiveness = *s.VADAggressiveness
	}
	if s.FrameDurationMs > 0 {
		p.FrameDurationMs = s.FrameDurationMs
	}
	if s.StartSpeechMarginFrames > 0 {
		p.StartSpeechMarginFrames = s.StartSpeechMarginFrames
	}
	if s.EndSpeechMarginFrames > 0 {
		p.EndSpeechMarginFrames = s.EndSpeechMarginFrames
	}
	if s.MaxSegmentMs != nil {
		p.MaxSegmentMs = *s.MaxSegmentMs
	}
	if s.EnergyThreshold > 0 {
		p.EnergyThreshold = s.EnergyThreshold
	}
	if s.SimulatorInterval > 0 {
		p.SimulatorInterval = s.SimulatorInterval
	}
	if s.NoDeviceInterval > 0 {
		p.NoDeviceInterval = s.NoDeviceInterval
	}
	if s.DegradedInterval > 0 {
		p.DegradedInterval = s.DegradedInterval
	}
	return p
}

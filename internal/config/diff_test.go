package config_test

import (
	"slices"
	"testing"

	"github.com/MrWong99/interviewassist/internal/config"
)

func TestDiff_NoChange(t *testing.T) {
	a, b := config.Default(), config.Default()
	d := config.Diff(a, b)
	if d.LogLevelChanged || d.PipelineChanged || len(d.RestartRequired) != 0 {
		t.Errorf("Diff of identical configs = %+v", d)
	}
}

func TestDiff_HotReloadable(t *testing.T) {
	a, b := config.Default(), config.Default()
	b.Server.LogLevel = config.LogDebug
	b.Pipeline.DeviceName = "Headset"

	d := config.Diff(a, b)
	if !d.LogLevelChanged || d.NewLogLevel != config.LogDebug {
		t.Errorf("log level diff = %+v", d)
	}
	if !d.PipelineChanged {
		t.Error("PipelineChanged = false after device_name change")
	}
	if len(d.RestartRequired) != 0 {
		t.Errorf("RestartRequired = %v, want none", d.RestartRequired)
	}
}

func TestDiff_RestartRequired(t *testing.T) {
	a, b := config.Default(), config.Default()
	b.Server.ListenAddr = ":1"
	b.Capture.Backend = config.CaptureNone
	b.VAD.Backend = config.VADEnergy
	b.Transcription.Engines = []config.EngineEntry{{Name: "openai"}}
	b.Store.PostgresDSN = "postgres://x"

	d := config.Diff(a, b)
	for _, want := range []string{"server.listen_addr", "capture", "vad", "transcription", "store"} {
		if !slices.Contains(d.RestartRequired, want) {
			t.Errorf("RestartRequired %v missing %q", d.RestartRequired, want)
		}
	}
}

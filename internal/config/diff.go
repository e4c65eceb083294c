package config

// ConfigDiff describes what changed between two configs. Only fields that can
// be applied without a restart are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// PipelineChanged reports that session defaults differ. The new values
	// apply to the next session; a running session keeps its configuration.
	PipelineChanged bool

	// RestartRequired lists sections whose changes only take effect after a
	// restart.
	RestartRequired []string
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.PipelineConfig() != new.PipelineConfig() || old.Pipeline.Autostart != new.Pipeline.Autostart {
		d.PipelineChanged = true
	}

	if old.Server.ListenAddr != new.Server.ListenAddr {
		d.RestartRequired = append(d.RestartRequired, "server.listen_addr")
	}
	if old.Capture != new.Capture {
		d.RestartRequired = append(d.RestartRequired, "capture")
	}
	if old.VAD != new.VAD {
		d.RestartRequired = append(d.RestartRequired, "vad")
	}
	if !transcriptionEqual(old.Transcription, new.Transcription) {
		d.RestartRequired = append(d.RestartRequired, "transcription")
	}
	if old.Store != new.Store {
		d.RestartRequired = append(d.RestartRequired, "store")
	}
	return d
}

// transcriptionEqual compares engine lists by their scalar fields.
func transcriptionEqual(a, b TranscriptionConfig) bool {
	if a.Language != b.Language || len(a.Engines) != len(b.Engines) {
		return false
	}
	for i := range a.Engines {
		x, y := a.Engines[i], b.Engines[i]
		if x.Name != y.Name || x.APIKey != y.APIKey || x.BaseURL != y.BaseURL ||
			x.Model != y.Model || x.Language != y.Language || len(x.Options) != len(y.Options) {
			return false
		}
	}
	return true
}

package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged  bool
	NewLogLevel      LogLevel
	VoiceChanged     bool
	TriggerChanged   bool
	SegmenterChanged bool
}

// Any reports whether the diff records at least one change.
func (d ConfigDiff) Any() bool {
	return d.LogLevelChanged || d.VoiceChanged || d.TriggerChanged || d.SegmenterChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart:
// provider wiring, languages, and the listen address require one.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Voice != new.Voice {
		d.VoiceChanged = true
	}

	if old.Trigger != new.Trigger {
		d.TriggerChanged = true
	}

	if old.Segmenter != new.Segmenter {
		d.SegmenterChanged = true
	}

	return d
}

package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"asr":       {"whisper"},
	"vad":       {"energy"},
	"punc":      {"openai", "passthrough"},
	"translate": {"openai"},
	"synth":     {"edge"},
}

// Load reads the YAML configuration file at path and returns a
// validated [Config]. It is a convenience wrapper around
// [LoadFromReader] and [Validate].
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

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed
// from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills unset fields with the engine's shipped tuning.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Session.FromLang == "" {
		cfg.Session.FromLang = "en"
	}
	if cfg.Session.ToLang == "" {
		cfg.Session.ToLang = "cn"
	}
	if cfg.Audio.SampleRate == 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.QueueCapacity == 0 {
		cfg.Audio.QueueCapacity = 64
	}
	if cfg.Segmenter.MinSentenceLength == 0 {
		cfg.Segmenter.MinSentenceLength = 15
	}
	if cfg.Segmenter.StabilityMs == 0 {
		cfg.Segmenter.StabilityMs = 800
	}
	if cfg.Segmenter.MaxWaitMs == 0 {
		cfg.Segmenter.MaxWaitMs = 3000
	}
	if cfg.Segmenter.SilenceMs == 0 {
		cfg.Segmenter.SilenceMs = 500
	}
	if cfg.Segmenter.MaxSegmentMs == 0 {
		cfg.Segmenter.MaxSegmentMs = 5000
	}
	if cfg.Trigger.MinSpacingMs == 0 {
		cfg.Trigger.MinSpacingMs = 1000
	}
	if cfg.Trigger.LongLength == 0 {
		cfg.Trigger.LongLength = 50
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Session.FromLang == "" {
		errs = append(errs, errors.New("session.from_lang is required"))
	}
	if cfg.Session.ToLang == "" {
		errs = append(errs, errors.New("session.to_lang is required"))
	}
	if cfg.Session.FromLang != "" && cfg.Session.FromLang == cfg.Session.ToLang {
		slog.Warn("source and target language are identical; translation will pass text through unchanged")
	}

	if cfg.Audio.SampleRate != 16000 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d is unsupported; the pipeline expects 16000", cfg.Audio.SampleRate))
	}

	if cfg.Segmenter.MinSentenceLength < 1 {
		errs = append(errs, fmt.Errorf("segmenter.min_sentence_length %d must be positive", cfg.Segmenter.MinSentenceLength))
	}
	if cfg.Segmenter.SilenceMs < 500 || cfg.Segmenter.SilenceMs > 1000 {
		errs = append(errs, fmt.Errorf("segmenter.silence_ms %d is out of range [500, 1000]", cfg.Segmenter.SilenceMs))
	}
	if cfg.Segmenter.MaxSegmentMs < 3000 || cfg.Segmenter.MaxSegmentMs > 5000 {
		errs = append(errs, fmt.Errorf("segmenter.max_segment_ms %d is out of range [3000, 5000]", cfg.Segmenter.MaxSegmentMs))
	}
	if cfg.Segmenter.StabilityMs > cfg.Segmenter.MaxWaitMs {
		errs = append(errs, fmt.Errorf("segmenter.stability_ms %d exceeds max_wait_ms %d", cfg.Segmenter.StabilityMs, cfg.Segmenter.MaxWaitMs))
	}

	for _, v := range []struct {
		name  string
		value int
	}{
		{"voice.rate", cfg.Voice.Rate},
		{"voice.volume", cfg.Voice.Volume},
		{"voice.pitch", cfg.Voice.Pitch},
	} {
		if v.value < -100 || v.value > 100 {
			errs = append(errs, fmt.Errorf("%s %d is out of range [-100, 100]", v.name, v.value))
		}
	}

	validateProviderName("asr", cfg.Providers.ASR.Name)
	validateProviderName("vad", cfg.Providers.VAD.Name)
	validateProviderName("punc", cfg.Providers.Punc.Name)
	validateProviderName("translate", cfg.Providers.Translate.Name)
	validateProviderName("synth", cfg.Providers.Synth.Name)

	if cfg.Providers.ASR.Name == "" {
		errs = append(errs, errors.New("providers.asr.name is required"))
	}
	if cfg.Providers.Translate.Name == "" && cfg.Session.FromLang != cfg.Session.ToLang {
		errs = append(errs, errors.New("providers.translate.name is required for differing languages"))
	}
	if cfg.Providers.Punc.Name == "" {
		slog.Warn("no punctuation provider configured; sentence boundaries rely on the recognizer's own punctuation")
	}
	if cfg.Transcript.PostgresDSN == "" {
		slog.Warn("transcript.postgres_dsn is empty; session transcripts are kept in memory only")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not
// found in the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}

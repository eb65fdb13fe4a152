package config_test

import (
	"strings"
	"testing"

	"github.com/intgg/translator/internal/config"
)

const validYAML = `
session:
  from_lang: en
  to_lang: cn
providers:
  asr:
    name: whisper
  translate:
    name: openai
  synth:
    name: edge
`

func TestLoadFromReader_ValidConfig(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Session.FromLang != "en" || cfg.Session.ToLang != "cn" {
		t.Errorf("languages = %q -> %q, want en -> cn", cfg.Session.FromLang, cfg.Session.ToLang)
	}
	if cfg.Providers.ASR.Name != "whisper" {
		t.Errorf("asr provider = %q, want whisper", cfg.Providers.ASR.Name)
	}
}

func TestLoadFromReader_AppliesDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("sample rate = %d, want 16000", cfg.Audio.SampleRate)
	}
	if cfg.Audio.QueueCapacity != 64 {
		t.Errorf("queue capacity = %d, want 64", cfg.Audio.QueueCapacity)
	}
	if cfg.Segmenter.MinSentenceLength != 15 {
		t.Errorf("min sentence length = %d, want 15", cfg.Segmenter.MinSentenceLength)
	}
	if cfg.Segmenter.StabilityMs != 800 || cfg.Segmenter.MaxWaitMs != 3000 {
		t.Errorf("stability/max wait = %d/%d, want 800/3000", cfg.Segmenter.StabilityMs, cfg.Segmenter.MaxWaitMs)
	}
	if cfg.Segmenter.SilenceMs != 500 || cfg.Segmenter.MaxSegmentMs != 5000 {
		t.Errorf("silence/max segment = %d/%d, want 500/5000", cfg.Segmenter.SilenceMs, cfg.Segmenter.MaxSegmentMs)
	}
	if cfg.Trigger.MinSpacingMs != 1000 || cfg.Trigger.LongLength != 50 {
		t.Errorf("trigger spacing/long = %d/%d, want 1000/50", cfg.Trigger.MinSpacingMs, cfg.Trigger.LongLength)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("listen addr = %q, want :8080", cfg.Server.ListenAddr)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()
	yaml := validYAML + `
bogus_section:
  key: value
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unknown top-level field, got nil")
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: verbose
` + validYAML
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestValidate_SilenceOutOfRange(t *testing.T) {
	t.Parallel()
	yaml := validYAML + `
segmenter:
  silence_ms: 2000
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for out-of-range silence_ms, got nil")
	}
	if !strings.Contains(err.Error(), "silence_ms") {
		t.Errorf("error should mention silence_ms, got: %v", err)
	}
}

func TestValidate_MaxSegmentOutOfRange(t *testing.T) {
	t.Parallel()
	yaml := validYAML + `
segmenter:
  max_segment_ms: 10000
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for out-of-range max_segment_ms, got nil")
	}
}

func TestValidate_VoiceRanges(t *testing.T) {
	t.Parallel()
	yaml := validYAML + `
voice:
  rate: 150
  pitch: -200
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors for out-of-range voice settings, got nil")
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "voice.rate") {
		t.Errorf("error should mention voice.rate, got: %v", err)
	}
	if !strings.Contains(errStr, "voice.pitch") {
		t.Errorf("error should mention voice.pitch, got: %v", err)
	}
}

func TestValidate_UnsupportedSampleRate(t *testing.T) {
	t.Parallel()
	yaml := validYAML + `
audio:
  sample_rate: 44100
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unsupported sample rate, got nil")
	}
	if !strings.Contains(err.Error(), "sample_rate") {
		t.Errorf("error should mention sample_rate, got: %v", err)
	}
}

func TestValidate_MissingASRProvider(t *testing.T) {
	t.Parallel()
	yaml := `
session:
  from_lang: en
  to_lang: cn
providers:
  translate:
    name: openai
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for missing ASR provider, got nil")
	}
	if !strings.Contains(err.Error(), "providers.asr") {
		t.Errorf("error should mention providers.asr, got: %v", err)
	}
}

func TestValidate_StabilityExceedsMaxWait(t *testing.T) {
	t.Parallel()
	yaml := validYAML + `
segmenter:
  stability_ms: 4000
  max_wait_ms: 3000
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error when stability exceeds max wait, got nil")
	}
}

func TestValidProviderNames(t *testing.T) {
	t.Parallel()
	if len(config.ValidProviderNames) == 0 {
		t.Fatal("ValidProviderNames should not be empty")
	}
	asrNames := config.ValidProviderNames["asr"]
	if len(asrNames) == 0 {
		t.Fatal("ValidProviderNames[\"asr\"] should not be empty")
	}
	found := false
	for _, n := range asrNames {
		if n == "whisper" {
			found = true
			break
		}
	}
	if !found {
		t.Error("ValidProviderNames[\"asr\"] should contain \"whisper\"")
	}
}

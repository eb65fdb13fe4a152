// Command interpreter is the real-time speech interpretation server: it
// listens for streamed audio, recognises and segments speech, translates
// finished sentences, and speaks the translation.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/intgg/translator/internal/app"
	"github.com/intgg/translator/internal/config"
	"github.com/intgg/translator/internal/observe"
	"github.com/intgg/translator/internal/resilience"
	"github.com/intgg/translator/pkg/provider/asr"
	"github.com/intgg/translator/pkg/provider/asr/whisper"
	"github.com/intgg/translator/pkg/provider/punc"
	puncopenai "github.com/intgg/translator/pkg/provider/punc/openai"
	"github.com/intgg/translator/pkg/provider/synth"
	"github.com/intgg/translator/pkg/provider/synth/edge"
	"github.com/intgg/translator/pkg/provider/translate"
	translateopenai "github.com/intgg/translator/pkg/provider/translate/openai"
	"github.com/intgg/translator/pkg/provider/vad"
	"github.com/intgg/translator/pkg/provider/vad/energy"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "interpreter: config file %q not found; copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "interpreter: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("interpreter starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry providers; /metrics is served by the app's HTTP surface.
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "interpreter"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	reg := config.NewRegistry()
	registerBuiltinProviders(reg, cfg.Voice)

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, providers)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("server ready, press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the provider
// from the real implementation packages. The voice config is captured so
// an explicitly named voice can be pinned on the synthesizer.
func registerBuiltinProviders(reg *config.Registry, voice config.VoiceConfig) {
	reg.RegisterASR("whisper", func(entry config.ProviderEntry) (asr.Recognizer, error) {
		var opts []whisper.Option
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.Model, opts...)
	})

	reg.RegisterVAD("energy", func(entry config.ProviderEntry) (vad.Detector, error) {
		var opts []energy.Option
		if speech := optFloat(entry.Options, "speech_threshold"); speech > 0 {
			silence := optFloat(entry.Options, "silence_threshold")
			opts = append(opts, energy.WithThresholds(speech, silence))
		}
		return energy.New(opts...), nil
	})

	reg.RegisterPunc("openai", func(entry config.ProviderEntry) (punc.Restorer, error) {
		var opts []puncopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, puncopenai.WithBaseURL(entry.BaseURL))
		}
		return puncopenai.New(entry.APIKey, entry.Model, opts...)
	})

	reg.RegisterPunc("passthrough", func(entry config.ProviderEntry) (punc.Restorer, error) {
		return punc.Passthrough{}, nil
	})

	reg.RegisterTranslate("openai", func(entry config.ProviderEntry) (translate.Translator, error) {
		var opts []translateopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, translateopenai.WithBaseURL(entry.BaseURL))
		}
		return translateopenai.New(entry.APIKey, entry.Model, opts...)
	})

	reg.RegisterSynth("edge", func(entry config.ProviderEntry) (synth.Synthesizer, error) {
		var opts []edge.Option
		if entry.BaseURL != "" {
			opts = append(opts, edge.WithEndpoint(entry.BaseURL))
		}
		if voice.Name != "" {
			opts = append(opts, edge.WithVoice(voice.Name))
		}
		return edge.New(opts...), nil
	})
}

// buildProviders instantiates all providers named in cfg using the registry
// and returns them in an [app.Providers] struct.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}

	p, err := reg.CreateASR(cfg.Providers.ASR)
	if err != nil {
		return nil, fmt.Errorf("create asr provider %q: %w", cfg.Providers.ASR.Name, err)
	}
	ps.ASR = p
	slog.Info("provider created", "kind", "asr", "name", cfg.Providers.ASR.Name)

	v, err := reg.CreateVAD(cfg.Providers.VAD)
	if err != nil {
		return nil, fmt.Errorf("create vad provider %q: %w", cfg.Providers.VAD.Name, err)
	}
	ps.VAD = v
	slog.Info("provider created", "kind", "vad", "name", cfg.Providers.VAD.Name)

	if name := cfg.Providers.Punc.Name; name != "" {
		r, err := reg.CreatePunc(cfg.Providers.Punc)
		if err != nil {
			return nil, fmt.Errorf("create punc provider %q: %w", name, err)
		}
		ps.Punc = r
		slog.Info("provider created", "kind", "punc", "name", name)
	}

	if name := cfg.Providers.Translate.Name; name != "" {
		tr, err := reg.CreateTranslate(cfg.Providers.Translate)
		if err != nil {
			return nil, fmt.Errorf("create translate provider %q: %w", name, err)
		}
		// Translation is retried per tick until a sentence stabilises,
		// so a dead backend gets a circuit breaker rather than a
		// network timeout per attempt.
		ps.Translate = resilience.NewTranslator(tr, resilience.Settings{Name: "translate/" + name})
		slog.Info("provider created", "kind", "translate", "name", name)
	}

	s, err := reg.CreateSynth(cfg.Providers.Synth)
	if err != nil {
		return nil, fmt.Errorf("create synth provider %q: %w", cfg.Providers.Synth.Name, err)
	}
	ps.Synth = s
	slog.Info("provider created", "kind", "synth", "name", cfg.Providers.Synth.Name)

	return ps, nil
}

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║      interpreter startup summary      ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("ASR", cfg.Providers.ASR.Name, cfg.Providers.ASR.Model)
	printProvider("VAD", cfg.Providers.VAD.Name, "")
	printProvider("Punctuation", cfg.Providers.Punc.Name, cfg.Providers.Punc.Model)
	printProvider("Translate", cfg.Providers.Translate.Name, cfg.Providers.Translate.Model)
	printProvider("Synth", cfg.Providers.Synth.Name, "")
	fmt.Printf("║  Languages       : %-19s ║\n", cfg.Session.FromLang+" -> "+cfg.Session.ToLang)
	if cfg.Transcript.PostgresDSN != "" {
		fmt.Printf("║  Transcripts     : %-19s ║\n", "postgres")
	} else {
		fmt.Printf("║  Transcripts     : %-19s ║\n", "in-memory")
	}
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// optString extracts a string value from a provider Options map.
// Returns "" if the map is nil, the key is absent, or the value is not a
// string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	s, _ := opts[key].(string)
	return s
}

// optFloat extracts a float value from a provider Options map. YAML
// decodes untagged numbers as int or float64; both are accepted.
func optFloat(opts map[string]any, key string) float64 {
	if opts == nil {
		return 0
	}
	switch v := opts[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

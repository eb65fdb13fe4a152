package app_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/intgg/translator/internal/app"
	"github.com/intgg/translator/internal/config"
	"github.com/intgg/translator/internal/transcriptstore"
	asrmock "github.com/intgg/translator/pkg/provider/asr/mock"
	synthmock "github.com/intgg/translator/pkg/provider/synth/mock"
	translatemock "github.com/intgg/translator/pkg/provider/translate/mock"
	vadmock "github.com/intgg/translator/pkg/provider/vad/mock"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Server.ListenAddr = "127.0.0.1:0"
	return cfg
}

func testProviders() *app.Providers {
	return &app.Providers{
		ASR:       &asrmock.Recognizer{},
		VAD:       &vadmock.Detector{},
		Translate: &translatemock.Translator{},
		Synth:     &synthmock.Synthesizer{},
	}
}

func TestNew_RequiresProviders(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()

	cases := []struct {
		name string
		mod  func(*app.Providers)
	}{
		{"missing asr", func(p *app.Providers) { p.ASR = nil }},
		{"missing vad", func(p *app.Providers) { p.VAD = nil }},
		{"missing synth", func(p *app.Providers) { p.Synth = nil }},
		{"missing translate", func(p *app.Providers) { p.Translate = nil }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ps := testProviders()
			tc.mod(ps)
			if _, err := app.New(ctx, cfg, ps); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestNew_TranslateOptionalForSameLanguage(t *testing.T) {
	cfg := testConfig()
	cfg.Session.FromLang = "en"
	cfg.Session.ToLang = "en"
	ps := testProviders()
	ps.Translate = nil

	if _, err := app.New(context.Background(), cfg, ps, app.WithStore(transcriptstore.NewMemStore())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_AppliesVoiceSettings(t *testing.T) {
	cfg := testConfig()
	cfg.Session.ToLang = "cn"
	cfg.Voice.Rate = 15
	cfg.Voice.Pitch = -10
	ps := testProviders()
	syn := ps.Synth.(*synthmock.Synthesizer)

	if _, err := app.New(context.Background(), cfg, ps, app.WithStore(transcriptstore.NewMemStore())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if syn.Params.Rate != 15 || syn.Params.Pitch != -10 {
		t.Errorf("params = %+v, want rate 15 pitch -10", syn.Params)
	}
	if len(syn.Voices) != 1 || syn.Voices[0] != "cn" {
		t.Errorf("voice selections = %v, want [cn]", syn.Voices)
	}
}

func TestNew_PinnedVoiceSkipsLanguageSelection(t *testing.T) {
	cfg := testConfig()
	cfg.Voice.Name = "zh-CN-YunxiNeural"
	ps := testProviders()
	syn := ps.Synth.(*synthmock.Synthesizer)

	if _, err := app.New(context.Background(), cfg, ps, app.WithStore(transcriptstore.NewMemStore())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(syn.Voices) != 0 {
		t.Errorf("expected no language-based voice selection, got %v", syn.Voices)
	}
}

func TestRun_ServesHTTPSurface(t *testing.T) {
	cfg := testConfig()
	a, err := app.New(context.Background(), cfg, testProviders(), app.WithStore(transcriptstore.NewMemStore()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- a.Run(ctx) }()

	addr := waitForAddr(t, a)
	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		resp, err := http.Get(fmt.Sprintf("http://%s%s", addr, path))
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s: status %d, want 200", path, resp.StatusCode)
		}
	}

	cancel()
	select {
	case err := <-runDone:
		if err != nil {
			t.Errorf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestShutdown_Idempotent(t *testing.T) {
	cfg := testConfig()
	a, err := app.New(context.Background(), cfg, testProviders(), app.WithStore(transcriptstore.NewMemStore()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	if err := a.Shutdown(ctx); err != nil {
		t.Errorf("first shutdown: %v", err)
	}
	if err := a.Shutdown(ctx); err != nil {
		t.Errorf("second shutdown: %v", err)
	}
}

func waitForAddr(t *testing.T, a *app.App) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if addr := a.Addr(); addr != "" {
			return addr
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("listener did not come up")
	return ""
}

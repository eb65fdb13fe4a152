// Package app wires the interpreter subsystems into a running service.
//
// New constructs the full pipeline from config plus instantiated providers,
// Run drives the session and the HTTP surface until the context is
// cancelled, and Shutdown tears everything down in order.
//
// For testing, inject doubles via functional options (WithStore, WithFeed).
// When an option is not provided, New creates real implementations from the
// config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/intgg/translator/internal/config"
	"github.com/intgg/translator/internal/endpoint"
	"github.com/intgg/translator/internal/eventfeed"
	"github.com/intgg/translator/internal/health"
	"github.com/intgg/translator/internal/observe"
	"github.com/intgg/translator/internal/pipeline"
	"github.com/intgg/translator/internal/recog"
	"github.com/intgg/translator/internal/segment"
	"github.com/intgg/translator/internal/transcriptstore"
	translatesvc "github.com/intgg/translator/internal/translate"
	"github.com/intgg/translator/internal/trigger"
	"github.com/intgg/translator/pkg/audio"
	"github.com/intgg/translator/pkg/provider/asr"
	"github.com/intgg/translator/pkg/provider/punc"
	"github.com/intgg/translator/pkg/provider/synth"
	"github.com/intgg/translator/pkg/provider/translate"
	"github.com/intgg/translator/pkg/provider/vad"
)

// Providers holds one interface value per provider slot. Populated by
// main.go via the config registry. ASR, VAD, and Synth are required;
// Punc falls back to a passthrough and Translate may be nil when source
// and target language are identical.
type Providers struct {
	ASR       asr.Recognizer
	VAD       vad.Detector
	Punc      punc.Restorer
	Translate translate.Translator
	Synth     synth.Synthesizer
}

// App owns all subsystem lifetimes for one interpretation session.
type App struct {
	cfg       *config.Config
	providers *Providers
	sessionID string

	store   transcriptstore.Store
	feed    *eventfeed.Hub
	metrics *observe.Metrics
	ready   *health.ReadyFlag
	pipe    *pipeline.Pipeline
	server  *http.Server

	// closers are called in order during Shutdown.
	closers []func() error

	stopOnce sync.Once

	addrMu sync.Mutex
	addr   string
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a transcript store instead of creating one from config.
func WithStore(s transcriptstore.Store) Option {
	return func(a *App) { a.store = s }
}

// WithFeed injects an event hub instead of creating a fresh one.
func WithFeed(h *eventfeed.Hub) Option {
	return func(a *App) { a.feed = h }
}

// New creates an App by wiring all subsystems together. The providers
// struct comes from main.go (populated via the config registry).
//
// New performs all initialisation synchronously: transcript store
// connection, synthesizer voice selection, and pipeline assembly. When
// it returns without error the session is ready to Run.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	a := &App{
		cfg:       cfg,
		providers: providers,
		sessionID: uuid.NewString(),
		ready:     &health.ReadyFlag{},
		metrics:   observe.DefaultMetrics(),
	}
	for _, o := range opts {
		o(a)
	}

	if err := a.checkProviders(); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init transcript store: %w", err)
	}
	a.initFeed()
	if err := a.initVoice(); err != nil {
		return nil, fmt.Errorf("app: init voice: %w", err)
	}
	a.initPipeline()
	a.initServer()

	return a, nil
}

// checkProviders verifies that every provider slot the session needs is
// populated. Config validation catches most of this earlier; this guards
// direct embedders of the package.
func (a *App) checkProviders() error {
	if a.providers == nil {
		return errors.New("providers must not be nil")
	}
	if a.providers.ASR == nil {
		return errors.New("an ASR provider is required")
	}
	if a.providers.VAD == nil {
		return errors.New("a VAD provider is required")
	}
	if a.providers.Synth == nil {
		return errors.New("a synthesis provider is required")
	}
	if a.providers.Translate == nil && a.cfg.Session.FromLang != a.cfg.Session.ToLang {
		return fmt.Errorf("a translation provider is required for %s -> %s",
			a.cfg.Session.FromLang, a.cfg.Session.ToLang)
	}
	return nil
}

// initStore sets up the PostgreSQL transcript store, or keeps everything
// in memory when no DSN is configured.
func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		return nil
	}

	dsn := a.cfg.Transcript.PostgresDSN
	if dsn == "" {
		a.store = transcriptstore.NewMemStore()
		return nil
	}

	store, err := transcriptstore.NewPostgresStore(ctx, dsn)
	if err != nil {
		return err
	}
	a.store = store
	a.closers = append(a.closers, func() error {
		store.Close()
		return nil
	})
	return nil
}

func (a *App) initFeed() {
	if a.feed != nil {
		return
	}
	a.feed = eventfeed.NewHub()
	a.closers = append(a.closers, func() error {
		a.feed.Close()
		return nil
	})
}

// initVoice applies the configured speech shaping and, unless an explicit
// voice was pinned at provider construction, picks a voice matching the
// target language.
func (a *App) initVoice() error {
	a.providers.Synth.SetParams(synth.Params{
		Rate:   a.cfg.Voice.Rate,
		Volume: a.cfg.Voice.Volume,
		Pitch:  a.cfg.Voice.Pitch,
	})
	if a.cfg.Voice.Name != "" {
		return nil
	}
	if err := a.providers.Synth.SetVoiceForLanguage(a.cfg.Session.ToLang); err != nil {
		return fmt.Errorf("select voice for %q: %w", a.cfg.Session.ToLang, err)
	}
	return nil
}

// initPipeline builds every pipeline stage from config and assembles the
// session.
func (a *App) initPipeline() {
	seg := a.cfg.Segmenter
	trg := a.cfg.Trigger

	restorer := a.providers.Punc
	if restorer == nil {
		restorer = punc.Passthrough{}
	}

	recogOpts := recog.DefaultOptions()
	recogOpts.SampleRate = a.cfg.Audio.SampleRate

	segOpts := segment.DefaultOptions()
	segOpts.MinSentenceLength = seg.MinSentenceLength
	segOpts.StabilityThreshold = time.Duration(seg.StabilityMs) * time.Millisecond
	segOpts.MaxWait = time.Duration(seg.MaxWaitMs) * time.Millisecond

	polOpts := trigger.DefaultOptions()
	polOpts.MinLength = seg.MinSentenceLength
	polOpts.MinSpacing = time.Duration(trg.MinSpacingMs) * time.Millisecond
	polOpts.LongLength = trg.LongLength

	svc := translatesvc.NewService(a.providers.Translate, a.cfg.Session.FromLang, a.cfg.Session.ToLang)

	a.pipe = pipeline.New(
		pipeline.Options{
			SessionID:  a.sessionID,
			FromLang:   a.cfg.Session.FromLang,
			ToLang:     a.cfg.Session.ToLang,
			SampleRate: a.cfg.Audio.SampleRate,
			MaxSegment: time.Duration(seg.MaxSegmentMs) * time.Millisecond,
		},
		pipeline.Deps{
			Queue:     audio.NewQueue(a.cfg.Audio.QueueCapacity),
			Endpoint:  endpoint.NewDetector(a.providers.VAD, 200),
			Silence:   endpoint.NewSilenceDetector(endpoint.WithSilenceDuration(time.Duration(seg.SilenceMs) * time.Millisecond)),
			Recog:     recog.NewBuffer(a.providers.ASR, restorer, recogOpts, slog.Default()),
			Segments:  segment.NewManager(segOpts),
			Policy:    trigger.NewPolicy(polOpts),
			Stability: trigger.NewStabilityTracker(time.Now),
			Translate: svc,
			Synth:     a.providers.Synth,
			Store:     a.store,
			Feed:      a.feed,
			Metrics:   a.metrics,
		},
	)
}

// initServer assembles the HTTP surface: health probes, Prometheus
// metrics, the websocket event feed, and the websocket audio intake.
func (a *App) initServer() {
	checkers := []health.Checker{a.ready.Checker("pipeline")}
	if p, ok := a.store.(interface{ Ping(context.Context) error }); ok {
		checkers = append(checkers, health.Checker{
			Name:  "transcript_store",
			Check: p.Ping,
		})
	}

	mux := http.NewServeMux()
	health.New(checkers...).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("GET /events", a.feed)
	mux.HandleFunc("GET /ingest", a.handleIngest)

	a.server = &http.Server{
		Addr:              a.cfg.Server.ListenAddr,
		Handler:           observe.Middleware(a.metrics)(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Push enqueues a captured audio frame for processing. It never blocks.
func (a *App) Push(f audio.Frame) { a.pipe.Push(f) }

// Feed exposes the event hub, e.g. for embedding the feed elsewhere.
func (a *App) Feed() *eventfeed.Hub { return a.feed }

// Store exposes the transcript store.
func (a *App) Store() transcriptstore.Store { return a.store }

// SessionID returns the identifier transcripts are recorded under.
func (a *App) SessionID() string { return a.sessionID }

// Addr returns the bound listen address once Run has started the HTTP
// listener, or "" before that. Useful when the config requests port 0.
func (a *App) Addr() string {
	a.addrMu.Lock()
	defer a.addrMu.Unlock()
	return a.addr
}

// Run starts the HTTP listener and the interpretation pipeline, marks
// the service ready, and blocks until ctx is cancelled. The pipeline
// drains remaining audio and sentences before Run returns.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("app: listen on %q: %w", a.cfg.Server.ListenAddr, err)
	}
	a.ready.Set(true)
	a.addrMu.Lock()
	a.addr = ln.Addr().String()
	a.addrMu.Unlock()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app: http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return a.pipe.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		a.ready.Set(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	slog.Info("interpreter running",
		"session", a.sessionID,
		"addr", ln.Addr().String(),
		"from", a.cfg.Session.FromLang,
		"to", a.cfg.Session.ToLang,
	)

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return err
}

// Shutdown tears down the remaining subsystems in order. It respects the
// context deadline: if ctx expires before all closers finish, remaining
// closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		a.ready.Set(false)
		slog.Info("shutting down", "closers", len(a.closers))

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

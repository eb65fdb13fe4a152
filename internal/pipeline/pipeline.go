// Package pipeline runs the live interpretation loop: audio frames in,
// translated speech out. It wires voice activity detection, streaming
// recognition, sentence segmentation, translation, and synthesis into
// a single cooperatively cancelled process.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/intgg/translator/internal/endpoint"
	"github.com/intgg/translator/internal/eventfeed"
	"github.com/intgg/translator/internal/observe"
	"github.com/intgg/translator/internal/recog"
	"github.com/intgg/translator/internal/segment"
	"github.com/intgg/translator/internal/transcriptstore"
	"github.com/intgg/translator/internal/translate"
	"github.com/intgg/translator/internal/trigger"
	"github.com/intgg/translator/pkg/audio"
	"github.com/intgg/translator/pkg/provider/synth"
)

const (
	// vadChunkMs is the audio window handed to voice activity
	// detection per call.
	vadChunkMs = 200

	// silenceWindowMs is the cadence of relative-silence evaluation.
	// When no audio arrives for longer than this, a synthetic window of
	// zeros keeps the silence clock running.
	silenceWindowMs = 100

	// controlInterval is the cadence of the sentence-lifecycle sweep.
	controlInterval = 100 * time.Millisecond

	minSegmentDuration = 3 * time.Second
	maxSegmentDuration = 5 * time.Second
)

// Options configure a pipeline session.
type Options struct {
	SessionID  string
	FromLang   string
	ToLang     string
	SampleRate int

	// MaxSegment bounds how long speech may run before recognition is
	// force-finalized. Clamped to a 3s..5s band.
	MaxSegment time.Duration
}

// Deps are the collaborators the pipeline drives. All are required
// except Store, Feed, and Metrics, which default to no-op equivalents.
type Deps struct {
	Queue     *audio.Queue
	Endpoint  *endpoint.Detector
	Silence   *endpoint.SilenceDetector
	Recog     *recog.Buffer
	Segments  *segment.Manager
	Policy    *trigger.Policy
	Stability *trigger.StabilityTracker
	Translate *translate.Service
	Synth     synth.Synthesizer
	Store     transcriptstore.Store
	Feed      *eventfeed.Hub
	Metrics   *observe.Metrics
	Log       *slog.Logger
}

// Pipeline is one interpretation session.
type Pipeline struct {
	opts Options
	d    Deps
	log  *slog.Logger
	now  func() time.Time

	mu            sync.Mutex
	inflight      map[string]struct{} // sentence ids with a translation request out
	speakingState bool
	playingState  bool

	speechStart time.Time
	lastForced  time.Time
	lastAudio   time.Time
	lastText    string

	vadPending     []float32
	silencePending []float32
}

type Option func(*Pipeline)

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func New(opts Options, d Deps, o ...Option) *Pipeline {
	if opts.SampleRate == 0 {
		opts.SampleRate = audio.DefaultSampleRate
	}
	if opts.MaxSegment < minSegmentDuration {
		opts.MaxSegment = maxSegmentDuration
	}
	if opts.MaxSegment > maxSegmentDuration {
		opts.MaxSegment = maxSegmentDuration
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.Store == nil {
		d.Store = transcriptstore.NewMemStore()
	}
	if d.Feed == nil {
		d.Feed = eventfeed.NewHub()
	}
	if d.Metrics == nil {
		d.Metrics = observe.DefaultMetrics()
	}
	p := &Pipeline{
		opts:     opts,
		d:        d,
		log:      d.Log.With("session", opts.SessionID),
		now:      time.Now,
		inflight: make(map[string]struct{}),
	}
	for _, fn := range o {
		fn(p)
	}
	return p
}

// Push enqueues a captured audio frame. It never blocks; when the
// intake queue is full the oldest frame is dropped.
func (p *Pipeline) Push(f audio.Frame) {
	before := p.d.Queue.Dropped()
	if err := p.d.Queue.Push(f); err != nil {
		return
	}
	if dropped := p.d.Queue.Dropped() - before; dropped > 0 {
		p.d.Metrics.DroppedFrames.Add(context.Background(), int64(dropped))
	}
}

// Run drives the session until ctx is cancelled, then drains whatever
// audio and sentences remain before returning.
func (p *Pipeline) Run(ctx context.Context) error {
	p.d.Metrics.ActiveSessions.Add(ctx, 1)
	defer p.d.Metrics.ActiveSessions.Add(context.Background(), -1)

	p.d.Feed.Publish(eventfeed.Event{Type: eventfeed.TypeSystemStart, Data: map[string]string{
		"session":   p.opts.SessionID,
		"from_lang": p.opts.FromLang,
		"to_lang":   p.opts.ToLang,
	}})
	p.log.Info("session started", "from", p.opts.FromLang, "to", p.opts.ToLang)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.audioLoop(gctx) })
	g.Go(func() error { return p.controlLoop(gctx) })
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	p.shutdown()
	return err
}

// audioLoop drains the intake queue, runs voice activity detection on
// fixed chunks, feeds speech audio to recognition, and evaluates
// relative silence on a steady cadence even when no audio arrives.
func (p *Pipeline) audioLoop(ctx context.Context) error {
	ticker := time.NewTicker(silenceWindowMs * time.Millisecond / 2)
	defer ticker.Stop()

	p.lastAudio = p.now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		drained := false
		for {
			f, ok := p.d.Queue.TryPop()
			if !ok {
				break
			}
			drained = true
			p.ingest(ctx, f.Samples)
		}
		if drained {
			p.lastAudio = p.now()
			continue
		}

		// No audio for a full window: feed zeros so silence detection
		// keeps progressing while the capture side is quiet.
		if p.now().Sub(p.lastAudio) > silenceWindowMs*time.Millisecond {
			zeros := make([]float32, audio.SamplesForDuration(p.opts.SampleRate, silenceWindowMs*time.Millisecond))
			p.observeSilence(ctx, zeros)
			p.lastAudio = p.now()
		}
	}
}

// ingest pushes samples through detection in vad-sized chunks.
func (p *Pipeline) ingest(ctx context.Context, samples []float32) {
	p.vadPending = append(p.vadPending, samples...)
	chunk := audio.SamplesForDuration(p.opts.SampleRate, vadChunkMs*time.Millisecond)
	for len(p.vadPending) >= chunk {
		c := p.vadPending[:chunk]
		p.vadPending = p.vadPending[chunk:]
		p.processChunk(ctx, c)
	}
}

func (p *Pipeline) processChunk(ctx context.Context, chunk []float32) {
	events, err := p.d.Endpoint.Feed(ctx, chunk, false)
	if err != nil {
		p.log.Warn("voice activity detection failed", "error", err)
		p.d.Metrics.RecordProviderError(ctx, "vad", "detect")
	}
	for _, ev := range events {
		switch ev {
		case endpoint.SpeechStart:
			p.onSpeechStart()
		case endpoint.SpeechEnd:
			p.finalizeSegment(ctx, "speech_end", true)
		}
	}

	if p.speaking() {
		p.d.Recog.Push(ctx, chunk)

		// Forced segmentation keeps latency bounded when the speaker
		// never pauses. The segment clock restarts at the cut, and
		// re-forcing additionally waits half the segment limit so
		// back-to-back forces cannot starve recognition.
		now := p.now()
		if now.Sub(p.speechStart) >= p.opts.MaxSegment &&
			(p.lastForced.IsZero() || now.Sub(p.lastForced) >= p.opts.MaxSegment/2) {
			p.speechStart = now
			p.lastForced = now
			p.d.Metrics.RecordForcedFlush(ctx, "max_duration")
			p.finalizeSegment(ctx, "max_duration", false)
		}
	}

	p.observeSilence(ctx, chunk)
}

// observeSilence feeds audio to the relative-silence detector in
// steady windows and finalizes the segment when a meaningful pause is
// found while text or audio is pending.
func (p *Pipeline) observeSilence(ctx context.Context, samples []float32) {
	p.silencePending = append(p.silencePending, samples...)
	window := audio.SamplesForDuration(p.opts.SampleRate, silenceWindowMs*time.Millisecond)
	for len(p.silencePending) >= window {
		w := p.silencePending[:window]
		p.silencePending = p.silencePending[window:]

		if !p.d.Silence.Observe(w, p.speaking()) {
			continue
		}
		pending := p.d.Recog.Buffered() > 0 || p.d.Segments.Pending()
		if pending {
			p.d.Metrics.RecordForcedFlush(ctx, "silence")
			p.finalizeSegment(ctx, "silence", true)
		}
		p.d.Silence.Reset()
	}
}

// finalizeSegment flushes buffered recognition and hands the updated
// transcript to the sentence manager. pause marks the trailing
// sentence complete even without terminal punctuation.
func (p *Pipeline) finalizeSegment(ctx context.Context, cause string, pause bool) {
	start := p.now()
	text := p.d.Recog.Flush(ctx)
	p.d.Metrics.RecognizeDuration.Record(ctx, p.now().Sub(start).Seconds())
	if cause == "speech_end" {
		p.setSpeaking(false)
	}
	// Every confirmed segment end drops the volume reference; the next
	// utterance rebuilds its own.
	p.d.Silence.Reset()
	if text == "" {
		return
	}
	p.log.Debug("segment finalized", "cause", cause, "chars", len([]rune(text)))
	res := p.d.Segments.Process(text, pause)
	p.publishSourceText(text)
	p.dispatchTranslations(ctx, res.ToTranslate)
}

func (p *Pipeline) onSpeechStart() {
	p.setSpeaking(true)
	p.speechStart = p.now()
	p.d.Silence.Reset()
}

// controlLoop sweeps the sentence lifecycle and gates playback.
func (p *Pipeline) controlLoop(ctx context.Context) error {
	ticker := time.NewTicker(controlInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		p.tick(ctx)
	}
}

func (p *Pipeline) tick(ctx context.Context) {
	text := p.d.Recog.Text()
	res := p.d.Segments.Process(text, false)
	p.publishSourceText(text)
	p.dispatchTranslations(ctx, res.ToTranslate)
	p.maybePlay(ctx, res.ToPlay)
}

// dispatchTranslations issues one asynchronous translation request per
// sentence, deduplicating against requests already in flight.
func (p *Pipeline) dispatchTranslations(ctx context.Context, views []segment.View) {
	for _, v := range views {
		p.mu.Lock()
		if _, busy := p.inflight[v.ID]; busy {
			p.mu.Unlock()
			continue
		}
		p.inflight[v.ID] = struct{}{}
		p.mu.Unlock()

		v := v
		go func() {
			defer func() {
				p.mu.Lock()
				delete(p.inflight, v.ID)
				p.mu.Unlock()
			}()
			start := p.now()
			out, err := p.d.Translate.Translate(ctx, v.Text)
			p.d.Metrics.TranslateDuration.Record(ctx, p.now().Sub(start).Seconds())
			if err != nil {
				p.log.Warn("translation failed", "sentence", v.ID, "error", err)
				p.d.Metrics.RecordProviderError(ctx, "translate", "chat")
				return
			}
			p.d.Metrics.RecordProviderRequest(ctx, "translate", "chat", "ok")
			if p.d.Segments.UpdateTranslation(v.Text, out) {
				p.d.Feed.Publish(eventfeed.Event{Type: eventfeed.TypeTranslatedText, Data: map[string]string{
					"sentence_id": v.ID,
					"text":        v.Text,
					"translation": out,
				}})
			}
		}()
	}
}

// maybePlay hands the highest-priority ready sentence to synthesis
// when nothing is playing and the trigger policy agrees.
func (p *Pipeline) maybePlay(ctx context.Context, ready []segment.View) {
	if len(ready) == 0 || p.d.Synth.IsPlaying() || p.isPlaying() {
		return
	}
	v := ready[0]
	stable := p.d.Stability.Observe(v.ID, v.Translation)
	d := p.d.Policy.Evaluate(v, stable)
	if !d.Fire {
		return
	}

	done, err := p.d.Synth.Speak(ctx, v.Translation)
	if err != nil {
		p.log.Warn("synthesis failed", "sentence", v.ID, "error", err)
		p.d.Metrics.RecordProviderError(ctx, "synth", "speak")
		return
	}
	p.setPlaying(true)
	start := p.now()
	p.log.Info("playback started", "sentence", v.ID, "state", v.State.String(), "reason", d.Reason)
	p.d.Feed.Publish(eventfeed.Event{Type: eventfeed.TypeTTSPlay, Data: map[string]string{
		"sentence_id": v.ID,
		"translation": v.Translation,
		"reason":      d.Reason,
	}})

	go func() {
		select {
		case <-done:
		case <-ctx.Done():
			p.d.Synth.Stop()
			<-done
		}
		p.d.Metrics.SynthesisDuration.Record(context.Background(), p.now().Sub(start).Seconds())
		p.finishPlayback(v, d.Reason)
	}()
}

func (p *Pipeline) finishPlayback(v segment.View, reason string) {
	ctx := context.Background()
	p.d.Segments.MarkPlayed(v.Text)
	p.d.Stability.Forget(v.ID)
	p.d.Metrics.RecordSentencePlayed(ctx, reason)
	p.d.Feed.Publish(eventfeed.Event{Type: eventfeed.TypeTTSStop, Data: map[string]string{
		"sentence_id": v.ID,
	}})
	if err := p.d.Store.Append(ctx, p.opts.SessionID, transcriptstore.Entry{
		SentenceID:  v.ID,
		Text:        v.Text,
		Translation: v.Translation,
		FromLang:    p.opts.FromLang,
		ToLang:      p.opts.ToLang,
		PlayedAt:    p.now(),
	}); err != nil {
		p.log.Warn("transcript append failed", "sentence", v.ID, "error", err)
	}
	p.setPlaying(false)
}

// shutdown drains remaining audio and sentences after cancellation so
// the tail of the session is not lost.
func (p *Pipeline) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	p.d.Synth.Stop()
	for {
		f, ok := p.d.Queue.TryPop()
		if !ok {
			break
		}
		p.d.Recog.Push(ctx, f.Samples)
	}
	if text := p.d.Recog.Flush(ctx); text != "" {
		p.d.Segments.Process(text, true)
	}
	p.persistRemainder(ctx)

	p.d.Feed.Publish(eventfeed.Event{Type: eventfeed.TypeSystemStop, Data: map[string]string{
		"session":    p.opts.SessionID,
		"transcript": p.d.Recog.Text(),
	}})
	p.log.Info("session stopped")
}

// persistRemainder translates and records sentences that were never
// played, so the stored transcript covers the whole session. Stability
// windows no longer matter; the session is over.
func (p *Pipeline) persistRemainder(ctx context.Context) {
	for _, v := range p.d.Segments.Snapshot() {
		if v.Translation != "" {
			continue
		}
		out, err := p.d.Translate.Translate(ctx, v.Text)
		if err != nil {
			p.log.Warn("final translation failed", "sentence", v.ID, "error", err)
			continue
		}
		p.d.Segments.UpdateTranslation(v.Text, out)
	}
	for _, v := range p.d.Segments.Snapshot() {
		if v.Translation == "" {
			continue
		}
		if !p.d.Segments.MarkPlayed(v.Text) {
			continue
		}
		if err := p.d.Store.Append(ctx, p.opts.SessionID, transcriptstore.Entry{
			SentenceID:  v.ID,
			Text:        v.Text,
			Translation: v.Translation,
			FromLang:    p.opts.FromLang,
			ToLang:      p.opts.ToLang,
			PlayedAt:    p.now(),
		}); err != nil {
			p.log.Warn("final transcript append failed", "sentence", v.ID, "error", err)
		}
	}
}

func (p *Pipeline) publishSourceText(text string) {
	if text == "" || text == p.lastTextSwap(text) {
		return
	}
	p.d.Feed.Publish(eventfeed.Event{Type: eventfeed.TypeSourceText, Data: map[string]string{
		"text": text,
	}})
}

// lastTextSwap returns the previous published text and records the new
// one.
func (p *Pipeline) lastTextSwap(text string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	prev := p.lastText
	p.lastText = text
	return prev
}

func (p *Pipeline) speaking() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.speakingState
}

func (p *Pipeline) setSpeaking(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.speakingState = v
}

func (p *Pipeline) isPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playingState
}

func (p *Pipeline) setPlaying(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playingState = v
}

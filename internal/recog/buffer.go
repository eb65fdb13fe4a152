// Package recog accumulates speech audio, feeds it to the recognizer
// in fixed windows, and maintains the punctuated running transcript of
// the current utterance.
package recog

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/intgg/translator/pkg/audio"
	"github.com/intgg/translator/pkg/provider/asr"
	"github.com/intgg/translator/pkg/provider/punc"
)

// Options tune the recognition buffer.
type Options struct {
	SampleRate int
	WindowMs   int // audio handed to the recognizer per call
	Params     asr.StreamParams
}

func DefaultOptions() Options {
	return Options{
		SampleRate: audio.DefaultSampleRate,
		WindowMs:   600,
		Params:     asr.StreamParams{ChunkMs: 600, EncoderLookBack: 4, DecoderLookBack: 1},
	}
}

// Buffer is the per-utterance recognition pipeline stage. Incremental
// results are concatenated into a raw transcript; punctuation is
// restored over the whole transcript on every change so sentence
// boundaries can move as context grows.
//
// Safe for concurrent use: the audio side streams through Push/Flush
// while the control side polls Text on its own cadence.
type Buffer struct {
	rec  asr.Recognizer
	rest punc.Restorer
	log  *slog.Logger
	opts Options

	mu      sync.Mutex
	cache   *asr.Cache
	pending []float32
	raw     strings.Builder
	text    string
}

func NewBuffer(rec asr.Recognizer, rest punc.Restorer, opts Options, log *slog.Logger) *Buffer {
	if log == nil {
		log = slog.Default()
	}
	if rest == nil {
		rest = punc.Passthrough{}
	}
	return &Buffer{rec: rec, rest: rest, log: log, opts: opts, cache: asr.NewCache()}
}

// Push appends speech samples and recognizes every full window now
// buffered. It returns the current punctuated transcript and whether
// it changed. Recognition failures are logged and surface as an
// unchanged transcript so a single bad window never kills the session.
func (b *Buffer) Push(ctx context.Context, samples []float32) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending = append(b.pending, samples...)
	window := audio.SamplesForDuration(b.opts.SampleRate, time.Duration(b.opts.WindowMs)*time.Millisecond)

	changed := false
	for len(b.pending) >= window {
		chunk := b.pending[:window]
		b.pending = b.pending[window:]
		if b.recognize(ctx, chunk, false) {
			changed = true
		}
	}
	if changed {
		b.text = b.punctuate(ctx)
	}
	return b.text, changed
}

// Flush recognizes whatever remains in the buffer as the end of the
// utterance and returns the final transcript. The recognizer state is
// reset; the transcript stays readable until Reset.
func (b *Buffer) Flush(ctx context.Context) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	remainder := b.pending
	b.pending = nil
	changed := b.recognize(ctx, remainder, true)
	b.cache.Reset()
	if changed {
		b.text = b.punctuate(ctx)
	}
	return b.text
}

func (b *Buffer) recognize(ctx context.Context, samples []float32, isFinal bool) bool {
	res, err := b.rec.Recognize(ctx, samples, b.cache, isFinal, b.opts.Params)
	if err != nil {
		b.log.Warn("recognition window failed", "error", err, "samples", len(samples))
		return false
	}
	if res.Text == "" {
		return false
	}
	b.raw.WriteString(res.Text)
	return true
}

func (b *Buffer) punctuate(ctx context.Context) string {
	raw := b.raw.String()
	if raw == "" {
		return ""
	}
	out, err := b.rest.Restore(ctx, raw)
	if err != nil {
		b.log.Warn("punctuation failed, using raw transcript", "error", err)
		return raw
	}
	return out
}

// Text returns the current punctuated transcript.
func (b *Buffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text
}

// Buffered reports how much un-recognized audio is queued.
func (b *Buffer) Buffered() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.opts.SampleRate == 0 {
		return 0
	}
	samples := time.Duration(len(b.pending))
	return samples * time.Second / time.Duration(b.opts.SampleRate)
}

// Reset discards all audio and transcript state for a new utterance.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = nil
	b.raw.Reset()
	b.text = ""
	b.cache.Reset()
}

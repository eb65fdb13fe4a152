// Package whisper implements asr.Recognizer using the whisper.cpp CGO
// bindings. The whisper.cpp static library (libwhisper.a) and headers
// (whisper.h) must be available at link time via LIBRARY_PATH and
// C_INCLUDE_PATH environment variables.
//
// whisper.cpp has no native streaming mode, so incremental recognition is
// emulated: each session's cache accumulates the audio of the current
// segment, every Recognize call re-decodes the accumulated audio, and only
// the text beyond what was already emitted is returned. The per-window cost
// grows with segment length, which is acceptable because the pipeline forces
// segment finalisation after a few seconds.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/intgg/translator/pkg/provider/asr"
)

const (
	defaultLanguage = "auto"

	// maxSegmentSamples caps the re-decoded window at 30s of 16kHz audio,
	// whisper's native context length.
	maxSegmentSamples = 30 * 16000
)

// Option is a functional option for configuring a Recognizer.
type Option func(*Recognizer)

// WithLanguage sets the decode language (e.g., "zh", "en"). Defaults to
// auto-detection.
func WithLanguage(lang string) Option {
	return func(r *Recognizer) { r.language = lang }
}

// Recognizer implements asr.Recognizer on top of a shared whisper.cpp model.
// The model is loaded once in New; per-session streaming state lives in the
// asr.Cache, so one Recognizer serves many concurrent sessions.
type Recognizer struct {
	model    whisperlib.Model
	language string
}

var _ asr.Recognizer = (*Recognizer)(nil)

// New loads the whisper.cpp model from modelPath. The caller must Close the
// Recognizer when done.
func New(modelPath string, opts ...Option) (*Recognizer, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}
	r := &Recognizer{model: model, language: defaultLanguage}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Close releases the whisper model.
func (r *Recognizer) Close() error {
	if r.model != nil {
		return r.model.Close()
	}
	return nil
}

// session is the per-cache streaming state: the current segment's audio and
// the text already handed to the caller.
type session struct {
	samples []float32
	emitted string
}

// Recognize implements asr.Recognizer.
func (r *Recognizer) Recognize(ctx context.Context, samples []float32, cache *asr.Cache, isFinal bool, _ asr.StreamParams) (asr.Result, error) {
	if err := ctx.Err(); err != nil {
		return asr.Result{}, err
	}

	s, _ := cache.State().(*session)
	if s == nil {
		s = &session{}
		cache.SetState(s)
	}

	s.samples = append(s.samples, samples...)
	if len(s.samples) > maxSegmentSamples {
		// Keep the tail; the head has already been emitted as text.
		drop := len(s.samples) - maxSegmentSamples
		s.samples = s.samples[drop:]
		s.emitted = ""
	}
	if len(s.samples) == 0 {
		if isFinal {
			cache.Reset()
		}
		return asr.Result{}, nil
	}

	full, err := r.decode(s.samples)
	if err != nil {
		return asr.Result{}, err
	}

	delta := trimEmitted(full, s.emitted)
	if isFinal {
		cache.Reset()
	} else {
		s.emitted = full
	}
	return asr.Result{Text: delta}, nil
}

// decode runs whisper.cpp over samples with a fresh context. Contexts are
// not thread-safe but the model is shareable, so each call gets its own.
func (r *Recognizer) decode(samples []float32) (string, error) {
	wctx, err := r.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper: create context: %w", err)
	}
	if err := wctx.SetLanguage(r.language); err != nil {
		return "", fmt.Errorf("whisper: set language %q: %w", r.language, err)
	}
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper: read segment: %w", err)
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

// trimEmitted returns the suffix of full beyond the already-emitted text.
// Re-decoding may rewrite the tail of the previous hypothesis, so the match
// is the longest common prefix rather than an exact cut.
func trimEmitted(full, emitted string) string {
	if emitted == "" {
		return full
	}
	n := commonPrefixLen(full, emitted)
	return strings.TrimLeft(full[n:], " ")
}

// commonPrefixLen returns the byte length of the longest common prefix of a
// and b, aligned to a rune boundary.
func commonPrefixLen(a, b string) int {
	max := len(a)
	if len(b) < max {
		max = len(b)
	}
	i := 0
	for i < max && a[i] == b[i] {
		i++
	}
	// Back off to a rune boundary.
	for i > 0 && !utf8.RuneStart(a[i-1]) {
		i--
	}
	for i > 0 && i < len(a) && !utf8.RuneStart(a[i]) {
		i--
	}
	return i
}

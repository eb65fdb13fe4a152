// Package energy implements vad.Detector with a pure-Go RMS energy detector.
//
// It needs no model files and serves as the default endpointing backend.
// Hysteresis over consecutive chunk classifications avoids flickering between
// speech and silence on breathy or trailing-soft input: a boundary is only
// reported after enough chunks in a row agree.
package energy

import (
	"context"

	"github.com/intgg/translator/pkg/audio"
	"github.com/intgg/translator/pkg/provider/vad"
)

const (
	defaultSpeechThreshold  = 0.015
	defaultSilenceThreshold = 0.008
	defaultSpeechChunks     = 1
	defaultSilenceChunks    = 3
)

// Option is a functional option for configuring a Detector.
type Option func(*Detector)

// WithThresholds sets the RMS levels for entering and leaving speech.
// speech must be >= silence.
func WithThresholds(speech, silence float64) Option {
	return func(d *Detector) {
		d.speechThreshold = speech
		d.silenceThreshold = silence
	}
}

// WithHysteresis sets how many consecutive chunks must agree before a
// speech-start (speechChunks) or speech-end (silenceChunks) boundary is
// reported.
func WithHysteresis(speechChunks, silenceChunks int) Option {
	return func(d *Detector) {
		d.speechChunks = speechChunks
		d.silenceChunks = silenceChunks
	}
}

// Detector is an RMS-energy endpointing backend. The Detector itself is
// read-only after construction; all per-session state lives in the
// vad.Cache, so one Detector may serve many sessions concurrently.
type Detector struct {
	speechThreshold  float64
	silenceThreshold float64
	speechChunks     int
	silenceChunks    int
}

// New returns a Detector tuned for 16kHz 200ms chunks.
func New(opts ...Option) *Detector {
	d := &Detector{
		speechThreshold:  defaultSpeechThreshold,
		silenceThreshold: defaultSilenceThreshold,
		speechChunks:     defaultSpeechChunks,
		silenceChunks:    defaultSilenceChunks,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// session is the per-cache detector state.
type session struct {
	inSpeech     bool
	speechCount  int
	silenceCount int
	clockMs      int
}

var _ vad.Detector = (*Detector)(nil)

// Detect implements vad.Detector.
func (d *Detector) Detect(_ context.Context, samples []float32, cache *vad.Cache, isFinal bool, chunkMs int) ([]vad.Span, error) {
	s, _ := cache.State().(*session)
	if s == nil {
		s = &session{}
		cache.SetState(s)
	}

	var spans []vad.Span
	level := audio.RMS(samples)

	if s.inSpeech {
		if level < d.silenceThreshold {
			s.silenceCount++
			s.speechCount = 0
			if s.silenceCount >= d.silenceChunks {
				s.inSpeech = false
				s.silenceCount = 0
				spans = append(spans, vad.Span{Start: vad.NoEvent, End: s.clockMs})
			}
		} else {
			s.silenceCount = 0
		}
	} else {
		if level >= d.speechThreshold {
			s.speechCount++
			s.silenceCount = 0
			if s.speechCount >= d.speechChunks {
				s.inSpeech = true
				s.speechCount = 0
				spans = append(spans, vad.Span{Start: s.clockMs, End: vad.NoEvent})
			}
		} else {
			s.speechCount = 0
		}
	}

	s.clockMs += chunkMs

	if isFinal && s.inSpeech {
		s.inSpeech = false
		spans = append(spans, vad.Span{Start: vad.NoEvent, End: s.clockMs})
	}

	return spans, nil
}

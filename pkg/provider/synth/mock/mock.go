// Package mock provides a controllable test double for the synth package.
package mock

import (
	"context"
	"sync"

	"github.com/intgg/translator/pkg/provider/synth"
)

// Synthesizer is a mock implementation of synth.Synthesizer. Spoken texts
// are recorded; playback completes immediately unless Hold is set, in which
// case IsPlaying stays true until Release is called.
type Synthesizer struct {
	mu sync.Mutex

	// Hold keeps utterances "playing" until Release.
	Hold bool

	// SpeakErr, if non-nil, is returned by every Speak call.
	SpeakErr error

	// Spoken records every text passed to Speak, in order.
	Spoken []string

	// Voices records every language passed to SetVoiceForLanguage.
	Voices []string

	// Params is the last value passed to SetParams.
	Params synth.Params

	playing bool
	done    chan struct{}
}

// Speak implements synth.Synthesizer.
func (s *Synthesizer) Speak(_ context.Context, text string) (<-chan struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SpeakErr != nil {
		return nil, s.SpeakErr
	}
	s.Spoken = append(s.Spoken, text)
	s.done = make(chan struct{})
	if s.Hold {
		s.playing = true
	} else {
		close(s.done)
	}
	return s.done, nil
}

// Release finishes the held utterance, if any.
func (s *Synthesizer) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playing {
		s.playing = false
		close(s.done)
	}
}

// Stop implements synth.Synthesizer.
func (s *Synthesizer) Stop() { s.Release() }

// IsPlaying implements synth.Synthesizer.
func (s *Synthesizer) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// SetVoiceForLanguage implements synth.Synthesizer.
func (s *Synthesizer) SetVoiceForLanguage(lang string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Voices = append(s.Voices, lang)
	return nil
}

// SetParams implements synth.Synthesizer.
func (s *Synthesizer) SetParams(p synth.Params) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Params = p
}

// SpokenTexts returns a copy of the recorded utterances.
func (s *Synthesizer) SpokenTexts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.Spoken))
	copy(out, s.Spoken)
	return out
}

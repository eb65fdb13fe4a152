// Package synth defines the Synthesizer interface for text-to-speech
// playback backends.
//
// The pipeline keeps at most one utterance in flight: the controller checks
// IsPlaying before dispatching and never queues a second utterance behind a
// live one. Speak is therefore asynchronous: it starts playback and returns
// a completion channel.
package synth

import "context"

// Params are the speech shaping knobs applied to every utterance.
// Zero values mean provider defaults.
type Params struct {
	// Rate adjusts speaking speed in percent (-100..100, 0 = default).
	Rate int

	// Volume adjusts loudness in percent (-100..100, 0 = default).
	Volume int

	// Pitch adjusts pitch in Hz offset (0 = default).
	Pitch int
}

// Synthesizer is the abstraction over any TTS playback backend.
//
// Implementations must be safe for concurrent use.
type Synthesizer interface {
	// Speak starts synthesising and playing text. It returns a channel that
	// is closed when playback finishes (or is stopped), or an error if
	// playback could not start.
	Speak(ctx context.Context, text string) (<-chan struct{}, error)

	// Stop aborts the current utterance, if any. Safe to call when idle.
	Stop()

	// IsPlaying reports whether an utterance is currently being played.
	IsPlaying() bool

	// SetVoiceForLanguage selects a voice suited to the BCP-47 locale of
	// lang (a short config language code). Providers without voice selection
	// may ignore it.
	SetVoiceForLanguage(lang string) error

	// SetParams replaces the speech shaping parameters for subsequent
	// utterances.
	SetParams(p Params)
}

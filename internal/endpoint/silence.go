package endpoint

import (
	"math"
	"time"

	"github.com/intgg/translator/pkg/audio"
)

const (
	// speakingEnergyFloor gates the running-volume update so ambient
	// noise between words does not drag the reference down.
	speakingEnergyFloor = 0.005

	// referenceFloor keeps the silence comparison meaningful for very
	// quiet speakers.
	referenceFloor = 0.001

	// silenceRatio is the fraction of the speaker's running volume
	// below which a window counts as silent.
	silenceRatio = 0.8

	minSilenceDuration = 500 * time.Millisecond
	maxSilenceDuration = time.Second
)

// SilenceDetector tracks how loud the current speaker has been and
// flags pauses relative to that level rather than an absolute
// threshold, so soft speakers pause-detect as reliably as loud ones.
//
// Feed it one window of samples per call, roughly every 100ms. When no
// audio arrived for a window, feed zeros so silence keeps accumulating.
type SilenceDetector struct {
	duration time.Duration
	now      func() time.Time

	speakingVolume float64
	silenceSince   time.Time
}

type SilenceOption func(*SilenceDetector)

// WithSilenceDuration sets how long relative silence must hold before
// Observe reports it. Values are clamped to a 0.5s..1s band.
func WithSilenceDuration(d time.Duration) SilenceOption {
	return func(s *SilenceDetector) { s.duration = d }
}

func WithSilenceClock(now func() time.Time) SilenceOption {
	return func(s *SilenceDetector) { s.now = now }
}

func NewSilenceDetector(o ...SilenceOption) *SilenceDetector {
	s := &SilenceDetector{duration: minSilenceDuration, now: time.Now}
	for _, fn := range o {
		fn(s)
	}
	if s.duration < minSilenceDuration {
		s.duration = minSilenceDuration
	}
	if s.duration > maxSilenceDuration {
		s.duration = maxSilenceDuration
	}
	return s
}

// Observe processes one window and reports whether relative silence
// has now held for the configured duration. speaking is the voice
// activity detector's current state; the running volume only updates
// while the speaker is actually talking.
func (s *SilenceDetector) Observe(samples []float32, speaking bool) bool {
	energy := audio.RMS(samples)

	if speaking && energy > speakingEnergyFloor {
		if s.speakingVolume == 0 {
			s.speakingVolume = energy
		} else {
			s.speakingVolume = 0.7*s.speakingVolume + 0.3*energy
		}
	}

	ref := math.Max(s.speakingVolume, referenceFloor)
	if energy >= ref*silenceRatio {
		s.silenceSince = time.Time{}
		return false
	}

	now := s.now()
	if s.silenceSince.IsZero() {
		s.silenceSince = now
		return false
	}
	return now.Sub(s.silenceSince) >= s.duration
}

// SilenceFor reports how long the current silence has lasted.
func (s *SilenceDetector) SilenceFor() time.Duration {
	if s.silenceSince.IsZero() {
		return 0
	}
	return s.now().Sub(s.silenceSince)
}

// SpeakingVolume exposes the running loudness estimate.
func (s *SilenceDetector) SpeakingVolume() float64 { return s.speakingVolume }

// Reset clears all detector state, the loudness estimate included. It
// runs at recording start and at every confirmed utterance end, so each
// utterance rebuilds its own volume reference.
func (s *SilenceDetector) Reset() {
	s.speakingVolume = 0
	s.silenceSince = time.Time{}
}

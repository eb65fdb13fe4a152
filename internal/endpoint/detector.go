// Package endpoint turns raw audio into utterance boundaries: a
// model-backed voice activity detector decides speaking state, and a
// relative-silence tracker catches pauses the model misses.
package endpoint

import (
	"context"
	"fmt"

	"github.com/intgg/translator/pkg/provider/vad"
)

// Event is a speaking-state transition.
type Event int

const (
	SpeechStart Event = iota
	SpeechEnd
)

func (e Event) String() string {
	if e == SpeechStart {
		return "speech_start"
	}
	return "speech_end"
}

// Detector feeds fixed-size chunks to a vad provider and collapses its
// spans into speaking-state transitions.
type Detector struct {
	det      vad.Detector
	cache    *vad.Cache
	chunkMs  int
	speaking bool
}

func NewDetector(det vad.Detector, chunkMs int) *Detector {
	return &Detector{det: det, cache: vad.NewCache(), chunkMs: chunkMs}
}

// Feed runs detection on one chunk and returns the transitions it
// caused, in order. isFinal closes any open speech span.
func (d *Detector) Feed(ctx context.Context, samples []float32, isFinal bool) ([]Event, error) {
	spans, err := d.det.Detect(ctx, samples, d.cache, isFinal, d.chunkMs)
	if err != nil {
		return nil, fmt.Errorf("endpoint: detect: %w", err)
	}
	var events []Event
	for _, span := range spans {
		if span.HasStart() && !d.speaking {
			d.speaking = true
			events = append(events, SpeechStart)
		}
		if span.HasEnd() && d.speaking {
			d.speaking = false
			events = append(events, SpeechEnd)
		}
	}
	return events, nil
}

// Speaking reports the current speaking state.
func (d *Detector) Speaking() bool { return d.speaking }

// Reset clears detection state for a new session.
func (d *Detector) Reset() {
	d.cache.Reset()
	d.speaking = false
}

// Package vad defines the Detector interface for voice-activity endpointing
// backends.
//
// A Detector consumes fixed-duration audio chunks (200 ms in the standard
// pipeline) and reports speech span boundaries as they are discovered. Like
// the recogniser, it is stateful per session: an opaque Cache threads the
// model's smoothing state through all calls of one session.
//
// Implementations must be safe for concurrent use across different caches.
package vad

import "context"

// NoEvent is the sentinel span position meaning "no boundary of that kind in
// this chunk".
const NoEvent = -1

// Span is one boundary report for a processed chunk. Start and End are
// millisecond offsets from session start, or NoEvent when the corresponding
// boundary did not occur in this chunk. A chunk may report a start, an end,
// both (a short utterance), or neither.
type Span struct {
	Start int
	End   int
}

// HasStart reports whether the span carries a speech-start boundary.
func (s Span) HasStart() bool { return s.Start != NoEvent }

// HasEnd reports whether the span carries a speech-end boundary.
func (s Span) HasEnd() bool { return s.End != NoEvent }

// Cache is the opaque per-session detector state handle, mirroring
// asr.Cache: created at session start, mutated by every Detect call, reset
// between sessions.
type Cache struct {
	state any
}

// NewCache returns an empty cache ready for a new session.
func NewCache() *Cache { return &Cache{} }

// Reset clears all accumulated detector state.
func (c *Cache) Reset() { c.state = nil }

// State returns the implementation-owned state value.
func (c *Cache) State() any { return c.state }

// SetState stores the implementation-owned state value.
func (c *Cache) SetState(v any) { c.state = v }

// Detector is the abstraction over any voice-activity endpointing backend.
type Detector interface {
	// Detect analyses one chunk of mono float32 PCM and returns the speech
	// span boundaries discovered in it, in order. chunkMs is the nominal
	// chunk duration in milliseconds. isFinal marks the last chunk of a
	// session so the model can close any open span.
	Detect(ctx context.Context, samples []float32, cache *Cache, isFinal bool, chunkMs int) ([]Span, error)
}

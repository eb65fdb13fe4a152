// Package asr defines the Recognizer interface for streaming speech
// recognition backends.
//
// A Recognizer wraps an incremental speech model (e.g., a Paraformer-style
// streaming recognizer or whisper.cpp) behind a synchronous call: the caller
// submits one window of float32 PCM at a time together with an opaque Cache
// that threads the model's internal streaming state through all calls of one
// session. The recognizer returns whatever new text the window produced,
// possibly none.
//
// Implementations must be safe for concurrent use across different caches.
// A single Cache must only be used by one goroutine at a time.
package asr

import "context"

// StreamParams carries the streaming decode hints passed on every Recognize
// call. The zero value lets the implementation use its own defaults.
type StreamParams struct {
	// ChunkMs is the nominal window duration in milliseconds (600 for the
	// standard pipeline).
	ChunkMs int

	// EncoderLookBack and DecoderLookBack are the number of past chunks the
	// model may attend to. Ignored by implementations without an attention
	// window.
	EncoderLookBack int
	DecoderLookBack int
}

// Result is the outcome of one Recognize call. Fields are explicit rather
// than a dynamic map so callers never index into untyped results.
type Result struct {
	// Text is the newly recognised text for the submitted window. Empty when
	// the window produced no output.
	Text string
}

// Cache is the opaque per-session streaming state handle. It is created at
// session start, passed (mutably) to every Recognize call of that session,
// and reset when a segment is finalised. Callers never inspect its contents.
type Cache struct {
	state any
}

// NewCache returns an empty cache ready for a new session.
func NewCache() *Cache { return &Cache{} }

// Reset clears all accumulated streaming state.
func (c *Cache) Reset() { c.state = nil }

// State returns the implementation-owned state value. For use by Recognizer
// implementations only.
func (c *Cache) State() any { return c.state }

// SetState stores the implementation-owned state value. For use by Recognizer
// implementations only.
func (c *Cache) SetState(v any) { c.state = v }

// Recognizer is the abstraction over any streaming speech recognition
// backend.
type Recognizer interface {
	// Recognize transcribes one window of mono float32 PCM. cache carries the
	// session's streaming state and is mutated in place. isFinal tells the
	// model this is the last window of the current segment, allowing it to
	// flush any held-back hypotheses.
	//
	// A failed call returns a zero Result and an error; callers treat this as
	// "no new text" for the tick.
	Recognize(ctx context.Context, samples []float32, cache *Cache, isFinal bool, params StreamParams) (Result, error)
}

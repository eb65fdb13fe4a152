// Package punc defines the Restorer interface for punctuation restoration
// backends.
//
// Streaming recognisers emit unpunctuated text; a Restorer re-inserts
// sentence-terminal and clause punctuation. Restoration is stateless per
// call and operates on the full accumulated transcript rather than deltas,
// because punctuation models need sentence-level context.
package punc

import "context"

// Restorer restores punctuation in recognised text.
//
// Implementations must be safe for concurrent use.
type Restorer interface {
	// Restore returns text with punctuation re-inserted. An empty input
	// returns an empty output without error.
	Restore(ctx context.Context, text string) (string, error)
}

// Passthrough is a no-op Restorer for pipelines that run without a
// punctuation model. It returns its input unchanged.
type Passthrough struct{}

// Restore implements Restorer.
func (Passthrough) Restore(_ context.Context, text string) (string, error) { return text, nil }

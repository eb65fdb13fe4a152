// Package transcriptstore persists finalized sentences and their
// translations so a session transcript can be reviewed after the fact.
package transcriptstore

import (
	"context"
	"time"
)

// Entry is one finalized sentence with its translation.
type Entry struct {
	// SentenceID is the content-derived sentence identifier.
	SentenceID string

	// Text is the source-language sentence.
	Text string

	// Translation is the target-language rendering; empty when playback
	// happened without translation (same-language sessions).
	Translation string

	// FromLang and ToLang are the session language pair.
	FromLang string
	ToLang   string

	// PlayedAt is when synthesis of the translation finished.
	PlayedAt time.Time
}

// Store records played sentences per session. Implementations must be
// safe for concurrent use.
type Store interface {
	// Append records one entry under sessionID.
	Append(ctx context.Context, sessionID string, e Entry) error

	// Session returns all entries for sessionID, oldest first.
	Session(ctx context.Context, sessionID string) ([]Entry, error)

	// Close releases any underlying resources.
	Close()
}

package segment

import (
	"crypto/md5"
	"encoding/hex"
	"time"
	"unicode/utf8"
)

// State tracks where a sentence is in its lifecycle. A sentence only
// moves forward: once played it is never surfaced again.
type State int

const (
	StateNew State = iota
	StateComplete
	StateStable
	StateTranslated
	StatePlayed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateComplete:
		return "complete"
	case StateStable:
		return "stable"
	case StateTranslated:
		return "translated"
	case StatePlayed:
		return "played"
	default:
		return "unknown"
	}
}

// sentence is the manager's internal record for one text unit.
type sentence struct {
	text        string
	translation string
	isComplete  bool
	isStable    bool
	isPlayed    bool
	createdAt   time.Time
	updatedAt   time.Time
	completedAt time.Time
}

// state reports where the sentence currently is in its lifecycle.
func (s *sentence) state() State {
	switch {
	case s.isPlayed:
		return StatePlayed
	case s.translation != "":
		return StateTranslated
	case s.isStable:
		return StateStable
	case s.isComplete:
		return StateComplete
	default:
		return StateNew
	}
}

func (s *sentence) length() int { return utf8.RuneCountInString(s.text) }

// View is a read-only snapshot handed to callers, scored and ready to
// be ranked for playback.
type View struct {
	ID          string
	Text        string
	Translation string
	State       State
	Priority    float64
	Length      int
	IsComplete  bool
	WaitTime    time.Duration
}

// ID derives a stable identifier from sentence content. Equal text
// always yields the same id, so retries and re-links stay idempotent.
func ID(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])[:8]
}

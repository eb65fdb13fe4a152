package trigger

import (
	"time"
)

const (
	stableRepeats  = 3
	stableInterval = 800 * time.Millisecond
)

type observation struct {
	translation string
	count       int
	lastSeen    time.Time
}

// StabilityTracker debounces translations: a translation is trusted
// once the same text has been observed a few times in a row with real
// time between observations. A changed translation restarts the count.
type StabilityTracker struct {
	now  func() time.Time
	seen map[string]*observation
}

func NewStabilityTracker(now func() time.Time) *StabilityTracker {
	if now == nil {
		now = time.Now
	}
	return &StabilityTracker{now: now, seen: make(map[string]*observation)}
}

// Observe records the current translation for a sentence id and
// reports whether it is now considered stable.
func (t *StabilityTracker) Observe(id, translation string) bool {
	now := t.now()
	o := t.seen[id]
	if o == nil || o.translation != translation {
		t.seen[id] = &observation{translation: translation, count: 1, lastSeen: now}
		return false
	}
	if now.Sub(o.lastSeen) >= stableInterval {
		o.count++
		o.lastSeen = now
	}
	return o.count >= stableRepeats
}

// Forget drops tracking state for a sentence, e.g. after playback.
func (t *StabilityTracker) Forget(id string) {
	delete(t.seen, id)
}

// Reset drops all tracking state.
func (t *StabilityTracker) Reset() {
	t.seen = make(map[string]*observation)
}

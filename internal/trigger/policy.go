// Package trigger decides when a translated sentence may be handed to
// speech synthesis. The policy balances latency against interrupting
// the speaker mid-thought: short fragments wait, long or old sentences
// fire.
package trigger

import (
	"fmt"
	"time"

	"github.com/intgg/translator/internal/segment"
)

// Options tune the playback gate.
type Options struct {
	MinLength    int           // below this a sentence never fires
	MinSpacing   time.Duration // minimum gap between consecutive firings
	LongLength   int           // length that fires regardless of completeness
	ShortLength  int           // unstable sentences below this wait
	ShortMaxWait time.Duration // how long a short unstable sentence may wait
	StaleAfter   time.Duration // age or playback gap that forces a firing
	StaleLength  int           // minimum length for the staleness paths
	StableLength int           // stable sentences at or above this fire
}

func DefaultOptions() Options {
	return Options{
		MinLength:    15,
		MinSpacing:   time.Second,
		LongLength:   50,
		ShortLength:  50,
		ShortMaxWait: 2 * time.Second,
		StaleAfter:   3 * time.Second,
		StaleLength:  30,
		StableLength: 30,
	}
}

// Decision is the outcome of one Evaluate call. Reason names the rule
// that fired or vetoed, for logs and the event feed.
type Decision struct {
	Fire   bool
	Reason string
}

// Policy is the playback gate. It remembers when it last fired so
// consecutive firings keep their minimum spacing. Not safe for
// concurrent use; the pipeline calls it from a single goroutine.
type Policy struct {
	opts      Options
	now       func() time.Time
	lastFired time.Time
}

type Option func(*Policy)

func WithClock(now func() time.Time) Option {
	return func(p *Policy) { p.now = now }
}

func NewPolicy(opts Options, o ...Option) *Policy {
	p := &Policy{opts: opts, now: time.Now}
	for _, fn := range o {
		fn(p)
	}
	return p
}

// Evaluate decides whether the candidate sentence should be spoken
// now. stable reports whether its translation has been identical long
// enough to be trusted. A true decision records the firing time.
func (p *Policy) Evaluate(v segment.View, stable bool) Decision {
	now := p.now()

	if v.Length < p.opts.MinLength {
		return Decision{Reason: fmt.Sprintf("too short (%d chars)", v.Length)}
	}
	sinceLast := now.Sub(p.lastFired)
	if !p.lastFired.IsZero() && sinceLast < p.opts.MinSpacing {
		return Decision{Reason: fmt.Sprintf("spacing (%.1fs since last)", sinceLast.Seconds())}
	}
	if !stable && v.Length < p.opts.ShortLength && v.WaitTime < p.opts.ShortMaxWait {
		return Decision{Reason: fmt.Sprintf("unstable short sentence (waited %.1fs)", v.WaitTime.Seconds())}
	}

	var reason string
	switch {
	case v.IsComplete && v.Length >= p.opts.MinLength:
		reason = "complete sentence"
	case v.Length > p.opts.LongLength:
		reason = fmt.Sprintf("long sentence (%d chars)", v.Length)
	case !p.lastFired.IsZero() && sinceLast > p.opts.StaleAfter && v.Length > p.opts.StaleLength:
		reason = fmt.Sprintf("playback gap %.1fs", sinceLast.Seconds())
	case v.WaitTime > p.opts.StaleAfter && v.Length > p.opts.StaleLength:
		reason = fmt.Sprintf("waited %.1fs", v.WaitTime.Seconds())
	case stable && v.Length >= p.opts.StableLength:
		reason = "stable translation"
	default:
		return Decision{Reason: "no trigger condition met"}
	}

	p.lastFired = now
	return Decision{Fire: true, Reason: reason}
}

// Reset clears the firing history, e.g. after playback stops.
func (p *Policy) Reset() {
	p.lastFired = time.Time{}
}

// Package resilience guards network-backed providers with a circuit breaker.
//
// The central type is [Breaker], a three-state breaker (closed, open,
// half-open) that stops a flapping remote service from stalling the sentence
// pipeline. [Translator] wraps a translation provider with a breaker so that
// sentences fall back to their source text while the backend is down instead
// of queueing behind timeouts.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrOpen is returned by [Breaker.Do] when the breaker is open and the
// cooldown has not yet elapsed.
var ErrOpen = errors.New("circuit open")

// State is the operating mode of a [Breaker].
type State int

const (
	// StateClosed forwards all calls.
	StateClosed State = iota

	// StateOpen rejects calls with [ErrOpen] until the cooldown elapses.
	StateOpen

	// StateHalfOpen lets a limited number of probe calls through. Enough
	// successes close the breaker; any failure re-opens it.
	StateHalfOpen
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Settings holds the tuning knobs for a [Breaker]. Zero-value fields are
// replaced with defaults by [NewBreaker].
type Settings struct {
	// Name labels the breaker in log messages.
	Name string

	// FailureLimit is the number of consecutive failures in the closed
	// state before the breaker opens. Default: 5.
	FailureLimit int

	// Cooldown is how long the breaker stays open before allowing probe
	// calls. Default: 30s.
	Cooldown time.Duration

	// ProbeLimit is how many probe calls the half-open state permits
	// before the breaker decides to close or re-open. Default: 3.
	ProbeLimit int
}

// Breaker implements the three-state circuit breaker pattern.
type Breaker struct {
	name         string
	failureLimit int
	cooldown     time.Duration
	probeLimit   int
	now          func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probes   int
	probeOKs int
}

// NewBreaker creates a [Breaker] with the supplied settings.
func NewBreaker(s Settings) *Breaker {
	return newBreaker(s, time.Now)
}

// newBreaker allows tests to inject a clock.
func newBreaker(s Settings, now func() time.Time) *Breaker {
	if s.FailureLimit <= 0 {
		s.FailureLimit = 5
	}
	if s.Cooldown <= 0 {
		s.Cooldown = 30 * time.Second
	}
	if s.ProbeLimit <= 0 {
		s.ProbeLimit = 3
	}
	return &Breaker{
		name:         s.Name,
		failureLimit: s.FailureLimit,
		cooldown:     s.Cooldown,
		probeLimit:   s.ProbeLimit,
		now:          now,
		state:        StateClosed,
	}
}

// Do runs fn if the breaker allows it. In the open state it returns [ErrOpen]
// without calling fn. In the half-open state at most ProbeLimit calls are
// permitted.
func (b *Breaker) Do(fn func() error) error {
	b.mu.Lock()
	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			b.mu.Unlock()
			return ErrOpen
		}
		b.state = StateHalfOpen
		b.probes = 0
		b.probeOKs = 0
		slog.Info("circuit breaker probing", "name", b.name)

	case StateHalfOpen:
		if b.probes >= b.probeLimit {
			b.mu.Unlock()
			return ErrOpen
		}
	}

	probing := b.state == StateHalfOpen
	if probing {
		b.probes++
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.onFailure(probing)
	} else {
		b.onSuccess(probing)
	}
	return err
}

// onFailure must be called with b.mu held.
func (b *Breaker) onFailure(probing bool) {
	b.openedAt = b.now()

	if probing {
		// Any failed probe re-opens immediately.
		b.state = StateOpen
		b.failures = b.failureLimit
		slog.Warn("circuit breaker re-opened", "name", b.name)
		return
	}

	b.failures++
	if b.failures >= b.failureLimit {
		b.state = StateOpen
		slog.Warn("circuit breaker opened",
			"name", b.name,
			"consecutive_failures", b.failures)
	}
}

// onSuccess must be called with b.mu held.
func (b *Breaker) onSuccess(probing bool) {
	if probing {
		b.probeOKs++
		if b.probeOKs >= b.probeLimit {
			b.state = StateClosed
			b.failures = 0
			slog.Info("circuit breaker closed", "name", b.name)
		}
		return
	}
	b.failures = 0
}

// State returns the current state. An open breaker whose cooldown has elapsed
// is reported as half-open; the actual transition happens on the next [Do].
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cooldown {
		return StateHalfOpen
	}
	return b.state
}

// Reset forces the breaker back to [StateClosed], clearing all counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = StateClosed
	b.failures = 0
	b.probes = 0
	b.probeOKs = 0
}

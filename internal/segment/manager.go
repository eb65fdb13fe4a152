package segment

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

const (
	// relinkThreshold is the minimum similarity for matching a
	// translation or playback ack against a sentence whose text has
	// drifted since the request went out.
	relinkThreshold = 0.8

	// extensionSimilarity and extensionGrowth bound what counts as a
	// minor extension of something already played.
	extensionSimilarity = 0.9
	extensionGrowth     = 0.2

	// maxPlayedHistory bounds the recent-playback set used for
	// minor-extension suppression.
	maxPlayedHistory = 20
)

// Options tune the sentence lifecycle.
type Options struct {
	MinSentenceLength  int
	StabilityThreshold time.Duration
	MaxWait            time.Duration
}

// DefaultOptions mirror the tuning the engine ships with.
func DefaultOptions() Options {
	return Options{
		MinSentenceLength:  15,
		StabilityThreshold: 800 * time.Millisecond,
		MaxWait:            3 * time.Second,
	}
}

// Result is what one Process tick produced: new work for the
// translator and the current ranked playback queue.
type Result struct {
	ToTranslate []View
	ToPlay      []View
	Changes     []string
}

// Manager owns the sentence lifecycle: it re-segments each transcript
// snapshot, advances sentence states, and answers which sentences are
// ready to translate or play. All methods are safe for concurrent use.
type Manager struct {
	mu   sync.Mutex
	opts Options
	log  *slog.Logger
	now  func() time.Time

	lastText  string
	sentences []*sentence
	byID      map[string]*sentence
	played    []string // recent played texts, oldest first
}

type Option func(*Manager)

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(opts Options, o ...Option) *Manager {
	m := &Manager{
		opts: opts,
		log:  slog.Default(),
		now:  time.Now,
		byID: make(map[string]*sentence),
	}
	for _, fn := range o {
		fn(m)
	}
	return m
}

// Process ingests the latest transcript snapshot. pauseDetected marks
// the trailing sentence complete even without terminal punctuation.
// Processing the same text twice is a no-op apart from state sweeps,
// so callers may retry freely.
func (m *Manager) Process(text string, pauseDetected bool) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	var changes []string
	text = strings.TrimSpace(text)
	if text != "" && text != m.lastText {
		units := Split(text)
		merged := MergeShort(units, m.opts.MinSentenceLength)
		if len(merged) < len(units) {
			changes = append(changes, fmt.Sprintf("merged %d short fragments", len(units)-len(merged)))
		}
		changes = append(changes, m.reconcile(merged)...)
		m.lastText = text
	}
	changes = append(changes, m.sweep(pauseDetected)...)

	for _, c := range changes {
		m.log.Debug("sentence change", "change", c)
	}
	return Result{
		ToTranslate: m.toTranslate(),
		ToPlay:      m.toPlay(),
		Changes:     changes,
	}
}

// reconcile aligns the sentence list with a fresh segmentation. Units
// are matched positionally: same text is untouched, changed text at an
// existing slot updates that sentence in place, surplus units append.
func (m *Manager) reconcile(units []string) []string {
	var changes []string
	now := m.now()
	for i, unit := range units {
		if i < len(m.sentences) {
			s := m.sentences[i]
			if s.text == unit {
				continue
			}
			if s.isPlayed {
				// Played sentences are frozen. A changed unit at a
				// played slot is treated as new downstream text.
				continue
			}
			changes = append(changes, fmt.Sprintf("sentence updated: %d -> %d chars",
				s.length(), utf8.RuneCountInString(unit)))
			delete(m.byID, ID(s.text))
			s.text = unit
			s.updatedAt = now
			s.isStable = false
			s.translation = ""
			s.isComplete = IsComplete(unit)
			// The quiet period is measured from the completion, so a
			// drifted text restarts it.
			if s.isComplete {
				s.completedAt = now
			} else {
				s.completedAt = time.Time{}
			}
			m.byID[ID(unit)] = s
			continue
		}
		s := &sentence{
			text:       unit,
			isComplete: IsComplete(unit),
			createdAt:  now,
			updatedAt:  now,
		}
		if s.isComplete {
			s.completedAt = now
		}
		m.sentences = append(m.sentences, s)
		m.byID[ID(unit)] = s
		changes = append(changes, fmt.Sprintf("new sentence: %s", truncate(unit, 30)))
	}
	return changes
}

// sweep advances completeness and stability for every live sentence.
func (m *Manager) sweep(pauseDetected bool) []string {
	var changes []string
	now := m.now()
	for i, s := range m.sentences {
		if s.isPlayed {
			continue
		}
		if !s.isComplete {
			switch {
			case IsComplete(s.text):
				s.isComplete = true
				s.completedAt = now
				changes = append(changes, fmt.Sprintf("sentence completed: %s", truncate(s.text, 30)))
			case pauseDetected && i == len(m.sentences)-1:
				s.isComplete = true
				s.completedAt = now
				changes = append(changes, "sentence completed by pause")
			}
		}
		if !s.isStable {
			// Two clocks: a complete sentence stabilizes after a quiet
			// period since completion, and any sentence stabilizes once
			// its total age exceeds the maximum wait, however much the
			// text keeps drifting.
			wait := now.Sub(s.createdAt)
			settled := s.isComplete && now.Sub(s.completedAt) >= m.opts.StabilityThreshold
			if settled || wait >= m.opts.MaxWait {
				s.isStable = true
				changes = append(changes, fmt.Sprintf("sentence stable: %s (waited %.1fs)",
					truncate(s.text, 30), wait.Seconds()))
			}
		}
	}
	return changes
}

func (m *Manager) toTranslate() []View {
	var out []View
	for _, s := range m.sentences {
		if s.isStable && !s.isPlayed && s.translation == "" && s.length() >= m.opts.MinSentenceLength {
			out = append(out, m.view(s))
		}
	}
	return out
}

func (m *Manager) toPlay() []View {
	var out []View
	for _, s := range m.sentences {
		if !s.isStable || s.isPlayed || s.translation == "" || s.length() < m.opts.MinSentenceLength {
			continue
		}
		if m.isMinorExtension(s.text) {
			continue
		}
		out = append(out, m.view(s))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out
}

func (m *Manager) view(s *sentence) View {
	wait := m.now().Sub(s.createdAt)
	return View{
		ID:          ID(s.text),
		Text:        s.text,
		Translation: s.translation,
		State:       s.state(),
		Priority:    m.priority(s, wait),
		Length:      s.length(),
		IsComplete:  s.isComplete,
		WaitTime:    wait,
	}
}

// priority scores a sentence for playback ordering: completeness
// dominates, waiting raises urgency with a cap, and lengths far from
// the ideal are penalized.
func (m *Manager) priority(s *sentence, wait time.Duration) float64 {
	const idealLength = 80.0
	score := 0.0
	if s.isComplete {
		score += 100
	}
	score += math.Min(wait.Seconds()*10, 50)
	f := float64(s.length()) / idealLength
	switch {
	case f < 0.5:
		score -= 20 * (0.5 - f)
	case f > 1.5:
		score -= 10 * (f - 1.5)
	}
	return score
}

// UpdateTranslation attaches a translation to the sentence the request
// was issued for. If the text drifted since then, the closest live
// sentence above the re-link threshold receives it instead. Reports
// whether any sentence was updated.
func (m *Manager) UpdateTranslation(text, translation string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.find(text)
	if s == nil || s.isPlayed {
		return false
	}
	s.translation = translation
	return true
}

// MarkPlayed retires the sentence matching text, by id or by fuzzy
// re-link, and records it for minor-extension suppression.
func (m *Manager) MarkPlayed(text string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.find(text)
	if s == nil || s.isPlayed {
		return false
	}
	s.isPlayed = true
	m.played = append(m.played, s.text)
	if len(m.played) > maxPlayedHistory {
		m.played = m.played[len(m.played)-maxPlayedHistory:]
	}
	return true
}

// find resolves text to a live sentence, first by content id, then by
// best fuzzy match above the re-link threshold.
func (m *Manager) find(text string) *sentence {
	if s, ok := m.byID[ID(text)]; ok {
		return s
	}
	var best *sentence
	bestScore := relinkThreshold
	for _, s := range m.sentences {
		if s.isPlayed {
			continue
		}
		if score := similarity(text, s.text); score > bestScore {
			best, bestScore = s, score
		}
	}
	return best
}

// isMinorExtension reports whether text only slightly extends or
// nearly duplicates something already played.
func (m *Manager) isMinorExtension(text string) bool {
	n := utf8.RuneCountInString(text)
	for _, p := range m.played {
		if strings.HasPrefix(text, p) {
			pn := utf8.RuneCountInString(p)
			if pn > 0 && float64(n-pn)/float64(pn) < extensionGrowth {
				return true
			}
		}
		if similarity(text, p) > extensionSimilarity {
			return true
		}
	}
	return false
}

// Pending reports whether any unplayed sentence text exists.
func (m *Manager) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sentences {
		if !s.isPlayed {
			return true
		}
	}
	return false
}

// Snapshot returns views of every sentence, played included, in
// transcript order.
func (m *Manager) Snapshot() []View {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]View, 0, len(m.sentences))
	for _, s := range m.sentences {
		out = append(out, m.view(s))
	}
	return out
}

// Clear resets the manager for a fresh utterance. The played history
// survives so suppression still works across resets.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastText = ""
	m.sentences = nil
	m.byID = make(map[string]*sentence)
}

func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	return matchr.JaroWinkler(a, b, false)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

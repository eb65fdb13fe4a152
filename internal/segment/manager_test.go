package segment

import (
	"strings"
	"testing"
	"time"
)

// testClock is a manually advanced time source.
type testClock struct{ t time.Time }

func newTestClock() *testClock {
	return &testClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) now() time.Time          { return c.t }
func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestManager(clock *testClock) *Manager {
	return NewManager(DefaultOptions(), WithClock(clock.now))
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", nil},
		{"no boundary", "still talking about things", []string{"still talking about things"}},
		{"ascii boundaries", "First one. Second one! Third", []string{"First one.", "Second one!", "Third"}},
		{"cjk boundaries", "你好世界。今天天气不错！还在说", []string{"你好世界。", "今天天气不错！", "还在说"}},
		{"semicolons", "part one; part two；tail", []string{"part one;", "part two；", "tail"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("Split(%q) = %v, want %v", tt.text, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("unit %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestMergeShortAbsorbsFragments(t *testing.T) {
	units := Split("Hi. Ok go now please continue.")
	merged := MergeShort(units, 15)
	if len(merged) != 1 {
		t.Fatalf("merged = %v, want one unit", merged)
	}
	if merged[0] != "Hi. Ok go now please continue." {
		t.Errorf("merged[0] = %q", merged[0])
	}
	for _, u := range merged {
		if len([]rune(u)) < 15 {
			t.Errorf("fragment %q below minimum survived merge", u)
		}
	}
}

func TestMergeShortKeepsLongUnits(t *testing.T) {
	units := []string{
		"This sentence is long enough to stand.",
		"So is this one, clearly over threshold.",
	}
	merged := MergeShort(units, 15)
	if len(merged) != 2 {
		t.Fatalf("merged = %v, want both units kept", merged)
	}
}

func TestProcessIdempotent(t *testing.T) {
	clock := newTestClock()
	m := newTestManager(clock)

	first := m.Process("The weather is lovely today.", false)
	if len(first.Changes) == 0 {
		t.Fatal("first process reported no changes")
	}
	second := m.Process("The weather is lovely today.", false)
	for _, c := range second.Changes {
		if strings.HasPrefix(c, "new sentence") || strings.HasPrefix(c, "sentence updated") {
			t.Errorf("unchanged text produced %q", c)
		}
	}
}

func TestLifecycleCompleteToPlayed(t *testing.T) {
	clock := newTestClock()
	m := newTestManager(clock)
	text := "The weather is lovely today."

	m.Process(text, false)
	res := m.Process(text, false)
	if len(res.ToTranslate) != 0 {
		t.Fatal("sentence translatable before stability window")
	}

	clock.advance(time.Second)
	res = m.Process(text, false)
	if len(res.ToTranslate) != 1 {
		t.Fatalf("ToTranslate = %v, want the stable sentence", res.ToTranslate)
	}
	if res.ToTranslate[0].Text != text {
		t.Errorf("ToTranslate[0].Text = %q", res.ToTranslate[0].Text)
	}
	if len(res.ToPlay) != 0 {
		t.Error("sentence playable before translation arrived")
	}

	if !m.UpdateTranslation(text, "今天天气很好。") {
		t.Fatal("UpdateTranslation did not match")
	}
	res = m.Process(text, false)
	if len(res.ToPlay) != 1 || res.ToPlay[0].Translation != "今天天气很好。" {
		t.Fatalf("ToPlay = %v", res.ToPlay)
	}

	if !m.MarkPlayed(text) {
		t.Fatal("MarkPlayed did not match")
	}
	res = m.Process(text, false)
	if len(res.ToPlay) != 0 || len(res.ToTranslate) != 0 {
		t.Error("played sentence resurfaced")
	}
}

func TestForcedStabilityAfterMaxWait(t *testing.T) {
	clock := newTestClock()
	m := newTestManager(clock)
	text := "an incomplete thought that keeps going without punctuation"

	m.Process(text, false)
	clock.advance(2 * time.Second)
	res := m.Process(text, false)
	if len(res.ToTranslate) != 0 {
		t.Fatal("incomplete sentence stable before max wait")
	}
	clock.advance(1500 * time.Millisecond)
	res = m.Process(text, false)
	if len(res.ToTranslate) != 1 {
		t.Fatalf("ToTranslate = %v, want forced-stable sentence", res.ToTranslate)
	}
}

func TestPauseCompletesTrailingSentence(t *testing.T) {
	clock := newTestClock()
	m := newTestManager(clock)
	text := "we can stop here for a moment"

	m.Process(text, false)
	res := m.Process(text, true)
	found := false
	for _, c := range res.Changes {
		if c == "sentence completed by pause" {
			found = true
		}
	}
	if !found {
		t.Fatalf("pause completion missing from %v", res.Changes)
	}

	clock.advance(time.Second)
	res = m.Process(text, false)
	if len(res.ToTranslate) != 1 {
		t.Error("pause-completed sentence never became stable")
	}
}

func TestUpdateInvalidatesStability(t *testing.T) {
	clock := newTestClock()
	m := newTestManager(clock)

	m.Process("The weather is lovely today.", false)
	clock.advance(time.Second)
	res := m.Process("The weather is lovely today.", false)
	if len(res.ToTranslate) != 1 {
		t.Fatal("complete sentence not stable after quiet period")
	}

	// Growing the text while the sentence is still young resets
	// stability; only the age clock can bring it back early.
	res = m.Process("The weather is lovely today and tomorrow looks even better", false)
	if len(res.ToTranslate) != 0 {
		t.Error("updated sentence still marked stable")
	}
}

func TestDriftingSentenceStabilizesByAge(t *testing.T) {
	clock := newTestClock()
	m := newTestManager(clock)

	// The text keeps growing, so the quiet-period clause never fires.
	m.Process("an unpunctuated thought that keeps growing", false)
	clock.advance(time.Second)
	res := m.Process("an unpunctuated thought that keeps growing onward", false)
	if len(res.ToTranslate) != 0 {
		t.Fatal("drifting sentence stable too early")
	}
	clock.advance(time.Second)
	res = m.Process("an unpunctuated thought that keeps growing onward still", false)
	if len(res.ToTranslate) != 0 {
		t.Fatal("drifting sentence stable too early")
	}

	// Three seconds after creation the age clock forces stability even
	// though the text changed this very tick.
	clock.advance(time.Second)
	res = m.Process("an unpunctuated thought that keeps growing onward still further", false)
	if len(res.ToTranslate) != 1 {
		t.Fatalf("ToTranslate = %v, want age-forced stability", res.ToTranslate)
	}
}

func TestMinorExtensionSuppressed(t *testing.T) {
	clock := newTestClock()
	m := newTestManager(clock)
	base := "The weather is lovely today and the forecast says it will hold."

	m.Process(base, false)
	clock.advance(time.Second)
	m.Process(base, false)
	m.UpdateTranslation(base, "translated")
	m.MarkPlayed(base)
	m.Clear()

	// Nearly identical follow-up must not play again.
	ext := base + " Yes."
	m.Process(ext, false)
	clock.advance(4 * time.Second)
	m.UpdateTranslation(ext, "translated again")
	res := m.Process(ext, false)
	for _, v := range res.ToPlay {
		if v.Text == ext {
			t.Errorf("minor extension %q surfaced for playback", ext)
		}
	}
}

func TestFuzzyRelink(t *testing.T) {
	clock := newTestClock()
	m := newTestManager(clock)

	m.Process("The weather is lovely today and", false)
	clock.advance(4 * time.Second)
	m.Process("The weather is lovely today and", false)

	// The text drifted after the translation request went out.
	drifted := "The weather is lovely today and more"
	m.Process(drifted, false)
	if !m.UpdateTranslation("The weather is lovely today and", "translated") {
		t.Fatal("fuzzy re-link failed for drifted sentence")
	}
	clock.advance(4 * time.Second)
	res := m.Process(drifted, false)
	if len(res.ToPlay) != 1 || res.ToPlay[0].Translation != "translated" {
		t.Fatalf("ToPlay = %v, want re-linked translation", res.ToPlay)
	}
}

func TestPriorityOrdering(t *testing.T) {
	clock := newTestClock()
	m := newTestManager(clock)

	// One complete sentence, one incomplete, both long enough.
	text := "Here is an unfinished train of thought that rambles on. Here is a complete follow-up sentence"
	m.Process(text, false)
	clock.advance(4 * time.Second)
	m.Process(text, false)
	m.UpdateTranslation("Here is an unfinished train of thought that rambles on.", "a")
	m.UpdateTranslation("Here is a complete follow-up sentence", "b")
	res := m.Process(text, false)
	if len(res.ToPlay) != 2 {
		t.Fatalf("ToPlay = %v, want both sentences", res.ToPlay)
	}
	if !res.ToPlay[0].IsComplete {
		t.Error("complete sentence not ranked first")
	}
	if res.ToPlay[0].Priority <= res.ToPlay[1].Priority {
		t.Errorf("priorities not descending: %.1f then %.1f",
			res.ToPlay[0].Priority, res.ToPlay[1].Priority)
	}
}

func TestPauseCompletesShortTrailer(t *testing.T) {
	clock := newTestClock()
	m := newTestManager(clock)

	// A pause completes the trailing sentence no matter how short it
	// is; the length gates on translate and play still filter it.
	res := m.Process("ok stop now", true)
	found := false
	for _, c := range res.Changes {
		if c == "sentence completed by pause" {
			found = true
		}
	}
	if !found {
		t.Fatalf("short trailer not completed by pause: %v", res.Changes)
	}

	clock.advance(4 * time.Second)
	res = m.Process("ok stop now", false)
	if len(res.ToTranslate) != 0 {
		t.Errorf("ToTranslate = %v, want short sentence filtered", res.ToTranslate)
	}
}

func TestViewStateProgression(t *testing.T) {
	clock := newTestClock()
	m := newTestManager(clock)
	text := "The weather is lovely today."

	state := func() State {
		views := m.Snapshot()
		if len(views) != 1 {
			t.Fatalf("Snapshot = %v, want one sentence", views)
		}
		return views[0].State
	}

	m.Process(text, false)
	if got := state(); got != StateComplete {
		t.Fatalf("state after ingest = %v, want complete", got)
	}
	clock.advance(time.Second)
	m.Process(text, false)
	if got := state(); got != StateStable {
		t.Fatalf("state after quiet period = %v, want stable", got)
	}
	m.UpdateTranslation(text, "今天天气很好。")
	if got := state(); got != StateTranslated {
		t.Fatalf("state after translation = %v, want translated", got)
	}
	m.MarkPlayed(text)
	if got := state(); got != StatePlayed {
		t.Fatalf("state after playback = %v, want played", got)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateNew, "new"},
		{StateComplete, "complete"},
		{StateStable, "stable"},
		{StateTranslated, "translated"},
		{StatePlayed, "played"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestIDStable(t *testing.T) {
	a := ID("same content")
	b := ID("same content")
	if a != b || len(a) != 8 {
		t.Errorf("ID = %q / %q, want equal 8-char ids", a, b)
	}
	if ID("other content") == a {
		t.Error("distinct content hashed to the same id")
	}
}

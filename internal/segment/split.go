package segment

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Terminal punctuation recognized as a sentence boundary. Both ASCII
// and full-width CJK forms count.
var boundaryRe = regexp.MustCompile(`([.。!！?？;；])\s*`)

var completeRe = regexp.MustCompile(`[.。!！?？;；]\s*$`)

// Split cuts text into sentence units at terminal punctuation, keeping
// the punctuation attached to the unit it ends. Trailing text without
// a terminator becomes a final incomplete unit.
func Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var out []string
	last := 0
	for _, loc := range boundaryRe.FindAllStringIndex(text, -1) {
		// Keep the punctuation (the captured rune), drop the
		// whitespace the boundary consumed.
		_, size := utf8.DecodeRuneInString(text[loc[0]:])
		unit := strings.TrimSpace(text[last : loc[0]+size])
		if unit != "" {
			out = append(out, unit)
		}
		last = loc[1]
	}
	if rest := strings.TrimSpace(text[last:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

// MergeShort folds units below minLen into their neighbor so that no
// fragment shorter than the threshold stands alone. The scan is greedy
// left to right: a short unit absorbs whatever follows it until the
// combination clears the threshold or input runs out.
func MergeShort(units []string, minLen int) []string {
	if len(units) <= 1 {
		return units
	}
	var out []string
	current := units[0]
	for _, next := range units[1:] {
		if utf8.RuneCountInString(current) < minLen || utf8.RuneCountInString(next) < minLen {
			current = joinUnits(current, next)
		} else {
			out = append(out, current)
			current = next
		}
	}
	return append(out, current)
}

// joinUnits re-inserts the space the splitter consumed, except between
// CJK runes where none belongs.
func joinUnits(a, b string) string {
	ra, _ := utf8.DecodeLastRuneInString(a)
	rb, _ := utf8.DecodeRuneInString(b)
	if ra < 0x2E80 && rb < 0x2E80 {
		return a + " " + b
	}
	return a + b
}

// IsComplete reports whether text ends with terminal punctuation.
func IsComplete(text string) bool {
	return completeRe.MatchString(text)
}

// Package matcher scans text for icon tokens using compiled patterns.
package matcher

import (
	"sort"
	"unicode/utf16"

	"github.com/dlclark/regexp2"

	"github.com/zjrosen/iconlens/internal/log"
	"github.com/zjrosen/iconlens/internal/pattern"
)

// Match is one token occurrence. Offsets are rune (character) offsets into
// the scanned text, half-open.
type Match struct {
	// Start and End span the whole token, including any prefix and suffix
	// but not the lead character.
	Start int
	End   int
	// KeyStart and KeyEnd span the captured key.
	KeyStart int
	KeyEnd   int
	Key      string
}

// Scan returns every match of re in text, in order. Each call starts from
// the beginning of text, so the same text always yields the same matches.
// Matches with an empty key are skipped. A regex timeout ends the scan
// early with the matches found so far.
func Scan(re *regexp2.Regexp, text string) []Match {
	if re == nil || text == "" {
		return nil
	}

	var out []Match
	m, err := re.FindStringMatch(text)
	for m != nil && err == nil {
		if match, ok := toMatch(m); ok {
			out = append(out, match)
		}
		m, err = re.FindNextMatch(m)
	}
	if err != nil {
		log.Warn(log.CatPattern, "Token scan aborted", "error", err, "matches", len(out))
	}
	return out
}

// First returns the first match of re in text.
func First(re *regexp2.Regexp, text string) (Match, bool) {
	if re == nil {
		return Match{}, false
	}
	m, err := re.FindStringMatch(text)
	for m != nil && err == nil {
		if match, ok := toMatch(m); ok {
			return match, true
		}
		m, err = re.FindNextMatch(m)
	}
	return Match{}, false
}

func toMatch(m *regexp2.Match) (Match, bool) {
	key := m.GroupByNumber(pattern.GroupKey)
	if key == nil || key.Length == 0 {
		return Match{}, false
	}
	start := m.Index
	if lead := m.GroupByNumber(pattern.GroupLead); lead != nil {
		start = lead.Index + lead.Length
	}
	return Match{
		Start:    start,
		End:      m.Index + m.Length,
		KeyStart: key.Index,
		KeyEnd:   key.Index + key.Length,
		Key:      key.String(),
	}, true
}

// Position is a zero-based line/column location.
type Position struct {
	Line int
	// Column counts runes from the start of the line.
	Column int
	// Character counts UTF-16 code units from the start of the line, as
	// editors speaking LSP expect.
	Character int
}

// LineIndex translates rune offsets of one text into positions.
type LineIndex struct {
	text []rune
	// starts[i] is the rune offset where line i begins.
	starts []int
}

// NewLineIndex indexes text. Lines end at '\n'; a preceding '\r' stays part
// of the line.
func NewLineIndex(text string) *LineIndex {
	runes := []rune(text)
	starts := []int{0}
	for i, r := range runes {
		if r == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{text: runes, starts: starts}
}

// LineCount returns the number of lines.
func (x *LineIndex) LineCount() int {
	return len(x.starts)
}

// Position converts a rune offset. Offsets past the end clamp to the end.
func (x *LineIndex) Position(offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(x.text) {
		offset = len(x.text)
	}
	line := sort.Search(len(x.starts), func(i int) bool { return x.starts[i] > offset }) - 1
	lineStart := x.starts[line]

	char := 0
	for _, r := range x.text[lineStart:offset] {
		char += utf16.RuneLen(r)
	}
	return Position{Line: line, Column: offset - lineStart, Character: char}
}

// Offset converts a line and UTF-16 character position back to a rune
// offset, clamping to the line's end.
func (x *LineIndex) Offset(line, character int) int {
	if line < 0 {
		return 0
	}
	if line >= len(x.starts) {
		return len(x.text)
	}
	end := len(x.text)
	if line+1 < len(x.starts) {
		end = x.starts[line+1] - 1
	}
	off := x.starts[line]
	for units := 0; off < end; off++ {
		n := utf16.RuneLen(x.text[off])
		if units+n > character {
			break
		}
		units += n
	}
	return off
}

// Line returns the text of line i without its terminator.
func (x *LineIndex) Line(i int) string {
	if i < 0 || i >= len(x.starts) {
		return ""
	}
	end := len(x.text)
	if i+1 < len(x.starts) {
		end = x.starts[i+1] - 1
	}
	return string(x.text[x.starts[i]:end])
}

// Package pattern compiles the regular expressions that recognise icon
// tokens in editor text.
//
// Every pattern starts with a lead group (group 1): either the start of the
// text or one character that cannot be part of an identifier. Group 2
// carries the payload (the token key, the collection id, or the word being
// typed). Patterns use ECMAScript semantics, so \w and \b are ASCII-only.
package pattern

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/zjrosen/iconlens/internal/derive"
	"github.com/zjrosen/iconlens/internal/log"
)

// Capture group numbers shared by every compiled pattern.
const (
	GroupLead = 1
	GroupKey  = 2
)

// MatchTimeout bounds a single regex evaluation.
const MatchTimeout = 2 * time.Second

const (
	lead      = `(^|[^\w\d</])`
	iconName  = `[\w-]*\w`
	typedWord = `[\w-]*`
	// A token ends on a word character that is not followed by another
	// word character or a hyphen, so `mdi:home-` never yields `mdi:home`.
	tokenEnd = `(?![\w-])`
	never    = `(?!)`
)

// Inputs is everything the patterns depend on.
type Inputs struct {
	Delimiters    []string
	Prefixes      []string
	Suffixes      []string
	CollectionIDs []string
	AliasIDs      []string
	AliasesOnly   bool
}

func (in Inputs) fingerprint() string {
	return derive.Fingerprint(
		in.Delimiters,
		in.Prefixes,
		in.Suffixes,
		in.CollectionIDs,
		in.AliasIDs,
		[]string{strconv.FormatBool(in.AliasesOnly)},
	)
}

// Set is the compiled pattern family for one configuration.
type Set struct {
	// Prefixed matches a token being typed at the end of a line.
	Prefixed *regexp2.Regexp
	// Namespace matches `prefix + id + delimiter + partial name` at the end
	// of a line; group 2 is the collection id.
	Namespace *regexp2.Regexp
	// CollectionIcon matches `id + delimiter + name` without prefixes or
	// aliases. Used inside alias files.
	CollectionIcon *regexp2.Regexp
	// Full matches complete tokens for decoration.
	Full *regexp2.Regexp
}

// Compile builds the pattern family. Literal fragments are escaped, so
// errors only surface from internal mistakes.
func Compile(in Inputs) (*Set, error) {
	delims := alternation(in.Delimiters)
	if delims == "" {
		delims = never
	}
	ids := alternation(in.CollectionIDs)
	if ids == "" {
		ids = never
	}
	aliases := alternation(in.AliasIDs)
	prefixes := optionalGroup(in.Prefixes)
	suffixes := optionalGroup(in.Suffixes)

	collectionIcon := ids + delims + iconName

	var full string
	switch {
	case in.AliasesOnly && aliases == "":
		full = lead + prefixes + `(` + never + `)`
	case in.AliasesOnly:
		full = lead + prefixes + `(` + aliases + `)` + suffixes + tokenEnd
	case aliases == "":
		full = lead + prefixes + `(` + collectionIcon + `)` + suffixes + tokenEnd
	default:
		full = lead + prefixes + `(` + collectionIcon + `|` + aliases + `)` + suffixes + tokenEnd
	}

	exprs := []struct {
		name string
		expr string
		dst  **regexp2.Regexp
	}{
		{"prefixed", lead + prefixes + `(` + typedWord + `)$`, nil},
		{"namespace", lead + prefixes + `(` + ids + `)` + delims + typedWord + `$`, nil},
		{"collection-icon", lead + `(` + collectionIcon + `)` + tokenEnd, nil},
		{"full", full, nil},
	}

	set := &Set{}
	exprs[0].dst = &set.Prefixed
	exprs[1].dst = &set.Namespace
	exprs[2].dst = &set.CollectionIcon
	exprs[3].dst = &set.Full

	for _, e := range exprs {
		re, err := regexp2.Compile(e.expr, regexp2.ECMAScript)
		if err != nil {
			return nil, fmt.Errorf("compiling %s pattern: %w", e.name, err)
		}
		re.MatchTimeout = MatchTimeout
		*e.dst = re
	}

	log.Debug(log.CatPattern, "Compiled token patterns",
		"ids", len(in.CollectionIDs), "aliases", len(in.AliasIDs), "aliasesOnly", in.AliasesOnly)
	return set, nil
}

// Compiler memoizes Compile on its inputs.
type Compiler struct {
	memo derive.Memo[*Set]
}

// Get returns the pattern set for in, compiling only when in differs from
// the previous call.
func (c *Compiler) Get(in Inputs) (*Set, error) {
	return c.memo.Get(in.fingerprint(), func() (*Set, error) {
		return Compile(in)
	})
}

// Compiles reports how many times the compiler actually compiled.
func (c *Compiler) Compiles() int {
	return c.memo.Computes()
}

// alternation escapes items and joins them longest first as a
// non-capturing group. Empty items are dropped; returns "" if none remain.
func alternation(items []string) string {
	parts := escapedLongestFirst(items)
	if len(parts) == 0 {
		return ""
	}
	return `(?:` + strings.Join(parts, `|`) + `)`
}

// optionalGroup is alternation() that becomes optional when items contain
// the empty string. No non-empty items yields "" (zero width).
func optionalGroup(items []string) string {
	group := alternation(items)
	if group == "" {
		return ""
	}
	if slices.Contains(items, "") {
		return group + `?`
	}
	return group
}

func escapedLongestFirst(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == "" {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	// Longer literals first: with delimiters ":" and "::", "::" must win.
	slices.SortStableFunc(out, func(a, b string) int { return len(b) - len(a) })
	for i, item := range out {
		out[i] = Escape(item)
	}
	return out
}

// Escape quotes every regex metacharacter in s, including '-' and the
// bracket and brace closers that regexp2.Escape leaves alone.
func Escape(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 2)
	for _, r := range s {
		switch r {
		case '\\', '.', '+', '*', '?', '(', ')', '|', '[', ']', '{', '}', '^', '$', '#', '-', '/', ',':
			b.WriteByte('\\')
			b.WriteRune(r)
		case ' ':
			b.WriteString(`\x20`)
		case '\t':
			b.WriteString(`\t`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\f':
			b.WriteString(`\f`)
		case '\v':
			b.WriteString(`\v`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

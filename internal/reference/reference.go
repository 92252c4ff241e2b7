// Package reference splits matched token keys into collection and icon
// name.
package reference

import (
	"slices"
	"strings"

	"github.com/dghubble/trie"
)

// Ref is a parsed icon reference.
type Ref struct {
	// Collection is the canonical collection id used for loading, after
	// the id map has been applied.
	Collection string
	// Written is the collection id as it appeared in the key.
	Written string
	Icon    string
	// Key is the effective key after alias substitution.
	Key string
}

// Options configures a Parser.
type Options struct {
	// CollectionIDs are the enabled ids.
	CollectionIDs []string
	Delimiters    []string
	// Aliases maps alias keys to target keys such as "mdi:home".
	Aliases map[string]string
	// IDMap renames ids as written to canonical collection ids.
	IDMap map[string]string
}

// Parser is immutable once built and safe for concurrent use.
type Parser struct {
	ids        *trie.RuneTrie
	delimiters []string
	aliases    map[string]string
	idMap      map[string]string
}

// NewParser indexes the enabled ids.
func NewParser(opts Options) *Parser {
	ids := trie.NewRuneTrie()
	for _, id := range opts.CollectionIDs {
		if id != "" {
			ids.Put(id, id)
		}
	}

	delims := slices.Clone(opts.Delimiters)
	delims = slices.DeleteFunc(delims, func(d string) bool { return d == "" })
	slices.SortStableFunc(delims, func(a, b string) int { return len(b) - len(a) })

	return &Parser{
		ids:        ids,
		delimiters: delims,
		aliases:    opts.Aliases,
		idMap:      opts.IDMap,
	}
}

// Parse resolves key. Alias substitution applies when withAliases is set
// and key is an alias; it is single-level, so a target that is itself an
// alias is not followed. Returns false when key is not an icon reference.
func (p *Parser) Parse(key string, withAliases bool) (Ref, bool) {
	effective := key
	if withAliases {
		if target, ok := p.aliases[key]; ok {
			effective = target
		}
	}

	id, rest, ok := p.splitLongest(effective)
	if !ok {
		return Ref{}, false
	}

	canonical := id
	if mapped, ok := p.idMap[id]; ok && mapped != "" {
		canonical = mapped
	}
	return Ref{Collection: canonical, Written: id, Icon: rest, Key: effective}, true
}

// splitLongest finds the longest enabled id that prefixes key and is
// directly followed by a delimiter, returning the id and the icon name.
func (p *Parser) splitLongest(key string) (string, string, bool) {
	var candidates []string
	_ = p.ids.WalkPath(key, func(_ string, value interface{}) error {
		candidates = append(candidates, value.(string))
		return nil
	})

	// WalkPath visits shorter prefixes first.
	for i := len(candidates) - 1; i >= 0; i-- {
		id := candidates[i]
		rest := key[len(id):]
		for _, d := range p.delimiters {
			if name, ok := strings.CutPrefix(rest, d); ok {
				name = p.trimDelimiters(name)
				if name == "" {
					return "", "", false
				}
				return id, name, true
			}
		}
	}
	return "", "", false
}

// trimDelimiters strips any further leading delimiters, so "mdi::home"
// with delimiter ":" still names "home".
func (p *Parser) trimDelimiters(name string) string {
	for {
		trimmed := name
		for _, d := range p.delimiters {
			trimmed = strings.TrimPrefix(trimmed, d)
		}
		if trimmed == name {
			return name
		}
		name = trimmed
	}
}

// HasAlias reports whether key is a known alias.
func (p *Parser) HasAlias(key string) bool {
	_, ok := p.aliases[key]
	return ok
}

// AliasIDs returns the alias keys in sorted order.
func (p *Parser) AliasIDs() []string {
	ids := make([]string, 0, len(p.aliases))
	for k := range p.aliases {
		ids = append(ids, k)
	}
	slices.Sort(ids)
	return ids
}

// Package completion suggests icon names and collection ids while typing.
package completion

import (
	"context"
	"slices"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/zjrosen/iconlens/internal/collections"
	"github.com/zjrosen/iconlens/internal/config"
	"github.com/zjrosen/iconlens/internal/log"
	"github.com/zjrosen/iconlens/internal/matcher"
	"github.com/zjrosen/iconlens/internal/pattern"
)

// Kind tells icon suggestions from collection suggestions.
type Kind string

const (
	KindIcon       Kind = "icon"
	KindCollection Kind = "collection"
)

// Item is one suggestion.
type Item struct {
	Label string `json:"label"`
	// Detail is the full key for icons and the collection name for
	// collections.
	Detail string `json:"detail,omitempty"`
	Kind   Kind   `json:"kind"`
	// Collection is the id the item belongs to.
	Collection string `json:"collection"`
	// Replace is how many characters before the cursor the label replaces.
	Replace       int    `json:"replace"`
	Documentation string `json:"documentation,omitempty"`
}

// Source is what the provider needs from the application.
type Source interface {
	Config() config.Config
	Patterns() (*pattern.Set, error)
	EnabledIDs() []string
	Collection(id string) (collections.Meta, bool)
	// IconNames lists the icons of a known collection, sorted.
	IconNames(id string) ([]string, bool)
	IconMarkdown(ctx context.Context, key string) string
	CollectionMarkdown(ctx context.Context, id string) string
}

var collectionAttr = regexp2.MustCompile(`icon=['"]([\w-]*)$`, regexp2.ECMAScript)

// Provider answers completion requests.
type Provider struct {
	src Source
}

// NewProvider returns a provider backed by src.
func NewProvider(src Source) *Provider {
	return &Provider{src: src}
}

// TriggerCharacters are the delimiters and the quote characters.
func (p *Provider) TriggerCharacters() []string {
	out := slices.Clone(p.src.Config().Delimiters)
	for _, q := range []string{`"`, `'`} {
		if !slices.Contains(out, q) {
			out = append(out, q)
		}
	}
	return out
}

// Complete returns suggestions for the text between the start of the line
// and the cursor. Icon names of a typed collection come first; an empty
// `icon="` attribute suggests collections instead.
func (p *Provider) Complete(linePrefix string) []Item {
	if items := p.icons(linePrefix); items != nil {
		return items
	}
	return p.collections(linePrefix)
}

func (p *Provider) icons(line string) []Item {
	set, err := p.src.Patterns()
	if err != nil {
		log.ErrorErr(log.CatLSP, "Patterns unavailable for completion", err)
		return nil
	}
	m, ok := matcher.First(set.Namespace, line)
	if !ok {
		return nil
	}
	id := m.Key
	names, ok := p.src.IconNames(id)
	if !ok {
		if mapped := p.src.Config().CustomCollectionIDsMap[id]; mapped != "" {
			names, ok = p.src.IconNames(mapped)
		}
	}
	if !ok {
		return nil
	}

	cfg := p.src.Config()
	partial := typedName(string([]rune(line)[m.KeyEnd:]), cfg.Delimiters)
	delim := ":"
	if len(cfg.Delimiters) > 0 {
		delim = cfg.Delimiters[0]
	}

	items := make([]Item, 0, len(names))
	for _, name := range names {
		items = append(items, Item{
			Label:      name,
			Detail:     id + delim + name,
			Kind:       KindIcon,
			Collection: id,
			Replace:    len(partial),
		})
	}
	slices.SortFunc(items, func(a, b Item) int { return strings.Compare(a.Label, b.Label) })
	return items
}

// typedName strips the delimiter that follows the collection id, leaving
// the part of the icon name typed so far.
func typedName(rest string, delimiters []string) string {
	delims := slices.Clone(delimiters)
	slices.SortStableFunc(delims, func(a, b string) int { return len(b) - len(a) })
	for _, d := range delims {
		if d != "" && strings.HasPrefix(rest, d) {
			return rest[len(d):]
		}
	}
	return rest
}

func (p *Provider) collections(line string) []Item {
	m, err := collectionAttr.FindStringMatch(line)
	if err != nil || m == nil {
		return nil
	}
	partial := m.GroupByNumber(1).String()

	ids := p.src.EnabledIDs()
	items := make([]Item, 0, len(ids))
	for _, id := range ids {
		item := Item{Label: id, Kind: KindCollection, Collection: id, Replace: len(partial)}
		if meta, ok := p.src.Collection(id); ok {
			item.Detail = meta.Name
		}
		items = append(items, item)
	}
	return items
}

// Resolve fills in the documentation of item.
func (p *Provider) Resolve(ctx context.Context, item Item) Item {
	switch item.Kind {
	case KindIcon:
		item.Documentation = p.src.IconMarkdown(ctx, item.Detail)
	case KindCollection:
		item.Documentation = p.src.CollectionMarkdown(ctx, item.Collection)
	}
	return item
}

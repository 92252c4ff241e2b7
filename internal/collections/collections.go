// Package collections holds collection metadata: the bundled catalog
// shipped with the binary, custom collections added at runtime, and the
// computation of which collection ids are enabled.
package collections

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/zjrosen/iconlens/internal/iconify"
	"github.com/zjrosen/iconlens/internal/log"
)

//go:generate go run ./gen -o data/collections.json

//go:embed data/collections.json
var bundledJSON []byte

// Meta describes one collection without its icon bodies.
type Meta struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Author  string   `json:"author"`
	License string   `json:"license,omitempty"`
	Icons   []string `json:"icons"`

	// Total is the upstream icon count. Entries listed without their
	// names carry only this.
	Total  int `json:"total,omitempty"`
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`

	// Custom marks collections loaded from user-supplied files.
	Custom bool `json:"-"`

	names map[string]struct{}
}

// Count is the number of icons in the collection.
func (m *Meta) Count() int {
	return max(m.Total, len(m.Icons))
}

// HasIcon reports whether name is one of the collection's icons.
func (m *Meta) HasIcon(name string) bool {
	if m.names == nil {
		m.index()
	}
	_, ok := m.names[name]
	return ok
}

func (m *Meta) index() {
	m.names = make(map[string]struct{}, len(m.Icons))
	for _, name := range m.Icons {
		m.names[name] = struct{}{}
	}
}

// MetaFromSet builds metadata for a custom icon set.
func MetaFromSet(set *iconify.IconSet) Meta {
	m := Meta{
		ID:     set.Prefix,
		Icons:  set.Names(),
		Width:  set.Width,
		Height: set.DeclaredHeight(),
		Custom: true,
	}
	sort.Strings(m.Icons)
	if set.Info != nil {
		m.Name = set.Info.Name
		m.Author = set.Info.Author.Name
		if set.Info.License != nil {
			m.License = set.Info.License.SPDX
		}
	}
	if m.Name == "" {
		m.Name = set.Prefix
	}
	m.index()
	return m
}

var loadBundled = sync.OnceValues(func() ([]Meta, error) {
	var metas []Meta
	if err := json.Unmarshal(bundledJSON, &metas); err != nil {
		return nil, fmt.Errorf("decoding bundled collections: %w", err)
	}
	for i := range metas {
		metas[i].index()
	}
	return metas, nil
})

// Bundled returns the catalog embedded in the binary.
func Bundled() ([]Meta, error) {
	return loadBundled()
}

// Registry is the set of known collections, bundled and custom.
// Custom entries shadow bundled entries with the same id.
type Registry struct {
	mu      sync.RWMutex
	bundled []Meta
	byID    map[string]int
	custom  map[string]Meta
}

// NewRegistry creates a registry over the given bundled metadata.
func NewRegistry(bundled []Meta) *Registry {
	byID := make(map[string]int, len(bundled))
	for i, m := range bundled {
		if _, dup := byID[m.ID]; dup {
			log.Warn(log.CatConfig, "Duplicate bundled collection id ignored", "id", m.ID)
			continue
		}
		byID[m.ID] = i
	}
	return &Registry{
		bundled: bundled,
		byID:    byID,
		custom:  make(map[string]Meta),
	}
}

// PutCustom adds or replaces a custom collection.
func (r *Registry) PutCustom(m Meta) {
	m.Custom = true
	r.mu.Lock()
	r.custom[m.ID] = m
	r.mu.Unlock()
}

// RemoveCustom drops a custom collection. Returns false if it was unknown.
func (r *Registry) RemoveCustom(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.custom[id]; !ok {
		return false
	}
	delete(r.custom, id)
	return true
}

// Get returns metadata for id.
func (r *Registry) Get(id string) (Meta, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if m, ok := r.custom[id]; ok {
		return m, true
	}
	if i, ok := r.byID[id]; ok {
		return r.bundled[i], true
	}
	return Meta{}, false
}

// BundledIDs returns the ids of the bundled catalog in catalog order.
func (r *Registry) BundledIDs() []string {
	ids := make([]string, 0, len(r.bundled))
	for _, m := range r.bundled {
		ids = append(ids, m.ID)
	}
	return ids
}

// CustomIDs returns the ids of custom collections, sorted.
func (r *Registry) CustomIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.custom))
	for id := range r.custom {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// All returns bundled then custom metadata; custom shadows bundled.
func (r *Registry) All() []Meta {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Meta, 0, len(r.bundled)+len(r.custom))
	for _, m := range r.bundled {
		if _, shadowed := r.custom[m.ID]; !shadowed {
			out = append(out, m)
		}
	}
	ids := make([]string, 0, len(r.custom))
	for id := range r.custom {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		out = append(out, r.custom[id])
	}
	return out
}

// Selection narrows the bundled catalog. Includes and Excludes accept
// plain ids or doublestar patterns such as "mdi*".
type Selection struct {
	Includes []string
	Excludes []string
	// IDMap keys are extra ids recognised in text (remapped at load time).
	IDMap map[string]string
}

// EnabledIDs computes the enabled collection ids, longest first.
func EnabledIDs(bundledIDs []string, sel Selection, customIDs []string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(id string) {
		if id == "" {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	for _, id := range bundledIDs {
		if len(sel.Includes) > 0 && !matchAny(sel.Includes, id) {
			continue
		}
		if matchAny(sel.Excludes, id) {
			continue
		}
		add(id)
	}
	for id := range sel.IDMap {
		add(id)
	}
	for _, id := range customIDs {
		add(id)
	}

	SortLongestFirst(out)
	return out
}

// SortLongestFirst orders ids by descending length, then lexically, so
// regex alternation and prefix lookups prefer the longest id.
func SortLongestFirst(ids []string) {
	slices.SortFunc(ids, func(a, b string) int {
		if len(a) != len(b) {
			return len(b) - len(a)
		}
		if a < b {
			return -1
		}
		if a > b {
			return 1
		}
		return 0
	})
}

func matchAny(patterns []string, id string) bool {
	for _, p := range patterns {
		if p == id {
			return true
		}
		ok, err := doublestar.Match(p, id)
		if err != nil {
			log.Warn(log.CatConfig, "Invalid collection pattern", "pattern", p, "error", err)
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

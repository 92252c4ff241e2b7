// Package custom loads user-supplied icon collections and keeps them in
// sync with their source files.
package custom

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/zjrosen/iconlens/internal/catalog"
	"github.com/zjrosen/iconlens/internal/collections"
	"github.com/zjrosen/iconlens/internal/fetch"
	"github.com/zjrosen/iconlens/internal/iconify"
	"github.com/zjrosen/iconlens/internal/log"
	"github.com/zjrosen/iconlens/internal/paths"
	"github.com/zjrosen/iconlens/internal/watcher"
)

const loadConcurrency = 4

// Options configures a Manager.
type Options struct {
	Catalog  *catalog.Catalog
	Registry *collections.Registry
	Fetcher  fetch.Fetcher
	// AllowRemote enables http(s) sources.
	AllowRemote bool
}

// Manager tracks which source contributed which collection.
type Manager struct {
	catalog     *catalog.Catalog
	registry    *collections.Registry
	fetcher     fetch.Fetcher
	allowRemote bool

	mu sync.Mutex
	// prefixes maps a source key (file:// URL or http(s) URL) to the
	// collection prefix it contributed.
	prefixes map[string]string
}

// New returns a Manager with no collections loaded.
func New(opts Options) *Manager {
	return &Manager{
		catalog:     opts.Catalog,
		registry:    opts.Registry,
		fetcher:     opts.Fetcher,
		allowRemote: opts.AllowRemote,
		prefixes:    make(map[string]string),
	}
}

type loaded struct {
	key string
	set *iconify.IconSet
}

// Load replaces the loaded custom collections with those from sources.
// Sources that fail to load are logged and skipped. Collections whose
// source is no longer configured are removed. It reports whether the set
// of custom collections changed.
func (m *Manager) Load(ctx context.Context, sources paths.Sources) bool {
	var mu sync.Mutex
	var results []loaded

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)
	for _, p := range sources.Local {
		g.Go(func() error {
			if set, ok := m.readLocal(p); ok {
				mu.Lock()
				results = append(results, loaded{key: paths.FileKey(p), set: set})
				mu.Unlock()
			}
			return nil
		})
	}
	if m.allowRemote {
		for _, url := range sources.Remote {
			g.Go(func() error {
				if set, ok := m.readRemote(gctx, url); ok {
					mu.Lock()
					results = append(results, loaded{key: url, set: set})
					mu.Unlock()
				}
				return nil
			})
		}
	} else if len(sources.Remote) > 0 {
		log.Warn(log.CatCustom, "Remote custom collections disabled", "count", len(sources.Remote))
	}
	_ = g.Wait()

	// Inject in a stable order so a prefix contributed twice resolves the
	// same way every time: last source key wins.
	sort.Slice(results, func(i, j int) bool { return results[i].key < results[j].key })

	m.mu.Lock()
	defer m.mu.Unlock()

	before := m.snapshot()
	next := make(map[string]string, len(results))
	for _, r := range results {
		next[r.key] = r.set.Prefix
	}
	for key, prefix := range m.prefixes {
		if _, still := next[key]; !still && !contains(next, prefix) {
			m.drop(prefix)
		}
	}
	for _, r := range results {
		m.inject(r.set)
	}
	m.prefixes = next

	changed := !slices.Equal(before, m.snapshot())
	log.Info(log.CatCustom, "Custom collections loaded", "count", len(next), "changed", changed)
	return changed
}

// Apply handles a batch of watched file changes. Changed files are
// re-read; a file that no longer parses keeps its previous collection.
// Removed files drop the collection they contributed. It reports whether
// any collection changed.
func (m *Manager) Apply(ctx context.Context, changes []watcher.Change) bool {
	changed := false
	for _, c := range changes {
		if ctx.Err() != nil {
			break
		}
		key := paths.FileKey(c.Path)
		if c.Removed {
			changed = m.remove(key) || changed
			continue
		}
		set, ok := m.readLocal(c.Path)
		if !ok {
			continue
		}
		m.mu.Lock()
		if old, had := m.prefixes[key]; had && old != set.Prefix && !containsExcept(m.prefixes, old, key) {
			m.drop(old)
		}
		m.prefixes[key] = set.Prefix
		m.inject(set)
		m.mu.Unlock()
		log.Info(log.CatCustom, "Reloaded custom collection", "path", c.Path, "collection", set.Prefix)
		changed = true
	}
	return changed
}

func (m *Manager) remove(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix, ok := m.prefixes[key]
	if !ok {
		return false
	}
	delete(m.prefixes, key)
	if !contains(m.prefixes, prefix) {
		m.drop(prefix)
		log.Info(log.CatCustom, "Removed custom collection", "source", key, "collection", prefix)
	}
	return true
}

// Prefixes returns the loaded custom collection ids, sorted.
func (m *Manager) Prefixes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

// inject and drop require m.mu.
func (m *Manager) inject(set *iconify.IconSet) {
	if err := m.catalog.AddCustom(set); err != nil {
		log.Warn(log.CatCustom, "Rejected custom collection", "error", err)
		return
	}
	if m.registry != nil {
		m.registry.PutCustom(collections.MetaFromSet(set))
	}
}

func (m *Manager) drop(prefix string) {
	m.catalog.RemoveCustom(prefix)
	if m.registry != nil {
		m.registry.RemoveCustom(prefix)
	}
}

func (m *Manager) snapshot() []string {
	seen := make(map[string]struct{}, len(m.prefixes))
	out := make([]string, 0, len(m.prefixes))
	for _, p := range m.prefixes {
		if _, dup := seen[p]; !dup {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

func (m *Manager) readLocal(path string) (*iconify.IconSet, bool) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from user configuration
	if err != nil {
		log.Warn(log.CatCustom, "Skipping custom collection", "path", path, "error", err)
		return nil, false
	}
	set, err := decode(data)
	if err != nil {
		log.Warn(log.CatCustom, "Skipping custom collection", "path", path, "error", err)
		return nil, false
	}
	return set, true
}

func (m *Manager) readRemote(ctx context.Context, url string) (*iconify.IconSet, bool) {
	if m.fetcher == nil {
		return nil, false
	}
	data, err := m.fetcher.Fetch(ctx, url)
	if err != nil {
		log.ErrorErr(log.CatCustom, "Custom collection download failed", err, "url", url)
		return nil, false
	}
	set, err := decode(data)
	if err != nil {
		log.Warn(log.CatCustom, "Skipping custom collection", "url", url, "error", err)
		return nil, false
	}
	return set, true
}

func decode(data []byte) (*iconify.IconSet, error) {
	set, err := iconify.Decode(data)
	if err != nil {
		return nil, err
	}
	if set.Prefix == "" {
		return nil, fmt.Errorf("collection has no prefix")
	}
	return set, nil
}

func contains(m map[string]string, prefix string) bool {
	for _, p := range m {
		if p == prefix {
			return true
		}
	}
	return false
}

func containsExcept(m map[string]string, prefix, except string) bool {
	for k, p := range m {
		if k != except && p == prefix {
			return true
		}
	}
	return false
}

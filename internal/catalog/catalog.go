// Package catalog resolves collection ids to icon sets through three tiers:
// process memory, the durable store, and the CDN.
//
// For any id at most one load is in flight at a time. Concurrent callers
// for the same id wait on the same load and receive the same result. A
// result, resolved or unavailable, is kept until ClearCache.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/iconlens/internal/fetch"
	"github.com/zjrosen/iconlens/internal/iconify"
	"github.com/zjrosen/iconlens/internal/log"
	"github.com/zjrosen/iconlens/internal/store"
	"github.com/zjrosen/iconlens/internal/tracing"
)

// DefaultCDNEntry hosts one JSON file per collection.
const DefaultCDNEntry = "https://raw.githubusercontent.com/iconify/icon-sets/master/json"

// DefaultIconSize is the fallback width and height when neither the icon
// nor its set declares one.
const DefaultIconSize = 32

// Options configures a Catalog.
type Options struct {
	Store   store.Store
	Fetcher fetch.Fetcher
	// CDNEntry is the base URL; DefaultCDNEntry if empty.
	CDNEntry string
	// DefaultSize overrides DefaultIconSize when positive.
	DefaultSize int
	// MigrateLegacy enables the one-time conversion of legacy durable
	// entries.
	MigrateLegacy bool
	Tracer        trace.Tracer
}

// ResolvedIcon is an icon with its dimensions settled.
type ResolvedIcon struct {
	Collection string
	Name       string
	Body       string
	Width      int
	Height     int
	Ratio      float64
}

// Key identifies the icon independent of how it was written.
func (r *ResolvedIcon) Key() string {
	return r.Collection + ":" + r.Name
}

// task is one in-flight or finished load. set is nil when unavailable.
type task struct {
	done chan struct{}
	set  *iconify.IconSet
}

// Catalog owns the loaded icon sets.
type Catalog struct {
	store       store.Store
	fetcher     fetch.Fetcher
	cdnEntry    string
	defaultSize int
	tracer      trace.Tracer

	migrateLegacy bool
	migrateOnce   sync.Once

	mu     sync.Mutex
	sets   map[string]*iconify.IconSet
	custom map[string]*iconify.IconSet
	tasks  map[string]*task
	// generation increments on ClearCache; loads started under an older
	// generation do not publish their result.
	generation uint64
}

// New returns an empty catalog.
func New(opts Options) *Catalog {
	c := &Catalog{
		store:         opts.Store,
		fetcher:       opts.Fetcher,
		cdnEntry:      opts.CDNEntry,
		defaultSize:   opts.DefaultSize,
		tracer:        opts.Tracer,
		migrateLegacy: opts.MigrateLegacy,
		sets:          make(map[string]*iconify.IconSet),
		custom:        make(map[string]*iconify.IconSet),
		tasks:         make(map[string]*task),
	}
	if c.cdnEntry == "" {
		c.cdnEntry = DefaultCDNEntry
	}
	if c.defaultSize <= 0 {
		c.defaultSize = DefaultIconSize
	}
	if c.store == nil {
		c.store = store.NewMemory()
	}
	if c.tracer == nil {
		c.tracer = tracing.Noop()
	}
	return c
}

// Load returns the icon set for id, or false if it is unavailable.
// Memory hits return without blocking. Otherwise the caller waits for the
// shared load; ctx only bounds the wait, never the load itself.
func (c *Catalog) Load(ctx context.Context, id string) (*iconify.IconSet, bool) {
	c.mu.Lock()
	if set, ok := c.custom[id]; ok {
		c.mu.Unlock()
		return set, true
	}
	if set, ok := c.sets[id]; ok {
		c.mu.Unlock()
		return set, true
	}
	t, inflight := c.tasks[id]
	if !inflight {
		t = &task{done: make(chan struct{})}
		c.tasks[id] = t
		gen := c.generation
		c.mu.Unlock()
		go c.run(context.WithoutCancel(ctx), id, gen, t)
	} else {
		c.mu.Unlock()
	}

	select {
	case <-t.done:
		return t.set, t.set != nil
	case <-ctx.Done():
		return nil, false
	}
}

func (c *Catalog) run(ctx context.Context, id string, gen uint64, t *task) {
	ctx, span := c.tracer.Start(ctx, tracing.SpanCatalogLoad,
		trace.WithAttributes(attribute.String(tracing.AttrCollectionID, id)))
	defer span.End()

	c.Migrate(ctx)

	set, tier, err := c.loadDurable(ctx, id)
	if set == nil {
		set, tier, err = c.loadNetwork(ctx, id, gen)
	}

	span.SetAttributes(attribute.String(tracing.AttrCatalogTier, tier))
	if set == nil {
		span.SetAttributes(attribute.String(tracing.AttrCatalogResult, tracing.ResultUnavailable))
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
	} else {
		span.SetAttributes(attribute.String(tracing.AttrCatalogResult, tracing.ResultResolved))
	}

	c.mu.Lock()
	if c.generation == gen && set != nil {
		c.sets[id] = set
		if c.tasks[id] == t {
			delete(c.tasks, id)
		}
	}
	t.set = set
	close(t.done)
	c.mu.Unlock()
}

func (c *Catalog) loadDurable(ctx context.Context, id string) (*iconify.IconSet, string, error) {
	data, err := c.store.Read(ctx, durableKey(id))
	if errors.Is(err, store.ErrNotFound) {
		return nil, tracing.TierDurable, nil
	}
	if err != nil {
		log.ErrorErr(log.CatStore, "Durable cache read failed", err, "collection", id)
		return nil, tracing.TierDurable, err
	}
	snap, err := decodeSnapshot(data)
	if err != nil {
		log.Warn(log.CatCatalog, "Discarding corrupt durable entry", "collection", id, "error", err)
		return nil, tracing.TierDurable, err
	}
	log.Info(log.CatCatalog, "Loaded from disk", "collection", id)
	return snap.Set, tracing.TierDurable, nil
}

func (c *Catalog) loadNetwork(ctx context.Context, id string, gen uint64) (*iconify.IconSet, string, error) {
	if c.fetcher == nil {
		return nil, tracing.TierNetwork, nil
	}
	url := fetch.CollectionURL(c.cdnEntry, id)
	log.Info(log.CatCatalog, "Downloading", "collection", id, "url", url)

	body, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		log.ErrorErr(log.CatFetch, "Download failed", err, "collection", id, "url", url)
		return nil, tracing.TierNetwork, err
	}
	set, err := iconify.Decode(body)
	if err != nil {
		log.ErrorErr(log.CatCatalog, "Malformed collection JSON", err, "collection", id, "url", url)
		return nil, tracing.TierNetwork, err
	}
	log.Info(log.CatCatalog, "Downloaded", "collection", id, "icons", len(set.Icons))

	if !c.current(gen) {
		return set, tracing.TierNetwork, nil
	}
	data, err := encodeSnapshot(set, url)
	if err == nil {
		err = c.store.Write(ctx, durableKey(id), data)
	}
	if err != nil {
		// The set is still usable from memory.
		log.ErrorErr(log.CatStore, "Durable cache write failed", err, "collection", id)
	}
	return set, tracing.TierNetwork, nil
}

func (c *Catalog) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation == gen
}

// ResolveIcon loads collection and looks up name in it. Width and height
// fall back to the set's defaults, then to the configured default size.
func (c *Catalog) ResolveIcon(ctx context.Context, collection, name string) (*ResolvedIcon, bool) {
	set, ok := c.Load(ctx, collection)
	if !ok {
		log.Info(log.CatCatalog, "Collection unavailable", "collection", collection)
		return nil, false
	}
	def, ok := set.Lookup(name)
	if !ok {
		log.Info(log.CatCatalog, "Icon not found", "collection", collection, "icon", name)
		return nil, false
	}

	width := firstPositive(def.Width, set.Width, c.defaultSize)
	height := firstPositive(def.Height, set.Height, set.DeclaredHeight(), c.defaultSize)
	return &ResolvedIcon{
		Collection: collection,
		Name:       name,
		Body:       def.Body,
		Width:      width,
		Height:     height,
		Ratio:      float64(width) / float64(height),
	}, true
}

// Loaded returns id's set if it is already in memory, without loading.
func (c *Catalog) Loaded(id string) (*iconify.IconSet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if set, ok := c.custom[id]; ok {
		return set, true
	}
	set, ok := c.sets[id]
	return set, ok
}

// AddCustom injects a user collection under its prefix. It shadows any
// loaded set with the same id and drops a memoized load for that id.
func (c *Catalog) AddCustom(set *iconify.IconSet) error {
	if set == nil || set.Prefix == "" {
		return fmt.Errorf("custom collection has no prefix")
	}
	c.mu.Lock()
	c.custom[set.Prefix] = set
	delete(c.tasks, set.Prefix)
	c.mu.Unlock()
	log.Info(log.CatCustom, "Injected custom collection", "collection", set.Prefix, "icons", len(set.Icons))
	return nil
}

// RemoveCustom drops an injected collection.
func (c *Catalog) RemoveCustom(prefix string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.custom[prefix]
	delete(c.custom, prefix)
	delete(c.tasks, prefix)
	return ok
}

// CustomIDs returns the injected prefixes, sorted.
func (c *Catalog) CustomIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.custom))
	for id := range c.custom {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DeleteTask forgets the memoized load for id so the next Load retries.
// An in-flight load still completes for its waiters.
func (c *Catalog) DeleteTask(id string) {
	c.mu.Lock()
	delete(c.tasks, id)
	c.mu.Unlock()
}

// ClearCache drops every memoized load, every loaded set and the durable
// collection namespace. Injected custom collections stay.
func (c *Catalog) ClearCache(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, tracing.SpanCatalogClear)
	defer span.End()

	c.mu.Lock()
	c.generation++
	c.tasks = make(map[string]*task)
	c.sets = make(map[string]*iconify.IconSet)
	c.mu.Unlock()

	var errs []error
	if err := c.store.DeleteNamespace(ctx, NamespaceCollections); err != nil {
		errs = append(errs, err)
	}
	legacy, err := c.store.List(ctx, legacyPrefix)
	if err != nil {
		errs = append(errs, err)
	}
	for _, key := range legacy {
		if err := c.store.DeleteNamespace(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("clearing durable cache: %w", err)
	}
	log.Info(log.CatCatalog, "Cache cleared")
	return nil
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

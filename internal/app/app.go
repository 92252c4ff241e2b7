// Package app wires the icon pipeline into one service: configuration,
// enabled collections, token patterns, reference parsing, the catalog and
// the renderer.
package app

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/iconlens/internal/catalog"
	"github.com/zjrosen/iconlens/internal/collections"
	"github.com/zjrosen/iconlens/internal/config"
	"github.com/zjrosen/iconlens/internal/custom"
	"github.com/zjrosen/iconlens/internal/derive"
	"github.com/zjrosen/iconlens/internal/fetch"
	"github.com/zjrosen/iconlens/internal/flags"
	"github.com/zjrosen/iconlens/internal/log"
	"github.com/zjrosen/iconlens/internal/matcher"
	"github.com/zjrosen/iconlens/internal/paths"
	"github.com/zjrosen/iconlens/internal/pattern"
	"github.com/zjrosen/iconlens/internal/pubsub"
	"github.com/zjrosen/iconlens/internal/reference"
	"github.com/zjrosen/iconlens/internal/render"
	"github.com/zjrosen/iconlens/internal/store"
)

// Mode selects the matcher used by MatchTokens.
type Mode int

const (
	// ModeFull recognises prefixed references and aliases.
	ModeFull Mode = iota
	// ModeCollectionIcon recognises bare collection:icon references, as
	// written inside alias files.
	ModeCollectionIcon
)

// ChangeKind says what changed in a ChangeEvent.
type ChangeKind string

const (
	ChangeConfig      ChangeKind = "config"
	ChangeCollections ChangeKind = "collections"
	ChangeAliases     ChangeKind = "aliases"
	ChangeCache       ChangeKind = "cache"
)

// ChangeEvent tells consumers that earlier results may be stale.
type ChangeEvent struct {
	Kind ChangeKind
}

// Options configures a Service.
type Options struct {
	Config  config.Config
	Store   store.Store
	Fetcher fetch.Fetcher
	// Bundled is the bundled collection metadata; collections.Bundled()
	// when nil.
	Bundled []collections.Meta
	// Folders are workspace folders used to resolve relative paths.
	Folders []string
	Flags   *flags.Registry
	Tracer  trace.Tracer
	// Dark selects the theme color when the color setting is auto.
	Dark bool
}

// Service is the process-wide icon pipeline.
type Service struct {
	flags    *flags.Registry
	catalog  *catalog.Catalog
	registry *collections.Registry
	custom   *custom.Manager
	renderer *render.Renderer
	events   *pubsub.Broker[ChangeEvent]
	tracer   trace.Tracer

	compiler pattern.Compiler
	enabled  derive.Memo[[]string]
	parsers  derive.Memo[*reference.Parser]

	mu      sync.RWMutex
	cfg     config.Config
	folders []string
	dark    bool
	aliases reference.AliasFiles
}

// New builds a service. Call Reload to load custom collections and
// aliases.
func New(opts Options) (*Service, error) {
	bundled := opts.Bundled
	if bundled == nil {
		var err error
		if bundled, err = collections.Bundled(); err != nil {
			return nil, fmt.Errorf("loading bundled collections: %w", err)
		}
	}
	if opts.Flags == nil {
		opts.Flags = flags.New(opts.Config.Flags)
	}

	cfg := opts.Config
	cat := catalog.New(catalog.Options{
		Store:         opts.Store,
		Fetcher:       opts.Fetcher,
		CDNEntry:      cfg.CDNEntry,
		DefaultSize:   cfg.DefaultIconSize,
		MigrateLegacy: opts.Flags.Enabled(flags.FlagLegacyCacheMigration),
		Tracer:        opts.Tracer,
	})
	registry := collections.NewRegistry(bundled)

	s := &Service{
		flags:    opts.Flags,
		catalog:  cat,
		registry: registry,
		custom: custom.New(custom.Options{
			Catalog:     cat,
			Registry:    registry,
			Fetcher:     opts.Fetcher,
			AllowRemote: opts.Flags.Enabled(flags.FlagRemoteCustomCollections),
		}),
		events:  pubsub.NewBroker[ChangeEvent](),
		tracer:  opts.Tracer,
		cfg:     cfg,
		folders: slices.Clone(opts.Folders),
		dark:    opts.Dark,
		aliases: reference.AliasFiles{Aliases: map[string]string{}},
	}
	s.renderer = render.New(render.Options{
		Resolver: s,
		Color:    render.ResolveColor(cfg.Color, opts.Dark),
		Tracer:   opts.Tracer,
	})
	return s, nil
}

// Reload re-reads custom collections and alias files from the configured
// sources. Missing or malformed sources are logged and skipped.
func (s *Service) Reload(ctx context.Context) {
	cfg, folders := s.snapshot()

	colls := paths.ResolveSources(cfg.CustomCollectionJSONPaths, folders)
	if s.custom.Load(ctx, colls) {
		s.publish(ChangeCollections)
	}
	s.reloadAliases()
}

func (s *Service) reloadAliases() {
	cfg, folders := s.snapshot()
	files := paths.ResolveSources(cfg.CustomAliasesJSONPaths, folders)
	aliases := reference.LoadAliases(files.Local)

	s.mu.Lock()
	s.aliases = aliases
	s.mu.Unlock()
	s.publish(ChangeAliases)
}

// SetConfig replaces the configuration. Derived patterns and the parser
// recompute on next use; the render color follows the color setting.
func (s *Service) SetConfig(cfg config.Config) {
	s.mu.Lock()
	s.cfg = cfg
	dark := s.dark
	s.mu.Unlock()

	s.renderer.SetColor(render.ResolveColor(cfg.Color, dark))
	s.publish(ChangeConfig)
}

// SetDark switches the theme used when the color setting is auto.
func (s *Service) SetDark(dark bool) {
	s.mu.Lock()
	s.dark = dark
	color := s.cfg.Color
	s.mu.Unlock()

	s.renderer.SetColor(render.ResolveColor(color, dark))
	s.publish(ChangeConfig)
}

// SetFolders replaces the workspace folders used to resolve relative paths.
func (s *Service) SetFolders(folders []string) {
	s.mu.Lock()
	s.folders = slices.Clone(folders)
	s.mu.Unlock()
}

// Config returns the active configuration.
func (s *Service) Config() config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *Service) snapshot() (config.Config, []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg, s.folders
}

// Subscribe delivers change notifications until ctx is done.
func (s *Service) Subscribe(ctx context.Context) <-chan pubsub.Event[ChangeEvent] {
	return s.events.Subscribe(ctx)
}

func (s *Service) publish(kind ChangeKind) {
	s.events.Publish(pubsub.UpdatedEvent, ChangeEvent{Kind: kind})
}

// EnabledIDs returns the enabled collection ids, longest first.
func (s *Service) EnabledIDs() []string {
	cfg := s.Config()
	bundled := s.registry.BundledIDs()
	customIDs := s.registry.CustomIDs()
	mapKeys := sortedKeys(cfg.CustomCollectionIDsMap)

	ids, _ := s.enabled.Get(derive.Fingerprint(cfg.Includes, cfg.Excludes, mapKeys, customIDs), func() ([]string, error) {
		return collections.EnabledIDs(bundled, collections.Selection{
			Includes: cfg.Includes,
			Excludes: cfg.Excludes,
			IDMap:    cfg.CustomCollectionIDsMap,
		}, customIDs), nil
	})
	return ids
}

// Patterns returns the compiled matchers for the current configuration.
func (s *Service) Patterns() (*pattern.Set, error) {
	cfg := s.Config()
	return s.compiler.Get(pattern.Inputs{
		Delimiters:    cfg.Delimiters,
		Prefixes:      cfg.Prefixes,
		Suffixes:      cfg.Suffixes,
		CollectionIDs: s.EnabledIDs(),
		AliasIDs:      sortedKeys(s.aliasFiles().Aliases),
		AliasesOnly:   cfg.CustomAliasesOnly,
	})
}

// Parser returns the reference parser for the current configuration.
func (s *Service) Parser() *reference.Parser {
	cfg := s.Config()
	ids := s.EnabledIDs()
	aliases := s.aliasFiles()
	mapKeys := sortedKeys(cfg.CustomCollectionIDsMap)
	mapVals := make([]string, 0, len(mapKeys))
	for _, k := range mapKeys {
		mapVals = append(mapVals, cfg.CustomCollectionIDsMap[k])
	}
	aliasKeys := sortedKeys(aliases.Aliases)
	aliasVals := make([]string, 0, len(aliasKeys))
	for _, k := range aliasKeys {
		aliasVals = append(aliasVals, aliases.Aliases[k])
	}

	fp := derive.Fingerprint(ids, cfg.Delimiters, mapKeys, mapVals, aliasKeys, aliasVals)
	p, _ := s.parsers.Get(fp, func() (*reference.Parser, error) {
		return reference.NewParser(reference.Options{
			CollectionIDs: ids,
			Delimiters:    cfg.Delimiters,
			Aliases:       aliases.Aliases,
			IDMap:         cfg.CustomCollectionIDsMap,
		}), nil
	})
	return p
}

func (s *Service) aliasFiles() reference.AliasFiles {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.aliases
}

// IsAliasFile reports whether path is one of the loaded alias files.
func (s *Service) IsAliasFile(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.aliases.Contains(path)
}

// MatchTokens scans text for icon references.
func (s *Service) MatchTokens(text string, mode Mode) []matcher.Match {
	set, err := s.Patterns()
	if err != nil {
		log.ErrorErr(log.CatPattern, "Pattern compilation failed", err)
		return nil
	}
	if mode == ModeCollectionIcon {
		return matcher.Scan(set.CollectionIcon, text)
	}
	return matcher.Scan(set.Full, text)
}

// ResolveIcon resolves a reference key, following aliases.
func (s *Service) ResolveIcon(ctx context.Context, key string) (*catalog.ResolvedIcon, bool) {
	return s.ResolveKey(ctx, key, true)
}

// ResolveKey resolves a reference key. Alias substitution applies only
// when withAliases is set.
func (s *Service) ResolveKey(ctx context.Context, key string, withAliases bool) (*catalog.ResolvedIcon, bool) {
	ref, ok := s.Parser().Parse(key, withAliases)
	if !ok {
		return nil, false
	}
	return s.catalog.ResolveIcon(ctx, ref.Collection, ref.Icon)
}

// RenderIcon renders a resolved icon at size with the active color.
func (s *Service) RenderIcon(ctx context.Context, icon *catalog.ResolvedIcon, size int) string {
	return s.renderer.RenderIcon(ctx, icon, size)
}

// Render renders a key or an icon.
func (s *Service) Render(ctx context.Context, src render.Source, size int) string {
	return s.renderer.Render(ctx, src, size)
}

// ClearCache drops the catalog's memory and durable tiers and the render
// cache. Custom collections stay loaded.
func (s *Service) ClearCache(ctx context.Context) error {
	err := s.catalog.ClearCache(ctx)
	s.renderer.Flush(ctx)
	s.events.Publish(pubsub.ClearedEvent, ChangeEvent{Kind: ChangeCache})
	return err
}

// Collection returns metadata for a known collection id.
func (s *Service) Collection(id string) (collections.Meta, bool) {
	return s.registry.Get(id)
}

// IconNames lists the icons of collection id, sorted. A set already in
// memory is authoritative. Otherwise the catalog listing is returned, and
// an empty listing starts a background load so later calls see the names.
func (s *Service) IconNames(id string) ([]string, bool) {
	meta, ok := s.registry.Get(id)
	if !ok {
		return nil, false
	}
	if set, ok := s.catalog.Loaded(id); ok {
		names := set.Names()
		slices.Sort(names)
		return names, true
	}
	if len(meta.Icons) == 0 {
		go s.catalog.Load(context.Background(), id)
	}
	return meta.Icons, true
}

// Collections returns bundled and custom collection metadata.
func (s *Service) Collections() []collections.Meta {
	return s.registry.All()
}

// Catalog exposes the underlying catalog.
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

// Color returns the color substituted for currentColor in renderings.
func (s *Service) Color() string {
	return s.renderer.Color()
}

// Tracer returns the tracer the service was built with, or nil.
func (s *Service) Tracer() trace.Tracer {
	return s.tracer
}

// Close stops event delivery.
func (s *Service) Close() {
	s.events.Close()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

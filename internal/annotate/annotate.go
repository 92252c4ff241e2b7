// Package annotate turns document text into inline icon decorations.
//
// Updates are debounced per document. Every scan takes a generation number
// from its document; a finished scan is published only if no newer scan of
// the same document has started since, so a slow scan never overwrites
// the result of a later edit.
package annotate

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/zjrosen/iconlens/internal/app"
	"github.com/zjrosen/iconlens/internal/catalog"
	"github.com/zjrosen/iconlens/internal/config"
	"github.com/zjrosen/iconlens/internal/debounce"
	"github.com/zjrosen/iconlens/internal/log"
	"github.com/zjrosen/iconlens/internal/matcher"
	"github.com/zjrosen/iconlens/internal/pubsub"
	"github.com/zjrosen/iconlens/internal/tracing"
)

const resolveConcurrency = 8

// Pipeline is the subset of app.Service used for decorations.
type Pipeline interface {
	Config() config.Config
	MatchTokens(text string, mode app.Mode) []matcher.Match
	ResolveKey(ctx context.Context, key string, withAliases bool) (*catalog.ResolvedIcon, bool)
	RenderIcon(ctx context.Context, icon *catalog.ResolvedIcon, size int) string
	IconMarkdown(ctx context.Context, key string) string
	IsAliasFile(path string) bool
}

// Document is one open text document.
type Document struct {
	URI     string
	Path    string
	Version int
	Text    string
}

// Range is a half-open span between two positions.
type Range struct {
	Start matcher.Position `json:"start"`
	End   matcher.Position `json:"end"`
}

// Decoration is one inline icon.
type Decoration struct {
	Range   Range  `json:"range"`
	Key     string `json:"key"`
	DataURL string `json:"dataUrl"`
	// Width is the rendered width in pixels.
	Width    float64 `json:"width"`
	Position string  `json:"position"`
	Inplace  bool    `json:"inplace"`
	Hover    string  `json:"hover,omitempty"`
}

// Batch is the full decoration set of one document version.
type Batch struct {
	ID          string       `json:"batchId"`
	URI         string       `json:"uri"`
	Version     int          `json:"version"`
	Generation  uint64       `json:"generation"`
	Decorations []Decoration `json:"decorations"`
}

type docState struct {
	debouncer  *debounce.Debouncer
	generation uint64
	latest     Document
}

// Updater schedules scans and publishes their batches.
type Updater struct {
	pipeline Pipeline
	broker   *pubsub.Broker[Batch]
	delay    time.Duration
	tracer   trace.Tracer

	mu   sync.Mutex
	docs map[string]*docState
}

// NewUpdater returns an updater that waits delay after the last update of
// a document before scanning it.
func NewUpdater(p Pipeline, delay time.Duration, tracer trace.Tracer) *Updater {
	if tracer == nil {
		tracer = tracing.Noop()
	}
	return &Updater{
		pipeline: p,
		broker:   pubsub.NewBroker[Batch](),
		delay:    delay,
		tracer:   tracer,
		docs:     make(map[string]*docState),
	}
}

// Subscribe delivers published batches until ctx is done.
func (u *Updater) Subscribe(ctx context.Context) <-chan pubsub.Event[Batch] {
	return u.broker.Subscribe(ctx)
}

// Update records the latest text of doc and schedules a scan after the
// quiet period. Earlier pending scans of the same document are dropped.
func (u *Updater) Update(doc Document) {
	u.mu.Lock()
	st, ok := u.docs[doc.URI]
	if !ok {
		st = &docState{debouncer: debounce.New(u.delay)}
		u.docs[doc.URI] = st
	}
	st.latest = doc
	u.mu.Unlock()

	st.debouncer.Schedule(func() {
		u.run(context.Background(), doc.URI)
	})
}

// Refresh rescans every open document now, for example after the
// configuration or the loaded collections changed.
func (u *Updater) Refresh(ctx context.Context) {
	u.mu.Lock()
	uris := make([]string, 0, len(u.docs))
	for uri, st := range u.docs {
		st.debouncer.CancelPending()
		uris = append(uris, uri)
	}
	u.mu.Unlock()

	for _, uri := range uris {
		u.run(ctx, uri)
	}
}

// Forget drops a closed document and any scan pending for it.
func (u *Updater) Forget(uri string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if st, ok := u.docs[uri]; ok {
		st.debouncer.CancelPending()
		st.generation++
		delete(u.docs, uri)
	}
}

// Close stops publishing.
func (u *Updater) Close() {
	u.mu.Lock()
	for _, st := range u.docs {
		st.debouncer.CancelPending()
	}
	u.docs = make(map[string]*docState)
	u.mu.Unlock()
	u.broker.Close()
}

func (u *Updater) run(ctx context.Context, uri string) {
	u.mu.Lock()
	st, ok := u.docs[uri]
	if !ok {
		u.mu.Unlock()
		return
	}
	st.generation++
	gen := st.generation
	doc := st.latest
	u.mu.Unlock()

	batch := u.Scan(ctx, doc)
	batch.Generation = gen

	u.mu.Lock()
	current, ok := u.docs[uri]
	stale := !ok || current != st || st.generation != gen
	u.mu.Unlock()
	if stale {
		log.Debug(log.CatAnnotate, "Discarding superseded scan", "uri", uri, "generation", gen)
		return
	}
	u.broker.Publish(pubsub.UpdatedEvent, batch)
}

type resolved struct {
	match matcher.Match
	icon  *catalog.ResolvedIcon
}

// Scan computes the decorations of doc synchronously. Tokens that do not
// resolve are left out.
func (u *Updater) Scan(ctx context.Context, doc Document) Batch {
	ctx, span := u.tracer.Start(ctx, tracing.SpanAnnotateScan,
		trace.WithAttributes(attribute.String(tracing.AttrDocumentURI, doc.URI)))
	defer span.End()

	batch := Batch{ID: uuid.NewString(), URI: doc.URI, Version: doc.Version, Decorations: []Decoration{}}
	cfg := u.pipeline.Config()
	if !cfg.Annotations {
		return batch
	}

	aliasFile := doc.Path != "" && u.pipeline.IsAliasFile(doc.Path)
	mode := app.ModeFull
	if aliasFile {
		mode = app.ModeCollectionIcon
	}
	matches := u.pipeline.MatchTokens(doc.Text, mode)
	span.SetAttributes(attribute.Int(tracing.AttrTokenCount, len(matches)))

	results := make([]resolved, len(matches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveConcurrency)
	for i, m := range matches {
		g.Go(func() error {
			if icon, ok := u.pipeline.ResolveKey(gctx, m.Key, !aliasFile); ok {
				results[i] = resolved{match: m, icon: icon}
			}
			return nil
		})
	}
	_ = g.Wait()

	position := cfg.Position
	if position != config.PositionAfter {
		position = config.PositionBefore
	}
	idx := matcher.NewLineIndex(doc.Text)
	size := cfg.GlyphSize()
	for _, r := range results {
		if r.icon == nil {
			continue
		}
		batch.Decorations = append(batch.Decorations, Decoration{
			Range:    Range{Start: idx.Position(r.match.Start), End: idx.Position(r.match.End)},
			Key:      r.match.Key,
			DataURL:  u.pipeline.RenderIcon(ctx, r.icon, size),
			Width:    cfg.FontSize * r.icon.Ratio * 1.1,
			Position: position,
			Inplace:  cfg.Inplace,
			Hover:    u.pipeline.IconMarkdown(ctx, r.match.Key),
		})
	}
	log.Debug(log.CatAnnotate, "Scanned document", "uri", doc.URI, "tokens", len(matches), "decorations", len(batch.Decorations))
	return batch
}

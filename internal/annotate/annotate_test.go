package annotate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zjrosen/iconlens/internal/app"
	"github.com/zjrosen/iconlens/internal/collections"
	"github.com/zjrosen/iconlens/internal/config"
	"github.com/zjrosen/iconlens/internal/fetch"
	"github.com/zjrosen/iconlens/internal/matcher"
	"github.com/zjrosen/iconlens/internal/pubsub"
	"github.com/zjrosen/iconlens/internal/testutil"
	"github.com/zjrosen/iconlens/internal/tracing"
)

const cdn = "https://cdn.test/json"

func bundled(builders ...*testutil.SetBuilder) []collections.Meta {
	out := make([]collections.Meta, 0, len(builders))
	for _, b := range builders {
		m := collections.MetaFromSet(b.Build())
		m.Custom = false
		out = append(out, m)
	}
	return out
}

func newService(t *testing.T, mutate func(*config.Config)) (*app.Service, string) {
	t.Helper()
	cfg := config.Defaults()
	cfg.CDNEntry = cdn
	if mutate != nil {
		mutate(&cfg)
	}
	f := testutil.NewFetcher().
		Serve(fetch.CollectionURL(cdn, "mdi"), testutil.MDI().JSON(t)).
		Serve(fetch.CollectionURL(cdn, "carbon"), testutil.Carbon().JSON(t))

	dir := t.TempDir()
	svc, err := app.New(app.Options{
		Config:  cfg,
		Store:   testutil.NewStore(),
		Fetcher: f,
		Bundled: bundled(testutil.MDI(), testutil.Carbon()),
		Folders: []string{dir},
		Dark:    true,
	})
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc, dir
}

func receive(t *testing.T, ch <-chan pubsub.Event[Batch]) Batch {
	t.Helper()
	select {
	case ev := <-ch:
		return ev.Payload
	case <-time.After(3 * time.Second):
		t.Fatal("no batch published")
		return Batch{}
	}
}

func requireSilent(t *testing.T, ch <-chan pubsub.Event[Batch], wait time.Duration) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Fatalf("unexpected batch for version %d", ev.Payload.Version)
	case <-time.After(wait):
	}
}

func TestScan_Decorations(t *testing.T) {
	svc, _ := newService(t, nil)
	u := NewUpdater(svc, time.Millisecond, nil)
	defer u.Close()

	batch := u.Scan(context.Background(), Document{
		URI:     "file:///a.vue",
		Version: 4,
		Text:    "mdi:home mdi:wide\nmdi:nope notacollection:x\n  carbon:add",
	})

	_, err := uuid.Parse(batch.ID)
	require.NoError(t, err)
	require.Equal(t, 4, batch.Version)
	require.Len(t, batch.Decorations, 3)

	home := batch.Decorations[0]
	require.Equal(t, "mdi:home", home.Key)
	require.Equal(t, matcher.Position{Line: 0, Column: 0, Character: 0}, home.Range.Start)
	require.Equal(t, matcher.Position{Line: 0, Column: 8, Character: 8}, home.Range.End)
	require.True(t, strings.HasPrefix(home.DataURL, "data:image/svg+xml;base64,"))
	require.InDelta(t, 12*1.1, home.Width, 1e-9)
	require.Equal(t, config.PositionBefore, home.Position)
	require.False(t, home.Inplace)
	require.Contains(t, home.Hover, "mdi:home")

	require.InDelta(t, 12*2*1.1, batch.Decorations[1].Width, 1e-9, "width follows the aspect ratio")

	add := batch.Decorations[2]
	require.Equal(t, "carbon:add", add.Key)
	require.Equal(t, matcher.Position{Line: 2, Column: 2, Character: 2}, add.Range.Start)
}

func TestScan_AnnotationsDisabled(t *testing.T) {
	svc, _ := newService(t, func(c *config.Config) { c.Annotations = false })
	u := NewUpdater(svc, time.Millisecond, nil)
	defer u.Close()

	batch := u.Scan(context.Background(), Document{URI: "file:///a", Text: "mdi:home"})
	require.NotNil(t, batch.Decorations)
	require.Empty(t, batch.Decorations)
}

func TestScan_PositionAndInplace(t *testing.T) {
	svc, _ := newService(t, func(c *config.Config) {
		c.Position = config.PositionAfter
		c.Inplace = true
	})
	u := NewUpdater(svc, time.Millisecond, nil)
	defer u.Close()

	batch := u.Scan(context.Background(), Document{URI: "file:///a", Text: "mdi:home"})
	require.Len(t, batch.Decorations, 1)
	require.Equal(t, config.PositionAfter, batch.Decorations[0].Position)
	require.True(t, batch.Decorations[0].Inplace)
}

func TestScan_AliasFile(t *testing.T) {
	svc, dir := newService(t, nil)
	path := filepath.Join(dir, "aliases.json")
	content := `{"home-icon": "mdi:home"}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	cfg := svc.Config()
	cfg.CustomAliasesJSONPaths = []string{path}
	svc.SetConfig(cfg)
	svc.Reload(context.Background())

	u := NewUpdater(svc, time.Millisecond, nil)
	defer u.Close()

	batch := u.Scan(context.Background(), Document{URI: "file://" + path, Path: path, Text: content})
	require.Len(t, batch.Decorations, 1)
	require.Equal(t, "mdi:home", batch.Decorations[0].Key)

	// Elsewhere the alias itself decorates.
	batch = u.Scan(context.Background(), Document{URI: "file:///b.vue", Text: `<Icon name="home-icon" />`})
	require.Len(t, batch.Decorations, 1)
	require.Equal(t, "home-icon", batch.Decorations[0].Key)
}

func TestUpdate_Debounced(t *testing.T) {
	svc, _ := newService(t, nil)
	u := NewUpdater(svc, 30*time.Millisecond, nil)
	defer u.Close()
	ch := u.Subscribe(t.Context())

	for v := 1; v <= 3; v++ {
		u.Update(Document{URI: "file:///a", Version: v, Text: "mdi:home"})
	}

	batch := receive(t, ch)
	require.Equal(t, 3, batch.Version)
	require.Len(t, batch.Decorations, 1)
	requireSilent(t, ch, 100*time.Millisecond)
}

type gated struct {
	*app.Service
	entered chan struct{}
	release chan struct{}
}

func (g *gated) MatchTokens(text string, mode app.Mode) []matcher.Match {
	if strings.Contains(text, "slow") {
		g.entered <- struct{}{}
		<-g.release
	}
	return g.Service.MatchTokens(text, mode)
}

func TestUpdate_StaleScanDiscarded(t *testing.T) {
	svc, _ := newService(t, nil)
	g := &gated{Service: svc, entered: make(chan struct{}, 1), release: make(chan struct{})}
	u := NewUpdater(g, 5*time.Millisecond, nil)
	defer u.Close()
	ch := u.Subscribe(t.Context())

	u.Update(Document{URI: "file:///a", Version: 1, Text: "slow mdi:home"})
	select {
	case <-g.entered:
	case <-time.After(3 * time.Second):
		t.Fatal("first scan never started")
	}

	u.Update(Document{URI: "file:///a", Version: 2, Text: "carbon:add"})
	batch := receive(t, ch)
	require.Equal(t, 2, batch.Version)

	close(g.release)
	requireSilent(t, ch, 100*time.Millisecond)
}

func TestForget_DropsPendingScan(t *testing.T) {
	svc, _ := newService(t, nil)
	u := NewUpdater(svc, 20*time.Millisecond, nil)
	defer u.Close()
	ch := u.Subscribe(t.Context())

	u.Update(Document{URI: "file:///a", Version: 1, Text: "mdi:home"})
	u.Forget("file:///a")
	requireSilent(t, ch, 80*time.Millisecond)
}

func TestRefresh_RescansOpenDocuments(t *testing.T) {
	svc, _ := newService(t, nil)
	u := NewUpdater(svc, time.Hour, nil)
	defer u.Close()
	ch := u.Subscribe(t.Context())

	u.Update(Document{URI: "file:///a", Version: 7, Text: "mdi:home"})
	cfg := svc.Config()
	cfg.Position = config.PositionAfter
	svc.SetConfig(cfg)
	u.Refresh(context.Background())

	batch := receive(t, ch)
	require.Equal(t, 7, batch.Version)
	require.Equal(t, uint64(1), batch.Generation)
	require.Equal(t, config.PositionAfter, batch.Decorations[0].Position)
}

func TestScan_Span(t *testing.T) {
	svc, _ := newService(t, nil)
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	u := NewUpdater(svc, time.Millisecond, tp.Tracer("test"))
	defer u.Close()

	u.Scan(context.Background(), Document{URI: "file:///a", Text: "mdi:home carbon:add"})

	var found bool
	for _, s := range rec.Ended() {
		if s.Name() != tracing.SpanAnnotateScan {
			continue
		}
		found = true
		attrs := map[string]any{}
		for _, kv := range s.Attributes() {
			attrs[string(kv.Key)] = kv.Value.AsInterface()
		}
		require.Equal(t, "file:///a", attrs[tracing.AttrDocumentURI])
		require.Equal(t, int64(2), attrs[tracing.AttrTokenCount])
	}
	require.True(t, found)
}

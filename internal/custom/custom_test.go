package custom

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/iconlens/internal/catalog"
	"github.com/zjrosen/iconlens/internal/collections"
	"github.com/zjrosen/iconlens/internal/paths"
	"github.com/zjrosen/iconlens/internal/testutil"
	"github.com/zjrosen/iconlens/internal/watcher"
)

type fixture struct {
	manager  *Manager
	catalog  *catalog.Catalog
	registry *collections.Registry
	fetcher  *testutil.Fetcher
	dir      string
}

func newFixture(t *testing.T, allowRemote bool) *fixture {
	t.Helper()
	f := testutil.NewFetcher()
	c := catalog.New(catalog.Options{Fetcher: f, CDNEntry: "https://cdn.test"})
	r := collections.NewRegistry(nil)
	return &fixture{
		manager:  New(Options{Catalog: c, Registry: r, Fetcher: f, AllowRemote: allowRemote}),
		catalog:  c,
		registry: r,
		fetcher:  f,
		dir:      t.TempDir(),
	}
}

func TestLoad_LocalAndRemote(t *testing.T) {
	fx := newFixture(t, true)
	local := testutil.NewIconSet("brand").WithIcon("logo").WriteFile(t, fx.dir, "brand.json")
	fx.fetcher.Serve("https://icons.test/team.json", testutil.NewIconSet("team").WithIcon("mascot").JSON(t))

	changed := fx.manager.Load(context.Background(), paths.Sources{
		Local:  []string{local},
		Remote: []string{"https://icons.test/team.json"},
	})
	require.True(t, changed)
	require.Equal(t, []string{"brand", "team"}, fx.manager.Prefixes())
	require.Equal(t, []string{"brand", "team"}, fx.catalog.CustomIDs())
	require.Equal(t, []string{"brand", "team"}, fx.registry.CustomIDs())

	icon, ok := fx.catalog.ResolveIcon(context.Background(), "team", "mascot")
	require.True(t, ok)
	require.Equal(t, "team:mascot", icon.Key())

	meta, ok := fx.registry.Get("brand")
	require.True(t, ok)
	require.True(t, meta.Custom)
	require.True(t, meta.HasIcon("logo"))
}

func TestLoad_SkipsBadSources(t *testing.T) {
	fx := newFixture(t, true)
	good := testutil.NewIconSet("brand").WithIcon("logo").WriteFile(t, fx.dir, "brand.json")
	bad := filepath.Join(fx.dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"prefix": "bad", "icons": {`), 0o600))
	noPrefix := filepath.Join(fx.dir, "noprefix.json")
	require.NoError(t, os.WriteFile(noPrefix, []byte(`{"icons": {"x": {"body": "<g/>"}}}`), 0o600))

	fx.manager.Load(context.Background(), paths.Sources{
		Local:  []string{bad, good, noPrefix, filepath.Join(fx.dir, "missing.json")},
		Remote: []string{"https://icons.test/404.json"},
	})
	require.Equal(t, []string{"brand"}, fx.manager.Prefixes())
}

func TestLoad_RemoteDisabled(t *testing.T) {
	fx := newFixture(t, false)
	fx.fetcher.Serve("https://icons.test/team.json", testutil.NewIconSet("team").WithIcon("mascot").JSON(t))

	changed := fx.manager.Load(context.Background(), paths.Sources{Remote: []string{"https://icons.test/team.json"}})
	require.False(t, changed)
	require.Empty(t, fx.manager.Prefixes())
	require.Zero(t, fx.fetcher.TotalCalls())
}

func TestLoad_RemovesUnconfigured(t *testing.T) {
	fx := newFixture(t, false)
	a := testutil.NewIconSet("brand").WithIcon("logo").WriteFile(t, fx.dir, "brand.json")
	b := testutil.NewIconSet("extra").WithIcon("x").WriteFile(t, fx.dir, "extra.json")

	fx.manager.Load(context.Background(), paths.Sources{Local: []string{a, b}})
	require.Equal(t, []string{"brand", "extra"}, fx.manager.Prefixes())

	changed := fx.manager.Load(context.Background(), paths.Sources{Local: []string{a}})
	require.True(t, changed)
	require.Equal(t, []string{"brand"}, fx.catalog.CustomIDs())
	_, ok := fx.registry.Get("extra")
	require.False(t, ok)

	require.False(t, fx.manager.Load(context.Background(), paths.Sources{Local: []string{a}}), "same sources, same ids")
}

func TestLoad_InjectionMakesUnavailableAvailable(t *testing.T) {
	fx := newFixture(t, false)
	_, ok := fx.catalog.Load(context.Background(), "brand")
	require.False(t, ok)

	path := testutil.NewIconSet("brand").WithIcon("logo").WriteFile(t, fx.dir, "brand.json")
	fx.manager.Load(context.Background(), paths.Sources{Local: []string{path}})

	_, ok = fx.catalog.ResolveIcon(context.Background(), "brand", "logo")
	require.True(t, ok)
}

func TestApply(t *testing.T) {
	fx := newFixture(t, false)
	ctx := context.Background()
	path := testutil.NewIconSet("brand").WithIcon("logo").WriteFile(t, fx.dir, "brand.json")
	fx.manager.Load(ctx, paths.Sources{Local: []string{path}})

	// Edit: new icon shows up.
	testutil.NewIconSet("brand").WithIcon("logo").WithIcon("wordmark").WriteFile(t, fx.dir, "brand.json")
	require.True(t, fx.manager.Apply(ctx, []watcher.Change{{Path: path}}))
	_, ok := fx.catalog.ResolveIcon(ctx, "brand", "wordmark")
	require.True(t, ok)

	// Broken edit: previous content stays.
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	require.False(t, fx.manager.Apply(ctx, []watcher.Change{{Path: path}}))
	_, ok = fx.catalog.ResolveIcon(ctx, "brand", "wordmark")
	require.True(t, ok)

	// Prefix rename drops the old id.
	testutil.NewIconSet("corp").WithIcon("logo").WriteFile(t, fx.dir, "brand.json")
	require.True(t, fx.manager.Apply(ctx, []watcher.Change{{Path: path}}))
	require.Equal(t, []string{"corp"}, fx.catalog.CustomIDs())

	// Delete.
	require.NoError(t, os.Remove(path))
	require.True(t, fx.manager.Apply(ctx, []watcher.Change{{Path: path, Removed: true}}))
	require.Empty(t, fx.catalog.CustomIDs())
	require.Empty(t, fx.registry.CustomIDs())

	require.False(t, fx.manager.Apply(ctx, []watcher.Change{{Path: path, Removed: true}}), "already gone")
}

func TestApply_SharedPrefix(t *testing.T) {
	fx := newFixture(t, false)
	ctx := context.Background()
	a := testutil.NewIconSet("brand").WithIcon("a").WriteFile(t, fx.dir, "a.json")
	b := testutil.NewIconSet("brand").WithIcon("b").WriteFile(t, fx.dir, "b.json")
	fx.manager.Load(ctx, paths.Sources{Local: []string{a, b}})

	require.True(t, fx.manager.Apply(ctx, []watcher.Change{{Path: a, Removed: true}}))
	require.Equal(t, []string{"brand"}, fx.manager.Prefixes(), "still contributed by b.json")
}

package completion

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/iconlens/internal/app"
	"github.com/zjrosen/iconlens/internal/collections"
	"github.com/zjrosen/iconlens/internal/config"
	"github.com/zjrosen/iconlens/internal/fetch"
	"github.com/zjrosen/iconlens/internal/testutil"
)

const cdn = "https://cdn.test/json"

func newProvider(t *testing.T, mutate func(*config.Config)) *Provider {
	t.Helper()
	cfg := config.Defaults()
	cfg.CDNEntry = cdn
	if mutate != nil {
		mutate(&cfg)
	}
	var metas []collections.Meta
	for _, b := range []*testutil.SetBuilder{testutil.MDI(), testutil.MDILight(), testutil.Carbon()} {
		m := collections.MetaFromSet(b.Build())
		m.Custom = false
		metas = append(metas, m)
	}
	svc, err := app.New(app.Options{
		Config: cfg,
		Store:  testutil.NewStore(),
		Fetcher: testutil.NewFetcher().
			Serve(fetch.CollectionURL(cdn, "mdi"), testutil.MDI().JSON(t)).
			Serve(fetch.CollectionURL(cdn, "carbon"), testutil.Carbon().JSON(t)),
		Bundled: metas,
		Folders: []string{t.TempDir()},
		Dark:    true,
	})
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return NewProvider(svc)
}

func labels(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Label)
	}
	return out
}

func TestComplete_IconNames(t *testing.T) {
	p := newProvider(t, nil)

	items := p.Complete(`<Icon icon="mdi:ho`)
	require.Equal(t, []string{"account", "home", "house", "wide"}, labels(items))
	for _, it := range items {
		require.Equal(t, KindIcon, it.Kind)
		require.Equal(t, "mdi", it.Collection)
		require.Equal(t, "mdi:"+it.Label, it.Detail)
		require.Equal(t, 2, it.Replace)
	}
}

func TestComplete_PrefixAndDelimiters(t *testing.T) {
	p := newProvider(t, nil)

	items := p.Complete(`class="i-mdi-light-`)
	require.Equal(t, []string{"bell", "home"}, labels(items))
	require.Equal(t, "mdi-light:bell", items[0].Detail, "detail uses the first delimiter")
	require.Zero(t, items[0].Replace)

	require.Len(t, p.Complete("carbon--"), 2)
}

func TestComplete_IDMap(t *testing.T) {
	p := newProvider(t, func(c *config.Config) {
		c.CustomCollectionIDsMap = map[string]string{"material": "mdi"}
	})

	items := p.Complete("material:")
	require.Len(t, items, 4)
	require.Equal(t, "material:account", items[0].Detail)
}

func TestComplete_Collections(t *testing.T) {
	p := newProvider(t, nil)

	items := p.Complete(`<Icon icon="md`)
	require.ElementsMatch(t, []string{"carbon", "mdi", "mdi-light"}, labels(items))
	for _, it := range items {
		require.Equal(t, KindCollection, it.Kind)
		require.Equal(t, 2, it.Replace)
		if it.Label == "mdi" {
			require.Equal(t, "Material Design Icons", it.Detail)
		}
	}

	require.Len(t, p.Complete(`icon='`), 3)
}

func TestComplete_UnlistedCollectionFillsInAfterLoad(t *testing.T) {
	cfg := config.Defaults()
	cfg.CDNEntry = cdn
	svc, err := app.New(app.Options{
		Config:  cfg,
		Store:   testutil.NewStore(),
		Fetcher: testutil.NewFetcher().Serve(fetch.CollectionURL(cdn, "carbon"), testutil.Carbon().JSON(t)),
		Bundled: []collections.Meta{{ID: "carbon", Name: "Carbon", Total: 2}},
	})
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	p := NewProvider(svc)

	require.Empty(t, p.Complete("carbon:"))
	require.Eventually(t, func() bool {
		return len(p.Complete("carbon:")) == 2
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, []string{"add", "close"}, labels(p.Complete("carbon:")))
}

func TestComplete_Nothing(t *testing.T) {
	p := newProvider(t, nil)

	require.Empty(t, p.Complete(""))
	require.Empty(t, p.Complete("plain words"))
	require.Empty(t, p.Complete("unknown:ho"))
	require.Empty(t, p.Complete(`icon="mdi:home" `))
}

func TestResolve(t *testing.T) {
	p := newProvider(t, nil)
	ctx := context.Background()

	icon := p.Resolve(ctx, Item{Label: "home", Detail: "mdi:home", Kind: KindIcon, Collection: "mdi"})
	require.Contains(t, icon.Documentation, "[`mdi:home`](https://icones.netlify.app/collection/mdi)")
	require.Contains(t, icon.Documentation, "data:image/svg+xml;base64,")

	coll := p.Resolve(ctx, Item{Label: "mdi", Kind: KindCollection, Collection: "mdi"})
	require.True(t, strings.HasPrefix(coll.Documentation, "#### [Material Design Icons](https://icones.netlify.app/collection/mdi)"))
	require.Contains(t, coll.Documentation, "Pictogrammers")

	missing := p.Resolve(ctx, Item{Label: "nope", Detail: "mdi:nope", Kind: KindIcon, Collection: "mdi"})
	require.Empty(t, missing.Documentation)
}

func TestTriggerCharacters(t *testing.T) {
	p := newProvider(t, nil)
	require.Equal(t, []string{":", "--", "-", "/", `"`, `'`}, p.TriggerCharacters())
}

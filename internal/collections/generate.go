package collections

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/zjrosen/iconlens/internal/fetch"
	"github.com/zjrosen/iconlens/internal/iconify"
	"github.com/zjrosen/iconlens/internal/log"
)

// DefaultSource is the published icon set repository: an index at
// collections.json and one json/<id>.json per set.
const DefaultSource = "https://raw.githubusercontent.com/iconify/icon-sets/master"

type indexEntry struct {
	iconify.Info
	Total  int  `json:"total"`
	Hidden bool `json:"hidden,omitempty"`
}

// Generate builds the bundled catalog from source, a base URL or directory
// laid out like DefaultSource. Hidden sets are skipped. At most jobs sets
// are fetched at once.
func Generate(ctx context.Context, f fetch.Fetcher, source string, jobs int) ([]Meta, error) {
	source = strings.TrimRight(source, "/")
	data, err := f.Fetch(ctx, source+"/collections.json")
	if err != nil {
		return nil, fmt.Errorf("fetching collection index: %w", err)
	}
	var index map[string]indexEntry
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("decoding collection index: %w", err)
	}

	ids := make([]string, 0, len(index))
	for id, e := range index {
		if !e.Hidden {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	metas := make([]Meta, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(jobs, 1))
	for i, id := range ids {
		g.Go(func() error {
			data, err := f.Fetch(ctx, fetch.CollectionURL(source+"/json", id))
			if err != nil {
				return fmt.Errorf("fetching %s: %w", id, err)
			}
			set, err := iconify.Decode(data)
			if err != nil {
				return fmt.Errorf("decoding %s: %w", id, err)
			}
			metas[i] = fromIndex(id, index[id], set)
			log.Debug(log.CatCatalog, "Generated collection", "collection", id, "icons", len(metas[i].Icons))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return metas, nil
}

// fromIndex prefers the index's attribution over the set's own info block.
func fromIndex(id string, e indexEntry, set *iconify.IconSet) Meta {
	m := MetaFromSet(set)
	m.ID = id
	m.Custom = false
	m.Total = e.Total
	if e.Name != "" {
		m.Name = e.Name
	}
	if e.Author.Name != "" {
		m.Author = e.Author.Name
	}
	if e.License != nil && e.License.SPDX != "" {
		m.License = e.License.SPDX
	}
	if m.Height == 0 {
		m.Height = int(e.Height)
	}
	return m
}

// EncodeCatalog renders metas in the embedded format, one collection per
// line.
func EncodeCatalog(metas []Meta) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString("[\n")
	for i, m := range metas {
		if m.Icons == nil {
			m.Icons = []string{}
		}
		line, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", m.ID, err)
		}
		b.WriteString("  ")
		b.Write(line)
		if i < len(metas)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString("]\n")
	return b.Bytes(), nil
}

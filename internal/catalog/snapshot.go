package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/zjrosen/iconlens/internal/iconify"
	"github.com/zjrosen/iconlens/internal/log"
	"github.com/zjrosen/iconlens/internal/store"
	"github.com/zjrosen/iconlens/internal/tracing"
)

// NamespaceCollections holds one durable entry per collection id.
const NamespaceCollections = "collections"

// legacyPrefix marks entries written by older releases: the raw CDN JSON
// stored under "icons-<id>".
const legacyPrefix = "icons-"

const snapshotVersion = 2

// snapshot is the durable entry format.
type snapshot struct {
	Version   int              `json:"version"`
	FetchedAt time.Time        `json:"fetched_at"`
	Source    string           `json:"source,omitempty"`
	Set       *iconify.IconSet `json:"set"`
}

func durableKey(id string) string {
	return store.Join(NamespaceCollections, id)
}

func encodeSnapshot(set *iconify.IconSet, source string) ([]byte, error) {
	return json.Marshal(snapshot{
		Version:   snapshotVersion,
		FetchedAt: time.Now().UTC(),
		Source:    source,
		Set:       set,
	})
}

func decodeSnapshot(data []byte) (*snapshot, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	if snap.Set == nil || snap.Set.Icons == nil {
		return nil, iconify.ErrNoIcons
	}
	return &snap, nil
}

// Migrate converts legacy durable entries to the current format. It runs
// at most once per Catalog; concurrent callers block until it finishes.
// Every load calls it before touching the durable tier.
func (c *Catalog) Migrate(ctx context.Context) {
	c.migrateOnce.Do(func() {
		if !c.migrateLegacy {
			return
		}
		ctx, span := c.tracer.Start(ctx, tracing.SpanCatalogMigrate)
		defer span.End()

		n, err := c.migrate(ctx)
		span.SetAttributes(attribute.Int(tracing.AttrMigrated, n))
		if err != nil {
			log.ErrorErr(log.CatStore, "Legacy cache migration incomplete", err, "migrated", n)
			return
		}
		if n > 0 {
			log.Info(log.CatStore, "Migrated legacy cache entries", "count", n)
		}
	})
}

func (c *Catalog) migrate(ctx context.Context) (int, error) {
	keys, err := c.store.List(ctx, legacyPrefix)
	if err != nil {
		return 0, fmt.Errorf("listing legacy entries: %w", err)
	}

	var errs []error
	migrated := 0
	for _, key := range keys {
		id := strings.TrimPrefix(key, legacyPrefix)
		if id == "" || strings.Contains(id, "/") {
			continue
		}
		if err := c.migrateOne(ctx, key, id); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		migrated++
	}
	return migrated, errors.Join(errs...)
}

func (c *Catalog) migrateOne(ctx context.Context, key, id string) error {
	raw, err := c.store.Read(ctx, key)
	if err != nil {
		return err
	}

	// A current entry wins over the legacy copy.
	_, err = c.store.Read(ctx, durableKey(id))
	switch {
	case errors.Is(err, store.ErrNotFound):
		set, decodeErr := iconify.Decode(raw)
		if decodeErr != nil {
			log.Warn(log.CatStore, "Dropping unreadable legacy entry", "key", key, "error", decodeErr)
			break
		}
		data, encErr := encodeSnapshot(set, "")
		if encErr != nil {
			return encErr
		}
		if err := c.store.Write(ctx, durableKey(id), data); err != nil {
			return err
		}
	case err != nil:
		return err
	}

	return c.store.DeleteNamespace(ctx, key)
}

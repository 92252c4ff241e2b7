package app

import (
	"context"
	"fmt"

	"github.com/zjrosen/iconlens/internal/log"
	"github.com/zjrosen/iconlens/internal/paths"
	"github.com/zjrosen/iconlens/internal/watcher"
)

// Watch reloads custom collections and alias files when their local
// sources change, until ctx is done. Sources are resolved once at start;
// call Watch again after a configuration change.
func (s *Service) Watch(ctx context.Context) error {
	cfg, folders := s.snapshot()
	colls := paths.ResolveSources(cfg.CustomCollectionJSONPaths, folders)
	aliases := paths.ResolveSources(cfg.CustomAliasesJSONPaths, folders)

	files := append(append([]string{}, colls.Local...), aliases.Local...)
	if len(files) == 0 {
		<-ctx.Done()
		return nil
	}

	w, err := watcher.New(watcher.DefaultConfig(files))
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	changes, err := w.Start()
	if err != nil {
		return fmt.Errorf("watching custom sources: %w", err)
	}
	log.Info(log.CatWatcher, "Watching custom sources", "files", len(files))

	aliasSet := make(map[string]bool, len(aliases.Local))
	for _, p := range aliases.Local {
		aliasSet[p] = true
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case batch := <-changes:
			s.applyChanges(ctx, batch, aliasSet)
		}
	}
}

func (s *Service) applyChanges(ctx context.Context, batch []watcher.Change, aliasFiles map[string]bool) {
	var collChanges []watcher.Change
	aliasChanged := false
	for _, c := range batch {
		if aliasFiles[c.Path] {
			aliasChanged = true
			continue
		}
		collChanges = append(collChanges, c)
	}
	if len(collChanges) > 0 && s.custom.Apply(ctx, collChanges) {
		s.publish(ChangeCollections)
	}
	if aliasChanged {
		s.reloadAliases()
	}
}

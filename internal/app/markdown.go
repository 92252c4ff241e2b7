package app

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/zjrosen/iconlens/internal/render"
)

// Preview sizes used in hover and completion documentation.
const (
	HoverIconSize      = 150
	CollectionIconSize = 24
	collectionPreviews = 5
)

// BrowseURL links a collection to its page on the Icônes browser.
func BrowseURL(id string) string {
	return "https://icones.netlify.app/collection/" + id
}

// IconMarkdown renders the hover card for key: a large preview and the key
// linked to its collection. Returns "" when key does not resolve.
func (s *Service) IconMarkdown(ctx context.Context, key string) string {
	icon, ok := s.ResolveIcon(ctx, key)
	if !ok {
		return ""
	}
	url := s.RenderIcon(ctx, icon, HoverIconSize)
	return fmt.Sprintf("| |\n|:---:|\n| ![](%s) |\n| [`%s`](%s) |", url, key, BrowseURL(icon.Collection))
}

// CollectionMarkdown describes a collection with a preview of its first
// icons. Returns "" for unknown ids.
func (s *Service) CollectionMarkdown(ctx context.Context, id string) string {
	meta, ok := s.Collection(id)
	if !ok {
		return ""
	}
	delim := ":"
	if d := s.Config().Delimiters; len(d) > 0 {
		delim = d[0]
	}

	names, _ := s.IconNames(id)
	if len(names) == 0 {
		if set, ok := s.catalog.Load(ctx, id); ok {
			names = set.Names()
			slices.Sort(names)
		}
	}
	if len(names) > collectionPreviews {
		names = names[:collectionPreviews]
	}
	previews := make([]string, 0, len(names))
	for _, name := range names {
		if url := s.Render(ctx, render.KeySource{Key: id + delim + name}, CollectionIconSize); url != "" {
			previews = append(previews, "![]("+url+")")
		}
	}

	return fmt.Sprintf("#### [%s](%s)\n%s\n\n%s", meta.Name, BrowseURL(meta.ID), meta.Author, strings.Join(previews, "  "))
}

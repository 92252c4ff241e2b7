// Package testutil provides icon set fixtures and fake collaborators for
// tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/iconlens/internal/iconify"
)

// SetBuilder accumulates an icon set.
type SetBuilder struct {
	set iconify.IconSet
}

// NewIconSet starts a set with the given prefix.
func NewIconSet(prefix string) *SetBuilder {
	return &SetBuilder{set: iconify.IconSet{
		Prefix: prefix,
		Icons:  map[string]iconify.IconDefinition{},
	}}
}

// WithIcon adds an icon with optional configuration.
func (b *SetBuilder) WithIcon(name string, opts ...IconOption) *SetBuilder {
	icon := defaultIcon(name)
	for _, opt := range opts {
		opt(&icon)
	}
	b.set.Icons[name] = icon
	return b
}

// WithAlias adds an in-set alias.
func (b *SetBuilder) WithAlias(name, parent string) *SetBuilder {
	if b.set.Aliases == nil {
		b.set.Aliases = map[string]iconify.Alias{}
	}
	b.set.Aliases[name] = iconify.Alias{Parent: parent}
	return b
}

// WithSize sets the set-level default dimensions.
func (b *SetBuilder) WithSize(width, height int) *SetBuilder {
	b.set.Width = width
	b.set.Height = height
	return b
}

// WithInfo sets the descriptive block.
func (b *SetBuilder) WithInfo(name, author string) *SetBuilder {
	b.set.Info = &iconify.Info{Name: name, Author: iconify.Author{Name: author}}
	return b
}

// Build returns the accumulated set. Each call returns a fresh copy of the
// icon map.
func (b *SetBuilder) Build() *iconify.IconSet {
	set := b.set
	set.Icons = make(map[string]iconify.IconDefinition, len(b.set.Icons))
	for k, v := range b.set.Icons {
		set.Icons[k] = v
	}
	return &set
}

// JSON encodes the set.
func (b *SetBuilder) JSON(t testing.TB) []byte {
	t.Helper()
	data, err := iconify.Encode(b.Build())
	require.NoError(t, err)
	return data
}

// WriteFile writes the set as JSON to dir/name and returns the path.
func (b *SetBuilder) WriteFile(t testing.TB, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, b.JSON(t), 0o644))
	return path
}

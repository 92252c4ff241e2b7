package render

import "github.com/zjrosen/iconlens/internal/catalog"

// Source is what to render: either a reference key still to be resolved
// or an already resolved icon. The set of implementations is closed.
type Source interface {
	source()
}

// KeySource names an icon by reference key, such as "mdi:home".
type KeySource struct {
	Key string
}

// IconSource carries a resolved icon.
type IconSource struct {
	Icon *catalog.ResolvedIcon
}

func (KeySource) source()  {}
func (IconSource) source() {}

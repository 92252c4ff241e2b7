// Package iconify defines the icon set JSON format shared by the CDN,
// the durable cache and custom collection files.
package iconify

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tailscale/hujson"
)

// maxAliasDepth bounds alias chains inside one icon set.
const maxAliasDepth = 8

// ErrNoIcons is returned by Decode when the payload has no icons object.
var ErrNoIcons = errors.New("icon set has no icons")

// IconSet is one collection's icon data.
type IconSet struct {
	Prefix  string                    `json:"prefix"`
	Info    *Info                     `json:"info,omitempty"`
	Icons   map[string]IconDefinition `json:"icons"`
	Aliases map[string]Alias          `json:"aliases,omitempty"`
	Width   int                       `json:"width,omitempty"`
	Height  int                       `json:"height,omitempty"`
}

// IconDefinition is the vector body of a single icon.
// Zero Width/Height mean "inherit from the set".
type IconDefinition struct {
	Body   string `json:"body"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Alias points an icon name at another icon in the same set.
type Alias struct {
	Parent string `json:"parent"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Info is the descriptive block of a custom or CDN icon set.
type Info struct {
	Name    string    `json:"name"`
	Author  Author    `json:"author"`
	Height  Dimension `json:"height,omitempty"`
	License *License  `json:"license,omitempty"`
}

// Author of an icon set.
type Author struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// License of an icon set.
type License struct {
	Title string `json:"title"`
	SPDX  string `json:"spdx,omitempty"`
}

// Dimension accepts either a number or a list of numbers (first wins),
// both of which appear in published icon set metadata.
type Dimension int

// UnmarshalJSON implements json.Unmarshaler.
func (d *Dimension) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*d = 0
		return nil
	}
	if b[0] == '[' {
		var list []float64
		if err := json.Unmarshal(b, &list); err != nil {
			return fmt.Errorf("dimension list: %w", err)
		}
		if len(list) > 0 {
			*d = Dimension(list[0])
		}
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("dimension: %w", err)
	}
	*d = Dimension(n)
	return nil
}

// Decode parses an icon set. Comments and trailing commas are accepted.
func Decode(data []byte) (*IconSet, error) {
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("standardizing icon set json: %w", err)
	}
	var set IconSet
	if err := json.Unmarshal(std, &set); err != nil {
		return nil, fmt.Errorf("decoding icon set: %w", err)
	}
	if set.Icons == nil {
		return nil, ErrNoIcons
	}
	return &set, nil
}

// Encode serializes an icon set as compact JSON.
func Encode(set *IconSet) ([]byte, error) {
	return json.Marshal(set)
}

// Lookup finds an icon by name, following aliases. Alias dimensions
// override the parent's.
func (s *IconSet) Lookup(name string) (IconDefinition, bool) {
	if s == nil {
		return IconDefinition{}, false
	}
	var width, height int
	for range maxAliasDepth {
		if def, ok := s.Icons[name]; ok {
			if width != 0 {
				def.Width = width
			}
			if height != 0 {
				def.Height = height
			}
			return def, true
		}
		alias, ok := s.Aliases[name]
		if !ok || alias.Parent == "" {
			return IconDefinition{}, false
		}
		if width == 0 {
			width = alias.Width
		}
		if height == 0 {
			height = alias.Height
		}
		name = alias.Parent
	}
	return IconDefinition{}, false
}

// Names returns icon and alias names of the set, unsorted.
func (s *IconSet) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.Icons)+len(s.Aliases))
	for name := range s.Icons {
		names = append(names, name)
	}
	for name := range s.Aliases {
		if _, dup := s.Icons[name]; !dup {
			names = append(names, name)
		}
	}
	return names
}

// DeclaredHeight returns the set-level height, falling back to info.height.
func (s *IconSet) DeclaredHeight() int {
	if s.Height != 0 {
		return s.Height
	}
	if s.Info != nil {
		return int(s.Info.Height)
	}
	return 0
}

// Package markdown renders collection and icon descriptions for the
// terminal.
package markdown

import (
	"regexp"

	"github.com/charmbracelet/glamour"
)

// noMarginStyle is a JSON style that removes document margins.
const noMarginStyle = `{
	"document": {
		"margin": 0,
		"block_prefix": "",
		"block_suffix": ""
	}
}`

// dataImage matches inline images whose source is a data URL. Terminals
// cannot show them and the base64 payload would flood the output.
var dataImage = regexp.MustCompile(`!\[[^\]]*\]\(data:[^)]*\)`)

// Renderer wraps glamour with a fixed style.
type Renderer struct {
	renderer *glamour.TermRenderer
	width    int
}

// New creates a markdown renderer with the given width and style.
// style should be "dark" or "light". Defaults to "dark" if empty.
// A fixed style avoids glamour's own terminal background query.
func New(width int, style string) (*Renderer, error) {
	if style == "" {
		style = "dark"
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithStylesFromJSONBytes([]byte(noMarginStyle)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	return &Renderer{renderer: r, width: width}, nil
}

// Width returns the configured word wrap width.
func (r *Renderer) Width() int {
	return r.width
}

// Render transforms markdown to styled terminal output. Data URL images
// are dropped.
func (r *Renderer) Render(markdown string) (string, error) {
	return r.renderer.Render(StripDataImages(markdown))
}

// StripDataImages removes inline data URL images from markdown.
func StripDataImages(markdown string) string {
	return dataImage.ReplaceAllString(markdown, "")
}

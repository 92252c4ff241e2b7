package styles

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// TruncateString shortens s to at most maxWidth cells, ending in "..." when
// anything was cut. Escape sequences in s are preserved.
func TruncateString(s string, maxWidth int) string {
	if maxWidth < 1 {
		return ""
	}
	if ansi.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return strings.Repeat(".", maxWidth)
	}
	return ansi.Truncate(s, maxWidth, "...")
}

// PadRight pads s with spaces to width cells. Styled text is measured by
// its visible width.
func PadRight(s string, width int) string {
	if w := ansi.StringWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

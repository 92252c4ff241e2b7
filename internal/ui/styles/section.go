package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Border characters (rounded).
const (
	borderTopLeft     = "╭"
	borderTopRight    = "╮"
	borderBottomLeft  = "╰"
	borderBottomRight = "╯"
	borderHorizontal  = "─"
	borderVertical    = "│"
)

// RenderSection renders a bordered section with an optional title and hint:
//
//	╭─ Title (hint) ──────╮
//	│content              │
//	╰─────────────────────╯
//
// The box grows to fit the widest content line when width is too small.
func RenderSection(content []string, title, hint string, width int) string {
	borderStyle := lipgloss.NewStyle().Foreground(BorderDefaultColor)
	hintStyle := lipgloss.NewStyle().Foreground(TextMutedColor)

	innerWidth := max(width-2, 1)
	for _, row := range content {
		innerWidth = max(innerWidth, lipgloss.Width(row))
	}

	var topBorder string
	if title == "" {
		topBorder = borderStyle.Render(borderTopLeft + strings.Repeat(borderHorizontal, innerWidth) + borderTopRight)
	} else {
		titleLen := lipgloss.Width(title)
		if hint != "" {
			titleLen = lipgloss.Width(title + " (" + hint + ")")
		}
		dashesAfter := max(innerWidth-titleLen-3, 0)

		topBorder = borderStyle.Render(borderTopLeft+borderHorizontal+" ") + TitleStyle.Render(title)
		if hint != "" {
			topBorder += " " + hintStyle.Render("("+hint+")")
		}
		topBorder += borderStyle.Render(" " + strings.Repeat(borderHorizontal, dashesAfter) + borderTopRight)
	}

	contentLines := make([]string, 0, len(content))
	for _, row := range content {
		contentLines = append(contentLines, borderStyle.Render(borderVertical)+PadRight(row, innerWidth)+borderStyle.Render(borderVertical))
	}

	bottomBorder := borderStyle.Render(borderBottomLeft + strings.Repeat(borderHorizontal, innerWidth) + borderBottomRight)

	return topBorder + "\n" + strings.Join(contentLines, "\n") + "\n" + bottomBorder
}

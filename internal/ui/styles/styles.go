// Package styles contains Lip Gloss style definitions for CLI output.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/iconlens/internal/config"
)

var (
	// Text hierarchy
	TextPrimaryColor   = lipgloss.AdaptiveColor{Light: "#222222", Dark: "#CCCCCC"}
	TextSecondaryColor = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BBBBBB"}
	TextMutedColor     = lipgloss.AdaptiveColor{Light: "#888888", Dark: "#696969"}

	BorderDefaultColor = lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#696969"}

	// Status
	StatusSuccessColor = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	StatusWarningColor = lipgloss.AdaptiveColor{Light: "#FECA57", Dark: "#FECA57"}
	StatusErrorColor   = lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF8787"}

	// Collection ids and icon keys (Catppuccin Mocha)
	KeyColor    = lipgloss.AdaptiveColor{Light: "#179299", Dark: "#94E2D5"} // teal
	CustomColor = lipgloss.AdaptiveColor{Light: "#DF8E1D", Dark: "#F9E2AF"} // yellow

	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(TextPrimaryColor)
	KeyStyle     = lipgloss.NewStyle().Foreground(KeyColor)
	CustomStyle  = lipgloss.NewStyle().Foreground(CustomColor)
	MutedStyle   = lipgloss.NewStyle().Foreground(TextMutedColor)
	LabelStyle   = lipgloss.NewStyle().Foreground(TextSecondaryColor)
	SuccessStyle = lipgloss.NewStyle().Foreground(StatusSuccessColor)
	WarningStyle = lipgloss.NewStyle().Foreground(StatusWarningColor)
	ErrorStyle   = lipgloss.NewStyle().Foreground(StatusErrorColor)
)

// Dark resolves a theme setting. auto asks the terminal for its
// background, which must happen before anything else reads stdin.
func Dark(theme string) bool {
	switch theme {
	case config.ThemeDark:
		return true
	case config.ThemeLight:
		return false
	default:
		return lipgloss.HasDarkBackground()
	}
}

// GlamourStyle names the glamour style matching dark.
func GlamourStyle(dark bool) string {
	if dark {
		return "dark"
	}
	return "light"
}

package styles

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/iconlens/internal/config"
)

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		width    int
		expected string
	}{
		{"fits", "mdi", 10, "mdi"},
		{"exact", "carbon", 6, "carbon"},
		{"truncated", "Material Design Icons", 10, "Materia..."},
		{"tiny", "Material", 2, ".."},
		{"zero", "mdi", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, TruncateString(tt.in, tt.width))
		})
	}
}

func TestPadRight(t *testing.T) {
	require.Equal(t, "mdi   ", PadRight("mdi", 6))
	require.Equal(t, "carbon", PadRight("carbon", 3))
}

func TestDark_ExplicitThemes(t *testing.T) {
	require.True(t, Dark(config.ThemeDark))
	require.False(t, Dark(config.ThemeLight))
	require.Equal(t, "dark", GlamourStyle(true))
	require.Equal(t, "light", GlamourStyle(false))
}

func TestRenderSection(t *testing.T) {
	out := RenderSection([]string{"mdi:home", "24x24"}, "Icon", "mdi", 20)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 4)
	for _, l := range lines {
		require.Equal(t, 20, lipgloss.Width(l), "line %q", l)
	}
	require.Contains(t, lines[0], "Icon")
	require.Contains(t, lines[0], "(mdi)")
	require.Contains(t, lines[1], "mdi:home")
}

func TestRenderSection_GrowsToContent(t *testing.T) {
	out := RenderSection([]string{strings.Repeat("x", 30)}, "", "", 10)
	for _, l := range strings.Split(out, "\n") {
		require.Equal(t, 32, lipgloss.Width(l))
	}
}

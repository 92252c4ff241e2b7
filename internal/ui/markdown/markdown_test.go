package markdown

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// stripANSI removes ANSI escape codes from a string for easier testing.
var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

func TestNew(t *testing.T) {
	r, err := New(80, "")
	require.NoError(t, err)
	require.NotNil(t, r)
	require.Equal(t, 80, r.Width())
}

func TestRenderer_Render_CollectionCard(t *testing.T) {
	r, err := New(80, "light")
	require.NoError(t, err)

	md := "#### [Material Design Icons](https://icones.netlify.app/collection/mdi)\nPictogrammers\n\n" +
		"![](data:image/svg+xml;base64,PHN2Zz48L3N2Zz4=)  ![](data:image/svg+xml;base64,PHN2Zz48L3N2Zz4=)"
	result, err := r.Render(md)
	require.NoError(t, err)

	stripped := stripANSI(result)
	require.Contains(t, stripped, "Material Design Icons")
	require.Contains(t, stripped, "Pictogrammers")
	require.NotContains(t, stripped, "base64")
}

func TestStripDataImages(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"data image", "a ![](data:image/png;base64,AAA) b", "a  b"},
		{"alt text", "![home](data:x)", ""},
		{"remote image kept", "![](https://example.com/a.svg)", "![](https://example.com/a.svg)"},
		{"plain link kept", "[`mdi:home`](https://icones.netlify.app/collection/mdi)", "[`mdi:home`](https://icones.netlify.app/collection/mdi)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, StripDataImages(tt.in))
		})
	}
}

func TestRenderer_Render_Empty(t *testing.T) {
	r, err := New(80, "dark")
	require.NoError(t, err)
	result, err := r.Render("")
	require.NoError(t, err)
	require.Empty(t, strings.TrimSpace(stripANSI(result)))
}

package render

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/webcitydotdev/woodwork-site-example/internal/cms"
)

func TestDeclarations(t *testing.T) {
	t.Parallel()

	got := declarations(map[string]string{
		"backgroundColor": "rgba(0, 0, 0, 0.5)",
		"marginTop":       "20px",
		"color":           "red;position:fixed",
		"background":      "url(javascript:alert(1))",
		"bad key":         "1px",
		"--gap":           "4px",
	})
	require.Equal(t, "--gap:4px;background-color:rgba(0, 0, 0, 0.5);margin-top:20px", got)
	require.Empty(t, declarations(nil))
}

func TestResponsiveCSS(t *testing.T) {
	t.Parallel()

	css := responsiveCSS(blockClass("builder-1a2b"), cms.ResponsiveStyles{
		Large:  map[string]string{"display": "flex"},
		Medium: map[string]string{"flexDirection": "column"},
		Small:  map[string]string{"padding": "0 <b>"},
	})
	require.Equal(t, ".builder-block-builder-1a2b{display:flex}@media (max-width: 991px){.builder-block-builder-1a2b{flex-direction:column}}", css)
	require.Empty(t, responsiveCSS(blockClass("\"><"), cms.ResponsiveStyles{Large: map[string]string{"display": "flex"}}))
}

func TestSafeURL(t *testing.T) {
	t.Parallel()

	require.Equal(t, "/about", safeURL(" /about "))
	require.Equal(t, "https://cdn.builder.io/a.png", safeURL("https://cdn.builder.io/a.png"))
	require.Equal(t, "mailto:hi@example.com", safeURL("mailto:hi@example.com"))
	require.Empty(t, safeURL("javascript:alert(1)"))
	require.Empty(t, safeURL("data:text/html,hi"))
}

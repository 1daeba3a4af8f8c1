package seo

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalizedURL(t *testing.T) {
	t.Parallel()

	require.Equal(t, "https://example.com/about", LocalizedURL("https://example.com/", "en", "en", "/about"))
	require.Equal(t, "https://example.com/de/about", LocalizedURL("https://example.com", "de", "en", "about/"))
	require.Equal(t, "https://example.com/de", LocalizedURL("https://example.com", "de", "en", "/"))
	require.Equal(t, "/de/about", LocalizedURL("", "de", "en", "/about"))
}

func TestAlternates(t *testing.T) {
	t.Parallel()

	require.Nil(t, Alternates("https://example.com", []string{"en"}, "en", "/"))

	alts := Alternates("https://example.com", []string{"en", "de"}, "en", "/about")
	require.Equal(t, []Alternate{
		{Lang: "en", Href: "https://example.com/about"},
		{Lang: "de", Href: "https://example.com/de/about"},
		{Lang: "x-default", Href: "https://example.com/about"},
	}, alts)
}

func TestWebPageJSON(t *testing.T) {
	t.Parallel()

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(JSON(WebPage("About", "https://example.com/about", "", "en", "Woodwork"))), &decoded))
	require.Equal(t, "WebPage", decoded["@type"])
	require.Equal(t, "en", decoded["inLanguage"])
	require.NotContains(t, decoded, "description")
	require.Equal(t, "Woodwork", decoded["isPartOf"].(map[string]any)["name"])

	require.Empty(t, JSON(func() {}))
}

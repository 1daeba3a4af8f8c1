package seo

import (
	"net/url"
	"strings"
)

// OpenGraph carries the og:* tags.
type OpenGraph struct {
	Title       string
	Description string
	Image       string
	Type        string
	Locale      string
}

// Alternate is one hreflang link.
type Alternate struct {
	Lang string
	Href string
}

// Meta is the head metadata for a rendered page.
type Meta struct {
	Canonical  string
	OG         OpenGraph
	Alternates []Alternate
	JSONLD     string
}

// LocalizedURL builds the public URL of urlPath in loc. The fallback locale is
// served without a prefix.
func LocalizedURL(baseURL, loc, fallback, urlPath string) string {
	p := "/" + strings.Trim(urlPath, "/")
	if loc != "" && loc != fallback {
		if p == "/" {
			p = "/" + loc
		} else {
			p = "/" + loc + p
		}
	}
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		return p
	}
	u, err := url.Parse(base + p)
	if err != nil {
		return p
	}
	return u.String()
}

// Alternates lists an hreflang link per locale plus x-default.
func Alternates(baseURL string, codes []string, fallback, urlPath string) []Alternate {
	if len(codes) < 2 {
		return nil
	}
	out := make([]Alternate, 0, len(codes)+1)
	for _, code := range codes {
		out = append(out, Alternate{Lang: code, Href: LocalizedURL(baseURL, code, fallback, urlPath)})
	}
	return append(out, Alternate{Lang: "x-default", Href: LocalizedURL(baseURL, fallback, fallback, urlPath)})
}

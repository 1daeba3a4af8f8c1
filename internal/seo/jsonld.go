package seo

import "encoding/json"

// JSON marshals v to a compact JSON string. It returns an empty string on error.
func JSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// WebPage returns a schema.org WebPage payload.
func WebPage(name, url, description, lang, siteName string) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "WebPage",
		"name":     name,
	}
	if url != "" {
		m["url"] = url
	}
	if description != "" {
		m["description"] = description
	}
	if lang != "" {
		m["inLanguage"] = lang
	}
	if siteName != "" {
		m["isPartOf"] = map[string]any{"@type": "WebSite", "name": siteName}
	}
	return m
}

// Organization returns a minimal Organization schema.
func Organization(name, url, logoURL string) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "Organization",
		"name":     name,
	}
	if url != "" {
		m["url"] = url
	}
	if logoURL != "" {
		m["logo"] = logoURL
	}
	return m
}

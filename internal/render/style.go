package render

import (
	"html/template"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/webcitydotdev/woodwork-site-example/internal/cms"
)

const (
	mediumBreakpoint = "991px"
	smallBreakpoint  = "640px"
	maxCSSValueLen   = 256
)

var (
	cssPropertyPattern = regexp.MustCompile(`^(--)?[a-z][a-z0-9-]*$`)
	blockIDPattern     = regexp.MustCompile(`[^A-Za-z0-9_-]`)
	unsafeCSSMarkers   = []string{"expression(", "url(", "javascript:", "@import", "/*", "\\"}
)

// cssProperty converts an editor style key (camelCase) to a CSS property name.
func cssProperty(key string) (string, bool) {
	key = strings.TrimSpace(key)
	if strings.HasPrefix(key, "--") {
		return key, cssPropertyPattern.MatchString(key)
	}
	var b strings.Builder
	for _, r := range key {
		if unicode.IsUpper(r) {
			b.WriteByte('-')
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	prop := b.String()
	return prop, cssPropertyPattern.MatchString(prop)
}

// cssValue rejects values that could escape a declaration or load remote resources.
func cssValue(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" || len(value) > maxCSSValueLen {
		return "", false
	}
	if strings.ContainsAny(value, ";{}<>\"'\n\r") {
		return "", false
	}
	lower := strings.ToLower(value)
	for _, marker := range unsafeCSSMarkers {
		if strings.Contains(lower, marker) {
			return "", false
		}
	}
	return value, true
}

func cssOr(value, fallback string) string {
	if v, ok := cssValue(value); ok {
		return v
	}
	return fallback
}

// declarations renders a style map as sorted, validated declarations.
func declarations(styles map[string]string) string {
	if len(styles) == 0 {
		return ""
	}
	keys := make([]string, 0, len(styles))
	for k := range styles {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		prop, ok := cssProperty(k)
		if !ok {
			continue
		}
		value, ok := cssValue(styles[k])
		if !ok {
			continue
		}
		parts = append(parts, prop+":"+value)
	}
	return strings.Join(parts, ";")
}

// InlineStyle is declarations as a trusted style attribute value.
func InlineStyle(styles map[string]string) template.CSS {
	return template.CSS(declarations(styles))
}

func blockClass(id string) string {
	id = blockIDPattern.ReplaceAllString(id, "")
	if id == "" {
		return ""
	}
	return "builder-block-" + id
}

// responsiveCSS emits the per-breakpoint rules for one block.
func responsiveCSS(class string, styles cms.ResponsiveStyles) string {
	if class == "" {
		return ""
	}
	var b strings.Builder
	sel := "." + class
	if d := declarations(styles.Large); d != "" {
		b.WriteString(sel + "{" + d + "}")
	}
	if d := declarations(styles.Medium); d != "" {
		b.WriteString("@media (max-width: " + mediumBreakpoint + "){" + sel + "{" + d + "}}")
	}
	if d := declarations(styles.Small); d != "" {
		b.WriteString("@media (max-width: " + smallBreakpoint + "){" + sel + "{" + d + "}}")
	}
	return b.String()
}

// safeURL keeps absolute http(s), mailto and tel links plus site-relative paths.
func safeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "#") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "mailto", "tel":
		return raw
	default:
		return ""
	}
}

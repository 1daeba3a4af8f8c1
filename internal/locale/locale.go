package locale

import (
	"sort"
	"strings"

	"golang.org/x/text/language"
)

// DefaultLocale is used whenever a request does not carry a recognised locale.
const DefaultLocale = "en"

// Info is the locale resolution result for a single request.
type Info struct {
	Locale        string
	URLPath       string
	IsLocaleValid bool
}

// Set is the fixed collection of locales the site publishes content for.
type Set struct {
	fallback string
	codes    map[string]struct{}
	tags     []language.Tag
	matcher  language.Matcher
}

var defaultSet = NewSet(DefaultLocale, []string{DefaultLocale})

// Default returns the deployment locale set ({"en"}).
func Default() *Set { return defaultSet }

// NewSet builds a locale set. The fallback is always a member; codes are lower-cased.
func NewSet(fallback string, codes []string) *Set {
	fallback = strings.ToLower(strings.TrimSpace(fallback))
	if fallback == "" {
		fallback = DefaultLocale
	}
	s := &Set{
		fallback: fallback,
		codes:    map[string]struct{}{fallback: {}},
	}
	for _, c := range codes {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		s.codes[c] = struct{}{}
	}
	// fallback first so the matcher prefers it on ties
	s.tags = append(s.tags, language.Make(fallback))
	for _, c := range s.Codes() {
		if c == fallback {
			continue
		}
		s.tags = append(s.tags, language.Make(c))
	}
	s.matcher = language.NewMatcher(s.tags)
	return s
}

// Fallback returns the locale used when none is recognised.
func (s *Set) Fallback() string { return s.fallback }

// Codes returns the members sorted alphabetically.
func (s *Set) Codes() []string {
	out := make([]string, 0, len(s.codes))
	for c := range s.codes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// IsValid reports whether candidate is a member of the set.
func (s *Set) IsValid(candidate string) bool {
	_, ok := s.codes[candidate]
	return ok
}

// Resolve extracts the locale and content path from route segments.
// A leading segment that is not a member is kept as part of the path.
func (s *Set) Resolve(segments []string) Info {
	if len(segments) == 0 {
		return Info{Locale: s.fallback, URLPath: "/", IsLocaleValid: true}
	}
	first := segments[0]
	if s.IsValid(first) {
		return Info{
			Locale:        first,
			URLPath:       "/" + strings.Join(segments[1:], "/"),
			IsLocaleValid: true,
		}
	}
	return Info{
		Locale:        s.fallback,
		URLPath:       "/" + strings.Join(segments, "/"),
		IsLocaleValid: !looksLikeLocale(first),
	}
}

// ResolveParam handles routes where the locale is a dedicated path parameter.
func (s *Set) ResolveParam(param string, segments []string) Info {
	param = strings.TrimSpace(param)
	if param == "" {
		return s.Resolve(segments)
	}
	info := Info{
		Locale:        param,
		URLPath:       "/" + strings.Join(segments, "/"),
		IsLocaleValid: s.IsValid(param),
	}
	if !info.IsLocaleValid {
		info.Locale = s.fallback
	}
	return info
}

// Negotiate picks the best member for an Accept-Language header value.
func (s *Set) Negotiate(acceptLanguage string) string {
	acceptLanguage = strings.TrimSpace(acceptLanguage)
	if acceptLanguage == "" {
		return s.fallback
	}
	prefs, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(prefs) == 0 {
		return s.fallback
	}
	_, idx, conf := s.matcher.Match(prefs...)
	if conf == language.No || idx < 0 || idx >= len(s.tags) {
		return s.fallback
	}
	base, _ := s.tags[idx].Base()
	code := base.String()
	if !s.IsValid(code) {
		return s.fallback
	}
	return code
}

// Resolve applies the default set.
func Resolve(segments []string) Info { return defaultSet.Resolve(segments) }

// IsValidLocale applies the default set.
func IsValidLocale(candidate string) bool { return defaultSet.IsValid(candidate) }

// Segments splits a URL path on "/" and drops empty segments.
func Segments(path string) []string {
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// looksLikeLocale matches two-letter ASCII codes such as "fr" or "DE".
func looksLikeLocale(segment string) bool {
	if len(segment) != 2 {
		return false
	}
	for i := 0; i < len(segment); i++ {
		c := segment[i] | 0x20
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return true
}

package cms

import (
	"strconv"
	"strings"
	"time"
)

// Category groups content by how long it may be reused.
type Category string

const (
	CategoryPage    Category = "PAGE"
	CategoryDynamic Category = "DYNAMIC"
)

// RevalidationTimeframes maps a category to its reuse window in seconds.
var RevalidationTimeframes = map[Category]int{
	CategoryPage:    3600,
	CategoryDynamic: 0,
}

// ParseCategory matches a category name case-insensitively.
func ParseCategory(value string) (Category, bool) {
	c := Category(strings.ToUpper(strings.TrimSpace(value)))
	_, ok := RevalidationTimeframes[c]
	return c, ok
}

// FetchOptions carries the per-call cache directive inputs.
type FetchOptions struct {
	Revalidate *int
	Tags       []string
	NoCache    bool
}

// FetchOption mutates FetchOptions.
type FetchOption func(*FetchOptions)

// WithRevalidate reuses the fetched content for the given number of seconds.
func WithRevalidate(seconds int) FetchOption {
	return func(o *FetchOptions) {
		if seconds < 0 {
			seconds = 0
		}
		o.Revalidate = &seconds
	}
}

// WithTags keeps the content until one of the tags is invalidated.
func WithTags(tags ...string) FetchOption {
	return func(o *FetchOptions) {
		for _, tag := range tags {
			if tag = strings.TrimSpace(tag); tag != "" {
				o.Tags = append(o.Tags, tag)
			}
		}
	}
}

// WithNoCache disables reuse entirely.
func WithNoCache() FetchOption {
	return func(o *FetchOptions) { o.NoCache = true }
}

// WithFetchOptions applies a prepared FetchOptions value, e.g. from CacheConfig.
func WithFetchOptions(opts FetchOptions) FetchOption {
	return func(o *FetchOptions) {
		if opts.NoCache {
			o.NoCache = true
		}
		if opts.Revalidate != nil {
			v := *opts.Revalidate
			o.Revalidate = &v
		}
		o.Tags = append(o.Tags, opts.Tags...)
	}
}

// CacheConfig returns the fetch options for a content category. Unknown
// categories use PAGE.
func CacheConfig(category Category) FetchOptions {
	seconds, ok := RevalidationTimeframes[category]
	if !ok {
		seconds = RevalidationTimeframes[CategoryPage]
	}
	return FetchOptions{Revalidate: &seconds}
}

// DirectiveKind identifies which reuse rule applied.
type DirectiveKind int

const (
	DirectiveDefault DirectiveKind = iota
	DirectiveNoCache
	DirectiveRevalidate
	DirectiveTags
)

// Directive is the resolved cache behaviour for a single fetch.
type Directive struct {
	Kind DirectiveKind
	TTL  time.Duration
	Tags []string
}

// Directive resolves the options in precedence order: noCache, revalidate,
// tags, then the client default.
func (o FetchOptions) Directive(defaultTTL time.Duration) Directive {
	switch {
	case o.NoCache:
		return Directive{Kind: DirectiveNoCache}
	case o.Revalidate != nil:
		return Directive{Kind: DirectiveRevalidate, TTL: time.Duration(*o.Revalidate) * time.Second}
	case len(o.Tags) > 0:
		return Directive{Kind: DirectiveTags, Tags: append([]string(nil), o.Tags...)}
	default:
		return Directive{Kind: DirectiveDefault, TTL: defaultTTL}
	}
}

// Reusable reports whether a cached value may be read or written.
func (d Directive) Reusable() bool {
	switch d.Kind {
	case DirectiveNoCache:
		return false
	case DirectiveTags:
		return true
	default:
		return d.TTL > 0
	}
}

func (d Directive) String() string {
	switch d.Kind {
	case DirectiveNoCache:
		return "no-cache"
	case DirectiveRevalidate:
		return "revalidate=" + strconv.Itoa(int(d.TTL/time.Second))
	case DirectiveTags:
		return "tags=" + strings.Join(d.Tags, ",")
	default:
		return "default=" + strconv.Itoa(int(d.TTL/time.Second))
	}
}

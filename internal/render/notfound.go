package render

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"

	"github.com/webcitydotdev/woodwork-site-example/internal/locale"
)

// NotFoundCopy is the text shown on the not-found view.
type NotFoundCopy struct {
	Title        string
	Message      string
	ShowHomeLink bool
	Body         template.HTML
}

// DefaultNotFound returns the built-in copy.
func DefaultNotFound() NotFoundCopy {
	return NotFoundCopy{
		Title:        "Page not found",
		Message:      "The requested page could not be found.",
		ShowHomeLink: true,
	}
}

type notFoundFrontMatter struct {
	Title        string `yaml:"title"`
	Message      string `yaml:"message"`
	ShowHomeLink *bool  `yaml:"show_home_link"`
}

// NotFoundLoader reads per-locale overrides from {dir}/notfound/{locale}.md.
type NotFoundLoader struct {
	dir    string
	cache  bool
	md     goldmark.Markdown
	policy *bluemonday.Policy

	mu     sync.RWMutex
	copies map[string]NotFoundCopy
}

// NewNotFoundLoader returns a loader rooted at dir. When cache is false the
// files are re-read on every call.
func NewNotFoundLoader(dir string, cache bool) *NotFoundLoader {
	return &NotFoundLoader{
		dir:    strings.TrimSpace(dir),
		cache:  cache,
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy: bluemonday.UGCPolicy(),
		copies: map[string]NotFoundCopy{},
	}
}

// Load returns the copy for loc, falling back to the default locale file and
// then to DefaultNotFound. Read errors other than a missing file are returned
// alongside the fallback copy.
func (l *NotFoundLoader) Load(loc string) (NotFoundCopy, error) {
	if l == nil || l.dir == "" {
		return DefaultNotFound(), nil
	}
	if l.cache {
		l.mu.RLock()
		c, ok := l.copies[loc]
		l.mu.RUnlock()
		if ok {
			return c, nil
		}
	}

	candidates := []string{loc}
	if loc != locale.DefaultLocale {
		candidates = append(candidates, locale.DefaultLocale)
	}
	result := DefaultNotFound()
	var loadErr error
	for _, candidate := range candidates {
		c, err := l.read(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			loadErr = err
			break
		}
		result = c
		break
	}
	if l.cache && loadErr == nil {
		l.mu.Lock()
		l.copies[loc] = result
		l.mu.Unlock()
	}
	return result, loadErr
}

func (l *NotFoundLoader) read(loc string) (NotFoundCopy, error) {
	if loc == "" || strings.ContainsAny(loc, `/\.`) {
		return NotFoundCopy{}, fs.ErrNotExist
	}
	file := filepath.Join(l.dir, "notfound", loc+".md")
	data, err := os.ReadFile(file)
	if err != nil {
		return NotFoundCopy{}, err
	}
	fm, body := splitFrontMatter(string(data))
	var front notFoundFrontMatter
	if strings.TrimSpace(fm) != "" {
		if err := yaml.Unmarshal([]byte(fm), &front); err != nil {
			return NotFoundCopy{}, fmt.Errorf("render: parse front matter %s: %w", file, err)
		}
	}
	c := DefaultNotFound()
	if t := strings.TrimSpace(front.Title); t != "" {
		c.Title = t
	}
	if m := strings.TrimSpace(front.Message); m != "" {
		c.Message = m
	}
	if front.ShowHomeLink != nil {
		c.ShowHomeLink = *front.ShowHomeLink
	}
	if strings.TrimSpace(body) != "" {
		var buf bytes.Buffer
		if err := l.md.Convert([]byte(body), &buf); err != nil {
			return NotFoundCopy{}, fmt.Errorf("render: markdown %s: %w", file, err)
		}
		c.Body = template.HTML(l.policy.SanitizeBytes(buf.Bytes()))
	}
	return c, nil
}

func splitFrontMatter(input string) (string, string) {
	input = strings.TrimLeft(input, "\ufeff")
	lines := strings.Split(input, "\n")
	if strings.TrimSpace(lines[0]) != "---" {
		return "", input
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			fm := strings.Join(lines[1:i], "\n")
			body := strings.Join(lines[i+1:], "\n")
			return fm, strings.TrimLeft(body, "\n\r")
		}
	}
	return "", input
}

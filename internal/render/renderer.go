package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/webcitydotdev/woodwork-site-example/internal/cms"
	"github.com/webcitydotdev/woodwork-site-example/internal/locale"
	"github.com/webcitydotdev/woodwork-site-example/internal/platform/requestctx"
	"github.com/webcitydotdev/woodwork-site-example/internal/seo"
)

//go:embed templates/*.tmpl
var embeddedTemplates embed.FS

// Options configures a Renderer.
type Options struct {
	SiteName   string
	ContentDir string
	// BaseURL makes canonical and hreflang links absolute.
	BaseURL string
	Locales *locale.Set
	// TemplatesDir, when set together with Dev, is re-read on every render.
	TemplatesDir string
	Dev          bool
}

// Renderer executes the site templates.
type Renderer struct {
	siteName string
	baseURL  string
	locales  *locale.Set
	dev      bool
	source   fs.FS
	tmpl     *template.Template
	blocks   *BlockRenderer
	notFound *NotFoundLoader
}

// PageView is the content view model.
type PageView struct {
	Blocks []BlockView
	Empty  bool
}

// ErrorView is the generic error view model.
type ErrorView struct {
	Status  int
	Title   string
	Message string
}

type layoutData struct {
	View        string
	SiteName    string
	Locale      string
	Title       string
	Description string
	Preview     bool
	CSS         template.CSS
	Meta        *seo.Meta
	JSONLD      template.JS
	Page        *PageView
	NotFound    *NotFoundCopy
	Error       *ErrorView
	Year        int
}

// New parses the templates once unless running in dev mode.
func New(opts Options) (*Renderer, error) {
	r := &Renderer{
		siteName: strings.TrimSpace(opts.SiteName),
		baseURL:  strings.TrimSpace(opts.BaseURL),
		locales:  opts.Locales,
		dev:      opts.Dev,
		blocks:   NewBlockRenderer(),
		notFound: NewNotFoundLoader(opts.ContentDir, !opts.Dev),
	}
	if r.siteName == "" {
		r.siteName = "Woodwork"
	}
	if r.locales == nil {
		r.locales = locale.Default()
	}
	r.source, _ = fs.Sub(embeddedTemplates, "templates")
	if opts.Dev && strings.TrimSpace(opts.TemplatesDir) != "" {
		r.source = os.DirFS(opts.TemplatesDir)
	}
	tmpl, err := parseTemplates(r.source)
	if err != nil {
		return nil, err
	}
	r.tmpl = tmpl
	return r, nil
}

func parseTemplates(source fs.FS) (*template.Template, error) {
	funcMap := template.FuncMap{
		"now": time.Now,
	}
	tmpl, err := template.New("_root").Funcs(funcMap).ParseFS(source, "*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("render: parse templates: %w", err)
	}
	return tmpl, nil
}

// Content renders a CMS entry. A nil entry renders the empty preview shell.
func (r *Renderer) Content(w http.ResponseWriter, req *http.Request, content *cms.Content, loc string) {
	data := r.base("page", loc, req)
	page := &PageView{Empty: content == nil}
	if content != nil {
		page.Blocks, data.CSS = r.blocks.Render(content.Data.Blocks)
		if t := content.Title(); t != "" {
			data.Title = t
		}
		data.Description = content.Data.String("description")
		if !data.Preview {
			data.Meta = r.meta(req, content, data)
			data.JSONLD = template.JS(data.Meta.JSONLD)
		}
	}
	data.Page = page
	r.execute(w, req, http.StatusOK, data)
}

// NotFound renders the 404 view with the copy for loc.
func (r *Renderer) NotFound(w http.ResponseWriter, req *http.Request, loc string) {
	nf, err := r.notFound.Load(loc)
	if err != nil {
		requestctx.Logger(req.Context()).Warn("render: not found copy", zap.String("locale", loc), zap.Error(err))
	}
	data := r.base("not_found", loc, req)
	data.Title = nf.Title
	data.NotFound = &nf
	r.execute(w, req, http.StatusNotFound, data)
}

// Error renders the generic error view.
func (r *Renderer) Error(w http.ResponseWriter, req *http.Request, status int, loc string) {
	if status < http.StatusBadRequest {
		status = http.StatusInternalServerError
	}
	data := r.base("error", loc, req)
	data.Title = "Something went wrong"
	data.Error = &ErrorView{
		Status:  status,
		Title:   "Something went wrong",
		Message: "We could not load this page. Please try again in a moment.",
	}
	r.execute(w, req, status, data)
}

func (r *Renderer) meta(req *http.Request, content *cms.Content, data layoutData) *seo.Meta {
	urlPath := "/"
	if info, ok := locale.FromContext(req.Context()); ok && info.URLPath != "" {
		urlPath = info.URLPath
	}
	fallback := r.locales.Fallback()
	canonical := seo.LocalizedURL(r.baseURL, data.Locale, fallback, urlPath)
	return &seo.Meta{
		Canonical: canonical,
		OG: seo.OpenGraph{
			Title:       data.Title,
			Description: data.Description,
			Image:       safeURL(content.Data.String("image")),
			Type:        "website",
			Locale:      data.Locale,
		},
		Alternates: seo.Alternates(r.baseURL, r.locales.Codes(), fallback, urlPath),
		JSONLD:     seo.JSON(seo.WebPage(data.Title, canonical, data.Description, data.Locale, r.siteName)),
	}
}

func (r *Renderer) base(view, loc string, req *http.Request) layoutData {
	return layoutData{
		View:     view,
		SiteName: r.siteName,
		Locale:   loc,
		Title:    r.siteName,
		Preview:  requestctx.IsPreview(req.Context()),
		Year:     time.Now().Year(),
	}
}

// execute renders into a buffer so a template failure never sends a partial page.
// In dev mode templates are reparsed on each request.
func (r *Renderer) execute(w http.ResponseWriter, req *http.Request, status int, data layoutData) {
	logger := requestctx.Logger(req.Context())
	t := r.tmpl
	if r.dev {
		tc, err := parseTemplates(r.source)
		if err != nil {
			logger.Error("render: template parse", zap.Error(err))
			http.Error(w, "template parse error", http.StatusInternalServerError)
			return
		}
		t = tc
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		logger.Error("render: template exec", zap.String("view", data.View), zap.Error(err))
		http.Error(w, "template exec error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if data.Locale != "" {
		w.Header().Set("Content-Language", data.Locale)
	}
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

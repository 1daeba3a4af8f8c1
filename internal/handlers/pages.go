package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/webcitydotdev/woodwork-site-example/internal/cms"
	"github.com/webcitydotdev/woodwork-site-example/internal/locale"
	"github.com/webcitydotdev/woodwork-site-example/internal/platform/requestctx"
	"github.com/webcitydotdev/woodwork-site-example/internal/render"
)

const (
	pageModel         = "page"
	symbolModel       = "symbol"
	symbolPreviewPath = "/symbol-preview/symbol"

	// editingRevalidate is the freshness window, in seconds, for requests
	// from inside the editor frame.
	editingRevalidate = 5
)

// ContentFetcher retrieves a single CMS entry.
type ContentFetcher interface {
	Fetch(ctx context.Context, urlPath, locale, model string, opts ...cms.FetchOption) (*cms.Content, error)
}

// PageRenderer writes the HTML views.
type PageRenderer interface {
	Content(w http.ResponseWriter, r *http.Request, content *cms.Content, locale string)
	NotFound(w http.ResponseWriter, r *http.Request, locale string)
	Error(w http.ResponseWriter, r *http.Request, status int, locale string)
}

// PageHandlers serves CMS-backed pages.
type PageHandlers struct {
	content ContentFetcher
	views   PageRenderer
	locales *locale.Set
}

// NewPageHandlers constructs PageHandlers. A nil set uses the default locales.
func NewPageHandlers(content ContentFetcher, views PageRenderer, locales *locale.Set) *PageHandlers {
	if locales == nil {
		locales = locale.Default()
	}
	return &PageHandlers{content: content, views: views, locales: locales}
}

// Routes registers the page routes. The symbol preview route wins over the
// catch-all for two-segment paths ending in /symbol-preview.
func (h *PageHandlers) Routes(r chi.Router) {
	r.Get("/{locale}/symbol-preview", h.SymbolPreview)
	r.Get("/", h.Page)
	r.Get("/*", h.Page)
}

// Page resolves the locale from the path, fetches the "page" entry and renders
// content, not-found, or the editor preview shell.
func (h *PageHandlers) Page(w http.ResponseWriter, r *http.Request) {
	info := h.locales.Resolve(locale.Segments(r.URL.Path))
	r = h.withLocale(r, info)
	ctx := r.Context()
	preview := requestctx.IsPreview(ctx)

	content, err := h.content.Fetch(ctx, info.URLPath, info.Locale, pageModel, fetchOptions(ctx)...)
	if err != nil {
		requestctx.Logger(ctx).Error("page: content unavailable", zap.Error(err))
		h.views.Error(w, r, http.StatusBadGateway, info.Locale)
		return
	}

	switch render.Decide(content, info.IsLocaleValid, preview) {
	case render.OutcomeContent:
		if !preview {
			w.Header().Set("Cache-Control", pageCacheControl())
		}
		h.views.Content(w, r, content, info.Locale)
	default:
		h.views.NotFound(w, r, info.Locale)
	}
}

// SymbolPreview renders the shared "symbol" entry at its fixed path so editors
// can preview symbols in isolation. Unsupported locales are not found, as on
// the page route. Preview mode does not override a missing entry.
func (h *PageHandlers) SymbolPreview(w http.ResponseWriter, r *http.Request) {
	info := h.locales.ResolveParam(chi.URLParam(r, "locale"), []string{"symbol-preview"})
	r = h.withLocale(r, info)
	ctx := r.Context()

	if !info.IsLocaleValid {
		h.views.NotFound(w, r, info.Locale)
		return
	}
	content, err := h.content.Fetch(ctx, symbolPreviewPath, info.Locale, symbolModel, fetchOptions(ctx)...)
	if err != nil {
		requestctx.Logger(ctx).Error("symbol preview: content unavailable", zap.Error(err))
		h.views.Error(w, r, http.StatusBadGateway, info.Locale)
		return
	}
	if content == nil {
		h.views.NotFound(w, r, info.Locale)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	h.views.Content(w, r, content, info.Locale)
}

func (h *PageHandlers) withLocale(r *http.Request, info locale.Info) *http.Request {
	ctx := locale.WithInfo(r.Context(), info)
	logger := requestctx.Logger(ctx).With(
		zap.String("locale", info.Locale),
		zap.String("urlPath", info.URLPath),
		zap.Bool("localeValid", info.IsLocaleValid),
	)
	ctx = requestctx.WithLogger(ctx, logger)
	return r.WithContext(ctx)
}

// fetchOptions reads through the page cache. Editor frame requests only reuse
// entries younger than editingRevalidate, which bounds upstream load.
func fetchOptions(ctx context.Context) []cms.FetchOption {
	if requestctx.IsEditing(ctx) {
		return []cms.FetchOption{cms.WithRevalidate(editingRevalidate)}
	}
	return []cms.FetchOption{cms.WithFetchOptions(cms.CacheConfig(cms.CategoryPage))}
}

func pageCacheControl() string {
	return fmt.Sprintf("public, max-age=0, s-maxage=%d, stale-while-revalidate=60", cms.RevalidationTimeframes[cms.CategoryPage])
}

package handlers

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/webcitydotdev/woodwork-site-example/internal/cms"
	"github.com/webcitydotdev/woodwork-site-example/internal/locale"
	"github.com/webcitydotdev/woodwork-site-example/internal/platform/httpx"
	"github.com/webcitydotdev/woodwork-site-example/internal/platform/requestctx"
)

const maxListLimit = 100

var (
	modelNamePattern  = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)
	fieldPathPattern  = regexp.MustCompile(`^[A-Za-z0-9_.$-]{1,128}$`)
	fieldsListPattern = regexp.MustCompile(`^[A-Za-z0-9_.,-]{1,512}$`)
)

// ContentLister lists CMS entries of a model.
type ContentLister interface {
	List(ctx context.Context, model, locale string, opts cms.ListOptions) ([]*cms.Content, error)
}

// ContentAPIHandlers exposes CMS listings as JSON for client-side components.
type ContentAPIHandlers struct {
	content ContentLister
	locales *locale.Set
}

// NewContentAPIHandlers constructs ContentAPIHandlers.
func NewContentAPIHandlers(content ContentLister, locales *locale.Set) *ContentAPIHandlers {
	if locales == nil {
		locales = locale.Default()
	}
	return &ContentAPIHandlers{content: content, locales: locales}
}

// Routes registers the listing endpoint.
func (h *ContentAPIHandlers) Routes(r chi.Router) {
	r.Get("/content/{model}", h.ListContent)
}

type listResponse struct {
	Model   string         `json:"model"`
	Locale  string         `json:"locale"`
	Results []*cms.Content `json:"results"`
}

// ListContent handles GET /api/content/{model}.
func (h *ContentAPIHandlers) ListContent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	model := strings.TrimSpace(chi.URLParam(r, "model"))
	if !modelNamePattern.MatchString(model) {
		httpx.WriteError(ctx, w, httpx.Errorf(httpx.CodeInvalidModel, "model name is invalid"))
		return
	}

	opts, err := parseListOptions(r)
	if err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	loc := locale.Lang(ctx)
	if !h.locales.IsValid(loc) {
		loc = h.locales.Fallback()
	}

	items, listErr := h.content.List(ctx, model, loc, opts)
	if listErr != nil {
		requestctx.Logger(ctx).Error("content api: list failed", zap.String("model", model), zap.Error(listErr))
		httpx.WriteError(ctx, w, httpx.Errorf(httpx.CodeCMSUnavailable, "content service unavailable"))
		return
	}
	if items == nil {
		items = []*cms.Content{}
	}
	httpx.WriteJSON(w, http.StatusOK, listResponse{Model: model, Locale: loc, Results: items})
}

func parseListOptions(r *http.Request) (cms.ListOptions, error) {
	q := r.URL.Query()
	var opts cms.ListOptions

	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, httpx.Errorf(httpx.CodeInvalidQuery, "limit must be a non-negative integer")
		}
		opts.Limit = min(n, maxListLimit)
	}
	if v := strings.TrimSpace(q.Get("offset")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, httpx.Errorf(httpx.CodeInvalidQuery, "offset must be a non-negative integer")
		}
		opts.Offset = n
	}
	if v := strings.TrimSpace(q.Get("sort")); v != "" {
		if !fieldPathPattern.MatchString(v) {
			return opts, httpx.Errorf(httpx.CodeInvalidQuery, "sort field is invalid")
		}
		opts.SortBy = v
		switch strings.ToLower(strings.TrimSpace(q.Get("order"))) {
		case "", "asc", "1":
		case "desc", "-1":
			opts.Desc = true
		default:
			return opts, httpx.Errorf(httpx.CodeInvalidQuery, "order must be asc or desc")
		}
	}
	if v := strings.TrimSpace(q.Get("fields")); v != "" {
		if !fieldsListPattern.MatchString(v) {
			return opts, httpx.Errorf(httpx.CodeInvalidQuery, "fields is invalid")
		}
		opts.Fields = v
	}
	for key, values := range q {
		field, ok := strings.CutPrefix(key, "query.")
		if !ok || len(values) == 0 {
			continue
		}
		if !fieldPathPattern.MatchString(field) {
			return opts, httpx.Errorf(httpx.CodeInvalidQuery, "query field is invalid").OnField(field)
		}
		if opts.Query == nil {
			opts.Query = map[string]string{}
		}
		opts.Query[field] = values[0]
	}

	if noCache, _ := strconv.ParseBool(strings.TrimSpace(q.Get("noCache"))); noCache {
		opts.Options = append(opts.Options, cms.WithNoCache())
		return opts, nil
	}
	category := cms.CategoryPage
	if v := strings.TrimSpace(q.Get("category")); v != "" {
		c, ok := cms.ParseCategory(v)
		if !ok {
			return opts, httpx.Errorf(httpx.CodeInvalidQuery, "unknown category")
		}
		category = c
	}
	opts.Options = append(opts.Options, cms.WithFetchOptions(cms.CacheConfig(category)))
	return opts, nil
}

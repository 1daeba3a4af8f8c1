package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/webcitydotdev/woodwork-site-example/internal/locale"
	"github.com/webcitydotdev/woodwork-site-example/internal/platform/httpx"
	"github.com/webcitydotdev/woodwork-site-example/internal/platform/requestctx"
)

const maxRevalidateBody = 64 << 10

// CacheInvalidator drops cached CMS entries.
type CacheInvalidator interface {
	InvalidateTags(tags ...string) int
	InvalidateModel(model string) int
	InvalidateContent(model, urlPath, locale string) bool
}

// RevalidateHandlers lets the CMS webhook purge cached content.
type RevalidateHandlers struct {
	cache   CacheInvalidator
	token   string
	locales *locale.Set
}

// NewRevalidateHandlers constructs RevalidateHandlers. An empty token disables the endpoint.
func NewRevalidateHandlers(cache CacheInvalidator, token string, locales *locale.Set) *RevalidateHandlers {
	if locales == nil {
		locales = locale.Default()
	}
	return &RevalidateHandlers{cache: cache, token: strings.TrimSpace(token), locales: locales}
}

// Routes registers POST /revalidate.
func (h *RevalidateHandlers) Routes(r chi.Router) {
	r.Post("/revalidate", h.Revalidate)
}

type revalidateRequest struct {
	Tags    []string `json:"tags"`
	Model   string   `json:"model"`
	URLPath string   `json:"urlPath"`
	Locale  string   `json:"locale"`
}

type revalidateResponse struct {
	Revalidated bool `json:"revalidated"`
	Removed     int  `json:"removed"`
}

// Revalidate handles POST /api/revalidate.
func (h *RevalidateHandlers) Revalidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.token == "" {
		httpx.WriteError(ctx, w, httpx.Errorf(httpx.CodeRouteNotFound, "no route for %s", r.URL.Path))
		return
	}
	if !h.authorized(r) {
		w.Header().Set("WWW-Authenticate", `Bearer realm="revalidate"`)
		httpx.WriteError(ctx, w, httpx.Errorf(httpx.CodeUnauthenticated, "missing or invalid revalidation token"))
		return
	}

	var body revalidateRequest
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRevalidateBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		httpx.WriteError(ctx, w, httpx.Errorf(httpx.CodeInvalidBody, "request body must be valid JSON"))
		return
	}

	model := strings.TrimSpace(body.Model)
	urlPath := strings.TrimSpace(body.URLPath)
	var tags []string
	for _, tag := range body.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	switch {
	case len(tags) == 0 && model == "":
		httpx.WriteError(ctx, w, httpx.Errorf(httpx.CodeInvalidBody, "tags or model is required"))
		return
	case model != "" && !modelNamePattern.MatchString(model):
		httpx.WriteError(ctx, w, httpx.Errorf(httpx.CodeInvalidModel, "model name is invalid"))
		return
	case urlPath != "" && model == "":
		httpx.WriteError(ctx, w, httpx.Errorf(httpx.CodeInvalidBody, "urlPath requires model"))
		return
	}

	removed := 0
	if len(tags) > 0 {
		removed += h.cache.InvalidateTags(tags...)
	}
	switch {
	case model != "" && urlPath != "":
		loc := strings.TrimSpace(body.Locale)
		if loc == "" {
			loc = h.locales.Fallback()
		}
		if !h.locales.IsValid(loc) {
			httpx.WriteError(ctx, w, httpx.Errorf(httpx.CodeInvalidLocale, "locale is not supported"))
			return
		}
		if h.cache.InvalidateContent(model, urlPath, loc) {
			removed++
		}
	case model != "":
		removed += h.cache.InvalidateModel(model)
	}

	requestctx.Logger(ctx).Info("cms cache revalidated",
		zap.Strings("tags", tags),
		zap.String("model", model),
		zap.String("urlPath", urlPath),
		zap.Int("removed", removed),
	)
	httpx.WriteJSON(w, http.StatusOK, revalidateResponse{Revalidated: true, Removed: removed})
}

func (h *RevalidateHandlers) authorized(r *http.Request) bool {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(h.token)) == 1
}

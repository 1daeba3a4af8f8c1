package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/webcitydotdev/woodwork-site-example/internal/cms"
	"github.com/webcitydotdev/woodwork-site-example/internal/locale"
	"github.com/webcitydotdev/woodwork-site-example/internal/middleware"
)

type stubLister struct {
	model   string
	locale  string
	opts    cms.ListOptions
	results []*cms.Content
	err     error
}

func (s *stubLister) List(_ context.Context, model, loc string, opts cms.ListOptions) ([]*cms.Content, error) {
	s.model, s.locale, s.opts = model, loc, opts
	return s.results, s.err
}

type stubInvalidator struct {
	tags    []string
	model   string
	content []string
}

func (s *stubInvalidator) InvalidateTags(tags ...string) int {
	s.tags = append(s.tags, tags...)
	return len(tags)
}

func (s *stubInvalidator) InvalidateModel(model string) int {
	s.model = model
	return 3
}

func (s *stubInvalidator) InvalidateContent(model, urlPath, loc string) bool {
	s.content = []string{model, urlPath, loc}
	return true
}

func newAPIRouter(lister ContentLister, cache CacheInvalidator, token string) http.Handler {
	set := locale.NewSet("en", []string{"en", "de"})
	return NewRouter(
		WithMiddlewares(middleware.Locale(set)),
		WithAPIRoutes(NewContentAPIHandlers(lister, set).Routes),
		WithAPIRoutes(NewRevalidateHandlers(cache, token, set).Routes),
	)
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func TestListContent(t *testing.T) {
	t.Parallel()

	lister := &stubLister{results: []*cms.Content{mustContent(t, aboutDoc)}}
	router := newAPIRouter(lister, &stubInvalidator{}, "")

	req := httptest.NewRequest(http.MethodGet, "/api/content/testimonial?limit=500&offset=2&sort=data.rating&order=desc&fields=id,data&query.data.featured=true&category=DYNAMIC", nil)
	req.Header.Set("Accept-Language", "de-DE,de;q=0.9")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	payload := decodeJSON(t, rec)
	require.Equal(t, "testimonial", payload["model"])
	require.Equal(t, "de", payload["locale"])
	require.Len(t, payload["results"], 1)

	require.Equal(t, "testimonial", lister.model)
	require.Equal(t, "de", lister.locale)
	require.Equal(t, 100, lister.opts.Limit)
	require.Equal(t, 2, lister.opts.Offset)
	require.Equal(t, "data.rating", lister.opts.SortBy)
	require.True(t, lister.opts.Desc)
	require.Equal(t, "id,data", lister.opts.Fields)
	require.Equal(t, map[string]string{"data.featured": "true"}, lister.opts.Query)

	var applied cms.FetchOptions
	for _, opt := range lister.opts.Options {
		opt(&applied)
	}
	require.NotNil(t, applied.Revalidate)
	require.Equal(t, 0, *applied.Revalidate)
	require.False(t, applied.Directive(time.Minute).Reusable())
}

func TestListContentNoCache(t *testing.T) {
	t.Parallel()

	lister := &stubLister{}
	rec := httptest.NewRecorder()
	newAPIRouter(lister, &stubInvalidator{}, "").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/content/page?noCache=true&locale=en", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "en", lister.locale)
	var applied cms.FetchOptions
	for _, opt := range lister.opts.Options {
		opt(&applied)
	}
	require.True(t, applied.NoCache)
	require.Contains(t, rec.Body.String(), `"results":[]`)
}

func TestListContentValidation(t *testing.T) {
	t.Parallel()

	router := newAPIRouter(&stubLister{}, &stubInvalidator{}, "")
	cases := map[string]string{
		"/api/content/Bad$Model":           "invalid_model",
		"/api/content/page?limit=abc":      "invalid_query",
		"/api/content/page?offset=-1":      "invalid_query",
		"/api/content/page?sort=a&order=x": "invalid_query",
		"/api/content/page?category=WEEK":  "invalid_query",
		"/api/content/page?query.a%20b=1":  "invalid_query",
	}
	for target, code := range cases {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusBadRequest, rec.Code, target)
		require.Equal(t, code, decodeJSON(t, rec)["error"], target)
	}
}

func TestListContentNamesInvalidQueryField(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newAPIRouter(&stubLister{}, &stubInvalidator{}, "").
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/content/page?query.a%20b=1", nil))

	payload := decodeJSON(t, rec)
	require.Equal(t, "invalid_query", payload["error"])
	require.Equal(t, "a b", payload["field"])
	require.EqualValues(t, http.StatusBadRequest, payload["status"])
}

func TestListContentUpstreamError(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newAPIRouter(&stubLister{err: errors.New("down")}, &stubInvalidator{}, "").
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/content/page", nil))

	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Equal(t, "cms_unavailable", decodeJSON(t, rec)["error"])
}

func TestUnknownAPIRouteIsJSON(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newAPIRouter(&stubLister{}, &stubInvalidator{}, "").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "route_not_found", decodeJSON(t, rec)["error"])
}

func postRevalidate(h http.Handler, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/revalidate", strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRevalidateDisabledWithoutToken(t *testing.T) {
	t.Parallel()

	rec := postRevalidate(newAPIRouter(&stubLister{}, &stubInvalidator{}, ""), "anything", `{"tags":["a"]}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRevalidateRequiresToken(t *testing.T) {
	t.Parallel()

	router := newAPIRouter(&stubLister{}, &stubInvalidator{}, "s3cret")
	rec := postRevalidate(router, "", `{"tags":["a"]}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	rec = postRevalidate(router, "wrong", `{"tags":["a"]}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRevalidateDispatch(t *testing.T) {
	t.Parallel()

	cache := &stubInvalidator{}
	router := newAPIRouter(&stubLister{}, cache, "s3cret")

	rec := postRevalidate(router, "s3cret", `{"tags":[" home ",""]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"home"}, cache.tags)
	require.EqualValues(t, 1, decodeJSON(t, rec)["removed"])

	rec = postRevalidate(router, "s3cret", `{"model":"page"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "page", cache.model)
	require.EqualValues(t, 3, decodeJSON(t, rec)["removed"])

	rec = postRevalidate(router, "s3cret", `{"model":"page","urlPath":"/about","locale":"de"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"page", "/about", "de"}, cache.content)
	require.Equal(t, true, decodeJSON(t, rec)["revalidated"])

	rec = postRevalidate(router, "s3cret", `{"model":"page","urlPath":"/about"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"page", "/about", "en"}, cache.content)
}

func TestRevalidateRejectsBadBodies(t *testing.T) {
	t.Parallel()

	router := newAPIRouter(&stubLister{}, &stubInvalidator{}, "s3cret")
	for _, body := range []string{
		`{`,
		`{}`,
		`{"unknown":1}`,
		`{"urlPath":"/about"}`,
		`{"model":"Bad Model"}`,
		`{"model":"page","urlPath":"/about","locale":"fr"}`,
	} {
		rec := postRevalidate(router, "s3cret", body)
		require.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	now := start
	health := NewHealthHandlers(WithHealthClock(func() time.Time { return now }), WithHealthVersion("v1.2.3"))
	now = start.Add(90 * time.Second)

	rec := httptest.NewRecorder()
	NewRouter(WithHealthHandlers(health)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	payload := decodeJSON(t, rec)
	require.Equal(t, "ok", payload["status"])
	require.Equal(t, "1m30s", payload["uptime"])
	require.Equal(t, "v1.2.3", payload["version"])
}

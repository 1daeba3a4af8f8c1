package cms

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/webcitydotdev/woodwork-site-example/internal/platform/requestctx"
)

const aboutPage = `{"results":[{"id":"abc","name":"About","modelId":"m1","published":"published",
"data":{"title":"About us","url":"/about","blocks":[],"hero":"wood"}}]}`

type fakeBuilder struct {
	calls atomic.Int32
	last  atomic.Value
}

func newFakeBuilder(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*fakeBuilder, *httptest.Server) {
	t.Helper()
	fb := &fakeBuilder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fb.calls.Add(1)
		fb.last.Store(r.URL)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return fb, srv
}

func (fb *fakeBuilder) lastURL() *url.URL {
	u, _ := fb.last.Load().(*url.URL)
	return u
}

func newTestClient(t *testing.T, baseURL string, opts ...Option) *Client {
	t.Helper()
	c, err := NewClient(baseURL, "pub-key", opts...)
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := NewClient("https://cdn.builder.io", "  ")
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestFetchBuildsContentQuery(t *testing.T) {
	t.Parallel()

	fb, srv := newFakeBuilder(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(aboutPage))
	})
	client := newTestClient(t, srv.URL)

	content, err := client.Fetch(context.Background(), "/about", "en", "page")
	require.NoError(t, err)
	require.NotNil(t, content)
	require.Equal(t, "abc", content.ID)
	require.Equal(t, "About us", content.Title())
	require.Equal(t, "wood", content.Data.String("hero"))

	u := fb.lastURL()
	require.Equal(t, "/api/v3/content/page", u.Path)
	q := u.Query()
	require.Equal(t, "pub-key", q.Get("apiKey"))
	require.Equal(t, "/about", q.Get("userAttributes.urlPath"))
	require.Equal(t, "en", q.Get("userAttributes.locale"))
	require.Equal(t, "en", q.Get("locale"))
	require.Equal(t, "true", q.Get("includeRefs"))
	require.Equal(t, "1", q.Get("limit"))
	require.Empty(t, q.Get("cachebust"))
}

func TestFetchNotFoundReturnsNil(t *testing.T) {
	t.Parallel()

	t.Run("empty results", func(t *testing.T) {
		t.Parallel()
		_, srv := newFakeBuilder(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"results":[]}`))
		})
		content, err := newTestClient(t, srv.URL).Fetch(context.Background(), "/missing", "en", "page")
		require.NoError(t, err)
		require.Nil(t, content)
	})

	t.Run("404 status", func(t *testing.T) {
		t.Parallel()
		core, logs := observer.New(zapcore.DebugLevel)
		_, srv := newFakeBuilder(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "no such model", http.StatusNotFound)
		})
		client := newTestClient(t, srv.URL, WithLogger(zap.New(core)))
		content, err := client.Fetch(context.Background(), "/missing", "en", "page")
		require.NoError(t, err)
		require.Nil(t, content)
		require.Equal(t, 1, logs.FilterMessage("cms: content fetch failed").Len())
	})
}

func TestFetchPropagatesNetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	core, logs := observer.New(zapcore.DebugLevel)
	ctx := requestctx.WithLogger(context.Background(), zap.New(core))

	content, err := newTestClient(t, base).Fetch(ctx, "/about", "en", "page")
	require.Error(t, err)
	require.Nil(t, content)
	var urlErr *url.Error
	require.True(t, errors.As(err, &urlErr))
	require.NotContains(t, err.Error(), "pub-key")
	require.Equal(t, 1, logs.FilterMessage("cms: content fetch failed").FilterField(zap.String("locale", "en")).Len())
}

func TestFetchPropagatesUpstreamStatus(t *testing.T) {
	t.Parallel()

	_, srv := newFakeBuilder(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	})
	_, err := newTestClient(t, srv.URL).Fetch(context.Background(), "/about", "en", "page")

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusUnauthorized, statusErr.Status)
	require.Equal(t, "invalid api key", statusErr.Body)
	require.False(t, IsNotFound(err))
}

func TestFetchCacheDirectives(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		opts      []FetchOption
		wantCalls int32
	}{
		{name: "default ttl reuses", opts: nil, wantCalls: 1},
		{name: "page category reuses", opts: []FetchOption{WithFetchOptions(CacheConfig(CategoryPage))}, wantCalls: 1},
		{name: "dynamic category refetches", opts: []FetchOption{WithFetchOptions(CacheConfig(CategoryDynamic))}, wantCalls: 2},
		{name: "no cache refetches", opts: []FetchOption{WithNoCache(), WithRevalidate(600)}, wantCalls: 2},
		{name: "tags reuse", opts: []FetchOption{WithTags("home")}, wantCalls: 1},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			fb, srv := newFakeBuilder(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(aboutPage))
			})
			client := newTestClient(t, srv.URL)
			for i := 0; i < 2; i++ {
				content, err := client.Fetch(context.Background(), "about", "en", "page", tc.opts...)
				require.NoError(t, err)
				require.NotNil(t, content)
			}
			require.Equal(t, tc.wantCalls, fb.calls.Load())
		})
	}
}

func TestFetchNoCacheBustsUpstream(t *testing.T) {
	t.Parallel()

	fb, srv := newFakeBuilder(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(aboutPage))
	})
	client := newTestClient(t, srv.URL)

	_, err := client.Fetch(context.Background(), "/about", "en", "page", WithNoCache())
	require.NoError(t, err)
	q := fb.lastURL().Query()
	require.Equal(t, "true", q.Get("cachebust"))
	require.Equal(t, "true", q.Get("noCache"))
	require.Zero(t, client.entries.Len())
}

func TestFetchRevalidateExpires(t *testing.T) {
	t.Parallel()

	fb, srv := newFakeBuilder(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(aboutPage))
	})
	client := newTestClient(t, srv.URL)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	client.entries.now = func() time.Time { return now }

	fetch := func() {
		_, err := client.Fetch(context.Background(), "/about", "en", "page", WithRevalidate(30))
		require.NoError(t, err)
	}
	fetch()
	now = now.Add(29 * time.Second)
	fetch()
	require.EqualValues(t, 1, fb.calls.Load())
	now = now.Add(time.Second)
	fetch()
	require.EqualValues(t, 2, fb.calls.Load())
}

func TestFetchShortRevalidateRefreshesLongLivedEntry(t *testing.T) {
	t.Parallel()

	fb, srv := newFakeBuilder(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(aboutPage))
	})
	client := newTestClient(t, srv.URL)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	client.entries.now = func() time.Time { return now }

	fetch := func(opts ...FetchOption) {
		content, err := client.Fetch(context.Background(), "/about", "en", "page", opts...)
		require.NoError(t, err)
		require.NotNil(t, content)
	}
	fetch(WithFetchOptions(CacheConfig(CategoryPage)))
	now = now.Add(3 * time.Second)
	fetch(WithRevalidate(5))
	require.EqualValues(t, 1, fb.calls.Load())

	now = now.Add(3 * time.Second)
	fetch(WithRevalidate(5))
	require.EqualValues(t, 2, fb.calls.Load())
	fetch(WithRevalidate(5))
	fetch(WithFetchOptions(CacheConfig(CategoryPage)))
	require.EqualValues(t, 2, fb.calls.Load())
}

func TestFetchTagInvalidation(t *testing.T) {
	t.Parallel()

	fb, srv := newFakeBuilder(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(aboutPage))
	})
	client := newTestClient(t, srv.URL, WithDefaultTTL(0))

	_, err := client.Fetch(context.Background(), "/about", "en", "page", WithTags("about"))
	require.NoError(t, err)
	_, err = client.Fetch(context.Background(), "/about", "en", "page", WithTags("about"))
	require.NoError(t, err)
	require.EqualValues(t, 1, fb.calls.Load())

	require.Equal(t, 0, client.InvalidateTags("unrelated"))
	require.Equal(t, 1, client.InvalidateTags("about"))

	_, err = client.Fetch(context.Background(), "/about", "en", "page", WithTags("about"))
	require.NoError(t, err)
	require.EqualValues(t, 2, fb.calls.Load())

	require.True(t, client.InvalidateContent("page", "about", "en"))
	require.False(t, client.InvalidateContent("page", "about", "en"))
}

func TestFetchCachesMissingContent(t *testing.T) {
	t.Parallel()

	fb, srv := newFakeBuilder(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	})
	client := newTestClient(t, srv.URL)

	for i := 0; i < 2; i++ {
		content, err := client.Fetch(context.Background(), "/gone", "en", "page")
		require.NoError(t, err)
		require.Nil(t, content)
	}
	require.EqualValues(t, 1, fb.calls.Load())
	require.Equal(t, 1, client.InvalidateModel("page"))
}

func TestFetchExpiredEntriesDoNotAccumulate(t *testing.T) {
	t.Parallel()

	_, srv := newFakeBuilder(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("userAttributes.urlPath") == "/about" {
			_, _ = w.Write([]byte(aboutPage))
			return
		}
		_, _ = w.Write([]byte(`{"results":[]}`))
	})
	client := newTestClient(t, srv.URL)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	client.entries.now = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < 200; i++ {
		_, err := client.Fetch(ctx, fmt.Sprintf("/junk-%d", i), "en", "page", WithFetchOptions(CacheConfig(CategoryPage)))
		require.NoError(t, err)
	}
	require.Equal(t, 200, client.entries.Len())

	now = now.Add(48 * time.Hour)
	for i := 0; i < 10; i++ {
		_, err := client.Fetch(ctx, "/about", "en", "page", WithFetchOptions(CacheConfig(CategoryPage)))
		require.NoError(t, err)
	}
	require.Equal(t, 1, client.entries.Len())
}

func TestFetchMissingContentUsesShortTTL(t *testing.T) {
	t.Parallel()

	fb, srv := newFakeBuilder(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	})
	client := newTestClient(t, srv.URL, WithNotFoundTTL(10*time.Second))
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	client.entries.now = func() time.Time { return now }

	fetch := func() {
		content, err := client.Fetch(context.Background(), "/gone", "en", "page", WithFetchOptions(CacheConfig(CategoryPage)))
		require.NoError(t, err)
		require.Nil(t, content)
	}
	fetch()
	now = now.Add(9 * time.Second)
	fetch()
	require.EqualValues(t, 1, fb.calls.Load())
	now = now.Add(time.Second)
	fetch()
	require.EqualValues(t, 2, fb.calls.Load())
}

func TestFetchCacheIsBounded(t *testing.T) {
	t.Parallel()

	_, srv := newFakeBuilder(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(aboutPage))
	})
	client := newTestClient(t, srv.URL, WithCacheSize(50))

	for i := 0; i < 120; i++ {
		_, err := client.Fetch(context.Background(), fmt.Sprintf("/p-%d", i), "en", "page", WithFetchOptions(CacheConfig(CategoryPage)))
		require.NoError(t, err)
	}
	require.Equal(t, 50, client.entries.Len())
}

func TestListBuildsQuery(t *testing.T) {
	t.Parallel()

	fb, srv := newFakeBuilder(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"id":"1","data":{"title":"One"}},{"id":"2","data":{"title":"Two"}}]}`))
	})
	client := newTestClient(t, srv.URL)

	items, err := client.List(context.Background(), "blog", "en", ListOptions{
		Limit:  10,
		Offset: 20,
		SortBy: "data.date",
		Desc:   true,
		Fields: "id,data.title",
		Query:  map[string]string{"data.category": "news"},
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "Two", items[1].Title())

	q := fb.lastURL().Query()
	require.Equal(t, "10", q.Get("limit"))
	require.Equal(t, "20", q.Get("offset"))
	require.Equal(t, "-1", q.Get("sort.data.date"))
	require.Equal(t, "id,data.title", q.Get("fields"))
	require.Equal(t, "news", q.Get("query.data.category"))
	require.Equal(t, "en", q.Get("userAttributes.locale"))

	_, err = client.List(context.Background(), "blog", "en", ListOptions{
		Limit: 10, Offset: 20, SortBy: "data.date", Desc: true, Fields: "id,data.title",
		Query: map[string]string{"data.category": "news"},
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, fb.calls.Load())
}

func TestListEmptyAndNotFound(t *testing.T) {
	t.Parallel()

	_, srv := newFakeBuilder(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	items, err := newTestClient(t, srv.URL).List(context.Background(), "blog", "", ListOptions{})
	require.NoError(t, err)
	require.NotNil(t, items)
	require.Empty(t, items)
}

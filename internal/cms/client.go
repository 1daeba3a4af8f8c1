package cms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/webcitydotdev/woodwork-site-example/internal/locale"
	"github.com/webcitydotdev/woodwork-site-example/internal/platform/requestctx"
)

const (
	instrumentationName = "github.com/webcitydotdev/woodwork-site-example/internal/cms"

	defaultBaseURL     = "https://cdn.builder.io"
	defaultTimeout     = 5 * time.Second
	defaultTTL         = time.Minute
	defaultNotFoundTTL = 30 * time.Second
	defaultListEntries = 512
	maxErrorBody       = 512
)

var tracer = otel.Tracer(instrumentationName)

// Client reads published entries from the Builder content API.
type Client struct {
	baseURL    string
	apiKey     string
	http       *http.Client
	defaultTTL  time.Duration
	notFoundTTL time.Duration
	logger      *zap.Logger

	entries *Cache[*Content]
	lists   *Cache[[]*Content]

	latency metric.Float64Histogram
	hits    metric.Int64Counter
}

type clientConfig struct {
	http       *http.Client
	timeout    time.Duration
	defaultTTL  *time.Duration
	notFoundTTL time.Duration
	maxEntries  int
	logger      *zap.Logger
	meter       metric.Meter
}

// Option customises Client construction.
type Option func(*clientConfig)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *clientConfig) { cfg.http = c }
}

// WithTimeout bounds each upstream request.
func WithTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) { cfg.timeout = d }
}

// WithDefaultTTL sets the reuse window used when a fetch carries no directive.
// Zero disables default caching.
func WithDefaultTTL(d time.Duration) Option {
	return func(cfg *clientConfig) { cfg.defaultTTL = &d }
}

// WithNotFoundTTL caps how long a missing entry is remembered.
func WithNotFoundTTL(d time.Duration) Option {
	return func(cfg *clientConfig) { cfg.notFoundTTL = d }
}

// WithCacheSize bounds the number of cached entries.
func WithCacheSize(n int) Option {
	return func(cfg *clientConfig) { cfg.maxEntries = n }
}

// WithLogger sets the logger used when the request context carries none.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *clientConfig) { cfg.logger = logger }
}

// WithMeter injects an OpenTelemetry meter.
func WithMeter(m metric.Meter) Option {
	return func(cfg *clientConfig) { cfg.meter = m }
}

// NewClient constructs a Client. An empty apiKey is rejected.
func NewClient(baseURL, apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	cfg := clientConfig{timeout: defaultTimeout, notFoundTTL: defaultNotFoundTTL, maxEntries: defaultMaxEntries}
	for _, opt := range opts {
		opt(&cfg)
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.http
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.timeout}
	}
	ttl := defaultTTL
	if cfg.defaultTTL != nil {
		ttl = *cfg.defaultTTL
	}
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	meter := cfg.meter
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(instrumentationName)
	}

	listEntries := min(cfg.maxEntries, defaultListEntries)
	if cfg.maxEntries <= 0 {
		listEntries = defaultListEntries
	}
	c := &Client{
		baseURL:     baseURL,
		apiKey:      apiKey,
		http:        httpClient,
		defaultTTL:  ttl,
		notFoundTTL: cfg.notFoundTTL,
		logger:      logger,
		entries:     NewCache[*Content](WithMaxEntries(cfg.maxEntries)),
		lists:       NewCache[[]*Content](WithMaxEntries(listEntries)),
	}
	var err error
	if c.latency, err = meter.Float64Histogram("cms.fetch.latency",
		metric.WithUnit("ms"),
		metric.WithDescription("Latency in milliseconds for content API calls"),
	); err != nil {
		logger.Warn("cms: unable to register latency metric", zap.Error(err))
		c.latency = nil
	}
	if c.hits, err = meter.Int64Counter("cms.cache.hits",
		metric.WithDescription("Count of content reads served from the cache"),
	); err != nil {
		logger.Warn("cms: unable to register cache hit metric", zap.Error(err))
		c.hits = nil
	}
	return c, nil
}

// Fetch returns the entry of model targeted at (urlPath, locale), with
// referenced entries inlined. A missing entry yields (nil, nil); any other
// failure is logged and returned.
func (c *Client) Fetch(ctx context.Context, urlPath, loc, model string, opts ...FetchOption) (*Content, error) {
	var o FetchOptions
	for _, opt := range opts {
		opt(&o)
	}
	directive := o.Directive(c.defaultTTL)
	urlPath = normalizePath(urlPath)
	if strings.TrimSpace(loc) == "" {
		loc = locale.DefaultLocale
	}
	key := CacheKey(model, urlPath, loc)

	ctx, span := tracer.Start(ctx, "cms.fetch", trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(
		attribute.String("cms.model", model),
		attribute.String("cms.locale", loc),
		attribute.String("cms.path", urlPath),
		attribute.String("cms.cache", directive.String()),
	))
	defer span.End()

	if directive.Reusable() {
		if content, ok := c.lookup(key, directive); ok {
			c.recordHit(ctx, model)
			span.SetAttributes(attribute.Bool("cms.cache_hit", true))
			return content, nil
		}
	}

	query := url.Values{}
	query.Set("userAttributes.urlPath", urlPath)
	query.Set("userAttributes.locale", loc)
	query.Set("locale", loc)
	query.Set("includeRefs", "true")
	query.Set("limit", "1")
	if directive.Kind == DirectiveNoCache {
		query.Set("cachebust", "true")
		query.Set("noCache", "true")
	}

	results, err := c.get(ctx, model, query)
	if err != nil {
		logger := c.loggerFor(ctx).With(
			zap.String("model", model),
			zap.String("urlPath", urlPath),
			zap.String("locale", loc),
		)
		if IsNotFound(err) {
			logger.Warn("cms: content fetch failed", zap.Error(err))
			c.store(key, nil, directive, model)
			return nil, nil
		}
		logger.Error("cms: content fetch failed", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "content fetch failed")
		return nil, err
	}

	var content *Content
	if len(results) > 0 {
		content = results[0]
	}
	span.SetAttributes(attribute.Bool("cms.found", content != nil))
	c.store(key, content, directive, model)
	return content, nil
}

// ListOptions configures List.
type ListOptions struct {
	Limit   int
	Offset  int
	SortBy  string
	Desc    bool
	Fields  string
	Query   map[string]string
	Options []FetchOption
}

// List returns entries of model for the locale. No matches yields an empty
// slice and a nil error.
func (c *Client) List(ctx context.Context, model, loc string, opts ListOptions) ([]*Content, error) {
	var o FetchOptions
	for _, opt := range opts.Options {
		opt(&o)
	}
	directive := o.Directive(c.defaultTTL)
	if strings.TrimSpace(loc) == "" {
		loc = locale.DefaultLocale
	}

	query := url.Values{}
	query.Set("userAttributes.locale", loc)
	query.Set("locale", loc)
	query.Set("enrich", "true")
	query.Set("noTraverse", "true")
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		query.Set("offset", strconv.Itoa(opts.Offset))
	}
	if opts.Fields != "" {
		query.Set("fields", opts.Fields)
	}
	if opts.SortBy != "" {
		dir := "1"
		if opts.Desc {
			dir = "-1"
		}
		query.Set("sort."+opts.SortBy, dir)
	}
	filterKeys := make([]string, 0, len(opts.Query))
	for k := range opts.Query {
		filterKeys = append(filterKeys, k)
	}
	sort.Strings(filterKeys)
	for _, k := range filterKeys {
		query.Set("query."+k, opts.Query[k])
	}
	key := strings.Join([]string{model, loc, "list", query.Encode()}, "|")
	if directive.Kind == DirectiveNoCache {
		query.Set("cachebust", "true")
		query.Set("noCache", "true")
	}

	ctx, span := tracer.Start(ctx, "cms.list", trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(
		attribute.String("cms.model", model),
		attribute.String("cms.locale", loc),
		attribute.String("cms.cache", directive.String()),
	))
	defer span.End()

	if directive.Reusable() {
		if items, ok := c.lists.Get(key); ok {
			c.recordHit(ctx, model)
			return items, nil
		}
	}

	items, err := c.get(ctx, model, query)
	if err != nil {
		if IsNotFound(err) {
			return []*Content{}, nil
		}
		c.loggerFor(ctx).Error("cms: content list failed",
			zap.String("model", model),
			zap.String("locale", loc),
			zap.Error(err),
		)
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "content list failed")
		return nil, err
	}
	if items == nil {
		items = []*Content{}
	}
	if directive.Reusable() {
		c.lists.Set(key, items, directive.expiry(), directive.tagsFor(model)...)
	}
	return items, nil
}

// InvalidateTags drops every cached entry and list carrying any of the tags.
func (c *Client) InvalidateTags(tags ...string) int {
	return c.entries.InvalidateTags(tags...) + c.lists.InvalidateTags(tags...)
}

// InvalidateModel drops everything cached for model.
func (c *Client) InvalidateModel(model string) int {
	return c.InvalidateTags(ModelTag(model))
}

// InvalidateContent drops the single entry cached for (model, urlPath, locale).
func (c *Client) InvalidateContent(model, urlPath, loc string) bool {
	return c.entries.Invalidate(CacheKey(model, normalizePath(urlPath), loc))
}

func (c *Client) get(ctx context.Context, model string, query url.Values) ([]*Content, error) {
	start := time.Now()
	status := "error"
	defer func() {
		if c.latency != nil {
			c.latency.Record(ctx, float64(time.Since(start))/float64(time.Millisecond),
				metric.WithAttributes(attribute.String("model", model), attribute.String("status", status)))
		}
	}()

	endpoint, err := url.JoinPath(c.baseURL, "api", "v3", "content", model)
	if err != nil {
		return nil, err
	}
	query.Set("apiKey", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cms: %s request: %w", model, redactKey(err, c.apiKey))
	}
	defer resp.Body.Close()
	status = strconv.Itoa(resp.StatusCode)
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &StatusError{Status: resp.StatusCode, Model: model, Body: drainError(resp.Body)}
	}

	var payload struct {
		Results []*Content `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("cms: decode %s response: %w", model, err)
	}
	return payload.Results, nil
}

// lookup honours a revalidate window shorter than the stored entry's own TTL.
func (c *Client) lookup(key string, d Directive) (*Content, bool) {
	if d.Kind == DirectiveRevalidate {
		return c.entries.GetFresh(key, d.TTL)
	}
	return c.entries.Get(key)
}

func (c *Client) store(key string, content *Content, d Directive, model string) {
	if !d.Reusable() {
		return
	}
	ttl := d.expiry()
	if content == nil && c.notFoundTTL > 0 && (ttl == 0 || ttl > c.notFoundTTL) {
		ttl = c.notFoundTTL
	}
	c.entries.Set(key, content, ttl, d.tagsFor(model)...)
}

func (c *Client) recordHit(ctx context.Context, model string) {
	if c.hits != nil {
		c.hits.Add(ctx, 1, metric.WithAttributes(attribute.String("model", model)))
	}
}

func (c *Client) loggerFor(ctx context.Context) *zap.Logger {
	if logger := requestctx.Logger(ctx); logger != requestctx.NoopLogger() {
		return logger
	}
	return c.logger
}

func (d Directive) expiry() time.Duration {
	if d.Kind == DirectiveTags {
		return 0
	}
	return d.TTL
}

func (d Directive) tagsFor(model string) []string {
	return append([]string{ModelTag(model)}, d.Tags...)
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// redactKey keeps the api key out of logged url errors.
func redactKey(err error, key string) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && key != "" {
		urlErr.URL = strings.ReplaceAll(urlErr.URL, key, "REDACTED")
	}
	return err
}

func drainError(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return strings.TrimSpace(string(data))
}

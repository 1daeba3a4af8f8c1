package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/webcitydotdev/woodwork-site-example/internal/platform/httpx"
)

// RouteRegistrar registers a set of routes against the provided router.
type RouteRegistrar func(r chi.Router)

type routerConfig struct {
	middlewares []func(http.Handler) http.Handler
	health      *HealthHandlers
	assets      http.Handler

	api   []RouteRegistrar
	pages RouteRegistrar
}

// Option customises the router configuration before construction.
type Option func(*routerConfig)

const (
	apiPrefix      = "/api"
	defaultTimeout = 30 * time.Second
)

// NewRouter constructs the chi router with shared middleware. Page routes are
// mounted last so the catch-all never shadows /api, /assets or /healthz.
func NewRouter(opts ...Option) chi.Router {
	cfg := routerConfig{
		middlewares: []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Timeout(defaultTimeout),
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.health == nil {
		cfg.health = NewHealthHandlers()
	}

	r := chi.NewRouter()
	for _, mw := range cfg.middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.Get("/healthz", cfg.health.Healthz)
	if cfg.assets != nil {
		r.Handle("/assets/*", http.StripPrefix("/assets", cfg.assets))
	}

	r.Route(apiPrefix, func(api chi.Router) {
		api.NotFound(func(w http.ResponseWriter, req *http.Request) {
			httpx.WriteError(req.Context(), w, httpx.Errorf(httpx.CodeRouteNotFound, "no route for %s", req.URL.Path))
		})
		api.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
			httpx.WriteError(req.Context(), w, httpx.Errorf(httpx.CodeMethodNotAllowed, "method %s not allowed on %s", req.Method, req.URL.Path))
		})
		for _, reg := range cfg.api {
			if reg != nil {
				reg(api)
			}
		}
	})

	if cfg.pages != nil {
		cfg.pages(r)
	}
	return r
}

// WithMiddlewares appends additional global middleware to the router.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithHealthHandlers overrides the handlers used for /healthz.
func WithHealthHandlers(h *HealthHandlers) Option {
	return func(cfg *routerConfig) {
		cfg.health = h
	}
}

// WithAssets serves static files under /assets/.
func WithAssets(h http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.assets = h
	}
}

// WithAPIRoutes adds a registrar mounted under /api.
func WithAPIRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.api = append(cfg.api, reg)
	}
}

// WithPageRoutes configures the registrar for the HTML pages.
func WithPageRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.pages = reg
	}
}

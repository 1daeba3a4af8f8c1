package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/webcitydotdev/woodwork-site-example/internal/cms"
	"github.com/webcitydotdev/woodwork-site-example/internal/handlers"
	"github.com/webcitydotdev/woodwork-site-example/internal/locale"
	mw "github.com/webcitydotdev/woodwork-site-example/internal/middleware"
	"github.com/webcitydotdev/woodwork-site-example/internal/platform/config"
	"github.com/webcitydotdev/woodwork-site-example/internal/platform/observability"
	"github.com/webcitydotdev/woodwork-site-example/internal/platform/secrets"
	"github.com/webcitydotdev/woodwork-site-example/internal/render"
)

const siteName = "Woodwork"

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "web: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	level, _ := config.Lookup("LOG_LEVEL")
	baseLogger, err := observability.NewLogger(level)
	if err != nil {
		return fmt.Errorf("initialise logger: %w", err)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("web")
	ctx = observability.WithLogger(ctx, logger)

	fetcher, err := newSecretFetcher(ctx, logger)
	if err != nil {
		return fmt.Errorf("initialise secret fetcher: %w", err)
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx, config.WithSecretResolver(fetcher))
	if err != nil {
		var vErr *config.ValidationError
		if errors.As(err, &vErr) {
			logger.Error("invalid configuration", zap.Strings("fields", vErr.Fields()))
		}
		return fmt.Errorf("load configuration: %w", err)
	}

	locales := locale.NewSet(cfg.Locales.Default, cfg.Locales.Supported)

	client, err := cms.NewClient(cfg.CMS.BaseURL, cfg.CMS.PublicAPIKey,
		cms.WithTimeout(cfg.CMS.Timeout),
		cms.WithDefaultTTL(cfg.CMS.DefaultTTL),
		cms.WithLogger(logger.Named("cms")),
	)
	if err != nil {
		return fmt.Errorf("initialise cms client: %w", err)
	}

	views, err := render.New(render.Options{
		SiteName:     siteName,
		BaseURL:      cfg.Site.BaseURL,
		Locales:      locales,
		ContentDir:   cfg.Site.ContentDir,
		TemplatesDir: filepath.Join("internal", "render", "templates"),
		Dev:          cfg.Site.DevMode,
	})
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}

	router := newRouter(routerDeps{
		logger:          logger,
		projectID:       cfg.GCP.ProjectID,
		locales:         locales,
		content:         client,
		views:           views,
		publicDir:       cfg.Site.PublicDir,
		revalidateToken: cfg.CMS.RevalidateToken,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("web listening",
			zap.String("addr", srv.Addr),
			zap.String("environment", cfg.Server.Environment),
			zap.Strings("locales", locales.Codes()),
			zap.Bool("devMode", cfg.Site.DevMode),
			zap.String("version", version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger) (*secrets.Fetcher, error) {
	projectID, _ := config.Lookup("WEB_GCP_PROJECT_ID")
	fallback, _ := config.Lookup("WEB_SECRETS_FALLBACK_FILE")

	opts := []secrets.Option{
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithProject(projectID),
	}
	if strings.TrimSpace(fallback) != "" {
		opts = append(opts, secrets.WithFallbackFile(fallback))
	}
	if strings.TrimSpace(projectID) == "" {
		opts = append(opts, secrets.WithoutRemote())
	}
	return secrets.NewFetcher(ctx, opts...)
}

type routerDeps struct {
	logger          *zap.Logger
	projectID       string
	locales         *locale.Set
	content         *cms.Client
	views           *render.Renderer
	publicDir       string
	revalidateToken string
}

func newRouter(deps routerDeps) chi.Router {
	pages := handlers.NewPageHandlers(deps.content, deps.views, deps.locales)
	contentAPI := handlers.NewContentAPIHandlers(deps.content, deps.locales)
	revalidate := handlers.NewRevalidateHandlers(deps.content, deps.revalidateToken, deps.locales)

	return handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.TraceMiddleware(deps.projectID),
			observability.InjectLoggerMiddleware(deps.logger),
			observability.RequestLoggerMiddleware(deps.projectID),
			observability.RecoveryMiddleware(deps.logger),
			chimw.Compress(5),
			mw.Preview,
			mw.VaryLocale,
			mw.Locale(deps.locales),
		),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(handlers.WithHealthVersion(version))),
		handlers.WithAssets(mw.AssetsWithCache(filepath.Join(deps.publicDir, "assets"))),
		handlers.WithAPIRoutes(contentAPI.Routes),
		handlers.WithAPIRoutes(revalidate.Routes),
		handlers.WithPageRoutes(pages.Routes),
	)
}

package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile         = ".env"
	defaultPort            = "8080"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 15 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultEnvironment     = "local"
	defaultCMSBaseURL      = "https://cdn.builder.io"
	defaultCMSTimeout      = 5 * time.Second
	defaultCMSTTL          = 60 * time.Second
	defaultLocale          = "en"
	defaultContentDir      = "content"
	defaultPublicDir       = "public"
	defaultSecretsFallback = ".secrets.local"
	defaultLogLevel        = "info"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server  ServerConfig
	CMS     CMSConfig
	Locales LocaleConfig
	Site    SiteConfig
	GCP     GCPConfig
	Log     LogConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	Environment     string
}

// CMSConfig holds the content API connection settings.
type CMSConfig struct {
	PublicAPIKey    string
	BaseURL         string
	Timeout         time.Duration
	DefaultTTL      time.Duration
	RevalidateToken string
}

// LocaleConfig lists the locales content is published in.
type LocaleConfig struct {
	Supported []string
	Default   string
}

// SiteConfig points at on-disk assets.
type SiteConfig struct {
	BaseURL    string
	ContentDir string
	PublicDir  string
	DevMode    bool
}

// GCPConfig identifies the Google Cloud project used for tracing and secrets.
type GCPConfig struct {
	ProjectID           string
	SecretsFallbackFile string
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SecretError) Unwrap() error { return e.Err }

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
	secret       SecretResolver
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map; values take precedence over the system environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver sets the resolver used for secret:// and sm:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

func newLoaderOptions(opts []Option) loaderOptions {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// Lookup returns a single value using the same precedence as Load
// (explicit map > OS env > .env file). Callers use it to bootstrap
// dependencies, such as the secret fetcher, before calling Load.
func Lookup(key string, opts ...Option) (string, error) {
	options := newLoaderOptions(opts)
	dotEnv, err := loadDotEnv(options.envFile)
	if err != nil {
		return "", err
	}
	v, _ := options.lookup(dotEnv)(key)
	return v, nil
}

func (o loaderOptions) lookup(dotEnv map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if o.envMap != nil {
			if value, ok := o.envMap[key]; ok {
				return value, true
			}
		}
		if o.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnv != nil {
			if value, ok := dotEnv[key]; ok {
				return value, true
			}
		}
		return "", false
	}
}

// Load assembles the site configuration from defaults, .env overrides,
// environment variables and optional secret manager lookups.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := newLoaderOptions(opts)

	dotEnv, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}
	lookup := options.lookup(dotEnv)

	port := stringWithDefault(lookup, "WEB_SERVER_PORT", "")
	if port == "" {
		port = stringWithDefault(lookup, "PORT", defaultPort)
	}

	cfg := Config{
		Server: ServerConfig{
			Port:            port,
			ReadTimeout:     durationWithDefault(lookup, "WEB_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:    durationWithDefault(lookup, "WEB_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:     durationWithDefault(lookup, "WEB_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			ShutdownTimeout: durationWithDefault(lookup, "WEB_SERVER_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
			Environment:     strings.ToLower(stringWithDefault(lookup, "WEB_ENVIRONMENT", defaultEnvironment)),
		},
		CMS: CMSConfig{
			PublicAPIKey:    strings.TrimSpace(stringWithDefault(lookup, "WEB_CMS_PUBLIC_API_KEY", "")),
			BaseURL:         strings.TrimRight(stringWithDefault(lookup, "WEB_CMS_BASE_URL", defaultCMSBaseURL), "/"),
			Timeout:         durationWithDefault(lookup, "WEB_CMS_TIMEOUT", defaultCMSTimeout),
			DefaultTTL:      durationWithDefault(lookup, "WEB_CMS_DEFAULT_TTL", defaultCMSTTL),
			RevalidateToken: strings.TrimSpace(stringWithDefault(lookup, "WEB_REVALIDATE_TOKEN", "")),
		},
		Locales: LocaleConfig{
			Supported: lowerAll(csvWithDefault(lookup, "WEB_LOCALES", []string{defaultLocale})),
			Default:   strings.ToLower(stringWithDefault(lookup, "WEB_DEFAULT_LOCALE", defaultLocale)),
		},
		Site: SiteConfig{
			BaseURL:    strings.TrimRight(stringWithDefault(lookup, "WEB_SITE_BASE_URL", ""), "/"),
			ContentDir: stringWithDefault(lookup, "WEB_CONTENT_DIR", defaultContentDir),
			PublicDir:  stringWithDefault(lookup, "WEB_PUBLIC_DIR", defaultPublicDir),
			DevMode:    boolWithDefault(lookup, "WEB_DEV", false),
		},
		GCP: GCPConfig{
			ProjectID:           stringWithDefault(lookup, "WEB_GCP_PROJECT_ID", ""),
			SecretsFallbackFile: stringWithDefault(lookup, "WEB_SECRETS_FALLBACK_FILE", defaultSecretsFallback),
		},
		Log: LogConfig{
			Level: stringWithDefault(lookup, "LOG_LEVEL", defaultLogLevel),
		},
	}

	secretFields := []*string{&cfg.CMS.PublicAPIKey, &cfg.CMS.RevalidateToken}
	for _, field := range secretFields {
		resolved, err := resolveSecret(ctx, *field, options.secret)
		if err != nil {
			return Config{}, err
		}
		*field = strings.TrimSpace(resolved)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if value == "" || !isSecretReference(value) {
		return value, nil
	}
	normalized := normalizeSecretReference(value)
	if resolver == nil {
		return "", &SecretError{Ref: normalized, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, normalized)
	if err != nil {
		return "", &SecretError{Ref: normalized, Err: err}
	}
	return secret, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.CMS.PublicAPIKey == "" {
		missing = append(missing, "CMS.PublicAPIKey")
	}
	if u, err := url.Parse(cfg.CMS.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		missing = append(missing, "CMS.BaseURL")
	}
	if cfg.CMS.Timeout <= 0 {
		missing = append(missing, "CMS.Timeout")
	}
	if cfg.CMS.DefaultTTL < 0 {
		missing = append(missing, "CMS.DefaultTTL")
	}
	if cfg.Site.BaseURL != "" {
		if u, err := url.Parse(cfg.Site.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			missing = append(missing, "Site.BaseURL")
		}
	}
	if len(cfg.Locales.Supported) == 0 {
		missing = append(missing, "Locales.Supported")
	}
	if !contains(cfg.Locales.Supported, cfg.Locales.Default) {
		missing = append(missing, "Locales.Default")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func isSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

func normalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "sm://") {
		return "secret://" + strings.TrimPrefix(trimmed, "sm://")
	}
	return trimmed
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		// bare integers are seconds
		if n, err := strconv.Atoi(value); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string, fallback []string) []string {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return append([]string(nil), fallback...)
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func lowerAll(values []string) []string {
	for i, v := range values {
		values[i] = strings.ToLower(v)
	}
	return values
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

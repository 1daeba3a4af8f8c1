package locale

import "context"

type ctxKey struct{}

// WithInfo stores the resolved locale on the request context.
func WithInfo(ctx context.Context, info Info) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey{}, info)
}

// FromContext returns the resolved locale, if any.
func FromContext(ctx context.Context) (Info, bool) {
	if ctx == nil {
		return Info{}, false
	}
	info, ok := ctx.Value(ctxKey{}).(Info)
	return info, ok
}

// Lang returns the current locale code, defaulting to DefaultLocale.
func Lang(ctx context.Context) string {
	if info, ok := FromContext(ctx); ok && info.Locale != "" {
		return info.Locale
	}
	return DefaultLocale
}

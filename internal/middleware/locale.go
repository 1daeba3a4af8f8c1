package middleware

import (
	"net/http"
	"strings"

	"github.com/webcitydotdev/woodwork-site-example/internal/locale"
)

// VaryLocale sets Vary header for Accept-Language on dynamic responses
func VaryLocale(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Accept-Language")
		next.ServeHTTP(w, r)
	})
}

// Locale stores a preferred locale on the context for routes without a locale
// segment: ?locale= when it is a member, otherwise Accept-Language negotiation.
// Page handlers replace it with the path-derived locale.
func Locale(set *locale.Set) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			code := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("locale")))
			if !set.IsValid(code) {
				code = set.Negotiate(r.Header.Get("Accept-Language"))
			}
			ctx := locale.WithInfo(r.Context(), locale.Info{
				Locale:        code,
				URLPath:       "/" + strings.Join(locale.Segments(r.URL.Path), "/"),
				IsLocaleValid: true,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

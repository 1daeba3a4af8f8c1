package middleware

import (
	"net/http"
	"strings"

	"github.com/webcitydotdev/woodwork-site-example/internal/platform/requestctx"
)

const (
	previewParam      = "builder.preview"
	frameEditingParam = "builder.frameEditing"
	editingParam      = "__builder_editing__"
)

// Preview marks editor requests on the context and disables shared caching for
// them. Requests from inside the editor frame are also marked as editing.
func Preview(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		editing := isEditingRequest(r)
		if editing || isPreviewRequest(r) {
			w.Header().Set("Cache-Control", "no-store")
			ctx := requestctx.WithPreview(r.Context(), true)
			r = r.WithContext(requestctx.WithEditing(ctx, editing))
		}
		next.ServeHTTP(w, r)
	})
}

func isPreviewRequest(r *http.Request) bool {
	return strings.TrimSpace(r.URL.Query().Get(previewParam)) != ""
}

func isEditingRequest(r *http.Request) bool {
	q := r.URL.Query()
	return strings.TrimSpace(q.Get(frameEditingParam)) != "" || strings.EqualFold(q.Get(editingParam), "true")
}

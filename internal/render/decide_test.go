package render

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/webcitydotdev/woodwork-site-example/internal/cms"
)

func TestDecide(t *testing.T) {
	t.Parallel()

	doc := &cms.Content{ID: "abc"}
	tests := []struct {
		name    string
		content *cms.Content
		valid   bool
		preview bool
		want    Outcome
	}{
		{name: "missing content", content: nil, valid: true, preview: false, want: OutcomeNotFound},
		{name: "preview without content", content: nil, valid: true, preview: true, want: OutcomeContent},
		{name: "content", content: doc, valid: true, preview: false, want: OutcomeContent},
		{name: "invalid locale", content: doc, valid: false, preview: false, want: OutcomeNotFound},
		{name: "invalid locale in preview", content: doc, valid: false, preview: true, want: OutcomeNotFound},
		{name: "invalid locale without content", content: nil, valid: false, preview: true, want: OutcomeNotFound},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, Decide(tc.content, tc.valid, tc.preview), tc.name)
	}
	require.Equal(t, "content", OutcomeContent.String())
	require.Equal(t, "not_found", OutcomeNotFound.String())
}

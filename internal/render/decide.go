package render

import "github.com/webcitydotdev/woodwork-site-example/internal/cms"

// Outcome is the view chosen for a request.
type Outcome int

const (
	OutcomeNotFound Outcome = iota
	OutcomeContent
)

func (o Outcome) String() string {
	if o == OutcomeContent {
		return "content"
	}
	return "not_found"
}

// Decide picks the view. An unrecognised locale always yields not-found;
// otherwise content is shown when present, or when an editor is previewing a
// page that has no published content yet.
func Decide(content *cms.Content, isLocaleValid, preview bool) Outcome {
	if !isLocaleValid {
		return OutcomeNotFound
	}
	if content != nil || preview {
		return OutcomeContent
	}
	return OutcomeNotFound
}

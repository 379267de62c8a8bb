package parser

import (
	"strings"

	"github.com/examapp/qbank/models"
)

const imageMarker = "<img"

// HasImage reports whether content carries an image element. Images are
// rejected because the storage target is text-only.
func HasImage(content string) bool {
	return strings.Contains(strings.ToLower(content), imageMarker)
}

// Valid reports whether a record is complete enough to emit: it must have an
// answer, choice types must have at least one option, and neither stem nor
// options may contain images. A judgment answer outside 对/错 passes through;
// consumers see the verbatim token.
func Valid(r *models.QuestionRecord) bool {
	if !r.HasAnswer() {
		return false
	}
	if r.IsChoice() && r.Options.Len() == 0 {
		return false
	}
	if HasImage(r.Question) {
		return false
	}
	if r.Options != nil {
		for _, key := range r.Options.Keys() {
			if value, ok := r.Options.Get(key); ok && HasImage(value) {
				return false
			}
		}
	}
	return true
}

// Validate filters a set down to its valid records, preserving discovery
// order within each type bucket.
func Validate(in *models.QuestionSet) *models.QuestionSet {
	out := models.NewQuestionSet()
	for _, r := range in.All() {
		if Valid(r) {
			out.Add(r)
		}
	}
	return out
}

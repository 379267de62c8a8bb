// Package export serializes extracted question records. The extractors emit
// in-memory records only; everything file-shaped lives here.
package export

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/examapp/qbank/models"
	"github.com/examapp/qbank/utils"
)

// WriteJSON writes a question set as pretty-printed JSON. HTML content in
// stems and options is written as-is, not entity-escaped.
func WriteJSON(set *models.QuestionSet, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(set); err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	utils.LogExport("Wrote %d questions to %s", set.Total(), path)
	return nil
}

// ReadJSON loads a question set previously written by WriteJSON.
func ReadJSON(path string) (*models.QuestionSet, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var set models.QuestionSet
	if err := json.Unmarshal(b, &set); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &set, nil
}

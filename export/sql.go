package export

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/examapp/qbank/models"
	"github.com/examapp/qbank/utils"
)

func sqlEscape(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}

// InsertStatement renders one record as an INSERT into the questions table.
// Options become a JSON object literal, or NULL for judgment records.
func InsertStatement(r *models.QuestionRecord, categoryBig, categorySmall string) (string, error) {
	optionsSQL := "NULL"
	if r.Options.Len() > 0 {
		b, err := json.Marshal(r.Options)
		if err != nil {
			return "", fmt.Errorf("marshal options: %w", err)
		}
		optionsSQL = "'" + sqlEscape(string(b)) + "'"
	}
	return fmt.Sprintf(
		"INSERT INTO questions (type, question, options, answer, category_big, category_small) "+
			"VALUES ('%s', '%s', %s, '%s', '%s', '%s');",
		r.Type, sqlEscape(r.Question), optionsSQL, sqlEscape(r.Answer),
		sqlEscape(categoryBig), sqlEscape(categorySmall),
	), nil
}

// WriteSQL writes the whole set as INSERT statements, one per line, with a
// short provenance header.
func WriteSQL(set *models.QuestionSet, path, source, categoryBig, categorySmall string) error {
	var b strings.Builder
	b.WriteString("-- Generated by qbank\n")
	fmt.Fprintf(&b, "-- Category: %s/%s\n", categoryBig, categorySmall)
	fmt.Fprintf(&b, "-- Source: %s\n", source)
	for _, r := range set.All() {
		stmt, err := InsertStatement(r, categoryBig, categorySmall)
		if err != nil {
			return err
		}
		b.WriteString(stmt)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	utils.LogExport("Wrote %d INSERT statements to %s", set.Total(), path)
	return nil
}

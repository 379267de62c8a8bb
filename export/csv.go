package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/examapp/qbank/models"
	"github.com/examapp/qbank/utils"
)

var csvHeader = []string{"id", "type", "question", "options", "answer", "category_big", "category_small"}

// WriteCSV exports stored question rows as CSV in bank order.
func WriteCSV(questions []models.Question, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, q := range questions {
		row := []string{
			strconv.Itoa(q.ID),
			q.Type,
			q.Question,
			q.Options,
			q.Answer,
			q.CategoryBig,
			q.CategorySmall,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", q.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	utils.LogExport("Exported %d rows to %s", len(questions), path)
	return nil
}

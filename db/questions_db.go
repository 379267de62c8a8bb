package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/examapp/qbank/models"
	"github.com/examapp/qbank/utils"
)

// ImportQuestions stores a validated question set as one batch. Records the
// extractors should already have rejected are skipped here too and reported
// in the result instead of failing the batch.
func (db *DB) ImportQuestions(set *models.QuestionSet, source, categoryBig, categorySmall string) (*models.ImportResult, error) {
	batchID := uuid.NewString()
	utils.LogImport("Importing %d questions (batch %s, source %s)", set.Total(), batchID, source)
	start := time.Now()

	result := &models.ImportResult{
		BatchID:        batchID,
		TotalQuestions: set.Total(),
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO questions (type, question, options, answer, category_big, category_small, batch_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range set.All() {
		if !r.HasAnswer() || (r.IsChoice() && r.Options.Len() == 0) {
			result.SkippedQuestions++
			result.Errors = append(result.Errors, fmt.Sprintf("record %d: incomplete, skipped", r.ID))
			continue
		}

		var optionsJSON sql.NullString
		if r.Options.Len() > 0 {
			b, err := json.Marshal(r.Options)
			if err != nil {
				result.SkippedQuestions++
				result.Errors = append(result.Errors, fmt.Sprintf("record %d: options marshal failed: %v", r.ID, err))
				continue
			}
			optionsJSON = sql.NullString{String: string(b), Valid: true}
		}

		if _, err := stmt.Exec(string(r.Type), r.Question, optionsJSON, r.Answer, categoryBig, categorySmall, batchID); err != nil {
			result.SkippedQuestions++
			result.Errors = append(result.Errors, fmt.Sprintf("record %d: insert failed: %v", r.ID, err))
			continue
		}
		result.ImportedQuestions++
	}

	if _, err := tx.Exec(`
		INSERT INTO import_batches (id, source, total, imported, skipped)
		VALUES (?, ?, ?, ?, ?)
	`, batchID, source, result.TotalQuestions, result.ImportedQuestions, result.SkippedQuestions); err != nil {
		return nil, fmt.Errorf("record batch: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}

	result.TimeTaken = time.Since(start).String()
	utils.LogImport("Import completed: %d imported, %d skipped in %s",
		result.ImportedQuestions, result.SkippedQuestions, result.TimeTaken)
	return result, nil
}

const questionColumns = "id, type, question, options, answer, category_big, category_small, batch_id, created_at"

func scanQuestion(scan func(dest ...interface{}) error) (*models.Question, error) {
	var q models.Question
	var options, batchID sql.NullString
	if err := scan(&q.ID, &q.Type, &q.Question, &options, &q.Answer,
		&q.CategoryBig, &q.CategorySmall, &batchID, &q.CreatedAt); err != nil {
		return nil, err
	}
	q.Options = options.String
	q.BatchID = batchID.String
	return &q, nil
}

func (db *DB) GetAllQuestions() ([]models.Question, error) {
	utils.LogDB("Fetching all questions")
	start := time.Now()

	rows, err := db.Query("SELECT " + questionColumns + " FROM questions ORDER BY id")
	if err != nil {
		utils.LogError("GetAllQuestions query failed: %v", err)
		return nil, err
	}
	defer rows.Close()

	questions, err := collectQuestions(rows)
	if err != nil {
		return nil, err
	}
	utils.LogDB("GetAllQuestions completed: %d questions in %v", len(questions), time.Since(start))
	return questions, nil
}

func (db *DB) GetQuestionsByType(questionType string) ([]models.Question, error) {
	utils.LogDB("Fetching questions of type %s", questionType)

	rows, err := db.Query("SELECT "+questionColumns+" FROM questions WHERE type = ? ORDER BY id", questionType)
	if err != nil {
		utils.LogError("GetQuestionsByType query failed: %v", err)
		return nil, err
	}
	defer rows.Close()

	return collectQuestions(rows)
}

func collectQuestions(rows *sql.Rows) ([]models.Question, error) {
	var questions []models.Question
	for rows.Next() {
		q, err := scanQuestion(rows.Scan)
		if err != nil {
			utils.LogError("Failed to scan question row: %v", err)
			return nil, err
		}
		questions = append(questions, *q)
	}
	return questions, rows.Err()
}

func (db *DB) GetQuestionByID(id int) (*models.Question, error) {
	utils.LogDB("Executing query: GetQuestionByID(%d)", id)

	row := db.QueryRow("SELECT "+questionColumns+" FROM questions WHERE id = ?", id)
	q, err := scanQuestion(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			utils.LogDB("Question ID %d not found", id)
		} else {
			utils.LogError("GetQuestionByID(%d) failed: %v", id, err)
		}
		return nil, err
	}
	return q, nil
}

func (db *DB) CountByType() (map[string]int, error) {
	rows, err := db.Query("SELECT type, COUNT(*) FROM questions GROUP BY type")
	if err != nil {
		utils.LogError("CountByType query failed: %v", err)
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var t string
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, err
		}
		counts[t] = n
	}
	return counts, rows.Err()
}

// Package fetch pulls quizzes from a remote quiz API and normalizes the
// payloads into question records.
package fetch

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/examapp/qbank/models"
	"github.com/examapp/qbank/parser"
	"github.com/examapp/qbank/utils"
)

// Client fetches quizzes by id from `<BaseURL>/api/quiz/{id}`.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	// Delay between requests, to stay polite with the upstream.
	Delay time.Duration
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Delay:      200 * time.Millisecond,
	}
}

type quizPayload struct {
	Title     string        `json:"title"`
	Questions []apiQuestion `json:"questionsWithChosen"`
}

type apiQuestion struct {
	QuestionText  string  `json:"question_text"`
	OptionA       *string `json:"option_a"`
	OptionB       *string `json:"option_b"`
	OptionC       *string `json:"option_c"`
	OptionD       *string `json:"option_d"`
	CorrectOption string  `json:"correct_option"`
}

func (c *Client) fetchQuiz(id int) (*quizPayload, error) {
	url := fmt.Sprintf("%s/api/quiz/%d", c.BaseURL, id)
	resp, err := c.HTTPClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: unexpected status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	var payload quizPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}
	return &payload, nil
}

// FetchRange fetches every quiz in [startID, endID] and returns the
// validated records plus one message per quiz that failed. A failed quiz
// never aborts the range.
func (c *Client) FetchRange(startID, endID int) (*models.QuestionSet, []string) {
	set := models.NewQuestionSet()
	var failures []string
	nextID := 0

	for quizID := startID; quizID <= endID; quizID++ {
		payload, err := c.fetchQuiz(quizID)
		if err != nil {
			utils.LogFetch("Quiz %d failed: %v", quizID, err)
			failures = append(failures, fmt.Sprintf("quiz %d fetch failed: %v", quizID, err))
			continue
		}
		utils.LogFetch("Quiz %d (%q): %d questions", quizID, payload.Title, len(payload.Questions))
		for _, q := range payload.Questions {
			nextID++
			set.Add(normalizeQuestion(q, nextID))
		}
		if c.Delay > 0 && quizID < endID {
			time.Sleep(c.Delay)
		}
	}
	return parser.Validate(set), failures
}

// normalizeQuestion maps an API question onto the record model. The API has
// no explicit type field: an answer of several A-D letters marks a
// multiple-choice question, anything else is single-choice.
func normalizeQuestion(q apiQuestion, id int) *models.QuestionRecord {
	options := models.NewOptionMap()
	for _, opt := range []struct {
		key   string
		value *string
	}{
		{"A", q.OptionA}, {"B", q.OptionB}, {"C", q.OptionC}, {"D", q.OptionD},
	} {
		if opt.value == nil {
			continue
		}
		if v := strings.TrimSpace(*opt.value); v != "" {
			options.Set(opt.key, v)
		}
	}

	answer := strings.ToUpper(strings.TrimSpace(q.CorrectOption))
	qType := models.TypeSingleChoice
	if len(answer) > 1 && allChoiceLetters(answer) {
		qType = models.TypeMultipleChoice
	}

	rec := &models.QuestionRecord{
		ID:       id,
		Type:     qType,
		Question: strings.TrimSpace(q.QuestionText),
		Options:  options,
	}
	if answer != "" {
		rec.SetAnswer(answer)
	}
	return rec
}

func allChoiceLetters(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'D' {
			return false
		}
	}
	return true
}

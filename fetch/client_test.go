package fetch

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/examapp/qbank/models"
)

func strPtr(s string) *string { return &s }

func quizServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/quiz/1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"title": "Basics",
			"questionsWithChosen": [
				{
					"question_text": "Pick the right one",
					"option_a": "first",
					"option_b": "second",
					"option_c": null,
					"option_d": "",
					"correct_option": "b"
				},
				{
					"question_text": "Pick several",
					"option_a": "one",
					"option_b": "two",
					"option_c": "three",
					"correct_option": "AC"
				},
				{
					"question_text": "No answer published",
					"option_a": "x",
					"option_b": "y",
					"correct_option": ""
				}
			]
		}`)
	})
	mux.HandleFunc("/api/quiz/2", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})
	return httptest.NewServer(mux)
}

func TestFetchRange(t *testing.T) {
	srv := quizServer(t)
	defer srv.Close()

	c := NewClient(srv.URL)
	c.Delay = 0

	set, failures := c.FetchRange(1, 2)

	if len(failures) != 1 {
		t.Fatalf("failures = %v, want exactly the missing quiz", failures)
	}
	if len(set.SingleChoice) != 1 {
		t.Fatalf("single_choice count = %d, want 1", len(set.SingleChoice))
	}
	if len(set.MultipleChoice) != 1 {
		t.Fatalf("multiple_choice count = %d, want 1", len(set.MultipleChoice))
	}

	single := set.SingleChoice[0]
	if single.Answer != "B" {
		t.Errorf("single answer = %q, want upper-cased B", single.Answer)
	}
	keys := single.Options.Keys()
	if len(keys) != 2 || keys[0] != "A" || keys[1] != "B" {
		t.Errorf("option keys = %v, want null and empty options skipped", keys)
	}

	multi := set.MultipleChoice[0]
	if multi.Answer != "AC" {
		t.Errorf("multi answer = %q, want AC", multi.Answer)
	}
	if multi.Options.Len() != 3 {
		t.Errorf("multi option count = %d, want 3", multi.Options.Len())
	}
}

func TestNormalizeQuestionTypeDetection(t *testing.T) {
	testCases := []struct {
		name   string
		answer string
		want   models.QuestionType
	}{
		{"single letter", "A", models.TypeSingleChoice},
		{"several letters", "ABD", models.TypeMultipleChoice},
		{"lower case several", "ac", models.TypeMultipleChoice},
		{"not letters", "YES", models.TypeSingleChoice},
		{"empty", "", models.TypeSingleChoice},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := normalizeQuestion(apiQuestion{
				QuestionText:  "q",
				OptionA:       strPtr("one"),
				OptionB:       strPtr("two"),
				CorrectOption: tc.answer,
			}, 1)
			if rec.Type != tc.want {
				t.Errorf("type = %q, want %q", rec.Type, tc.want)
			}
		})
	}
}

func TestFetchRangeBadPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json")
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.Delay = 0

	set, failures := c.FetchRange(5, 5)
	if set.Total() != 0 {
		t.Errorf("total = %d, want 0", set.Total())
	}
	if len(failures) != 1 {
		t.Errorf("failures = %v, want one decode failure", failures)
	}
}

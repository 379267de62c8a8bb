package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/examapp/qbank/db"
	"github.com/examapp/qbank/models"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	database, err := db.InitDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })

	set := models.NewQuestionSet()
	set.Add(&models.QuestionRecord{
		ID: 1, Type: models.TypeJudgment, Question: "a judgment", Answer: "对",
	})
	choice := &models.QuestionRecord{
		ID: 2, Type: models.TypeSingleChoice, Question: "a choice", Options: models.NewOptionMap(),
	}
	choice.Options.Set("A", "one")
	choice.SetAnswer("A")
	set.Add(choice)
	if _, err := database.ImportQuestions(set, "test", "big", "small"); err != nil {
		t.Fatal(err)
	}

	return NewRouter(database)
}

func doGet(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHealthCheck(t *testing.T) {
	rr := doGet(t, testRouter(t), "/api/health")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("CORS header = %q, want *", got)
	}
}

func TestGetQuestions(t *testing.T) {
	router := testRouter(t)

	rr := doGet(t, router, "/api/questions")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp struct {
		Questions []models.Question `json:"questions"`
		Count     int               `json:"count"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 2 || len(resp.Questions) != 2 {
		t.Errorf("count = %d with %d questions, want 2", resp.Count, len(resp.Questions))
	}
}

func TestGetQuestionsByTypeFilter(t *testing.T) {
	router := testRouter(t)

	rr := doGet(t, router, "/api/questions?type=judgment")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 1 {
		t.Errorf("count = %d, want 1", resp.Count)
	}

	if rr := doGet(t, router, "/api/questions?type=essay"); rr.Code != http.StatusBadRequest {
		t.Errorf("unknown type status = %d, want 400", rr.Code)
	}
}

func TestGetQuestionByID(t *testing.T) {
	router := testRouter(t)

	rr := doGet(t, router, "/api/questions/1")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var q models.Question
	if err := json.Unmarshal(rr.Body.Bytes(), &q); err != nil {
		t.Fatal(err)
	}
	if q.Question != "a judgment" {
		t.Errorf("question = %q", q.Question)
	}

	if rr := doGet(t, router, "/api/questions/999"); rr.Code != http.StatusNotFound {
		t.Errorf("missing id status = %d, want 404", rr.Code)
	}
	if rr := doGet(t, router, "/api/questions/abc"); rr.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", rr.Code)
	}
}

func TestGetStats(t *testing.T) {
	rr := doGet(t, testRouter(t), "/api/stats")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp struct {
		ByType map[string]int `json:"by_type"`
		Total  int            `json:"total"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 || resp.ByType["judgment"] != 1 {
		t.Errorf("stats = %+v, want total 2 with 1 judgment", resp)
	}
}

func TestOptionsPreflight(t *testing.T) {
	router := testRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/questions", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("preflight status = %d, want 200", rr.Code)
	}
}

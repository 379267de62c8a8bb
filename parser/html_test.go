package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/examapp/qbank/models"
)

func parseItems(t *testing.T, items ...string) *models.QuestionSet {
	t.Helper()
	set, err := ParseHTML(strings.NewReader("<html><body>" + strings.Join(items, "") + "</body></html>"))
	if err != nil {
		t.Fatal(err)
	}
	return set
}

func singleChoiceItem(stem, answerBlock string) string {
	return `<div class="question-item">` +
		`<div class="question-desc-header singleClass">单选题</div>` +
		`<div class="question-desc">` + stem + `</div>` +
		`<div class="question-select">` +
		`<div class="option-item"><span class="label">a</span><div class="content">Central Processing Unit</div></div>` +
		`<div class="option-item"><span class="label">b</span><div class="content">Computer Personal Unit</div></div>` +
		`</div>` +
		answerBlock +
		`</div>`
}

func judgmentItem(stem, answerBlock string) string {
	return `<div class="question-item">` +
		`<div class="question-desc-header judgmentClass">判断题</div>` +
		`<div class="question-desc">` + stem + `</div>` +
		answerBlock +
		`</div>`
}

func TestHTMLModeSingleChoice(t *testing.T) {
	set := parseItems(t, singleChoiceItem(
		`<p>What does CPU stand for?</p>`,
		`<div class="answer-wrap">正确答案：A</div>`,
	))

	if len(set.SingleChoice) != 1 {
		t.Fatalf("single_choice count = %d, want 1", len(set.SingleChoice))
	}
	rec := set.SingleChoice[0]
	if rec.Question != "What does CPU stand for?" {
		t.Errorf("question = %q", rec.Question)
	}
	if rec.Answer != "A" {
		t.Errorf("answer = %q, want A", rec.Answer)
	}
	keys := rec.Options.Keys()
	if len(keys) != 2 || keys[0] != "A" || keys[1] != "B" {
		t.Fatalf("option keys = %v, want upper-cased [A B]", keys)
	}
	if v, _ := rec.Options.Get("A"); v != "Central Processing Unit" {
		t.Errorf("option A = %q", v)
	}
}

func TestHTMLModeHighlightedAnswerWins(t *testing.T) {
	set := parseItems(t, singleChoiceItem(
		`<p>Pick one.</p>`,
		`<div class="answer-wrap">正确答案：A<span class="tw-text-green-500">B</span></div>`,
	))

	if len(set.SingleChoice) != 1 {
		t.Fatalf("single_choice count = %d, want 1", len(set.SingleChoice))
	}
	if got := set.SingleChoice[0].Answer; got != "B" {
		t.Errorf("answer = %q, want the highlighted span to win over the block text", got)
	}
}

func TestHTMLModeJudgmentTokenMapping(t *testing.T) {
	testCases := []struct {
		token string
		want  string
	}{
		{"A", "对"},
		{"对", "对"},
		{"正确", "对"},
		{"true", "对"},
		{"B", "错"},
		{"错", "错"},
		{"错误", "错"},
		{"false", "错"},
		{"不确定", "不确定"},
	}

	for _, tc := range testCases {
		t.Run(tc.token, func(t *testing.T) {
			set := parseItems(t, judgmentItem(
				`<p>A statement.</p>`,
				`<div class="answer-wrap"><span class="tw-text-green-500">`+tc.token+`</span></div>`,
			))
			if len(set.Judgment) != 1 {
				t.Fatalf("judgment count = %d, want 1", len(set.Judgment))
			}
			if got := set.Judgment[0].Answer; got != tc.want {
				t.Errorf("answer = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestHTMLModeMultipleChoiceLetterReduction(t *testing.T) {
	item := `<div class="question-item">` +
		`<div class="question-desc-header multipleClass">多选题</div>` +
		`<div class="question-desc"><p>Select all that apply.</p></div>` +
		`<div class="question-select">` +
		`<div class="option-item"><span class="label">A</span><div class="content">one</div></div>` +
		`<div class="option-item"><span class="label">B</span><div class="content">two</div></div>` +
		`<div class="option-item"><span class="label">C</span><div class="content">three</div></div>` +
		`</div>` +
		`<div class="answer-wrap"><span class="tw-text-green-500">A, C</span></div>` +
		`</div>`

	set := parseItems(t, item)
	if len(set.MultipleChoice) != 1 {
		t.Fatalf("multiple_choice count = %d, want 1", len(set.MultipleChoice))
	}
	if got := set.MultipleChoice[0].Answer; got != "AC" {
		t.Errorf("answer = %q, want AC", got)
	}
}

func TestHTMLModeUnrecognizedLabelSkipped(t *testing.T) {
	item := `<div class="question-item">` +
		`<div class="question-desc-header commonClass">简答题</div>` +
		`<div class="question-desc"><p>Explain in your own words.</p></div>` +
		`<div class="answer-wrap">正确答案：A</div>` +
		`</div>`

	set := parseItems(t, item)
	if set.Total() != 0 {
		t.Errorf("total = %d, want unrecognized label to be skipped", set.Total())
	}
}

func TestHTMLModeImageStemRejected(t *testing.T) {
	set := parseItems(t, singleChoiceItem(
		`<p>Look at the figure: <img src="figure.png"/></p>`,
		`<div class="answer-wrap">正确答案：A</div>`,
	))
	if set.Total() != 0 {
		t.Errorf("total = %d, want image-bearing stem to be rejected", set.Total())
	}
}

func TestHTMLModeImageOptionRejected(t *testing.T) {
	item := `<div class="question-item">` +
		`<div class="question-desc-header singleClass">单选题</div>` +
		`<div class="question-desc"><p>Which diagram is correct?</p></div>` +
		`<div class="question-select">` +
		`<div class="option-item"><span class="label">A</span><div class="content"><img src="a.png"/></div></div>` +
		`<div class="option-item"><span class="label">B</span><div class="content">text option</div></div>` +
		`</div>` +
		`<div class="answer-wrap">正确答案：B</div>` +
		`</div>`

	set := parseItems(t, item)
	if set.Total() != 0 {
		t.Errorf("total = %d, want image-bearing option to reject the record", set.Total())
	}
}

func TestHTMLModeAuxiliaryBlocksExcluded(t *testing.T) {
	item := `<div class="question-item">` +
		`<div class="question-desc-header judgmentClass">判断题</div>` +
		`<div class="question-desc"><p>Clean stem.</p></div>` +
		`<div class="analysis"><p>官方解析：这里是解析内容</p></div>` +
		`<div class="points"><p>知识点：指针</p></div>` +
		`<div class="answer-wrap"><span class="tw-text-green-500">对</span></div>` +
		`<div class="comment-wrap"><p>题友讨论内容</p></div>` +
		`</div>`

	set := parseItems(t, item)
	if len(set.Judgment) != 1 {
		t.Fatalf("judgment count = %d, want 1", len(set.Judgment))
	}
	stem := set.Judgment[0].Question
	if stem != "Clean stem." {
		t.Errorf("stem = %q, want auxiliary blocks stripped", stem)
	}
	for _, leaked := range []string{"官方解析", "知识点", "题友讨论"} {
		if strings.Contains(stem, leaked) {
			t.Errorf("stem leaked auxiliary text %q", leaked)
		}
	}
}

func TestHTMLModeAnswerlessItemDropped(t *testing.T) {
	answerless := `<div class="question-item">` +
		`<div class="question-desc-header judgmentClass">判断题</div>` +
		`<div class="question-desc"><p>No answer published yet.</p></div>` +
		`</div>`
	good := judgmentItem(`<p>Answered.</p>`, `<div class="answer-wrap">正确答案：对</div>`)

	set := parseItems(t, answerless, good)
	if len(set.Judgment) != 1 {
		t.Fatalf("judgment count = %d, want only the answered item", len(set.Judgment))
	}
	rec := set.Judgment[0]
	if rec.Question != "Answered." {
		t.Errorf("survivor = %q", rec.Question)
	}
	// The dropped item still consumed an id.
	if rec.ID != 2 {
		t.Errorf("survivor id = %d, want 2", rec.ID)
	}
}

func TestHTMLModeStemFallbackToItem(t *testing.T) {
	item := `<div class="question-item">` +
		`<div class="question-desc-header singleClass">单选题</div>` +
		`<p>Fallback stem here</p>` +
		`<div class="question-select">` +
		`<div class="option-item"><span class="label">A</span><div class="content">yes</div></div>` +
		`</div>` +
		`<div class="answer-wrap">正确答案：A</div>` +
		`</div>`

	set := parseItems(t, item)
	if len(set.SingleChoice) != 1 {
		t.Fatalf("single_choice count = %d, want 1", len(set.SingleChoice))
	}
	if got := set.SingleChoice[0].Question; got != "Fallback stem here" {
		t.Errorf("stem = %q, want the whole-item fallback", got)
	}
}

func TestHTMLParserAccumulatesAcrossDocuments(t *testing.T) {
	p := NewHTMLParser()
	docs := []string{
		"<html><body>" + judgmentItem(`<p>First doc.</p>`, `<div class="answer-wrap">正确答案：对</div>`) + "</body></html>",
		"<html><body>" + judgmentItem(`<p>Second doc.</p>`, `<div class="answer-wrap">正确答案：错</div>`) + "</body></html>",
	}
	for _, d := range docs {
		if err := p.ParseReader(strings.NewReader(d)); err != nil {
			t.Fatal(err)
		}
	}
	set := p.Result()
	if len(set.Judgment) != 2 {
		t.Fatalf("judgment count = %d, want 2", len(set.Judgment))
	}
	if set.Judgment[0].ID != 1 || set.Judgment[1].ID != 2 {
		t.Errorf("ids = %d, %d, want ids to keep increasing across documents",
			set.Judgment[0].ID, set.Judgment[1].ID)
	}
}

func TestParseHTMLDir(t *testing.T) {
	dir := t.TempDir()
	pageA := "<html><body>" + judgmentItem(`<p>From page a.</p>`, `<div class="answer-wrap">正确答案：对</div>`) + "</body></html>"
	pageB := "<html><body>" + singleChoiceItem(`<p>From page b.</p>`, `<div class="answer-wrap">正确答案：A</div>`) + "</body></html>"

	for name, content := range map[string]string{
		"a.html":    pageA,
		"b.htm":     pageB,
		"notes.txt": "not a page",
		"README.md": "ignored",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	set, err := ParseHTMLDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if set.Total() != 2 {
		t.Fatalf("total = %d, want 2", set.Total())
	}
	// Files are visited in name order, so a.html gets the first id.
	if len(set.Judgment) != 1 || set.Judgment[0].ID != 1 {
		t.Errorf("judgment ids = %+v, want the a.html record first", set.Judgment)
	}
}

func TestNormalizeTypeLabel(t *testing.T) {
	testCases := []struct {
		label  string
		want   models.QuestionType
		wantOK bool
	}{
		{"单选题", models.TypeSingleChoice, true},
		{"  多选题  ", models.TypeMultipleChoice, true},
		{"第1题 判断题", models.TypeJudgment, true},
		{"简答题", "", false},
		{"", "", false},
	}

	for _, tc := range testCases {
		got, ok := NormalizeTypeLabel(tc.label)
		if got != tc.want || ok != tc.wantOK {
			t.Errorf("NormalizeTypeLabel(%q) = (%q, %v), want (%q, %v)",
				tc.label, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestReduceChoiceLetters(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"A, C", "AC"},
		{"a、b", "AB"},
		{"ABD", "ABD"},
		{"答案是 A 和 D", "AD"},
		{"", ""},
	}

	for _, tc := range testCases {
		if got := ReduceChoiceLetters(tc.in); got != tc.want {
			t.Errorf("ReduceChoiceLetters(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

// Package parser extracts quiz questions from semi-structured source
// documents. Two pipelines share one record model: a line-based grammar for
// flat paragraph text, and a class-based grammar for exam-site HTML exports.
package parser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/examapp/qbank/models"
	"github.com/examapp/qbank/utils"
)

// Section markers switch the active question type for all following units.
// Evaluated in order; units seen before any marker are ignored.
var sectionMarkers = []struct {
	marker string
	qtype  models.QuestionType
}{
	{"一、判断题", models.TypeJudgment},
	{"二、单选题", models.TypeSingleChoice},
	{"三、多选题", models.TypeMultipleChoice},
}

var (
	questionStartRe  = regexp.MustCompile(`^(\d+)\.(.+)`)
	optionLineRe     = regexp.MustCompile(`^([A-D])\.(.*)`)
	embeddedAnswerRe = regexp.MustCompile(`(.+?)答案[:：]\s*([对错A-D]+)`)
	inlineOptionRe   = regexp.MustCompile(`(.+?)\s*A\.(.+)$`)
	whitespaceRe     = regexp.MustCompile(`\s+`)
)

// CleanText collapses all runs of whitespace to single spaces and trims.
func CleanText(s string) string {
	return whitespaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
}

// TextParser is the text-mode state machine. It owns the "current question"
// cursor that option and answer lines mutate until the next question start
// or section marker.
type TextParser struct {
	section    models.QuestionType
	inSection  bool
	current    *models.QuestionRecord
	nextID     int
	set        *models.QuestionSet
}

func NewTextParser() *TextParser {
	return &TextParser{set: models.NewQuestionSet()}
}

// Feed processes one logical unit (a paragraph line).
func (p *TextParser) Feed(unit string) {
	text := CleanText(unit)
	if text == "" {
		return
	}

	for _, sm := range sectionMarkers {
		if strings.Contains(text, sm.marker) {
			p.section = sm.qtype
			p.inSection = true
			p.current = nil
			return
		}
	}
	if !p.inSection {
		return
	}

	if p.section == models.TypeJudgment {
		p.feedJudgment(text)
	} else {
		p.feedChoice(text)
	}
}

func (p *TextParser) feedJudgment(text string) {
	if m := questionStartRe.FindStringSubmatch(text); m != nil {
		stem, embedded := SplitEmbeddedAnswer(strings.TrimSpace(m[2]))
		p.nextID++
		rec := &models.QuestionRecord{
			ID:       p.nextID,
			Type:     models.TypeJudgment,
			Question: stem,
		}
		if embedded != "" {
			rec.SetAnswer(embedded)
		}
		p.current = rec
		p.set.Add(rec)
		return
	}

	if isAnswerLine(text) && p.current != nil && p.current.Type == models.TypeJudgment {
		// Lenient by policy: any answer text without 对 resolves to 错.
		value := answerLineValue(text)
		if strings.Contains(value, "对") {
			p.current.SetAnswer("对")
		} else {
			p.current.SetAnswer("错")
		}
	}
}

func (p *TextParser) feedChoice(text string) {
	if m := questionStartRe.FindStringSubmatch(text); m != nil {
		stem, embedded := SplitEmbeddedAnswer(strings.TrimSpace(m[2]))
		p.nextID++
		rec := &models.QuestionRecord{
			ID:      p.nextID,
			Type:    p.section,
			Options: models.NewOptionMap(),
		}
		// The first option is sometimes fused onto the question line.
		if im := inlineOptionRe.FindStringSubmatch(stem); im != nil {
			rec.Question = strings.TrimSpace(im[1])
			rec.Options.Set("A", strings.TrimSpace(im[2]))
		} else {
			rec.Question = stem
		}
		if embedded != "" {
			rec.SetAnswer(embedded)
		}
		p.current = rec
		p.set.Add(rec)
		return
	}

	if m := optionLineRe.FindStringSubmatch(text); m != nil && p.current != nil && p.current.IsChoice() {
		// First write wins: a letter already split off the stem keeps its value.
		p.current.Options.Set(m[1], strings.TrimSpace(m[2]))
		return
	}

	if isAnswerLine(text) && p.current != nil && p.current.IsChoice() {
		if value := answerLineValue(text); value != "" {
			p.current.SetAnswer(value)
		}
	}
}

// Result validates and returns the accumulated records.
func (p *TextParser) Result() *models.QuestionSet {
	return Validate(p.set)
}

// SplitEmbeddedAnswer splits an answer marker fused into a stem, returning
// the clean stem and the raw answer token ("" when none is embedded).
func SplitEmbeddedAnswer(text string) (string, string) {
	if m := embeddedAnswerRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	}
	return text, ""
}

func isAnswerLine(text string) bool {
	return strings.HasPrefix(text, "答案:") || strings.HasPrefix(text, "答案：")
}

func answerLineValue(text string) string {
	s := text
	if i := strings.Index(s, ":"); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.Index(s, "："); i >= 0 {
		s = s[i+len("："):]
	}
	return strings.TrimSpace(s)
}

// ParseText runs the text-mode pipeline over newline-separated units.
func ParseText(r io.Reader) (*models.QuestionSet, error) {
	p := NewTextParser()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		p.Feed(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return p.Result(), nil
}

func ParseTextFile(path string) (*models.QuestionSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer f.Close()
	return ParseText(f)
}

// ParseParagraphHTML runs the text-mode pipeline over an exam-page export,
// taking each paragraph of the content container as one unit.
func ParseParagraphHTML(r io.Reader) (*models.QuestionSet, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	main := doc.Find("div.type_content_des").First()
	if main.Length() == 0 {
		utils.LogParse("content container not found, nothing to extract")
		return models.NewQuestionSet(), nil
	}
	p := NewTextParser()
	main.Find("p").Each(func(_ int, s *goquery.Selection) {
		p.Feed(s.Text())
	})
	return p.Result(), nil
}

func ParseParagraphHTMLFile(path string) (*models.QuestionSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer f.Close()
	return ParseParagraphHTML(f)
}

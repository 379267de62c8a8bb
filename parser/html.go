package parser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/examapp/qbank/models"
	"github.com/examapp/qbank/utils"
)

// typeLabels maps the label text of a question-item container onto the
// canonical types. Matching is by substring so extra class tokens or
// surrounding text do not matter.
var typeLabels = []struct {
	substr string
	qtype  models.QuestionType
}{
	{"单选题", models.TypeSingleChoice},
	{"多选题", models.TypeMultipleChoice},
	{"判断题", models.TypeJudgment},
}

// NormalizeTypeLabel resolves a type-label text to a canonical question
// type. The second return is false for unrecognized labels; such items are
// skipped, not errors.
func NormalizeTypeLabel(label string) (models.QuestionType, bool) {
	t := strings.TrimSpace(label)
	for _, tl := range typeLabels {
		if strings.Contains(t, tl.substr) {
			return tl.qtype, true
		}
	}
	return "", false
}

// HTMLParser is the markup-mode extractor. One parser may consume several
// documents; record ids keep increasing across them.
type HTMLParser struct {
	nextID int
	set    *models.QuestionSet
}

func NewHTMLParser() *HTMLParser {
	return &HTMLParser{set: models.NewQuestionSet()}
}

// ParseReader extracts every question-item container in the document.
// Failures are isolated per item: a malformed item is skipped and the rest
// of the document continues.
func (p *HTMLParser) ParseReader(r io.Reader) error {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return fmt.Errorf("parse document: %w", err)
	}
	doc.Find("div.question-item").Each(func(_ int, item *goquery.Selection) {
		if rec := p.parseItem(item); rec != nil {
			p.set.Add(rec)
		}
	})
	return nil
}

func (p *HTMLParser) ParseFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open document: %w", err)
	}
	defer f.Close()
	return p.ParseReader(f)
}

// Result validates and returns everything parsed so far.
func (p *HTMLParser) Result() *models.QuestionSet {
	return Validate(p.set)
}

// parseItem extracts a single question-item container. It never aborts the
// run: any failure, including a panicking tree access on mangled markup,
// skips just this item.
func (p *HTMLParser) parseItem(item *goquery.Selection) (rec *models.QuestionRecord) {
	defer func() {
		if r := recover(); r != nil {
			utils.LogParse("Skipping malformed question item: %v", r)
			rec = nil
		}
	}()

	label := item.Find(".singleClass, .commonClass, .multipleClass, .judgmentClass").First()
	if label.Length() == 0 {
		return nil
	}
	qType, ok := NormalizeTypeLabel(label.Text())
	if !ok {
		return nil
	}

	options, err := p.extractOptions(item)
	if err != nil {
		utils.LogParse("Skipping item with unreadable options: %v", err)
		return nil
	}

	answerWrap := item.Find("div[class*='answer-wrap']").First()
	answer, ok := extractAnswerText(answerWrap)
	if ok {
		switch qType {
		case models.TypeJudgment:
			answer = NormalizeJudgmentToken(answer)
		case models.TypeMultipleChoice:
			answer = ReduceChoiceLetters(answer)
		}
	}

	stem, err := p.extractStem(item)
	if err != nil {
		utils.LogParse("Skipping item with unreadable stem: %v", err)
		return nil
	}
	if stem == "" {
		return nil
	}

	p.nextID++
	rec = &models.QuestionRecord{
		ID:       p.nextID,
		Type:     qType,
		Question: stem,
		Options:  options,
	}
	if answer != "" {
		rec.SetAnswer(answer)
	}
	return rec
}

// extractOptions collects lettered options from the options container.
// Contents are sanitized before storage; labels outside A-D are not options
// in this grammar. Judgment items have no container and yield nil.
func (p *HTMLParser) extractOptions(item *goquery.Selection) (*models.OptionMap, error) {
	optionsDiv := item.Find("div[class*='question-select']").First()
	if optionsDiv.Length() == 0 {
		return nil, nil
	}
	options := models.NewOptionMap()
	var firstErr error
	optionsDiv.Find("div.option-item").Each(func(_ int, opt *goquery.Selection) {
		labelEl := opt.Find(".label").First()
		contentEl := opt.Find(".content").First()
		if labelEl.Length() == 0 || contentEl.Length() == 0 {
			return
		}
		key := strings.ToUpper(strings.TrimSpace(labelEl.Text()))
		if len(key) != 1 || key[0] < 'A' || key[0] > 'D' {
			return
		}
		raw, err := contentEl.Html()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return
		}
		if HasImage(raw) {
			// Keep the marker so the validator rejects the record.
			options.Set(key, imageMarker)
			return
		}
		content, err := SanitizeFragment(strings.TrimSpace(raw))
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return
		}
		options.Set(key, content)
	})
	if firstErr != nil {
		return nil, firstErr
	}
	if options.Len() == 0 {
		return nil, nil
	}
	return options, nil
}

// extractStem takes the stem from the dedicated container, falling back to
// the whole item. It works on an owned clone so the destructive
// auxiliary-block removal cannot touch sibling items.
func (p *HTMLParser) extractStem(item *goquery.Selection) (string, error) {
	clone := item.Clone()
	RemoveAuxiliaryBlocks(clone)

	host := clone.Find(".commonPaperHtml").First()
	if host.Length() == 0 {
		host = clone.Find(".question-desc").First()
	}
	if host.Length() == 0 {
		host = clone
	}
	raw, err := host.Html()
	if err != nil {
		return "", fmt.Errorf("render stem: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if HasImage(raw) {
		// The sanitizer would unwrap the tag away; keep the marker so the
		// validator rejects the record.
		return imageMarker, nil
	}
	return SanitizeFragment(raw)
}

// ParseHTML runs the markup-mode pipeline over one document.
func ParseHTML(r io.Reader) (*models.QuestionSet, error) {
	p := NewHTMLParser()
	if err := p.ParseReader(r); err != nil {
		return nil, err
	}
	return p.Result(), nil
}

// ParseHTMLDir runs the markup-mode pipeline over every .html file in a
// directory, in name order. A file that fails to parse is logged and
// skipped; the rest of the directory continues.
func ParseHTMLDir(dir string) (*models.QuestionSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext := strings.ToLower(filepath.Ext(e.Name())); ext == ".html" || ext == ".htm" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	p := NewHTMLParser()
	for _, name := range names {
		path := filepath.Join(dir, name)
		utils.LogParse("Parsing %s", path)
		if err := p.ParseFile(path); err != nil {
			utils.LogError("Failed to parse %s: %v", path, err)
			continue
		}
	}
	return p.Result(), nil
}

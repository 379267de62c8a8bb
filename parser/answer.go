package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var answerBlockRe = regexp.MustCompile(`正确答案[:：]\s*([A-D对错]+)`)

// extractAnswerText pulls the raw answer token out of an answer-wrap block.
// The highlighted span is preferred; the flattened block text is matched
// against the 正确答案 pattern otherwise.
func extractAnswerText(answerWrap *goquery.Selection) (string, bool) {
	if answerWrap == nil || answerWrap.Length() == 0 {
		return "", false
	}
	if green := answerWrap.Find("span.tw-text-green-500").First(); green.Length() > 0 {
		if text := strings.TrimSpace(green.Text()); text != "" {
			return text, true
		}
	}
	if m := answerBlockRe.FindStringSubmatch(CleanText(answerWrap.Text())); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	return "", false
}

// NormalizeJudgmentToken maps the answer tokens exam sites use onto the
// canonical 对/错 domain. Unexpected tokens are preserved verbatim rather
// than guessed.
func NormalizeJudgmentToken(token string) string {
	switch {
	case token == "A" || token == "对" || token == "正确" || strings.EqualFold(token, "true"):
		return "对"
	case token == "B" || token == "错" || token == "错误" || strings.EqualFold(token, "false"):
		return "错"
	}
	return token
}

// ReduceChoiceLetters reduces a raw multiple-choice answer to its A-D
// letters, upper-cased and concatenated without separators.
func ReduceChoiceLetters(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(raw) {
		if r >= 'A' && r <= 'D' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

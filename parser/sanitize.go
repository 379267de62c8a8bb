package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// copyCodeCaption is the copy-button caption exam sites inject into
// syntax-highlighted code blocks.
const copyCodeCaption = "复制代码"

// safeTags is the whitelist of tags kept by the sanitizer. Everything else
// is unwrapped: children are promoted, the wrapper is discarded, content is
// never lost.
var safeTags = map[string]bool{
	"pre": true, "code": true, "strong": true, "em": true, "b": true, "i": true,
	"ul": true, "ol": true, "li": true,
	"table": true, "thead": true, "tbody": true, "tr": true, "th": true, "td": true,
}

// excludeClassSubstrings marks blocks removed wholesale before stem
// extraction so they cannot leak into question content.
var excludeClassSubstrings = []string{
	"question-select",
	"answer-wrap",
	"comment-wrap",
	"quick-publish",
	"result-wrap",
	"question-desc-header",
	"rightAction",
}

// auxiliaryTextMarkers open analysis/discussion asides that must never
// appear in stem, option, or answer content.
var auxiliaryTextMarkers = []string{"官方解析", "知识点", "题友讨论"}

var (
	tripleNewlineRe   = regexp.MustCompile(`\n\s*\n\s*\n+`)
	horizWhitespaceRe = regexp.MustCompile("[\t\v\f\r]+")
	multiSpaceRe      = regexp.MustCompile(` +`)
	spaceAroundNLRe   = regexp.MustCompile(` *\n *`)
)

// SanitizeFragment normalizes a rich HTML fragment: syntax-highlighter
// blocks become plain <pre><code>, <br> and <p> become newlines, attributes
// are stripped, non-whitelisted tags are unwrapped, and whitespace is
// collapsed to the two-newline paragraph-gap convention.
func SanitizeFragment(fragment string) (string, error) {
	if strings.TrimSpace(fragment) == "" {
		return "", nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", fmt.Errorf("parse fragment: %w", err)
	}
	body := doc.Find("body").First()

	flattenCodeBlocks(body)

	body.Find("br").Each(func(_ int, s *goquery.Selection) {
		for _, n := range s.Nodes {
			replaceNodeWithText(n, "\n")
		}
	})

	// A paragraph contributes a trailing newline, then the wrapper goes away.
	body.Find("p").Each(func(_ int, s *goquery.Selection) {
		for _, n := range s.Nodes {
			if n.Parent == nil {
				continue
			}
			n.Parent.InsertBefore(&html.Node{Type: html.TextNode, Data: "\n"}, n.NextSibling)
			unwrapNode(n)
		}
	})

	stripAndUnwrap(body)

	out, err := body.Html()
	if err != nil {
		return "", fmt.Errorf("render fragment: %w", err)
	}
	return normalizeWhitespace(out), nil
}

// flattenCodeBlocks converts syntax-highlighter wrappers into plain
// <pre><code> blocks, dropping the toolbar and its copy-code caption while
// preserving internal line breaks.
func flattenCodeBlocks(root *goquery.Selection) {
	root.Find("div.syntaxhighlighter").Each(func(_ int, block *goquery.Selection) {
		block.Find(".toolbar").Remove()
		text := strings.ReplaceAll(textLines(block), copyCodeCaption, "")
		for _, n := range block.Nodes {
			if n.Parent == nil {
				continue
			}
			pre := &html.Node{Type: html.ElementNode, Data: "pre"}
			code := &html.Node{Type: html.ElementNode, Data: "code"}
			code.AppendChild(&html.Node{Type: html.TextNode, Data: text})
			pre.AppendChild(code)
			n.Parent.InsertBefore(pre, n)
			n.Parent.RemoveChild(n)
		}
	})
}

// RemoveAuxiliaryBlocks deletes excluded widgets and analysis/discussion
// asides from a question-item subtree. Callers pass an owned clone: the
// removal is destructive.
func RemoveAuxiliaryBlocks(root *goquery.Selection) {
	for _, cls := range excludeClassSubstrings {
		root.Find(fmt.Sprintf("div[class*='%s']", cls)).Remove()
	}
	root.Find("div, section, p, span").Each(func(_ int, el *goquery.Selection) {
		text := CleanText(el.Text())
		if text == "" {
			return
		}
		for _, marker := range auxiliaryTextMarkers {
			if strings.HasPrefix(text, marker) {
				// Remove the enclosing block so the aside disappears whole.
				parent := el.Parent()
				if parent.Length() > 0 && !parent.Is("body") && parent.Nodes[0].Parent != nil {
					parent.Remove()
				} else {
					el.Remove()
				}
				return
			}
		}
	})
}

// textLines joins every text node under the selection with newlines,
// preserving the line structure of highlighted code.
func textLines(sel *goquery.Selection) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			parts = append(parts, n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(parts, "\n")
}

// stripAndUnwrap removes every attribute and unwraps elements outside the
// whitelist, promoting their children in place.
func stripAndUnwrap(root *goquery.Selection) {
	var elements []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			elements = append(elements, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range root.Nodes {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, el := range elements {
		el.Attr = nil
		if !safeTags[el.Data] {
			unwrapNode(el)
		}
	}
}

func unwrapNode(n *html.Node) {
	parent := n.Parent
	if parent == nil {
		return
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		parent.InsertBefore(c, n)
		c = next
	}
	parent.RemoveChild(n)
}

func replaceNodeWithText(n *html.Node, text string) {
	parent := n.Parent
	if parent == nil {
		return
	}
	parent.InsertBefore(&html.Node{Type: html.TextNode, Data: text}, n)
	parent.RemoveChild(n)
}

func normalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, copyCodeCaption, "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = tripleNewlineRe.ReplaceAllString(s, "\n\n")
	s = horizWhitespaceRe.ReplaceAllString(s, " ")
	s = multiSpaceRe.ReplaceAllString(s, " ")
	s = spaceAroundNLRe.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}

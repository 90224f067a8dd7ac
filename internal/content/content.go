// Package content derives display metadata from article and slide bodies,
// which arrive as either HTML fragments or plain text.
package content

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlainText strips markup from a body and collapses whitespace. Bodies that
// fail to parse as HTML are treated as plain text, so the input never comes
// back empty just because it was not markup.
func PlainText(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return collapse(body)
	}
	doc.Find("script, style, noscript").Remove()
	text := doc.Text()
	if strings.TrimSpace(text) == "" {
		return collapse(body)
	}
	return collapse(text)
}

// WordCount counts whitespace-separated words in the body after stripping
// markup.
func WordCount(body string) int {
	text := PlainText(body)
	if text == "" {
		return 0
	}
	return len(strings.Fields(text))
}

// Excerpt returns the first maxWords words of the stripped body, with an
// ellipsis when the body was cut.
func Excerpt(body string, maxWords int) string {
	if maxWords <= 0 {
		maxWords = 40
	}
	words := strings.Fields(PlainText(body))
	if len(words) <= maxWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:maxWords], " ") + "…"
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Package notes turns rich text session notes into plain text for analysis and checks quoted excerpts against it.
package notes

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/myrjola/chronicler/internal/errors"
	"regexp"
	"strings"
)

const blockElements = "p, div, li, h1, h2, h3, h4, h5, h6, blockquote, pre, tr"

var blankLines = regexp.MustCompile(`\n[ \t]*\n(?:[ \t]*\n)+`)

// PlainText strips the markup from editor HTML while keeping paragraph and line breaks.
//
// Input without markup is returned trimmed.
func PlainText(html string) (string, error) {
	if !strings.ContainsAny(html, "<&") {
		return strings.TrimSpace(html), nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", errors.Wrap(err, "parse notes html")
	}
	doc.Find("script, style").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find(blockElements).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	text := doc.Text()
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text), nil
}

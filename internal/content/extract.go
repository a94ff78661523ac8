// Package content turns rendered HTML into clean text chunks ready
// for embedding.
package content

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Boilerplate elements stripped before text extraction.
var strippedSelectors = []string{"script", "style", "nav", "header", "footer", "noscript", "iframe"}

// Extracted is the readable content of one page.
type Extracted struct {
	Title string
	Text  string
}

// Extract pulls the title and readable text out of an HTML document.
// It prefers the <main> region (or role="main") when present, falling
// back to <body>, and collapses all whitespace runs to single spaces.
func Extract(html string) (Extracted, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Extracted{}, fmt.Errorf("parse html: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())

	for _, sel := range strippedSelectors {
		doc.Find(sel).Remove()
	}

	root := doc.Find("main").First()
	if root.Length() == 0 {
		root = doc.Find(`[role="main"]`).First()
	}
	if root.Length() == 0 {
		root = doc.Find("body").First()
	}
	if root.Length() == 0 {
		root = doc.Selection
	}

	return Extracted{
		Title: title,
		Text:  collapseWhitespace(root.Text()),
	}, nil
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

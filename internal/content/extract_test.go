package content

import (
	"strings"
	"testing"
)

func TestExtractPrefersMain(t *testing.T) {
	html := `<html><head><title>Guide</title></head><body>
		<nav>Home About Contact</nav>
		<main><p>The  actual
		content.</p></main>
		<footer>Copyright</footer>
	</body></html>`

	got, err := Extract(html)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Guide" {
		t.Fatalf("Title = %q, want Guide", got.Title)
	}
	if got.Text != "The actual content." {
		t.Fatalf("Text = %q", got.Text)
	}
}

func TestExtractStripsBoilerplate(t *testing.T) {
	html := `<html><body>
		<script>var x = 1;</script>
		<style>.a { color: red }</style>
		<noscript>enable js</noscript>
		<p>Visible text.</p>
	</body></html>`

	got, err := Extract(html)
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != "Visible text." {
		t.Fatalf("Text = %q", got.Text)
	}
}

func TestExtractRoleMainFallback(t *testing.T) {
	html := `<html><body>
		<header>Site header</header>
		<div role="main">Article body here.</div>
	</body></html>`

	got, err := Extract(html)
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != "Article body here." {
		t.Fatalf("Text = %q", got.Text)
	}
}

func TestExtractEmptyDocument(t *testing.T) {
	got, err := Extract("")
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != "" || got.Title != "" {
		t.Fatalf("expected empty extraction, got %+v", got)
	}
}

func TestExtractCollapsesWhitespace(t *testing.T) {
	html := "<html><body><p>a\n\n\tb   c</p></body></html>"
	got, err := Extract(html)
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != "a b c" {
		t.Fatalf("Text = %q", got.Text)
	}
	if strings.Contains(got.Text, "\n") {
		t.Fatal("newlines should be collapsed")
	}
}

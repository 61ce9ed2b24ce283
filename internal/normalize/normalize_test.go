package normalize

import (
	"strings"
	"testing"
)

func TestExtract(t *testing.T) {
	raw := `<html><head><title>Alaska Cruises</title>
	<script>var x = 1;</script><style>body{color:red}</style></head>
	<body><nav><a href="/">Home</a></nav>
	<article><h1>Alaska</h1><p>Glaciers &amp; fjords await.</p></article>
	<footer>Copyright</footer></body></html>`

	title, text := Extract(raw)
	if title != "Alaska Cruises" {
		t.Errorf("title=%q", title)
	}
	if strings.Contains(text, "var x") {
		t.Error("script content should be removed")
	}
	if strings.Contains(text, "color:red") {
		t.Error("style content should be removed")
	}
	if strings.Contains(text, "Home") || strings.Contains(text, "Copyright") {
		t.Error("nav/footer content should be removed")
	}
	if !strings.Contains(text, "Glaciers & fjords await.") {
		t.Errorf("entities should be decoded, got %q", text)
	}
}

func TestExtractMalformed(t *testing.T) {
	// Unclosed tags and stray brackets must not panic or fail.
	title, text := Extract(`<html><body><p>broken <b>page<div>more text`)
	if title != "" {
		t.Errorf("title=%q", title)
	}
	if !strings.Contains(text, "broken") || !strings.Contains(text, "more text") {
		t.Errorf("best-effort text expected, got %q", text)
	}
}

func TestExtractEmpty(t *testing.T) {
	title, text := Extract("")
	if title != "" || text != "" {
		t.Errorf("empty input: title=%q text=%q", title, text)
	}
}

func TestClean(t *testing.T) {
	got := Clean("Visit   the\tfjords* — it's great! (May-Sept)")
	if strings.ContainsAny(got, "*—'") {
		t.Errorf("special characters should be stripped, got %q", got)
	}
	if strings.Contains(got, "  ") {
		t.Errorf("whitespace runs should collapse, got %q", got)
	}
	if !strings.Contains(got, "(May-Sept)") {
		t.Errorf("basic punctuation should survive, got %q", got)
	}
}

func TestCollapseWhitespace(t *testing.T) {
	if collapseWhitespace("  a \n\t b  ") != "a b" {
		t.Error("expected trimmed and collapsed whitespace")
	}
}

// Package normalize extracts clean text from raw HTML.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// skipTags are elements whose entire subtree is boilerplate or non-content.
var skipTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"nav":      true,
	"header":   true,
	"footer":   true,
	"iframe":   true,
	"svg":      true,
}

// Extract returns the page title and the visible text of the document.
// Markup tags are removed, entities decoded, and whitespace collapsed.
// Malformed input degrades to best-effort extraction; Extract never fails.
func Extract(rawHTML string) (title, text string) {
	z := html.NewTokenizer(strings.NewReader(rawHTML))

	var b strings.Builder
	var titleBuilder strings.Builder
	skipDepth := 0
	inTitle := false

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			// io.EOF or unrecoverable parse error; either way we keep
			// whatever was extracted so far.
			break
		}
		switch tt {
		case html.StartTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if skipTags[tag] {
				skipDepth++
			}
			if tag == "title" && skipDepth == 0 {
				inTitle = true
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if skipTags[tag] && skipDepth > 0 {
				skipDepth--
			}
			if tag == "title" {
				inTitle = false
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			t := string(z.Text())
			if inTitle {
				titleBuilder.WriteString(t)
				continue
			}
			if strings.TrimSpace(t) == "" {
				continue
			}
			b.WriteString(t)
			b.WriteByte(' ')
		}
	}

	return collapseWhitespace(titleBuilder.String()), collapseWhitespace(b.String())
}

// Clean filters text down to letters, digits, whitespace, and basic
// punctuation, then collapses whitespace runs. Mirrors the sanitization the
// scraped pages go through before chunking.
func Clean(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || isKeptPunct(r) {
			b.WriteRune(r)
		}
	}
	return collapseWhitespace(b.String())
}

func isKeptPunct(r rune) bool {
	switch r {
	case '.', ',', '!', '?', ';', ':', '-', '(', ')', '_':
		return true
	}
	return false
}

// collapseWhitespace trims and replaces runs of whitespace with single spaces.
func collapseWhitespace(text string) string {
	text = strings.TrimSpace(text)
	var b strings.Builder
	b.Grow(len(text))
	wasSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
		} else {
			b.WriteRune(r)
			wasSpace = false
		}
	}
	return b.String()
}

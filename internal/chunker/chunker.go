// Package chunker splits normalized text into overlapping windows sized for
// embedding.
package chunker

import "strings"

const (
	// DefaultSize is the target chunk length in characters.
	DefaultSize = 1000
	// DefaultOverlap is how many characters consecutive chunks share.
	DefaultOverlap = 200
	// DefaultBoundaryLookback bounds how far back from the cut point we search
	// for a sentence terminator.
	DefaultBoundaryLookback = 200
)

// Span is one chunk of the input with its character offsets.
type Span struct {
	Start int
	End   int
	Text  string
}

// Chunker produces fixed-size overlapping spans, preferring to cut at
// sentence boundaries.
type Chunker struct {
	size     int
	overlap  int
	lookback int
}

// New returns a Chunker. Non-positive size falls back to DefaultSize; an
// overlap at or above size is clamped to size-1 so every chunk makes forward
// progress.
func New(size, overlap, lookback int) *Chunker {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	if lookback <= 0 {
		lookback = DefaultBoundaryLookback
	}
	return &Chunker{size: size, overlap: overlap, lookback: lookback}
}

// Split divides text into spans of roughly c.size characters with c.overlap
// characters of overlap. When a sentence terminator falls within the lookback
// window of a cut point, the chunk ends just after it. Empty or
// whitespace-only input yields no spans.
func (c *Chunker) Split(text string) []Span {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	n := len(runes)
	var spans []Span

	start := 0
	for start < n {
		end := start + c.size
		if end >= n {
			end = n
		} else {
			end = c.snapToBoundary(runes, start, end)
		}

		spans = append(spans, Span{
			Start: start,
			End:   end,
			Text:  string(runes[start:end]),
		})
		if end >= n {
			break
		}

		next := end - c.overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return spans
}

// snapToBoundary moves end back to just after the last sentence terminator
// within the lookback window. If none is found the hard cut stands.
func (c *Chunker) snapToBoundary(runes []rune, start, end int) int {
	lo := end - c.lookback
	if lo < start+1 {
		lo = start + 1
	}
	for i := end - 1; i >= lo; i-- {
		switch runes[i] {
		case '.', '!', '?', '\n':
			return i + 1
		}
	}
	return end
}

package utils

import "testing"

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string should be unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %q", Truncate("hello world", 5))
	}
	if Truncate("hello", 0) != "hello" {
		t.Error("maxLen 0 should return unchanged")
	}
}

func TestPreview(t *testing.T) {
	if Preview("hello", 10) != "hello" {
		t.Error("short string should be unchanged")
	}
	if Preview("hello world", 5) != "hello" {
		t.Errorf("got %q", Preview("hello world", 5))
	}
	// Multi-byte rune straddling the cut must not be split.
	s := "abécd" // é is 2 bytes, occupies s[2:4]
	got := Preview(s, 3)
	if got != "ab" {
		t.Errorf("expected cut at rune boundary, got %q", got)
	}
}

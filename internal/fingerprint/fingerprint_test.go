package fingerprint

import "testing"

func TestHash(t *testing.T) {
	a := Hash("https://example.com/page")
	b := Hash("https://example.com/page")
	if a != b {
		t.Error("same URL should yield same hash")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
	if Hash("https://example.com/other") == a {
		t.Error("different URLs should yield different hashes")
	}
}

func TestChunkKey(t *testing.T) {
	if got := ChunkKey("abc123", 0); got != "abc123_0" {
		t.Errorf("ChunkKey=%q", got)
	}
	if got := ChunkKey("abc123", 12); got != "abc123_12" {
		t.Errorf("ChunkKey=%q", got)
	}
}

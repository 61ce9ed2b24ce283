package sources

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	content := `
urls:
  - https://example.com/a
  - ""
  - https://example.com/b
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	list, err := LoadList(path)
	if err != nil {
		t.Fatalf("LoadList: %v", err)
	}
	if len(list.URLs) != 2 {
		t.Fatalf("blank entries should be dropped, got %v", list.URLs)
	}
	if list.URLs[0] != "https://example.com/a" || list.URLs[1] != "https://example.com/b" {
		t.Errorf("urls=%v", list.URLs)
	}
}

func TestLoadListMissing(t *testing.T) {
	if _, err := LoadList(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yaml")
	if err := os.WriteFile(path, []byte("urls:\n  - https://example.com/a\n"), 0644); err != nil {
		t.Fatal(err)
	}

	changed := make(chan []string, 1)
	w := NewWatcher(path, func(urls []string) {
		select {
		case changed <- urls:
		default:
		}
	}, nil)
	w.debounce = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("urls:\n  - https://example.com/a\n  - https://example.com/b\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case urls := <-changed:
		if len(urls) != 2 {
			t.Errorf("urls=%v", urls)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatcherIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yaml")
	if err := os.WriteFile(path, []byte("urls: []\n"), 0644); err != nil {
		t.Fatal(err)
	}

	changed := make(chan []string, 1)
	w := NewWatcher(path, func(urls []string) { changed <- urls }, nil)
	w.debounce = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
		t.Fatal("sibling file should not trigger reload")
	case <-time.After(300 * time.Millisecond):
	}
}

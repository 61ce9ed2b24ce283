package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("expected User-Agent header")
		}
		w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer srv.Close()

	body, err := NewClient(5 * time.Second).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !strings.Contains(body, "hello") {
		t.Errorf("body=%q", body)
	}
}

func TestFetchNonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := NewClient(5 * time.Second).Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestFetchCapsBodySize(t *testing.T) {
	chunk := strings.Repeat("a", 64*1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for written := 0; written < maxBodyBytes+len(chunk); written += len(chunk) {
			w.Write([]byte(chunk))
		}
	}))
	defer srv.Close()

	body, err := NewClient(5 * time.Second).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(body) != maxBodyBytes {
		t.Errorf("len(body)=%d, want cap %d", len(body), maxBodyBytes)
	}
}

func TestFetchContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := NewClient(5 * time.Second).Fetch(ctx, srv.URL); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

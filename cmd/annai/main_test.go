package main

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/annai/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	dir := t.TempDir()
	cfg.Storage.DatabasePath = filepath.Join(dir, "chat.db")
	cfg.Storage.VectorIndexPath = filepath.Join(dir, "chunks.json")
	cfg.Embedding.Provider = "mock"
	cfg.Embedding.Dimensions = 16
	return cfg
}

func TestInitializeComponentsMemoryIndex(t *testing.T) {
	cfg := testConfig(t)

	comps, err := initializeComponents(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("initializeComponents: %v", err)
	}
	defer comps.Close()

	if comps.MemoryIndex == nil {
		t.Error("memory index type should wire the snapshot-backed index")
	}
}

func TestInitializeComponentsUnreachablePgvector(t *testing.T) {
	cfg := testConfig(t)
	cfg.Index.Type = "pgvector"
	cfg.Index.PostgresURL = "not a connection string"

	if _, err := initializeComponents(cfg, zap.NewNop()); err == nil {
		t.Fatal("unreachable pgvector index must fail startup, not fall back to memory")
	}
}

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/annai/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and
// initializes the schema. Parent directories are created if they do not
// exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS chat_exchanges (
		id TEXT PRIMARY KEY,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		source_urls TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_exchanges_created_at ON chat_exchanges(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveExchange inserts an exchange, assigning an ID and timestamp if unset.
func (s *SQLiteStorage) SaveExchange(ctx context.Context, exchange *models.ChatExchange) error {
	if exchange.ID == "" {
		exchange.ID = uuid.New().String()
	}
	if exchange.CreatedAt.IsZero() {
		exchange.CreatedAt = time.Now()
	}

	sourcesJSON, err := json.Marshal(exchange.SourceURLs)
	if err != nil {
		return fmt.Errorf("failed to marshal source URLs: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO chat_exchanges (id, question, answer, source_urls, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		exchange.ID, exchange.Question, exchange.Answer, string(sourcesJSON), exchange.CreatedAt,
	)
	return err
}

// ListExchanges returns the most recent exchanges, newest first. A
// non-positive limit returns up to 50.
func (s *SQLiteStorage) ListExchanges(ctx context.Context, limit int) ([]*models.ChatExchange, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question, answer, source_urls, created_at
		 FROM chat_exchanges ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exchanges []*models.ChatExchange
	for rows.Next() {
		var e models.ChatExchange
		var sourcesJSON string
		if err := rows.Scan(&e.ID, &e.Question, &e.Answer, &sourcesJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		if sourcesJSON != "" {
			if err := json.Unmarshal([]byte(sourcesJSON), &e.SourceURLs); err != nil {
				return nil, fmt.Errorf("failed to unmarshal source URLs: %w", err)
			}
		}
		exchanges = append(exchanges, &e)
	}
	return exchanges, rows.Err()
}

// CountExchanges returns the number of stored exchanges.
func (s *SQLiteStorage) CountExchanges(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_exchanges`).Scan(&count)
	return count, err
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

var _ Storage = (*SQLiteStorage)(nil)

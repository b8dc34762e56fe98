package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hhsantos/flight-calendar/internal/models"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the document as a single JSON row in a SQLite database
type SQLiteStore struct {
	mu sync.Mutex
	db *sql.DB
}

type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// OpenSQLite opens or creates the database at path and seeds the document
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection: every statement of an Update runs on the same tx.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		body TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &SQLiteStore{db: db}
	if _, err := s.read(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Load returns the stored document
func (s *SQLiteStore) Load(ctx context.Context) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(ctx, s.db)
}

// Save overwrites the stored document
func (s *SQLiteStore) Save(ctx context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(ctx, s.db, doc)
}

// Update applies fn inside a transaction
func (s *SQLiteStore) Update(ctx context.Context, fn func(doc *models.Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	doc, err := s.read(ctx, tx)
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	if err := s.write(ctx, tx, doc); err != nil {
		return err
	}
	return tx.Commit()
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) read(ctx context.Context, q sqlQuerier) (*models.Document, error) {
	var body string
	err := q.QueryRowContext(ctx, `SELECT body FROM documents WHERE id = 1`).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		seed := models.SeedDocument()
		if err := s.write(ctx, q, seed); err != nil {
			return nil, fmt.Errorf("failed to seed document: %w", err)
		}
		return seed, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	var doc models.Document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	doc.Normalize()
	return &doc, nil
}

func (s *SQLiteStore) write(ctx context.Context, q sqlQuerier, doc *models.Document) error {
	doc.Normalize()
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO documents (id, body, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at
	`, string(body), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

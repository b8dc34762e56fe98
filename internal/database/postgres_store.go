package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hhsantos/flight-calendar/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const documentKey = "flight-calendar"

// PostgresStore keeps the document as a JSONB row. Update locks the row, so
// several server processes can share one database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// OpenPostgres connects to databaseURL, creates the table and seeds the document
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			body JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.ensure(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Load returns the stored document
func (s *PostgresStore) Load(ctx context.Context) (*models.Document, error) {
	if err := s.ensure(ctx, s.pool); err != nil {
		return nil, err
	}
	return s.read(ctx, s.pool, `SELECT body FROM documents WHERE id = $1`)
}

// Save overwrites the stored document
func (s *PostgresStore) Save(ctx context.Context, doc *models.Document) error {
	return s.write(ctx, s.pool, doc)
}

// Update applies fn while holding a row lock on the document
func (s *PostgresStore) Update(ctx context.Context, fn func(doc *models.Document) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.ensure(ctx, tx); err != nil {
		return err
	}
	doc, err := s.read(ctx, tx, `SELECT body FROM documents WHERE id = $1 FOR UPDATE`)
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	if err := s.write(ctx, tx, doc); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Close closes the pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// ensure inserts the seed document unless one already exists
func (s *PostgresStore) ensure(ctx context.Context, q pgQuerier) error {
	body, err := json.Marshal(models.SeedDocument())
	if err != nil {
		return fmt.Errorf("failed to encode seed: %w", err)
	}
	_, err = q.Exec(ctx, `
		INSERT INTO documents (id, body) VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING
	`, documentKey, string(body))
	if err != nil {
		return fmt.Errorf("failed to seed document: %w", err)
	}
	return nil
}

func (s *PostgresStore) read(ctx context.Context, q pgQuerier, query string) (*models.Document, error) {
	var body []byte
	err := q.QueryRow(ctx, query, documentKey).Scan(&body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	var doc models.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	doc.Normalize()
	return &doc, nil
}

func (s *PostgresStore) write(ctx context.Context, q pgQuerier, doc *models.Document) error {
	doc.Normalize()
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	_, err = q.Exec(ctx, `
		INSERT INTO documents (id, body, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET body = EXCLUDED.body, updated_at = NOW()
	`, documentKey, string(body))
	if err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Backend loads and saves whole collections as JSON arrays.
// A collection that was never saved loads as nil with no error.
type Backend interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, body []byte) error
}

// --- File backend ---

// FileBackend keeps each collection in <dir>/<name>.json.
type FileBackend struct {
	dir string
}

// NewFileBackend creates a FileBackend rooted at dir.
func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{dir: dir}
}

func (b *FileBackend) path(name string) string {
	return filepath.Join(b.dir, name+".json")
}

func (b *FileBackend) Load(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(b.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

// Save rewrites the collection file through a temp file + rename so readers
// never observe a half-written array.
func (b *FileBackend) Save(_ context.Context, name string, body []byte) error {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp, err := os.CreateTemp(b.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	return os.Rename(tmp.Name(), b.path(name))
}

// --- Postgres backend ---

// Querier is the subset of pgx used by PostgresBackend.
// Satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// PostgresBackend keeps each collection as one JSONB row of the collections table
// (see migrations/000001_create_collections.up.sql).
type PostgresBackend struct {
	db Querier
}

// NewPostgresBackend creates a PostgresBackend over db.
func NewPostgresBackend(db Querier) *PostgresBackend {
	return &PostgresBackend{db: db}
}

const (
	loadCollectionSQL = `SELECT body FROM collections WHERE name = $1`
	saveCollectionSQL = `
		INSERT INTO collections (name, body, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body, updated_at = now()
	`
)

func (b *PostgresBackend) Load(ctx context.Context, name string) ([]byte, error) {
	var body []byte
	err := b.db.QueryRow(ctx, loadCollectionSQL, name).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select collection %s: %w", name, err)
	}
	return body, nil
}

func (b *PostgresBackend) Save(ctx context.Context, name string, body []byte) error {
	if _, err := b.db.Exec(ctx, saveCollectionSQL, name, json.RawMessage(body)); err != nil {
		return fmt.Errorf("upsert collection %s: %w", name, err)
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/set-night/shopassist/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements EntryStore on a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS client_entries (
		client_id  TEXT    NOT NULL,
		name       TEXT    NOT NULL,
		payload    TEXT    NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (client_id, name)
	);
	CREATE INDEX IF NOT EXISTS idx_client_entries_updated ON client_entries(updated_at);
	`)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, clientID, name string) ([]byte, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM client_entries WHERE client_id = ? AND name = ?`,
		clientID, name,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return []byte(payload), nil
}

func (s *SQLiteStore) Put(ctx context.Context, clientID, name string, payload []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO client_entries (client_id, name, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (client_id, name) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, clientID, name, string(payload), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("put entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, clientID, name string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM client_entries WHERE client_id = ? AND name = ?`, clientID, name,
	); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteStale(ctx context.Context, age time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM client_entries WHERE updated_at < ?`, time.Now().Add(-age).UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("delete stale entries: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

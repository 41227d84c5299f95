package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/set-night/shopassist/internal/domain"
)

// PostgresStore implements EntryStore on the client_entries table created by the migrations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Get(ctx context.Context, clientID, name string) ([]byte, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM client_entries WHERE client_id = $1 AND name = $2`,
		clientID, name,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return payload, nil
}

func (s *PostgresStore) Put(ctx context.Context, clientID, name string, payload []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO client_entries (client_id, name, payload, updated_at)
		VALUES ($1, $2, $3::jsonb, now())
		ON CONFLICT (client_id, name) DO UPDATE SET
			payload = EXCLUDED.payload,
			updated_at = now()
	`, clientID, name, string(payload))
	if err != nil {
		return fmt.Errorf("put entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, clientID, name string) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM client_entries WHERE client_id = $1 AND name = $2`, clientID, name,
	); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteStale(ctx context.Context, age time.Duration) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM client_entries WHERE updated_at < $1`, time.Now().Add(-age),
	)
	if err != nil {
		return 0, fmt.Errorf("delete stale entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

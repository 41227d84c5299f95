package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/set-night/shopassist/internal/config"
)

// OpenPostgres brings the client_entries schema up to date and returns a store on a
// verified pool. migrations holds the numbered SQL files at its root.
func OpenPostgres(ctx context.Context, databaseURL string, migrations fs.FS) (*PostgresStore, error) {
	poolCfg, err := entryPoolConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	if err := migrateEntries(databaseURL, migrations); err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open entry pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("reach entry database: %w", err)
	}
	return NewPostgresStore(pool), nil
}

// entryPoolConfig sizes the pool for small keyed reads and writes, one per widget request.
func entryPoolConfig(databaseURL string) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	poolCfg.MaxConns = config.PostgresMaxConns
	poolCfg.MinConns = config.PostgresMinConns
	poolCfg.MaxConnIdleTime = config.PostgresMaxConnIdle
	return poolCfg, nil
}

func migrateEntries(databaseURL string, migrations fs.FS) error {
	src, err := iofs.New(migrations, ".")
	if err != nil {
		return fmt.Errorf("read entry migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return fmt.Errorf("prepare entry migrations: %w", err)
	}
	defer m.Close()

	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		slog.Debug("entry schema already current")
	case err != nil:
		return fmt.Errorf("migrate client_entries: %w", err)
	default:
		version, _, _ := m.Version()
		slog.Info("entry schema migrated", "version", version)
	}
	return nil
}

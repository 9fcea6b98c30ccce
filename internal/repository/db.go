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
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/set-night/vitrine/internal/domain"
)

func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	// A single document row does not need a large pool.
	config.MaxConns = 4
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

func RunMigrations(databaseURL string, migrationsFS fs.FS) error {
	d, err := iofs.New(migrationsFS, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", d, databaseURL)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("run migrations: %w", err)
	}

	version, dirty, _ := m.Version()
	slog.Info("migrations applied", "version", version, "dirty", dirty)
	return nil
}

// PostgresBackend keeps the document in the single row of bot_state.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

func NewPostgresBackend(pool *pgxpool.Pool) *PostgresBackend {
	return &PostgresBackend{pool: pool}
}

func (b *PostgresBackend) Read(ctx context.Context) ([]byte, error) {
	var doc []byte
	err := b.pool.QueryRow(ctx, `SELECT document FROM bot_state WHERE id = 1`).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoDocument
		}
		return nil, fmt.Errorf("select state document: %w", err)
	}
	return doc, nil
}

func (b *PostgresBackend) Write(ctx context.Context, data []byte) error {
	_, err := b.pool.Exec(ctx, `
		INSERT INTO bot_state (id, document, updated_at)
		VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE SET document = EXCLUDED.document, updated_at = now()`,
		string(data),
	)
	if err != nil {
		return fmt.Errorf("upsert state document: %w", err)
	}
	return nil
}

// Package db owns the Postgres pool backing the user settings store.
package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	connectTimeout = 5 * time.Second
	maxConns       = 10
)

type DB struct {
	Pool *pgxpool.Pool
}

// New connects and pings the database. The ping is bounded so a missing
// database fails fast and the caller can fall back to memory.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}
	poolCfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}
	return &DB{Pool: pool}, nil
}

func (d *DB) Close() {
	d.Pool.Close()
}

// Open connects and brings the schema up to date.
func Open(ctx context.Context, databaseURL, migrationsPath string) (*DB, error) {
	d, err := New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(databaseURL, migrationsPath); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func RunMigrations(databaseURL, migrationsPath string) error {
	m, err := migrate.New("file://"+migrationsPath, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if version, dirty, err := m.Version(); err == nil {
		log.Printf("db: schema at version %d (dirty=%v)", version, dirty)
	}
	return nil
}

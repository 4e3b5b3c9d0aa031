// Package store is the Postgres persistence layer: idempotent bar upserts,
// append-only signal inserts, and key-value settings, wired through pgx the
// way the reference stack wires every storage concern.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a pgx connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

// Config holds the connection parameters. DSN takes precedence over the
// discrete fields when non-empty, matching how a DATABASE_URL env var
// overrides individually-named ones.
type Config struct {
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func (c Config) dsn() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// Open creates the connection pool and verifies connectivity. A failure here
// is the one fatal startup condition the core tolerates no workaround for.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close releases the pool.
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS bars (
		symbol TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		open DOUBLE PRECISION NOT NULL,
		high DOUBLE PRECISION NOT NULL,
		low DOUBLE PRECISION NOT NULL,
		close DOUBLE PRECISION NOT NULL,
		volume DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (symbol, timeframe, timestamp)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bars_symbol_tf_ts ON bars(symbol, timeframe, timestamp)`,
	`CREATE TABLE IF NOT EXISTS signals (
		id BIGSERIAL PRIMARY KEY,
		symbol TEXT NOT NULL,
		signal_type TEXT NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		entry DOUBLE PRECISION NOT NULL,
		stop_loss DOUBLE PRECISION NOT NULL,
		take_profit DOUBLE PRECISION NOT NULL,
		quantity DOUBLE PRECISION NOT NULL,
		status TEXT NOT NULL,
		reason TEXT NOT NULL,
		original_sl DOUBLE PRECISION NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_signals_symbol ON signals(symbol)`,
	`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// RunMigrations applies every migration statement, in order, idempotently.
func (db *DB) RunMigrations(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("run migration: %w", err)
		}
	}
	return nil
}

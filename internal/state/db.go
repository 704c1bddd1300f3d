// Package state persists cycle history and cumulative distribution totals
// in PostgreSQL. Everything hangs off a Store value; there is no package
// level connection.
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog"

	"github.com/solflow/feerouter/internal/logger"
)

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// Store wraps the database pool used for cycle persistence.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open connects to PostgreSQL and verifies the connection.
func Open(cfg DBConfig) (*Store, error) {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := sql.Open("postgres", psqlInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{
		db:     db,
		logger: logger.GetForComponent("state_store"),
	}
	store.logger.Info().Str("host", cfg.Host).Str("dbName", cfg.DBName).Msg("Connected to PostgreSQL")
	return store, nil
}

// Close shuts the connection pool down.
func (s *Store) Close() {
	if err := s.db.Close(); err != nil {
		s.logger.Error().Err(err).Msg("Error closing database connection")
	}
}

// Ping verifies the connection is healthy, with a short timeout.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// EnsureSchema applies the DDL for all tables. Safe to run repeatedly.
func (s *Store) EnsureSchema() error {
	schemaSQL := `
		CREATE TABLE IF NOT EXISTS distribution_cycles (
			cycle_id UUID PRIMARY KEY,
			wallet VARCHAR(64) NOT NULL,
			claimed NUMERIC(30, 0) NOT NULL,
			operator_fee NUMERIC(30, 0) NOT NULL,
			total_distributed NUMERIC(30, 0) NOT NULL,
			pending_retry NUMERIC(30, 0) NOT NULL,
			channel_results JSONB,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_distribution_cycles_wallet_started
			ON distribution_cycles(wallet, started_at DESC);

		CREATE TABLE IF NOT EXISTS cumulative_stats (
			wallet VARCHAR(64) PRIMARY KEY,
			total_claimed NUMERIC(30, 0) NOT NULL,
			total_distributed NUMERIC(30, 0) NOT NULL,
			pending_retry NUMERIC(30, 0) NOT NULL,
			cycle_count BIGINT NOT NULL,
			per_channel JSONB,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS cycle_counter (
			id INTEGER PRIMARY KEY DEFAULT 1,
			current_cycle INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT single_row_check CHECK (id = 1)
		);
		INSERT INTO cycle_counter (id, current_cycle)
		VALUES (1, 0)
		ON CONFLICT (id) DO NOTHING;
	`
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	s.logger.Info().Msg("Database schema ensured")
	return nil
}

// Reset drops every table and recreates the schema. Destructive; used by
// the maintenance script only.
func (s *Store) Reset() error {
	dropSQL := `
		DROP TABLE IF EXISTS distribution_cycles CASCADE;
		DROP TABLE IF EXISTS cumulative_stats CASCADE;
		DROP TABLE IF EXISTS cycle_counter CASCADE;
	`
	if _, err := s.db.Exec(dropSQL); err != nil {
		return fmt.Errorf("failed to drop tables: %w", err)
	}
	s.logger.Warn().Msg("All tables dropped")
	return s.EnsureSchema()
}

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"

	"github.com/akihq/aki/internal/profile"
	"github.com/akihq/aki/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a PostgreSQL database with the DSN from the profile.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, fmt.Errorf("dsn required")
	}

	pgDB, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	pgDB.SetMaxOpenConns(10)
	pgDB.SetMaxIdleConns(5)
	pgDB.SetConnMaxLifetime(30 * time.Minute)

	driver := DB{db: pgDB, profile: profile}

	return &driver, nil
}

func (d *DB) GetDB() any {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Migrate creates the schema if it does not exist.
func (d *DB) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS "user" (
			id SERIAL PRIMARY KEY,
			platform_id TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT '',
			username TEXT NOT NULL DEFAULT '',
			created_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			last_active_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,
		`CREATE TABLE IF NOT EXISTS exchange (
			id BIGSERIAL PRIMARY KEY,
			uid TEXT NOT NULL UNIQUE,
			user_id INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			reasoning TEXT,
			created_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_exchange_user_created ON exchange (user_id, created_ts)`,
		`CREATE TABLE IF NOT EXISTS durable_record (
			id BIGSERIAL PRIMARY KEY,
			user_id INTEGER NOT NULL,
			kind TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			importance INTEGER NOT NULL DEFAULT 0,
			exchange_start_ts BIGINT,
			exchange_end_ts BIGINT,
			created_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_durable_record_user_kind ON durable_record (user_id, kind, created_ts)`,
		`CREATE TABLE IF NOT EXISTS scheduled_intent (
			id BIGSERIAL PRIMARY KEY,
			uid TEXT NOT NULL UNIQUE,
			user_id INTEGER NOT NULL,
			scheduled_ts BIGINT NOT NULL,
			category TEXT NOT NULL,
			context TEXT NOT NULL DEFAULT '',
			message TEXT,
			executed BOOLEAN NOT NULL DEFAULT FALSE,
			created_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scheduled_intent_due ON scheduled_intent (executed, scheduled_ts)`,
	}
	for _, stmt := range stmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	return nil
}

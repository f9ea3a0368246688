package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/akihq/aki/internal/profile"
	"github.com/akihq/aki/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the SQLite database named by the profile DSN. SQLite is the
// default driver for personal instances; a single connection with WAL mode
// is all a one-person companion needs.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	// Pragmas for the `modernc.org/sqlite` driver must be prefixed with
	// `_pragma=`. WAL journal mode avoids locking issues; busy_timeout
	// covers the rare write overlap between the chat path and background
	// condensation.
	sqliteDB, err := sql.Open("sqlite", profile.DSN+"?_pragma=foreign_keys(0)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	// Single connection is optimal for SQLite with WAL.
	sqliteDB.SetMaxOpenConns(1)
	sqliteDB.SetMaxIdleConns(1)
	sqliteDB.SetConnMaxLifetime(0)
	sqliteDB.SetConnMaxIdleTime(0)

	driver := DB{db: sqliteDB, profile: profile}

	return &driver, nil
}

func (d *DB) GetDB() any {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Migrate creates the schema if it does not exist. The schema is small and
// append-mostly, so idempotent CREATE IF NOT EXISTS statements are enough;
// there is no versioned migration machinery.
func (d *DB) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS user (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			platform_id TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT '',
			username TEXT NOT NULL DEFAULT '',
			created_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now')),
			last_active_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now'))
		)`,
		`CREATE TABLE IF NOT EXISTS exchange (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			uid TEXT NOT NULL UNIQUE,
			user_id INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			reasoning TEXT,
			created_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_exchange_user_created ON exchange (user_id, created_ts)`,
		`CREATE TABLE IF NOT EXISTS durable_record (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			kind TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			importance INTEGER NOT NULL DEFAULT 0,
			exchange_start_ts BIGINT,
			exchange_end_ts BIGINT,
			created_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_durable_record_user_kind ON durable_record (user_id, kind, created_ts)`,
		`CREATE TABLE IF NOT EXISTS scheduled_intent (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			uid TEXT NOT NULL UNIQUE,
			user_id INTEGER NOT NULL,
			scheduled_ts BIGINT NOT NULL,
			category TEXT NOT NULL,
			context TEXT NOT NULL DEFAULT '',
			message TEXT,
			executed INTEGER NOT NULL DEFAULT 0,
			created_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scheduled_intent_due ON scheduled_intent (executed, scheduled_ts)`,
	}
	for _, stmt := range stmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to migrate schema")
		}
	}
	return nil
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/akihq/aki/store"
)

func (d *DB) UpsertUser(ctx context.Context, upsert *store.UpsertUser) (*store.User, error) {
	lastActiveTs := upsert.LastActiveTs
	if lastActiveTs == 0 {
		lastActiveTs = time.Now().Unix()
	}
	query := `
		INSERT INTO "user" (platform_id, name, username, last_active_ts)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (platform_id) DO UPDATE SET
			name = EXCLUDED.name,
			username = EXCLUDED.username,
			last_active_ts = EXCLUDED.last_active_ts
		RETURNING id, platform_id, name, username, created_ts, last_active_ts
	`
	var user store.User
	err := d.db.QueryRowContext(ctx, query,
		upsert.PlatformID,
		upsert.Name,
		upsert.Username,
		lastActiveTs,
	).Scan(
		&user.ID,
		&user.PlatformID,
		&user.Name,
		&user.Username,
		&user.CreatedTs,
		&user.LastActiveTs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return &user, nil
}

func (d *DB) GetUser(ctx context.Context, find *store.FindUser) (*store.User, error) {
	users, err := d.ListUsers(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	return users[0], nil
}

func (d *DB) ListUsers(ctx context.Context, find *store.FindUser) ([]*store.User, error) {
	query := `
		SELECT id, platform_id, name, username, created_ts, last_active_ts
		FROM "user"
		WHERE 1=1
	`
	var args []any
	argIndex := 1

	if find.ID != nil {
		query += fmt.Sprintf(" AND id = $%d", argIndex)
		args = append(args, *find.ID)
		argIndex++
	}
	if find.PlatformID != nil {
		query += fmt.Sprintf(" AND platform_id = $%d", argIndex)
		args = append(args, *find.PlatformID)
	}

	query += " ORDER BY id ASC"

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*store.User
	for rows.Next() {
		var user store.User
		err := rows.Scan(
			&user.ID,
			&user.PlatformID,
			&user.Name,
			&user.Username,
			&user.CreatedTs,
			&user.LastActiveTs,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &user)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

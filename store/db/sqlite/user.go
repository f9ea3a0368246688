package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/akihq/aki/store"
)

func (d *DB) UpsertUser(ctx context.Context, upsert *store.UpsertUser) (*store.User, error) {
	lastActiveTs := upsert.LastActiveTs
	if lastActiveTs == 0 {
		lastActiveTs = time.Now().Unix()
	}
	stmt := `
		INSERT INTO user (platform_id, name, username, last_active_ts)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (platform_id) DO UPDATE SET
			name = excluded.name,
			username = excluded.username,
			last_active_ts = excluded.last_active_ts
		RETURNING id, platform_id, name, username, created_ts, last_active_ts
	`
	var user store.User
	err := d.db.QueryRowContext(ctx, stmt,
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
		return nil, errors.Wrap(err, "failed to upsert user")
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
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.PlatformID != nil {
		where, args = append(where, "platform_id = ?"), append(args, *find.PlatformID)
	}

	query := `SELECT id, platform_id, name, username, created_ts, last_active_ts
		FROM user
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY id ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list users")
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
			return nil, errors.Wrap(err, "failed to scan user")
		}
		users = append(users, &user)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

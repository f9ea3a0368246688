package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/akihq/aki/store"
)

func (d *DB) CreateScheduledIntent(ctx context.Context, create *store.CreateScheduledIntent) (*store.ScheduledIntent, error) {
	createdTs := create.CreatedTs
	if createdTs == 0 {
		createdTs = time.Now().Unix()
	}
	stmt := `
		INSERT INTO scheduled_intent (uid, user_id, scheduled_ts, category, context, message, executed, created_ts)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?)
		RETURNING id, uid, user_id, scheduled_ts, category, context, message, executed, created_ts
	`
	var intent store.ScheduledIntent
	var message sql.NullString
	err := d.db.QueryRowContext(ctx, stmt,
		create.UID,
		create.UserID,
		create.ScheduledTs,
		create.Category,
		create.Context,
		create.Message,
		createdTs,
	).Scan(
		&intent.ID,
		&intent.UID,
		&intent.UserID,
		&intent.ScheduledTs,
		&intent.Category,
		&intent.Context,
		&message,
		&intent.Executed,
		&intent.CreatedTs,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create scheduled intent")
	}
	if message.Valid {
		intent.Message = &message.String
	}
	return &intent, nil
}

// ListScheduledIntents returns intents ordered by scheduled_ts ascending, so
// the sweep delivers the most overdue intent first.
func (d *DB) ListScheduledIntents(ctx context.Context, find *store.FindScheduledIntent) ([]*store.ScheduledIntent, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.UserID != nil {
		where, args = append(where, "user_id = ?"), append(args, *find.UserID)
	}
	if find.Executed != nil {
		where, args = append(where, "executed = ?"), append(args, *find.Executed)
	}
	if find.DueBefore != nil {
		where, args = append(where, "scheduled_ts <= ?"), append(args, *find.DueBefore)
	}

	query := `SELECT id, uid, user_id, scheduled_ts, category, context, message, executed, created_ts
		FROM scheduled_intent
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY scheduled_ts ASC, id ASC`

	if find.Limit != nil {
		query += " LIMIT ?"
		args = append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list scheduled intents")
	}
	defer rows.Close()

	var intents []*store.ScheduledIntent
	for rows.Next() {
		var intent store.ScheduledIntent
		var message sql.NullString
		err := rows.Scan(
			&intent.ID,
			&intent.UID,
			&intent.UserID,
			&intent.ScheduledTs,
			&intent.Category,
			&intent.Context,
			&message,
			&intent.Executed,
			&intent.CreatedTs,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan scheduled intent")
		}
		if message.Valid {
			intent.Message = &message.String
		}
		intents = append(intents, &intent)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return intents, nil
}

// MarkIntentExecuted sets the one-way executed flag. It never clears it.
func (d *DB) MarkIntentExecuted(ctx context.Context, id int64) error {
	result, err := d.db.ExecContext(ctx, `UPDATE scheduled_intent SET executed = 1 WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "failed to mark intent executed")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get affected rows")
	}
	if affected == 0 {
		return errors.Errorf("scheduled intent not found: %d", id)
	}
	return nil
}

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/akihq/aki/store"
)

func (d *DB) CreateScheduledIntent(ctx context.Context, create *store.CreateScheduledIntent) (*store.ScheduledIntent, error) {
	createdTs := create.CreatedTs
	if createdTs == 0 {
		createdTs = time.Now().Unix()
	}
	query := `
		INSERT INTO scheduled_intent (uid, user_id, scheduled_ts, category, context, message, executed, created_ts)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
		RETURNING id, uid, user_id, scheduled_ts, category, context, message, executed, created_ts
	`
	var intent store.ScheduledIntent
	var message sql.NullString
	err := d.db.QueryRowContext(ctx, query,
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
		return nil, fmt.Errorf("failed to create scheduled intent: %w", err)
	}
	if message.Valid {
		intent.Message = &message.String
	}
	return &intent, nil
}

// ListScheduledIntents returns intents ordered by scheduled_ts ascending.
func (d *DB) ListScheduledIntents(ctx context.Context, find *store.FindScheduledIntent) ([]*store.ScheduledIntent, error) {
	query := `
		SELECT id, uid, user_id, scheduled_ts, category, context, message, executed, created_ts
		FROM scheduled_intent
		WHERE 1=1
	`
	var args []any
	argIndex := 1

	if find.UserID != nil {
		query += fmt.Sprintf(" AND user_id = $%d", argIndex)
		args = append(args, *find.UserID)
		argIndex++
	}
	if find.Executed != nil {
		query += fmt.Sprintf(" AND executed = $%d", argIndex)
		args = append(args, *find.Executed)
		argIndex++
	}
	if find.DueBefore != nil {
		query += fmt.Sprintf(" AND scheduled_ts <= $%d", argIndex)
		args = append(args, *find.DueBefore)
		argIndex++
	}

	query += " ORDER BY scheduled_ts ASC, id ASC"

	if find.Limit != nil {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled intents: %w", err)
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
			return nil, fmt.Errorf("failed to scan scheduled intent: %w", err)
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
	result, err := d.db.ExecContext(ctx, `UPDATE scheduled_intent SET executed = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark intent executed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("scheduled intent not found: %d", id)
	}
	return nil
}

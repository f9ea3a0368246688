package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/akihq/aki/store"
)

func (d *DB) CreateDurableRecord(ctx context.Context, create *store.CreateDurableRecord) (*store.DurableRecord, error) {
	createdTs := create.CreatedTs
	if createdTs == 0 {
		createdTs = time.Now().Unix()
	}
	query := `
		INSERT INTO durable_record (user_id, kind, title, content, importance, exchange_start_ts, exchange_end_ts, created_ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, user_id, kind, title, content, importance, exchange_start_ts, exchange_end_ts, created_ts
	`
	var record store.DurableRecord
	var startTs, endTs sql.NullInt64
	err := d.db.QueryRowContext(ctx, query,
		create.UserID,
		create.Kind,
		create.Title,
		create.Content,
		create.Importance,
		create.ExchangeStartTs,
		create.ExchangeEndTs,
		createdTs,
	).Scan(
		&record.ID,
		&record.UserID,
		&record.Kind,
		&record.Title,
		&record.Content,
		&record.Importance,
		&startTs,
		&endTs,
		&record.CreatedTs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create durable record: %w", err)
	}
	if startTs.Valid {
		record.ExchangeStartTs = &startTs.Int64
	}
	if endTs.Valid {
		record.ExchangeEndTs = &endTs.Int64
	}
	return &record, nil
}

// ListDurableRecords returns records newest-first.
func (d *DB) ListDurableRecords(ctx context.Context, find *store.FindDurableRecord) ([]*store.DurableRecord, error) {
	query := `
		SELECT id, user_id, kind, title, content, importance, exchange_start_ts, exchange_end_ts, created_ts
		FROM durable_record
		WHERE 1=1
	`
	var args []any
	argIndex := 1

	if find.UserID != nil {
		query += fmt.Sprintf(" AND user_id = $%d", argIndex)
		args = append(args, *find.UserID)
		argIndex++
	}
	if find.Kind != nil {
		query += fmt.Sprintf(" AND kind = $%d", argIndex)
		args = append(args, string(*find.Kind))
		argIndex++
	}

	query += " ORDER BY created_ts DESC, id DESC"

	if find.Limit != nil {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list durable records: %w", err)
	}
	defer rows.Close()

	var records []*store.DurableRecord
	for rows.Next() {
		var record store.DurableRecord
		var startTs, endTs sql.NullInt64
		err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.Kind,
			&record.Title,
			&record.Content,
			&record.Importance,
			&startTs,
			&endTs,
			&record.CreatedTs,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan durable record: %w", err)
		}
		if startTs.Valid {
			record.ExchangeStartTs = &startTs.Int64
		}
		if endTs.Valid {
			record.ExchangeEndTs = &endTs.Int64
		}
		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

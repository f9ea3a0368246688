package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/akihq/aki/store"
)

func (d *DB) CreateDurableRecord(ctx context.Context, create *store.CreateDurableRecord) (*store.DurableRecord, error) {
	createdTs := create.CreatedTs
	if createdTs == 0 {
		createdTs = time.Now().Unix()
	}
	stmt := `
		INSERT INTO durable_record (user_id, kind, title, content, importance, exchange_start_ts, exchange_end_ts, created_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id, user_id, kind, title, content, importance, exchange_start_ts, exchange_end_ts, created_ts
	`
	var record store.DurableRecord
	var startTs, endTs sql.NullInt64
	err := d.db.QueryRowContext(ctx, stmt,
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
		return nil, errors.Wrap(err, "failed to create durable record")
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
	where, args := []string{"1 = 1"}, []any{}

	if find.UserID != nil {
		where, args = append(where, "user_id = ?"), append(args, *find.UserID)
	}
	if find.Kind != nil {
		where, args = append(where, "kind = ?"), append(args, string(*find.Kind))
	}

	query := `SELECT id, user_id, kind, title, content, importance, exchange_start_ts, exchange_end_ts, created_ts
		FROM durable_record
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC, id DESC`

	if find.Limit != nil {
		query += " LIMIT ?"
		args = append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list durable records")
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
			return nil, errors.Wrap(err, "failed to scan durable record")
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

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/akihq/aki/store"
)

func (d *DB) CreateExchange(ctx context.Context, create *store.CreateExchange) (*store.Exchange, error) {
	createdTs := create.CreatedTs
	if createdTs == 0 {
		createdTs = time.Now().Unix()
	}
	query := `
		INSERT INTO exchange (uid, user_id, role, content, reasoning, created_ts)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, uid, user_id, role, content, reasoning, created_ts
	`
	var exchange store.Exchange
	var reasoning sql.NullString
	err := d.db.QueryRowContext(ctx, query,
		create.UID,
		create.UserID,
		create.Role,
		create.Content,
		create.Reasoning,
		createdTs,
	).Scan(
		&exchange.ID,
		&exchange.UID,
		&exchange.UserID,
		&exchange.Role,
		&exchange.Content,
		&reasoning,
		&exchange.CreatedTs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create exchange: %w", err)
	}
	if reasoning.Valid {
		exchange.Reasoning = &reasoning.String
	}
	return &exchange, nil
}

// ListExchanges returns exchanges in chronological order. A Limit bounds the
// most recent tail, so the query selects newest-first and the result is
// reversed before returning.
func (d *DB) ListExchanges(ctx context.Context, find *store.FindExchange) ([]*store.Exchange, error) {
	query := `
		SELECT id, uid, user_id, role, content, reasoning, created_ts
		FROM exchange
		WHERE 1=1
	`
	var args []any
	argIndex := 1

	if find.UserID != nil {
		query += fmt.Sprintf(" AND user_id = $%d", argIndex)
		args = append(args, *find.UserID)
		argIndex++
	}
	if find.AfterTs != nil {
		query += fmt.Sprintf(" AND created_ts > $%d", argIndex)
		args = append(args, *find.AfterTs)
		argIndex++
	}

	query += " ORDER BY created_ts DESC, id DESC"

	if find.Limit != nil {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list exchanges: %w", err)
	}
	defer rows.Close()

	var exchanges []*store.Exchange
	for rows.Next() {
		var exchange store.Exchange
		var reasoning sql.NullString
		err := rows.Scan(
			&exchange.ID,
			&exchange.UID,
			&exchange.UserID,
			&exchange.Role,
			&exchange.Content,
			&reasoning,
			&exchange.CreatedTs,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan exchange: %w", err)
		}
		if reasoning.Valid {
			exchange.Reasoning = &reasoning.String
		}
		exchanges = append(exchanges, &exchange)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(exchanges)-1; i < j; i, j = i+1, j-1 {
		exchanges[i], exchanges[j] = exchanges[j], exchanges[i]
	}

	return exchanges, nil
}

func (d *DB) CountExchangesAfter(ctx context.Context, userID int32, afterTs int64) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM exchange WHERE user_id = $1 AND created_ts > $2`,
		userID, afterTs,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count exchanges: %w", err)
	}
	return count, nil
}

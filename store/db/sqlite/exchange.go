package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/akihq/aki/store"
)

func (d *DB) CreateExchange(ctx context.Context, create *store.CreateExchange) (*store.Exchange, error) {
	createdTs := create.CreatedTs
	if createdTs == 0 {
		createdTs = time.Now().Unix()
	}
	stmt := `
		INSERT INTO exchange (uid, user_id, role, content, reasoning, created_ts)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id, uid, user_id, role, content, reasoning, created_ts
	`
	var exchange store.Exchange
	var reasoning sql.NullString
	err := d.db.QueryRowContext(ctx, stmt,
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
		return nil, errors.Wrap(err, "failed to create exchange")
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
	where, args := []string{"1 = 1"}, []any{}

	if find.UserID != nil {
		where, args = append(where, "user_id = ?"), append(args, *find.UserID)
	}
	if find.AfterTs != nil {
		where, args = append(where, "created_ts > ?"), append(args, *find.AfterTs)
	}

	query := `SELECT id, uid, user_id, role, content, reasoning, created_ts
		FROM exchange
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC, id DESC`

	if find.Limit != nil {
		query += " LIMIT ?"
		args = append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list exchanges")
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
			return nil, errors.Wrap(err, "failed to scan exchange")
		}
		if reasoning.Valid {
			exchange.Reasoning = &reasoning.String
		}
		exchanges = append(exchanges, &exchange)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to chronological, newest-last.
	for i, j := 0, len(exchanges)-1; i < j; i, j = i+1, j-1 {
		exchanges[i], exchanges[j] = exchanges[j], exchanges[i]
	}

	return exchanges, nil
}

func (d *DB) CountExchangesAfter(ctx context.Context, userID int32, afterTs int64) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM exchange WHERE user_id = ? AND created_ts > ?`,
		userID, afterTs,
	).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count exchanges")
	}
	return count, nil
}

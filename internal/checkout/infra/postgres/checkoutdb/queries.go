// Package checkoutdb holds the cart_cleanups and checkout_keys SQL.
package checkoutdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dwikikusuma/storefront/pkg/postgres"
)

type Queries struct {
	db postgres.DBTX
}

func New(db postgres.DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type CartCleanup struct {
	OrderID   uuid.UUID
	UserID    uuid.UUID
	OrderedAt time.Time
	Attempts  int
}

type InsertCleanupParams struct {
	OrderID   uuid.UUID
	UserID    uuid.UUID
	OrderedAt time.Time
}

const insertCleanup = `
INSERT INTO cart_cleanups (order_id, user_id, ordered_at)
VALUES ($1, $2, $3)`

func (q *Queries) InsertCleanup(ctx context.Context, arg InsertCleanupParams) error {
	_, err := q.db.ExecContext(ctx, insertCleanup, arg.OrderID, arg.UserID, arg.OrderedAt)
	return err
}

type ListPendingParams struct {
	OlderThan time.Time
	Limit     int32
}

const listPending = `
SELECT order_id, user_id, ordered_at, attempts
FROM cart_cleanups
WHERE done_at IS NULL AND ordered_at < $1
ORDER BY ordered_at
LIMIT $2`

func (q *Queries) ListPending(ctx context.Context, arg ListPendingParams) ([]CartCleanup, error) {
	rows, err := q.db.QueryContext(ctx, listPending, arg.OlderThan, arg.Limit)
	if err != nil {
		return nil, fmt.Errorf("list pending cleanups: %w", err)
	}
	defer rows.Close()

	var out []CartCleanup
	for rows.Next() {
		var c CartCleanup
		if err := rows.Scan(&c.OrderID, &c.UserID, &c.OrderedAt, &c.Attempts); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const markDone = `
UPDATE cart_cleanups
SET done_at = now(), last_error = NULL
WHERE order_id = $1 AND done_at IS NULL`

func (q *Queries) MarkDone(ctx context.Context, orderID uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, markDone, orderID)
	return err
}

const markFailed = `
UPDATE cart_cleanups
SET attempts = attempts + 1, last_error = $2
WHERE order_id = $1`

func (q *Queries) MarkFailed(ctx context.Context, orderID uuid.UUID, reason string) error {
	_, err := q.db.ExecContext(ctx, markFailed, orderID, reason)
	return err
}

type InsertCheckoutKeyParams struct {
	UserID  uuid.UUID
	Key     string
	OrderID uuid.UUID
}

const insertCheckoutKey = `
INSERT INTO checkout_keys (user_id, key, order_id)
VALUES ($1, $2, $3)`

func (q *Queries) InsertCheckoutKey(ctx context.Context, arg InsertCheckoutKeyParams) error {
	_, err := q.db.ExecContext(ctx, insertCheckoutKey, arg.UserID, arg.Key, arg.OrderID)
	return err
}

const getCheckoutKey = `
SELECT order_id
FROM checkout_keys
WHERE user_id = $1 AND key = $2`

func (q *Queries) GetCheckoutKey(ctx context.Context, userID uuid.UUID, key string) (uuid.UUID, error) {
	var orderID uuid.UUID
	err := q.db.QueryRowContext(ctx, getCheckoutKey, userID, key).Scan(&orderID)
	return orderID, err
}

// Package inventorydb holds the stock SQL.
package inventorydb

import (
	"context"
	"database/sql"

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

type DecrementStockParams struct {
	ID       uuid.UUID
	Quantity int64
}

// Only the WHERE clause decides whether a reservation fits; the row lock taken
// by the UPDATE serializes concurrent decrements of the same product.
const decrementStock = `
UPDATE products
SET stock = stock - $2, updated_at = now()
WHERE id = $1
  AND is_disabled = FALSE
  AND deleted_at IS NULL
  AND stock >= $2`

func (q *Queries) DecrementStock(ctx context.Context, arg DecrementStockParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, decrementStock, arg.ID, arg.Quantity)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type StockRow struct {
	Stock      int64
	IsDisabled bool
	Deleted    bool
}

const getStock = `
SELECT stock, is_disabled, deleted_at IS NOT NULL
FROM products
WHERE id = $1`

func (q *Queries) GetStock(ctx context.Context, id uuid.UUID) (StockRow, error) {
	var r StockRow
	err := q.db.QueryRowContext(ctx, getStock, id).Scan(&r.Stock, &r.IsDisabled, &r.Deleted)
	return r, err
}

type IncrementStockParams struct {
	ID       uuid.UUID
	Quantity int64
}

const incrementStock = `
UPDATE products
SET stock = stock + $2, updated_at = now()
WHERE id = $1 AND deleted_at IS NULL
RETURNING stock`

func (q *Queries) IncrementStock(ctx context.Context, arg IncrementStockParams) (int64, error) {
	var stock int64
	err := q.db.QueryRowContext(ctx, incrementStock, arg.ID, arg.Quantity).Scan(&stock)
	return stock, err
}

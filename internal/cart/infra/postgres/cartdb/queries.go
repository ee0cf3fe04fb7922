// Package cartdb holds the cart SQL and its row types.
package cartdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

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

type Cart struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

const getCartByUserID = `
SELECT id, user_id, created_at, updated_at
FROM carts
WHERE user_id = $1`

func (q *Queries) GetCartByUserID(ctx context.Context, userID uuid.UUID) (Cart, error) {
	var c Cart
	err := q.db.QueryRowContext(ctx, getCartByUserID, userID).
		Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

const createCart = `
INSERT INTO carts (user_id)
VALUES ($1)
RETURNING id, user_id, created_at, updated_at`

func (q *Queries) CreateCart(ctx context.Context, userID uuid.UUID) (Cart, error) {
	var c Cart
	err := q.db.QueryRowContext(ctx, createCart, userID).
		Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

const deleteCartByUserID = `DELETE FROM carts WHERE user_id = $1`

func (q *Queries) DeleteCartByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteCartByUserID, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const touchCart = `UPDATE carts SET updated_at = now() WHERE id = $1`

func (q *Queries) TouchCart(ctx context.Context, cartID uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, touchCart, cartID)
	return err
}

// CartItem is a cart line joined with its product and category.
type CartItem struct {
	ProductID    uuid.UUID
	Quantity     int32
	UpdatedAt    time.Time
	Name         string
	Description  string
	CategoryID   uuid.NullUUID
	CategoryName sql.NullString
	Price        decimal.Decimal
	Stock        int64
	IsDisabled   bool
	Deleted      bool
}

const listCartItems = `
SELECT ci.product_id, ci.quantity, ci.updated_at,
       p.name, p.description, p.category_id, c.name,
       p.price, p.stock, p.is_disabled, p.deleted_at IS NOT NULL
FROM cart_items ci
JOIN products p ON p.id = ci.product_id
LEFT JOIN categories c ON c.id = p.category_id
WHERE ci.cart_id = $1
ORDER BY ci.created_at, ci.product_id`

func (q *Queries) ListCartItems(ctx context.Context, cartID uuid.UUID) ([]CartItem, error) {
	rows, err := q.db.QueryContext(ctx, listCartItems, cartID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()

	var out []CartItem
	for rows.Next() {
		var it CartItem
		if err := rows.Scan(
			&it.ProductID, &it.Quantity, &it.UpdatedAt,
			&it.Name, &it.Description, &it.CategoryID, &it.CategoryName,
			&it.Price, &it.Stock, &it.IsDisabled, &it.Deleted,
		); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

type SetItemQuantityParams struct {
	CartID    uuid.UUID
	ProductID uuid.UUID
	Quantity  int32
}

const setItemQuantity = `
INSERT INTO cart_items (cart_id, product_id, quantity)
VALUES ($1, $2, $3)
ON CONFLICT (cart_id, product_id)
DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()`

func (q *Queries) SetItemQuantity(ctx context.Context, arg SetItemQuantityParams) error {
	_, err := q.db.ExecContext(ctx, setItemQuantity, arg.CartID, arg.ProductID, arg.Quantity)
	return err
}

type RemoveItemParams struct {
	CartID    uuid.UUID
	ProductID uuid.UUID
}

const removeItem = `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`

func (q *Queries) RemoveItem(ctx context.Context, arg RemoveItemParams) error {
	_, err := q.db.ExecContext(ctx, removeItem, arg.CartID, arg.ProductID)
	return err
}

const deleteItemsNotModifiedSince = `
DELETE FROM cart_items ci
USING carts c
WHERE ci.cart_id = c.id
  AND c.user_id = $1
  AND ci.updated_at <= $2`

func (q *Queries) DeleteItemsNotModifiedSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteItemsNotModifiedSince, userID, since)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

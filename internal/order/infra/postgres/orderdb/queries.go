// Package orderdb holds the order SQL and its row types.
package orderdb

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

type Order struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Total     decimal.Decimal
	CreatedAt time.Time
}

type CreateOrderParams struct {
	UserID uuid.UUID
	Total  decimal.Decimal
}

const createOrder = `
INSERT INTO orders (user_id, total)
VALUES ($1, $2)
RETURNING id, user_id, total, created_at`

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	var o Order
	err := q.db.QueryRowContext(ctx, createOrder, arg.UserID, arg.Total).
		Scan(&o.ID, &o.UserID, &o.Total, &o.CreatedAt)
	return o, err
}

type AddOrderItemParams struct {
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Price     decimal.Decimal
	Quantity  int64
}

const addOrderItem = `
INSERT INTO order_items (order_id, product_id, price, quantity)
VALUES ($1, $2, $3, $4)
RETURNING id`

func (q *Queries) AddOrderItem(ctx context.Context, arg AddOrderItemParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRowContext(ctx, addOrderItem, arg.OrderID, arg.ProductID, arg.Price, arg.Quantity).Scan(&id)
	return id, err
}

const orderColumns = `SELECT id, user_id, total, created_at FROM orders`

func scanOrders(rows *sql.Rows) ([]Order, error) {
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Total, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (q *Queries) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	rows, err := q.db.QueryContext(ctx,
		orderColumns+` WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return scanOrders(rows)
}

type GetOrderParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
}

func (q *Queries) GetOrder(ctx context.Context, arg GetOrderParams) (Order, error) {
	var o Order
	err := q.db.QueryRowContext(ctx, orderColumns+` WHERE id = $1 AND user_id = $2`, arg.ID, arg.UserID).
		Scan(&o.ID, &o.UserID, &o.Total, &o.CreatedAt)
	return o, err
}

// OrderItem is an order line joined with the product's current name and
// category.
type OrderItem struct {
	ID           uuid.UUID
	OrderID      uuid.UUID
	ProductID    uuid.UUID
	Price        decimal.Decimal
	Quantity     int64
	ProductName  string
	CategoryID   uuid.NullUUID
	CategoryName sql.NullString
}

const listOrderItems = `
SELECT oi.id, oi.order_id, oi.product_id, oi.price, oi.quantity,
       p.name, p.category_id, c.name
FROM order_items oi
JOIN products p ON p.id = oi.product_id
LEFT JOIN categories c ON c.id = p.category_id
WHERE oi.order_id = ANY($1::text::uuid[])
ORDER BY oi.order_id, p.name, oi.id`

func (q *Queries) ListOrderItems(ctx context.Context, orderIDs []uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.QueryContext(ctx, listOrderItems, postgres.TextArray(orderIDs))
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	var out []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(
			&it.ID, &it.OrderID, &it.ProductID, &it.Price, &it.Quantity,
			&it.ProductName, &it.CategoryID, &it.CategoryName,
		); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

const userExists = `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`

func (q *Queries) UserExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var ok bool
	err := q.db.QueryRowContext(ctx, userExists, id).Scan(&ok)
	return ok, err
}

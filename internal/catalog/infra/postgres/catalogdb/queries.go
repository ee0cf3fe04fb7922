// Package catalogdb holds the catalog SQL and its row types.
package catalogdb

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

type Product struct {
	ID           uuid.UUID
	Name         string
	Description  string
	CategoryID   uuid.NullUUID
	CategoryName sql.NullString
	Price        decimal.Decimal
	Stock        int64
	IsDisabled   bool
	DeletedAt    sql.NullTime
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const productColumns = `
	p.id, p.name, p.description, p.category_id, c.name,
	p.price, p.stock, p.is_disabled, p.deleted_at, p.created_at, p.updated_at`

const productFrom = `
	FROM products p
	LEFT JOIN categories c ON c.id = p.category_id`

func scanProduct(row interface{ Scan(...any) error }) (Product, error) {
	var p Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.CategoryID, &p.CategoryName,
		&p.Price, &p.Stock, &p.IsDisabled, &p.DeletedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

func scanProducts(rows *sql.Rows) ([]Product, error) {
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type CreateProductParams struct {
	Name        string
	Description string
	CategoryID  uuid.NullUUID
	Price       decimal.Decimal
	Stock       int64
}

const createProduct = `
INSERT INTO products (name, description, category_id, price, stock)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	var id uuid.UUID
	if err := q.db.QueryRowContext(ctx, createProduct,
		arg.Name, arg.Description, arg.CategoryID, arg.Price, arg.Stock,
	).Scan(&id); err != nil {
		return Product{}, err
	}
	return q.GetProduct(ctx, id)
}

func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+productColumns+productFrom+` WHERE p.id = $1`, id)
	return scanProduct(row)
}

func (q *Queries) ListProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+productColumns+productFrom+` WHERE p.id = ANY($1::text::uuid[]) ORDER BY p.id`,
		postgres.TextArray(ids))
	if err != nil {
		return nil, fmt.Errorf("list products by ids: %w", err)
	}
	return scanProducts(rows)
}

type ListProductsParams struct {
	Query  string
	Cursor uuid.NullUUID
	Limit  int32
}

const listProducts = `
WHERE p.is_disabled = FALSE
  AND p.deleted_at IS NULL
  AND ($1::text = '' OR p.name ILIKE '%' || $1::text || '%')
  AND ($2::uuid IS NULL OR p.id > $2::uuid)
ORDER BY p.id
LIMIT $3`

func (q *Queries) ListProducts(ctx context.Context, arg ListProductsParams) ([]Product, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+productColumns+productFrom+listProducts,
		arg.Query, arg.Cursor, arg.Limit)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return scanProducts(rows)
}

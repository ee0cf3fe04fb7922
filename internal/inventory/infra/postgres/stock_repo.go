package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dwikikusuma/storefront/internal/inventory/domain"
	"github.com/dwikikusuma/storefront/internal/inventory/infra/postgres/inventorydb"
	"github.com/dwikikusuma/storefront/pkg/apperr"
	pg "github.com/dwikikusuma/storefront/pkg/postgres"
)

// StockRepo works on whatever DBTX it was built with. Reservations pass the
// checkout transaction; Restock runs on the pool.
type StockRepo struct {
	q *inventorydb.Queries
}

func NewStockRepo(db pg.DBTX) *StockRepo {
	return &StockRepo{q: inventorydb.New(db)}
}

func (r *StockRepo) DecrementIfAvailable(ctx context.Context, productID string, qty int64) (bool, error) {
	id, err := uuid.Parse(productID)
	if err != nil {
		return false, apperr.Invalidf("inventory.Decrement", "malformed product id %q", productID)
	}

	n, err := r.q.DecrementStock(ctx, inventorydb.DecrementStockParams{ID: id, Quantity: qty})
	if err != nil {
		return false, fmt.Errorf("decrement stock: %w", err)
	}
	return n == 1, nil
}

func (r *StockRepo) StockState(ctx context.Context, productID string) (domain.StockState, error) {
	id, err := uuid.Parse(productID)
	if err != nil {
		return domain.StockState{}, apperr.Invalidf("inventory.StockState", "malformed product id %q", productID)
	}

	row, err := r.q.GetStock(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.StockState{ProductID: productID}, nil
	}
	if err != nil {
		return domain.StockState{}, fmt.Errorf("get stock: %w", err)
	}
	return domain.StockState{
		ProductID: productID,
		Exists:    true,
		Eligible:  !row.IsDisabled && !row.Deleted,
		Stock:     row.Stock,
	}, nil
}

func (r *StockRepo) Increment(ctx context.Context, productID string, qty int64) (int64, error) {
	id, err := uuid.Parse(productID)
	if err != nil {
		return 0, apperr.Invalidf("inventory.Increment", "malformed product id %q", productID)
	}

	stock, err := r.q.IncrementStock(ctx, inventorydb.IncrementStockParams{ID: id, Quantity: qty})
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperr.NotFoundf("inventory.Restock", "product %s not found", productID)
	}
	if err != nil {
		return 0, fmt.Errorf("increment stock: %w", err)
	}
	return stock, nil
}

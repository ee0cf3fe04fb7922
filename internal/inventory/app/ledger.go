package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dwikikusuma/storefront/internal/inventory/domain"
	"github.com/dwikikusuma/storefront/pkg/apperr"
	"github.com/dwikikusuma/storefront/pkg/metrics"
)

// StockStore is bound to the caller's transaction.
type StockStore interface {
	// DecrementIfAvailable takes qty units when the product is eligible and
	// has at least qty in stock. It reports false when no row qualified.
	DecrementIfAvailable(ctx context.Context, productID string, qty int64) (bool, error)
	StockState(ctx context.Context, productID string) (domain.StockState, error)
}

type Restocker interface {
	Increment(ctx context.Context, productID string, qty int64) (int64, error)
}

type Ledger struct {
	restocker Restocker
	metrics   *metrics.Checkout
	log       *slog.Logger
}

func NewLedger(restocker Restocker, m *metrics.Checkout, log *slog.Logger) *Ledger {
	if log == nil {
		log = slog.Default()
	}
	return &Ledger{restocker: restocker, metrics: m, log: log}
}

// Reserve decrements stock for every demand through tx. On failure some
// decrements may already have been applied; the caller must roll tx back.
func (l *Ledger) Reserve(ctx context.Context, tx StockStore, demands []domain.Demand) (domain.Reservation, error) {
	const op = "inventory.Reserve"

	if len(demands) == 0 {
		return domain.Reservation{}, apperr.Invalidf(op, "nothing to reserve")
	}
	for _, d := range demands {
		if _, err := uuid.Parse(d.ProductID); err != nil {
			return domain.Reservation{}, apperr.Invalidf(op, "malformed product id %q", d.ProductID)
		}
		if d.Quantity < 1 {
			return domain.Reservation{}, apperr.Invalidf(op, "quantity for product %s must be at least 1, got %d", d.ProductID, d.Quantity)
		}
	}

	lines := domain.Merge(demands)
	for _, d := range lines {
		ok, err := tx.DecrementIfAvailable(ctx, d.ProductID, d.Quantity)
		if err != nil {
			return domain.Reservation{}, fmt.Errorf("reserve %s: %w", d.ProductID, err)
		}
		if ok {
			continue
		}
		return domain.Reservation{}, l.explain(ctx, tx, d)
	}

	return domain.Reservation{Lines: lines}, nil
}

// explain turns a rejected decrement into the error the caller reports.
func (l *Ledger) explain(ctx context.Context, tx StockStore, d domain.Demand) error {
	const op = "inventory.Reserve"

	state, err := tx.StockState(ctx, d.ProductID)
	if err != nil {
		return fmt.Errorf("read stock of %s: %w", d.ProductID, err)
	}

	if !state.Exists || !state.Eligible {
		l.metrics.ReservationFailed("unavailable")
		l.log.InfoContext(ctx, "reservation rejected",
			slog.String("product_id", d.ProductID), slog.String("reason", "unavailable"))
		return apperr.Unavailable(op, d.ProductID)
	}

	l.metrics.ReservationFailed("out_of_stock")
	l.log.InfoContext(ctx, "reservation rejected",
		slog.String("product_id", d.ProductID),
		slog.String("reason", "out_of_stock"),
		slog.Int64("requested", d.Quantity),
		slog.Int64("available", state.Stock))
	return apperr.NoStock(op, d.ProductID, state.Stock)
}

// Restock adds qty units and returns the new stock level.
func (l *Ledger) Restock(ctx context.Context, productID string, qty int64) (int64, error) {
	const op = "inventory.Restock"

	if _, err := uuid.Parse(productID); err != nil {
		return 0, apperr.Invalidf(op, "malformed product id %q", productID)
	}
	if qty <= 0 {
		return 0, apperr.Invalidf(op, "restock quantity must be positive, got %d", qty)
	}

	stock, err := l.restocker.Increment(ctx, productID, qty)
	if err != nil {
		return 0, err
	}
	l.log.InfoContext(ctx, "product restocked",
		slog.String("product_id", productID), slog.Int64("added", qty), slog.Int64("stock", stock))
	return stock, nil
}

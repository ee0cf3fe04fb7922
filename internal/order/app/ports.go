package app

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/dwikikusuma/storefront/internal/order/domain"
)

// OrderWriter is bound to the checkout transaction.
type OrderWriter interface {
	InsertOrder(ctx context.Context, userID string, total decimal.Decimal) (domain.Order, error)
	InsertItem(ctx context.Context, orderID string, line domain.Line) (domain.OrderItem, error)
}

type OrderReader interface {
	// ListByUser returns orders newest first, items and product views filled in.
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	// Get is NotFound unless the order exists and belongs to userID.
	Get(ctx context.Context, userID, orderID string) (domain.Order, error)
}

type UserDirectory interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

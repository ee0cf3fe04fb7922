package app

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dwikikusuma/storefront/internal/checkout/domain"
	invapp "github.com/dwikikusuma/storefront/internal/inventory/app"
	invdomain "github.com/dwikikusuma/storefront/internal/inventory/domain"
	orderapp "github.com/dwikikusuma/storefront/internal/order/app"
	orderdomain "github.com/dwikikusuma/storefront/internal/order/domain"
)

// CartItem is an eligible, priced cart line.
type CartItem struct {
	ProductID string
	Name      string
	Quantity  int64
	UnitPrice decimal.Decimal
}

type CartReader interface {
	// GetCart returns the user's purchasable lines, creating the cart if needed.
	GetCart(ctx context.Context, userID string) ([]CartItem, error)
}

type CartClearer interface {
	// ClearCheckedOut drops the lines not modified after orderedAt.
	ClearCheckedOut(ctx context.Context, userID string, orderedAt time.Time) (int64, error)
}

// ErrKeyClaimed is returned by Tx.ClaimKey when another checkout already
// holds the user's idempotency key.
var ErrKeyClaimed = errors.New("idempotency key already used")

// Tx is one checkout transaction. Everything written through it commits or
// rolls back together.
type Tx interface {
	Stock() invapp.StockStore
	Orders() orderapp.OrderWriter
	RecordCleanup(ctx context.Context, c domain.Cleanup) error
	RecordOrderCreated(ctx context.Context, order orderdomain.Order) error
	// ClaimKey ties key to orderID for the user, or fails with ErrKeyClaimed.
	ClaimKey(ctx context.Context, userID, key, orderID string) error
}

type TxRunner interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

type StockReserver interface {
	Reserve(ctx context.Context, tx invapp.StockStore, demands []invdomain.Demand) (invdomain.Reservation, error)
}

type OrderCreator interface {
	CreateOrder(ctx context.Context, tx orderapp.OrderWriter, userID string, lines []orderdomain.Line, total decimal.Decimal) (orderdomain.Order, error)
	GetOrder(ctx context.Context, userID, orderID string) (orderdomain.Order, error)
}

type KeyStore interface {
	// OrderForKey returns the order a committed checkout stored under key.
	OrderForKey(ctx context.Context, userID, key string) (orderID string, ok bool, err error)
}

type CleanupStore interface {
	// Pending returns undone markers for orders placed before olderThan.
	Pending(ctx context.Context, olderThan time.Time, limit int) ([]domain.Cleanup, error)
	MarkDone(ctx context.Context, orderID string) error
	MarkFailed(ctx context.Context, orderID string, reason string) error
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type QuoteLine struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Quote is a priced cart. Checkout reserves and orders exactly these lines.
type Quote struct {
	Lines []QuoteLine     `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

// State names a checkout step. It is only used for logging; nothing is
// persisted between steps.
type State string

const (
	StateStart        State = "START"
	StatePriceCart    State = "PRICE_CART"
	StateReserveStock State = "RESERVE_STOCK"
	StateCreateOrder  State = "CREATE_ORDER"
	StateCommit       State = "COMMIT"
	StateClearCart    State = "CLEAR_CART"
	StateDone         State = "DONE"
	StateAborted      State = "ABORTED"
	// StateCartStale means the order committed but the cart still holds the
	// purchased lines; the reconciler finishes the job.
	StateCartStale State = "ORDER_CREATED_CART_STALE"
)

const EventOrderCreated = "order.created"

type EventLine struct {
	ProductID string          `json:"product_id"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
}

type OrderCreated struct {
	Type      string          `json:"type"`
	OrderID   string          `json:"order_id"`
	UserID    string          `json:"user_id"`
	Total     decimal.Decimal `json:"total"`
	Lines     []EventLine     `json:"lines"`
	CreatedAt time.Time       `json:"created_at"`
}

// Cleanup is the durable marker that a committed order's cart still needs
// clearing.
type Cleanup struct {
	OrderID   string
	UserID    string
	OrderedAt time.Time
	Attempts  int
}

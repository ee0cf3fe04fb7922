package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Total     decimal.Decimal `json:"total"`
	Items     []OrderItem     `json:"items"`
	CreatedAt time.Time       `json:"created_at"`
}

// OrderItem is immutable once written. Price is the unit price at checkout,
// not the product's current price.
type OrderItem struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	ProductID string          `json:"product_id"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
	Product   *Product        `json:"product,omitempty"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(i.Quantity))
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Product is the catalog's current view of an ordered product.
type Product struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Category *Category `json:"category,omitempty"`
}

// Line is one priced cart line handed to the ledger at checkout.
type Line struct {
	ProductID string
	Price     decimal.Decimal
	Quantity  int64
}

// Sum is the order total implied by lines.
func Sum(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Price.Mul(decimal.NewFromInt(l.Quantity)))
	}
	return total
}

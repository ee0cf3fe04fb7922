package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Cart struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Product is the catalog data joined onto a cart line.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    *Category       `json:"category,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int64           `json:"stock"`
	Available   bool            `json:"-"`
}

type CartItem struct {
	ProductID string    `json:"product_id"`
	Quantity  int32     `json:"quantity"`
	Product   Product   `json:"product"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LineTotal is quantity * price, ignoring availability.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Product.Price.Mul(decimal.NewFromInt32(i.Quantity))
}

type CartView struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	Items      []CartItem      `json:"items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// NewView prices a cart. Lines whose product is no longer available are left
// out of the view and contribute nothing to the total; their rows are kept.
func NewView(cart Cart, items []CartItem) CartView {
	view := CartView{
		ID:         cart.ID,
		UserID:     cart.UserID,
		Items:      make([]CartItem, 0, len(items)),
		TotalPrice: decimal.Zero,
		CreatedAt:  cart.CreatedAt,
		UpdatedAt:  cart.UpdatedAt,
	}
	for _, it := range items {
		if !it.Product.Available {
			continue
		}
		view.Items = append(view.Items, it)
		view.TotalPrice = view.TotalPrice.Add(it.LineTotal())
	}
	return view
}

func (v CartView) IsEmpty() bool {
	return len(v.Items) == 0
}

// ItemUpdate sets the quantity of one line. Quantity < 1 removes the line.
type ItemUpdate struct {
	ProductID string `json:"product_id"`
	Quantity  int32  `json:"quantity"`
}

func (u ItemUpdate) Removes() bool {
	return u.Quantity < 1
}

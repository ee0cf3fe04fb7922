package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    *Category       `json:"category,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int64           `json:"stock"`
	IsDisabled  bool            `json:"is_disabled"`
	DeletedAt   *time.Time      `json:"deleted_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Available reports whether the product may be put in a cart or sold.
func (p Product) Available() bool {
	return !p.IsDisabled && p.DeletedAt == nil
}

type NewProduct struct {
	Name        string
	Description string
	CategoryID  string
	Price       decimal.Decimal
	Stock       int64
}

package app

import (
	"context"
	"time"

	"github.com/dwikikusuma/storefront/internal/cart/domain"
)

type CartRepo interface {
	// Get returns the user's cart and all of its lines, eligible or not.
	// A missing cart is an apperr NotFound.
	Get(ctx context.Context, userID string) (domain.Cart, []domain.CartItem, error)
	// GetOrCreate never creates a second cart for the same user.
	GetOrCreate(ctx context.Context, userID string) (domain.Cart, []domain.CartItem, error)
	// ApplyItems writes every update or none of them.
	ApplyItems(ctx context.Context, cartID string, updates []domain.ItemUpdate) error
	// Reset deletes the user's cart with its lines and creates an empty one.
	Reset(ctx context.Context, userID string) (domain.Cart, error)
	// ClearItemsNotModifiedSince removes lines last written at or before since.
	ClearItemsNotModifiedSince(ctx context.Context, userID string, since time.Time) (int64, error)
}

// Product is what the cart needs to know about a catalog product before
// accepting it into a line.
type Product struct {
	ID        string
	Available bool
}

type CatalogReader interface {
	ListProductsByIDs(ctx context.Context, ids []string) ([]Product, error)
}

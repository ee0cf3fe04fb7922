package adapter

import (
	"context"
	"time"

	cartapp "github.com/dwikikusuma/storefront/internal/cart/app"
	checkoutapp "github.com/dwikikusuma/storefront/internal/checkout/app"
)

type CartServiceReader struct {
	svc *cartapp.Service
}

func NewCartServiceReader(svc *cartapp.Service) *CartServiceReader {
	return &CartServiceReader{svc: svc}
}

// GetCart returns the priced lines of the user's cart. Lines whose product
// is no longer sellable are already dropped by the cart view.
func (r *CartServiceReader) GetCart(ctx context.Context, userID string) ([]checkoutapp.CartItem, error) {
	cart, err := r.svc.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := make([]checkoutapp.CartItem, 0, len(cart.Items))
	for _, it := range cart.Items {
		items = append(items, checkoutapp.CartItem{
			ProductID: it.ProductID,
			Name:      it.Product.Name,
			Quantity:  int64(it.Quantity),
			UnitPrice: it.Product.Price,
		})
	}
	return items, nil
}

func (r *CartServiceReader) ClearCheckedOut(ctx context.Context, userID string, orderedAt time.Time) (int64, error) {
	return r.svc.ClearCheckedOut(ctx, userID, orderedAt)
}

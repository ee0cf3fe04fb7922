package adapter

import (
	"context"

	cartapp "github.com/dwikikusuma/storefront/internal/cart/app"
	catalogapp "github.com/dwikikusuma/storefront/internal/catalog/app"
)

type CatalogServiceReader struct {
	svc *catalogapp.Service
}

func NewCatalogServiceReader(svc *catalogapp.Service) *CatalogServiceReader {
	return &CatalogServiceReader{svc: svc}
}

func (r *CatalogServiceReader) ListProductsByIDs(ctx context.Context, ids []string) ([]cartapp.Product, error) {
	products, err := r.svc.ListProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]cartapp.Product, 0, len(products))
	for _, p := range products {
		out = append(out, cartapp.Product{
			ID:        p.ID,
			Available: p.Available(),
		})
	}
	return out, nil
}

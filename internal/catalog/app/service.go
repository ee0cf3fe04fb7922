package app

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/dwikikusuma/storefront/internal/catalog/domain"
	"github.com/dwikikusuma/storefront/pkg/apperr"
)

type Service struct {
	repo ProductRepo
}

func NewService(repo ProductRepo) *Service {
	return &Service{
		repo: repo,
	}
}

func (s *Service) CreateProduct(ctx context.Context, in domain.NewProduct) (domain.Product, error) {
	const op = "catalog.CreateProduct"

	in.Name = strings.TrimSpace(in.Name)
	in.CategoryID = strings.TrimSpace(in.CategoryID)

	if in.Name == "" {
		return domain.Product{}, apperr.Invalidf(op, "name is required")
	}
	if !in.Price.IsPositive() {
		return domain.Product{}, apperr.Invalidf(op, "price must be positive, got %s", in.Price)
	}
	if in.Stock < 0 {
		return domain.Product{}, apperr.Invalidf(op, "stock cannot be negative, got %d", in.Stock)
	}
	if in.CategoryID != "" {
		if _, err := uuid.Parse(in.CategoryID); err != nil {
			return domain.Product{}, apperr.Invalidf(op, "malformed category id %q", in.CategoryID)
		}
	}

	return s.repo.Create(ctx, in)
}

// GetProduct returns the product whether or not it is currently available.
func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	id = strings.TrimSpace(id)
	if _, err := uuid.Parse(id); err != nil {
		return domain.Product{}, apperr.Invalidf("catalog.GetProduct", "malformed product id %q", id)
	}
	return s.repo.Get(ctx, id)
}

// ListProductsByIDs returns the products that exist among ids, in id order.
// Unknown ids are simply absent from the result.
func (s *Service) ListProductsByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{}, len(ids))
	uniq := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return nil, apperr.Invalidf("catalog.ListProductsByIDs", "malformed product id %q", id)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}
	return s.repo.ListByIDs(ctx, uniq)
}

// ListProducts pages through available products.
func (s *Service) ListProducts(ctx context.Context, query string, limit int, cursor string) ([]domain.Product, string, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return s.repo.List(ctx, query, limit, cursor)
}

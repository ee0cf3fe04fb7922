package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dwikikusuma/storefront/internal/catalog/domain"
	"github.com/dwikikusuma/storefront/internal/catalog/infra/postgres/catalogdb"
	"github.com/dwikikusuma/storefront/pkg/apperr"
	pg "github.com/dwikikusuma/storefront/pkg/postgres"
)

type ProductRepo struct {
	q *catalogdb.Queries
}

func NewProductRepo(db pg.DBTX) *ProductRepo {
	return &ProductRepo{q: catalogdb.New(db)}
}

func (r *ProductRepo) Create(ctx context.Context, p domain.NewProduct) (domain.Product, error) {
	var category uuid.NullUUID
	if p.CategoryID != "" {
		id, err := uuid.Parse(p.CategoryID)
		if err != nil {
			return domain.Product{}, apperr.Invalidf("catalog.Create", "malformed category id %q", p.CategoryID)
		}
		category = uuid.NullUUID{UUID: id, Valid: true}
	}

	row, err := r.q.CreateProduct(ctx, catalogdb.CreateProductParams{
		Name:        p.Name,
		Description: p.Description,
		CategoryID:  category,
		Price:       p.Price,
		Stock:       p.Stock,
	})
	if pg.IsForeignKeyViolation(err) {
		return domain.Product{}, apperr.NotFoundf("catalog.Create", "category %s does not exist", p.CategoryID)
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("create product: %w", err)
	}

	return toDomain(row), nil
}

func (r *ProductRepo) Get(ctx context.Context, id string) (domain.Product, error) {
	prodID, err := uuid.Parse(id)
	if err != nil {
		return domain.Product{}, apperr.Invalidf("catalog.Get", "malformed product id %q", id)
	}

	product, err := r.q.GetProduct(ctx, prodID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, apperr.NotFoundf("catalog.Get", "product %s not found", id)
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("get product: %w", err)
	}

	return toDomain(product), nil
}

func (r *ProductRepo) ListByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	uids := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		uid, err := uuid.Parse(id)
		if err != nil {
			return nil, apperr.Invalidf("catalog.ListByIDs", "malformed product id %q", id)
		}
		uids = append(uids, uid)
	}

	rows, err := r.q.ListProductsByIDs(ctx, uids)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomain(row))
	}
	return out, nil
}

func (r *ProductRepo) List(ctx context.Context, query string, limit int, cursor string) ([]domain.Product, string, error) {
	var cur uuid.NullUUID
	if strings.TrimSpace(cursor) != "" {
		uid, err := uuid.Parse(strings.TrimSpace(cursor))
		if err != nil {
			return nil, "", apperr.Invalidf("catalog.List", "malformed cursor")
		}
		cur = uuid.NullUUID{UUID: uid, Valid: true}
	}

	rows, err := r.q.ListProducts(ctx, catalogdb.ListProductsParams{
		Query:  strings.TrimSpace(query),
		Limit:  int32(limit),
		Cursor: cur,
	})
	if err != nil {
		return nil, "", err
	}

	out := make([]domain.Product, 0, len(rows))
	var nextCursor string

	for _, row := range rows {
		out = append(out, toDomain(row))
		nextCursor = row.ID.String()
	}

	if len(out) < limit {
		nextCursor = ""
	}

	return out, nextCursor, nil
}

func toDomain(row catalogdb.Product) domain.Product {
	p := domain.Product{
		ID:          row.ID.String(),
		Name:        row.Name,
		Description: row.Description,
		Price:       row.Price,
		Stock:       row.Stock,
		IsDisabled:  row.IsDisabled,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	if row.CategoryID.Valid {
		p.Category = &domain.Category{ID: row.CategoryID.UUID.String(), Name: row.CategoryName.String}
	}
	if row.DeletedAt.Valid {
		t := row.DeletedAt.Time
		p.DeletedAt = &t
	}
	return p
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dwikikusuma/storefront/internal/cart/domain"
	"github.com/dwikikusuma/storefront/internal/cart/infra/postgres/cartdb"
	"github.com/dwikikusuma/storefront/pkg/apperr"
	pg "github.com/dwikikusuma/storefront/pkg/postgres"
)

type CartRepo struct {
	db *sql.DB
	q  *cartdb.Queries
}

func NewCartRepo(db *sql.DB) *CartRepo {
	return &CartRepo{
		db: db,
		q:  cartdb.New(db),
	}
}

func (r *CartRepo) Get(ctx context.Context, userID string) (domain.Cart, []domain.CartItem, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return domain.Cart{}, nil, apperr.Invalidf("cart.Get", "malformed user id %q", userID)
	}

	cart, err := r.q.GetCartByUserID(ctx, userUUID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Cart{}, nil, apperr.NotFoundf("cart.Get", "no cart for user %s", userID)
	}
	if err != nil {
		return domain.Cart{}, nil, fmt.Errorf("get cart: %w", err)
	}

	rows, err := r.q.ListCartItems(ctx, cart.ID)
	if err != nil {
		return domain.Cart{}, nil, err
	}

	items := make([]domain.CartItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, itemToDomain(row))
	}
	return cartToDomain(cart), items, nil
}

func (r *CartRepo) GetOrCreate(ctx context.Context, userID string) (domain.Cart, []domain.CartItem, error) {
	cart, items, err := r.Get(ctx, userID)
	if err == nil {
		return cart, items, nil
	}
	if !apperr.IsKind(err, apperr.NotFound) {
		return domain.Cart{}, nil, err
	}

	userUUID, _ := uuid.Parse(userID)
	created, err := r.q.CreateCart(ctx, userUUID)
	switch {
	case err == nil:
		return cartToDomain(created), nil, nil
	case pg.IsUniqueViolation(err):
		// lost the race to a concurrent create
		return r.Get(ctx, userID)
	case pg.IsForeignKeyViolation(err):
		return domain.Cart{}, nil, apperr.NotFoundf("cart.GetOrCreate", "user %s not found", userID)
	default:
		return domain.Cart{}, nil, fmt.Errorf("create cart: %w", err)
	}
}

func (r *CartRepo) ApplyItems(ctx context.Context, cartID string, updates []domain.ItemUpdate) error {
	cartUUID, err := uuid.Parse(cartID)
	if err != nil {
		return apperr.Invalidf("cart.ApplyItems", "malformed cart id %q", cartID)
	}

	return pg.WithTx(ctx, r.db, nil, func(tx *sql.Tx) error {
		q := r.q.WithTx(tx)
		for _, u := range updates {
			productUUID, err := uuid.Parse(u.ProductID)
			if err != nil {
				return apperr.Invalidf("cart.ApplyItems", "malformed product id %q", u.ProductID)
			}

			if u.Removes() {
				if err := q.RemoveItem(ctx, cartdb.RemoveItemParams{CartID: cartUUID, ProductID: productUUID}); err != nil {
					return fmt.Errorf("remove item: %w", err)
				}
				continue
			}

			err = q.SetItemQuantity(ctx, cartdb.SetItemQuantityParams{
				CartID:    cartUUID,
				ProductID: productUUID,
				Quantity:  u.Quantity,
			})
			if pg.IsForeignKeyViolation(err) {
				if pg.ConstraintName(err) == "cart_items_cart_id_fkey" {
					return apperr.NotFoundf("cart.ApplyItems", "cart %s no longer exists", cartID)
				}
				return apperr.Unavailable("cart.ApplyItems", u.ProductID)
			}
			if err != nil {
				return fmt.Errorf("set item quantity: %w", err)
			}
		}
		return q.TouchCart(ctx, cartUUID)
	})
}

func (r *CartRepo) Reset(ctx context.Context, userID string) (domain.Cart, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return domain.Cart{}, apperr.Invalidf("cart.Reset", "malformed user id %q", userID)
	}

	var cart cartdb.Cart
	err = pg.WithTx(ctx, r.db, nil, func(tx *sql.Tx) error {
		q := r.q.WithTx(tx)
		if _, err := q.DeleteCartByUserID(ctx, userUUID); err != nil {
			return fmt.Errorf("delete cart: %w", err)
		}
		created, err := q.CreateCart(ctx, userUUID)
		if err != nil {
			return err
		}
		cart = created
		return nil
	})
	switch {
	case err == nil:
		return cartToDomain(cart), nil
	case pg.IsUniqueViolation(err):
		// a concurrent GetOrCreate or Reset already put an empty cart back
		c, _, getErr := r.Get(ctx, userID)
		return c, getErr
	case pg.IsForeignKeyViolation(err):
		return domain.Cart{}, apperr.NotFoundf("cart.Reset", "user %s not found", userID)
	default:
		return domain.Cart{}, err
	}
}

func (r *CartRepo) ClearItemsNotModifiedSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return 0, apperr.Invalidf("cart.ClearItemsNotModifiedSince", "malformed user id %q", userID)
	}
	n, err := r.q.DeleteItemsNotModifiedSince(ctx, userUUID, since)
	if err != nil {
		return 0, fmt.Errorf("clear checked out items: %w", err)
	}
	return n, nil
}

func cartToDomain(c cartdb.Cart) domain.Cart {
	return domain.Cart{
		ID:        c.ID.String(),
		UserID:    c.UserID.String(),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func itemToDomain(row cartdb.CartItem) domain.CartItem {
	p := domain.Product{
		ID:          row.ProductID.String(),
		Name:        row.Name,
		Description: row.Description,
		Price:       row.Price,
		Stock:       row.Stock,
		Available:   !row.IsDisabled && !row.Deleted,
	}
	if row.CategoryID.Valid {
		p.Category = &domain.Category{ID: row.CategoryID.UUID.String(), Name: row.CategoryName.String}
	}
	return domain.CartItem{
		ProductID: row.ProductID.String(),
		Quantity:  row.Quantity,
		Product:   p,
		UpdatedAt: row.UpdatedAt,
	}
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dwikikusuma/storefront/internal/order/domain"
	"github.com/dwikikusuma/storefront/internal/order/infra/postgres/orderdb"
	"github.com/dwikikusuma/storefront/pkg/apperr"
	pg "github.com/dwikikusuma/storefront/pkg/postgres"
)

// OrderRepo writes through the checkout transaction when built with a *sql.Tx
// and reads from the pool otherwise.
type OrderRepo struct {
	*orderdb.Queries
}

func NewOrderRepo(db pg.DBTX) *OrderRepo {
	return &OrderRepo{Queries: orderdb.New(db)}
}

func (r *OrderRepo) InsertOrder(ctx context.Context, userID string, total decimal.Decimal) (domain.Order, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return domain.Order{}, apperr.Invalidf("order.Insert", "malformed user id %q", userID)
	}

	o, err := r.CreateOrder(ctx, orderdb.CreateOrderParams{UserID: userUUID, Total: total})
	if pg.IsForeignKeyViolation(err) {
		return domain.Order{}, apperr.NotFoundf("order.Insert", "user %s not found", userID)
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("failed to create order: %w", err)
	}
	return orderToDomain(o), nil
}

func (r *OrderRepo) InsertItem(ctx context.Context, orderID string, line domain.Line) (domain.OrderItem, error) {
	orderUUID, err := uuid.Parse(orderID)
	if err != nil {
		return domain.OrderItem{}, apperr.Invalidf("order.InsertItem", "malformed order id %q", orderID)
	}
	productUUID, err := uuid.Parse(line.ProductID)
	if err != nil {
		return domain.OrderItem{}, apperr.Invalidf("order.InsertItem", "malformed product id %q", line.ProductID)
	}

	id, err := r.AddOrderItem(ctx, orderdb.AddOrderItemParams{
		OrderID:   orderUUID,
		ProductID: productUUID,
		Price:     line.Price,
		Quantity:  line.Quantity,
	})
	if pg.IsForeignKeyViolation(err) {
		return domain.OrderItem{}, apperr.Unavailable("order.InsertItem", line.ProductID)
	}
	if err != nil {
		return domain.OrderItem{}, fmt.Errorf("failed to insert item: %w", err)
	}

	return domain.OrderItem{
		ID:        id.String(),
		OrderID:   orderID,
		ProductID: line.ProductID,
		Price:     line.Price,
		Quantity:  line.Quantity,
	}, nil
}

func (r *OrderRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperr.Invalidf("order.ListByUser", "malformed user id %q", userID)
	}

	rows, err := r.ListOrdersByUser(ctx, userUUID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []domain.Order{}, nil
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, o := range rows {
		ids = append(ids, o.ID)
	}
	items, err := r.ListOrderItems(ctx, ids)
	if err != nil {
		return nil, err
	}

	byOrder := make(map[uuid.UUID][]domain.OrderItem, len(rows))
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], itemToDomain(it))
	}

	out := make([]domain.Order, 0, len(rows))
	for _, o := range rows {
		order := orderToDomain(o)
		order.Items = byOrder[o.ID]
		out = append(out, order)
	}
	return out, nil
}

func (r *OrderRepo) Get(ctx context.Context, userID, orderID string) (domain.Order, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return domain.Order{}, apperr.Invalidf("order.Get", "malformed user id %q", userID)
	}
	orderUUID, err := uuid.Parse(orderID)
	if err != nil {
		return domain.Order{}, apperr.Invalidf("order.Get", "malformed order id %q", orderID)
	}

	o, err := r.GetOrder(ctx, orderdb.GetOrderParams{ID: orderUUID, UserID: userUUID})
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, apperr.NotFoundf("order.Get", "order %s not found", orderID)
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}

	items, err := r.ListOrderItems(ctx, []uuid.UUID{o.ID})
	if err != nil {
		return domain.Order{}, err
	}

	order := orderToDomain(o)
	for _, it := range items {
		order.Items = append(order.Items, itemToDomain(it))
	}
	return order, nil
}

// UserRepo answers user existence for the order ledger.
type UserRepo struct {
	q *orderdb.Queries
}

func NewUserRepo(db pg.DBTX) *UserRepo {
	return &UserRepo{q: orderdb.New(db)}
}

func (r *UserRepo) Exists(ctx context.Context, userID string) (bool, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return false, nil
	}
	ok, err := r.q.UserExists(ctx, id)
	if err != nil {
		return false, fmt.Errorf("user exists: %w", err)
	}
	return ok, nil
}

func orderToDomain(o orderdb.Order) domain.Order {
	return domain.Order{
		ID:        o.ID.String(),
		UserID:    o.UserID.String(),
		Total:     o.Total,
		CreatedAt: o.CreatedAt,
	}
}

func itemToDomain(it orderdb.OrderItem) domain.OrderItem {
	p := &domain.Product{ID: it.ProductID.String(), Name: it.ProductName}
	if it.CategoryID.Valid {
		p.Category = &domain.Category{ID: it.CategoryID.UUID.String(), Name: it.CategoryName.String}
	}
	return domain.OrderItem{
		ID:        it.ID.String(),
		OrderID:   it.OrderID.String(),
		ProductID: it.ProductID.String(),
		Price:     it.Price,
		Quantity:  it.Quantity,
		Product:   p,
	}
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dwikikusuma/storefront/internal/checkout/app"
	"github.com/dwikikusuma/storefront/internal/checkout/domain"
	"github.com/dwikikusuma/storefront/internal/checkout/infra/postgres/checkoutdb"
	invapp "github.com/dwikikusuma/storefront/internal/inventory/app"
	invpg "github.com/dwikikusuma/storefront/internal/inventory/infra/postgres"
	orderapp "github.com/dwikikusuma/storefront/internal/order/app"
	orderdomain "github.com/dwikikusuma/storefront/internal/order/domain"
	orderpg "github.com/dwikikusuma/storefront/internal/order/infra/postgres"
	"github.com/dwikikusuma/storefront/pkg/outbox"
	pg "github.com/dwikikusuma/storefront/pkg/postgres"
)

// UnitOfWork opens the checkout transaction and hands out repositories bound
// to it. With an empty orderTopic no outbox events are written.
type UnitOfWork struct {
	db         *sql.DB
	orderTopic string
}

func NewUnitOfWork(db *sql.DB, orderTopic string) *UnitOfWork {
	return &UnitOfWork{db: db, orderTopic: orderTopic}
}

func (u *UnitOfWork) InTx(ctx context.Context, fn func(tx app.Tx) error) error {
	return pg.WithTx(ctx, u.db, nil, func(tx *sql.Tx) error {
		return fn(&txScope{
			tx:     tx,
			q:      checkoutdb.New(tx),
			stock:  invpg.NewStockRepo(tx),
			orders: orderpg.NewOrderRepo(tx),
			topic:  u.orderTopic,
		})
	})
}

type txScope struct {
	tx     *sql.Tx
	q      *checkoutdb.Queries
	stock  *invpg.StockRepo
	orders *orderpg.OrderRepo
	topic  string
}

func (s *txScope) Stock() invapp.StockStore     { return s.stock }
func (s *txScope) Orders() orderapp.OrderWriter { return s.orders }

func (s *txScope) RecordCleanup(ctx context.Context, c domain.Cleanup) error {
	orderID, err := uuid.Parse(c.OrderID)
	if err != nil {
		return fmt.Errorf("cleanup order id: %w", err)
	}
	userID, err := uuid.Parse(c.UserID)
	if err != nil {
		return fmt.Errorf("cleanup user id: %w", err)
	}
	return s.q.InsertCleanup(ctx, checkoutdb.InsertCleanupParams{
		OrderID:   orderID,
		UserID:    userID,
		OrderedAt: c.OrderedAt,
	})
}

func (s *txScope) RecordOrderCreated(ctx context.Context, order orderdomain.Order) error {
	if s.topic == "" {
		return nil
	}

	ev := domain.OrderCreated{
		Type:      domain.EventOrderCreated,
		OrderID:   order.ID,
		UserID:    order.UserID,
		Total:     order.Total,
		Lines:     make([]domain.EventLine, 0, len(order.Items)),
		CreatedAt: order.CreatedAt,
	}
	for _, it := range order.Items {
		ev.Lines = append(ev.Lines, domain.EventLine{ProductID: it.ProductID, Price: it.Price, Quantity: it.Quantity})
	}

	_, err := outbox.Insert(ctx, s.tx, s.topic, order.ID, ev)
	return err
}

func (s *txScope) ClaimKey(ctx context.Context, userID, key, orderID string) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return fmt.Errorf("checkout key user id: %w", err)
	}
	oid, err := uuid.Parse(orderID)
	if err != nil {
		return fmt.Errorf("checkout key order id: %w", err)
	}
	err = s.q.InsertCheckoutKey(ctx, checkoutdb.InsertCheckoutKeyParams{UserID: uid, Key: key, OrderID: oid})
	if pg.IsUniqueViolation(err) {
		return app.ErrKeyClaimed
	}
	if err != nil {
		return fmt.Errorf("claim checkout key: %w", err)
	}
	return nil
}

// KeyRepo resolves idempotency keys of committed checkouts.
type KeyRepo struct {
	q *checkoutdb.Queries
}

func NewKeyRepo(db pg.DBTX) *KeyRepo {
	return &KeyRepo{q: checkoutdb.New(db)}
}

func (r *KeyRepo) OrderForKey(ctx context.Context, userID, key string) (string, bool, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return "", false, fmt.Errorf("checkout key user id: %w", err)
	}
	orderID, err := r.q.GetCheckoutKey(ctx, uid, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get checkout key: %w", err)
	}
	return orderID.String(), true, nil
}

// CleanupRepo tracks carts that still need clearing after checkout.
type CleanupRepo struct {
	q *checkoutdb.Queries
}

func NewCleanupRepo(db pg.DBTX) *CleanupRepo {
	return &CleanupRepo{q: checkoutdb.New(db)}
}

func (r *CleanupRepo) Pending(ctx context.Context, olderThan time.Time, limit int) ([]domain.Cleanup, error) {
	rows, err := r.q.ListPending(ctx, checkoutdb.ListPendingParams{OlderThan: olderThan, Limit: int32(limit)})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Cleanup, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Cleanup{
			OrderID:   row.OrderID.String(),
			UserID:    row.UserID.String(),
			OrderedAt: row.OrderedAt,
			Attempts:  row.Attempts,
		})
	}
	return out, nil
}

func (r *CleanupRepo) MarkDone(ctx context.Context, orderID string) error {
	id, err := uuid.Parse(orderID)
	if err != nil {
		return fmt.Errorf("cleanup order id: %w", err)
	}
	if err := r.q.MarkDone(ctx, id); err != nil {
		return fmt.Errorf("mark cleanup done: %w", err)
	}
	return nil
}

func (r *CleanupRepo) MarkFailed(ctx context.Context, orderID, reason string) error {
	id, err := uuid.Parse(orderID)
	if err != nil {
		return fmt.Errorf("cleanup order id: %w", err)
	}
	if err := r.q.MarkFailed(ctx, id, reason); err != nil {
		return fmt.Errorf("mark cleanup failed: %w", err)
	}
	return nil
}

package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dwikikusuma/storefront/internal/order/domain"
	"github.com/dwikikusuma/storefront/pkg/apperr"
)

type Ledger struct {
	reader OrderReader
	users  UserDirectory
	log    *slog.Logger
}

func NewLedger(reader OrderReader, users UserDirectory, log *slog.Logger) *Ledger {
	if log == nil {
		log = slog.Default()
	}
	return &Ledger{reader: reader, users: users, log: log}
}

// CreateOrder writes the order and its items through tx. Line prices are
// stored as given.
func (l *Ledger) CreateOrder(ctx context.Context, tx OrderWriter, userID string, lines []domain.Line, total decimal.Decimal) (domain.Order, error) {
	const op = "order.CreateOrder"

	if _, err := uuid.Parse(userID); err != nil {
		return domain.Order{}, apperr.Invalidf(op, "malformed user id %q", userID)
	}
	if len(lines) == 0 {
		return domain.Order{}, apperr.Invalidf(op, "an order needs at least one line")
	}
	for i, line := range lines {
		if line.Quantity < 1 {
			return domain.Order{}, apperr.Invalidf(op, "line %d: quantity must be positive, got %d", i, line.Quantity)
		}
		if line.Price.IsNegative() {
			return domain.Order{}, apperr.Invalidf(op, "line %d: price cannot be negative, got %s", i, line.Price)
		}
	}
	if total.IsNegative() {
		return domain.Order{}, apperr.Invalidf(op, "total cannot be negative, got %s", total)
	}
	if sum := domain.Sum(lines); !sum.Equal(total) {
		return domain.Order{}, apperr.Invalidf(op, "total %s does not match lines %s", total, sum)
	}

	order, err := tx.InsertOrder(ctx, userID, total)
	if err != nil {
		return domain.Order{}, err
	}

	order.Items = make([]domain.OrderItem, 0, len(lines))
	for i, line := range lines {
		item, err := tx.InsertItem(ctx, order.ID, line)
		if err != nil {
			return domain.Order{}, fmt.Errorf("insert item %d: %w", i, err)
		}
		order.Items = append(order.Items, item)
	}

	l.log.DebugContext(ctx, "order written",
		slog.String("order_id", order.ID), slog.String("user_id", userID), slog.Int("lines", len(lines)))
	return order, nil
}

func (l *Ledger) ListOrdersForUser(ctx context.Context, userID string) ([]domain.Order, error) {
	const op = "order.ListOrdersForUser"

	if _, err := uuid.Parse(userID); err != nil {
		return nil, apperr.Invalidf(op, "malformed user id %q", userID)
	}
	exists, err := l.users.Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperr.NotFoundf(op, "user %s not found", userID)
	}

	return l.reader.ListByUser(ctx, userID)
}

func (l *Ledger) GetOrder(ctx context.Context, userID, orderID string) (domain.Order, error) {
	const op = "order.GetOrder"

	if _, err := uuid.Parse(userID); err != nil {
		return domain.Order{}, apperr.Invalidf(op, "malformed user id %q", userID)
	}
	if _, err := uuid.Parse(orderID); err != nil {
		return domain.Order{}, apperr.Invalidf(op, "malformed order id %q", orderID)
	}
	return l.reader.Get(ctx, userID, orderID)
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dwikikusuma/storefront/internal/checkout/domain"
	invdomain "github.com/dwikikusuma/storefront/internal/inventory/domain"
	orderdomain "github.com/dwikikusuma/storefront/internal/order/domain"
	"github.com/dwikikusuma/storefront/pkg/apperr"
	"github.com/dwikikusuma/storefront/pkg/metrics"
	"github.com/dwikikusuma/storefront/pkg/postgres"
)

type Options struct {
	// MaxAttempts bounds how often a transient storage failure re-runs the
	// whole checkout.
	MaxAttempts int
	Backoff     time.Duration
	// ClearAttempts bounds post-commit cart clearing.
	ClearAttempts int
}

type Service struct {
	Cart      CartReader
	Clearer   CartClearer
	Tx        TxRunner
	Inventory StockReserver
	Orders    OrderCreator
	Cleanups  CleanupStore
	Keys      KeyStore

	metrics *metrics.Checkout
	log     *slog.Logger
	opts    Options
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewService(
	cart CartReader,
	clearer CartClearer,
	tx TxRunner,
	inventory StockReserver,
	orders OrderCreator,
	cleanups CleanupStore,
	keys KeyStore,
	m *metrics.Checkout,
	log *slog.Logger,
	opts Options,
) *Service {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 25 * time.Millisecond
	}
	if opts.ClearAttempts <= 0 {
		opts.ClearAttempts = 3
	}
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		Cart:      cart,
		Clearer:   clearer,
		Tx:        tx,
		Inventory: inventory,
		Orders:    orders,
		Cleanups:  cleanups,
		Keys:      keys,
		metrics:   m,
		log:       log,
		opts:      opts,
		sleep:     sleepCtx,
	}
}

// Quote prices the user's cart without touching stock.
func (s *Service) Quote(ctx context.Context, userID string) (domain.Quote, error) {
	const op = "checkout.Quote"

	items, err := s.Cart.GetCart(ctx, userID)
	if err != nil {
		return domain.Quote{}, err
	}
	if len(items) == 0 {
		return domain.Quote{}, apperr.E(apperr.EmptyCart, op, "cart has no purchasable items")
	}

	quote := domain.Quote{Lines: make([]domain.QuoteLine, 0, len(items)), Total: decimal.Zero}
	for _, it := range items {
		if it.Quantity <= 0 {
			return domain.Quote{}, apperr.Invalidf(op, "quantity must be greater than zero: %d", it.Quantity)
		}
		lineTotal := it.UnitPrice.Mul(decimal.NewFromInt(it.Quantity))
		quote.Lines = append(quote.Lines, domain.QuoteLine{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			LineTotal: lineTotal,
		})
		quote.Total = quote.Total.Add(lineTotal)
	}
	return quote, nil
}

// MaxKeyLength bounds idempotency keys.
const MaxKeyLength = 255

// Checkout turns the user's cart into an order. Stock reservation, the order
// and its bookkeeping commit together; the cart is cleared afterwards and a
// failure to clear it does not fail the checkout.
func (s *Service) Checkout(ctx context.Context, userID string) (orderdomain.Order, error) {
	return s.CheckoutWithKey(ctx, userID, "")
}

// CheckoutWithKey is Checkout that can be repeated safely: once an order was
// committed under key, later calls with the same key return that order and
// touch no stock. An empty key disables the check.
func (s *Service) CheckoutWithKey(ctx context.Context, userID, key string) (orderdomain.Order, error) {
	const op = "checkout.Checkout"
	started := time.Now()

	if _, err := uuid.Parse(userID); err != nil {
		err := apperr.Invalidf(op, "malformed user id %q", userID)
		s.metrics.Observe(apperr.InvalidArgument.String(), started)
		return orderdomain.Order{}, err
	}
	key = strings.TrimSpace(key)
	if len(key) > MaxKeyLength {
		err := apperr.Invalidf(op, "idempotency key longer than %d bytes", MaxKeyLength)
		s.metrics.Observe(apperr.InvalidArgument.String(), started)
		return orderdomain.Order{}, err
	}

	log := s.log.With(slog.String("user_id", userID))

	if key != "" {
		log = log.With(slog.String("idempotency_key", key))
		if order, ok, err := s.replay(ctx, log, userID, key); err != nil || ok {
			return s.finishReplay(ctx, log, op, order, err, started)
		}
	}

	var (
		order orderdomain.Order
		err   error
	)
	for attempt := 1; ; attempt++ {
		order, err = s.attempt(ctx, userID, key)
		if err == nil || !retryable(err) || attempt >= s.opts.MaxAttempts {
			break
		}

		s.metrics.Retry()
		log.WarnContext(ctx, "checkout attempt failed, retrying",
			slog.Int("attempt", attempt), slog.Any("err", err))
		if sleepErr := s.sleep(ctx, s.backoff(attempt)); sleepErr != nil {
			err = sleepErr
			break
		}
	}

	if err != nil && key != "" {
		// the key may belong to an order committed by a concurrent request
		// or by a commit whose acknowledgement was lost
		if replayed, ok, rerr := s.replay(ctx, log, userID, key); rerr == nil && ok {
			return s.finishReplay(ctx, log, op, replayed, nil, started)
		} else if rerr != nil {
			log.WarnContext(ctx, "idempotency key lookup failed", slog.Any("err", rerr))
		}
	}

	if err != nil {
		err = classify(op, err)
		kind := apperr.KindOf(err)
		s.metrics.Observe(kind.String(), started)
		if kind == apperr.Internal || kind == apperr.TransientStorage {
			log.ErrorContext(ctx, "checkout aborted", slog.String("state", string(domain.StateAborted)), slog.Any("err", err))
		} else {
			log.InfoContext(ctx, "checkout rejected", slog.String("reason", kind.String()), slog.Any("err", err))
		}
		return orderdomain.Order{}, err
	}

	log = log.With(slog.String("order_id", order.ID))
	state := s.clearCart(ctx, log, order)
	s.metrics.Observe("success", started)
	log.InfoContext(ctx, "checkout completed",
		slog.String("state", string(state)), slog.String("total", order.Total.String()))
	return order, nil
}

// replay looks up the order committed under key and finishes its cart
// cleanup, which a lost commit acknowledgement may have skipped.
func (s *Service) replay(ctx context.Context, log *slog.Logger, userID, key string) (orderdomain.Order, bool, error) {
	orderID, ok, err := s.Keys.OrderForKey(ctx, userID, key)
	if err != nil || !ok {
		return orderdomain.Order{}, false, err
	}
	order, err := s.Orders.GetOrder(ctx, userID, orderID)
	if err != nil {
		return orderdomain.Order{}, false, err
	}
	s.clearCart(ctx, log.With(slog.String("order_id", order.ID)), order)
	return order, true, nil
}

func (s *Service) finishReplay(ctx context.Context, log *slog.Logger, op string, order orderdomain.Order, err error, started time.Time) (orderdomain.Order, error) {
	if err != nil {
		err = classify(op, err)
		s.metrics.Observe(apperr.KindOf(err).String(), started)
		log.ErrorContext(ctx, "checkout replay failed", slog.Any("err", err))
		return orderdomain.Order{}, err
	}
	s.metrics.Observe("replayed", started)
	log.InfoContext(ctx, "checkout replayed", slog.String("order_id", order.ID))
	return order, nil
}

// attempt runs one pass from pricing to commit.
func (s *Service) attempt(ctx context.Context, userID, key string) (orderdomain.Order, error) {
	quote, err := s.Quote(ctx, userID)
	if err != nil {
		return orderdomain.Order{}, err
	}

	demands := make([]invdomain.Demand, 0, len(quote.Lines))
	lines := make([]orderdomain.Line, 0, len(quote.Lines))
	for _, l := range quote.Lines {
		demands = append(demands, invdomain.Demand{ProductID: l.ProductID, Quantity: l.Quantity})
		lines = append(lines, orderdomain.Line{ProductID: l.ProductID, Price: l.UnitPrice, Quantity: l.Quantity})
	}

	var order orderdomain.Order
	err = s.Tx.InTx(ctx, func(tx Tx) error {
		if _, err := s.Inventory.Reserve(ctx, tx.Stock(), demands); err != nil {
			return err
		}

		o, err := s.Orders.CreateOrder(ctx, tx.Orders(), userID, lines, quote.Total)
		if err != nil {
			return err
		}

		if err := tx.RecordCleanup(ctx, domain.Cleanup{OrderID: o.ID, UserID: userID, OrderedAt: o.CreatedAt}); err != nil {
			return fmt.Errorf("record cart cleanup: %w", err)
		}
		if err := tx.RecordOrderCreated(ctx, o); err != nil {
			return fmt.Errorf("record order event: %w", err)
		}
		if key != "" {
			if err := tx.ClaimKey(ctx, userID, key, o.ID); err != nil {
				return err
			}
		}

		order = o
		return nil
	})
	if err != nil {
		return orderdomain.Order{}, err
	}
	return order, nil
}

// clearCart removes the ordered lines after commit, keeping lines written
// since the order was placed. It outlives request cancellation and only
// reports the resulting state.
func (s *Service) clearCart(ctx context.Context, log *slog.Logger, order orderdomain.Order) domain.State {
	ctx = context.WithoutCancel(ctx)

	var err error
	for i := 1; i <= s.opts.ClearAttempts; i++ {
		if _, err = s.Clearer.ClearCheckedOut(ctx, order.UserID, order.CreatedAt); err == nil {
			break
		}
		log.WarnContext(ctx, "clear cart failed", slog.Int("attempt", i), slog.Any("err", err))
		if i < s.opts.ClearAttempts {
			_ = s.sleep(ctx, s.backoff(i))
		}
	}

	if err != nil {
		s.metrics.CleanupFailed()
		log.ErrorContext(ctx, "order committed but cart not cleared",
			slog.String("state", string(domain.StateCartStale)),
			slog.Any("err", apperr.Wrap(apperr.PostCommitCleanup, "checkout.clearCart", err)))
		return domain.StateCartStale
	}

	if err := s.Cleanups.MarkDone(ctx, order.ID); err != nil {
		// the reconciler will clear an already empty cart and mark it then
		log.WarnContext(ctx, "mark cart cleanup done failed", slog.Any("err", err))
	}
	return domain.StateDone
}

func (s *Service) backoff(attempt int) time.Duration {
	d := s.opts.Backoff << (attempt - 1)
	return d/2 + rand.N(d/2+1)
}

// retryable reports whether a failed attempt may be run again from scratch.
// A failed COMMIT is not: the transaction may have been applied.
func retryable(err error) bool {
	var commitErr *postgres.CommitError
	if errors.As(err, &commitErr) {
		return false
	}
	return apperr.IsRetryable(err) || postgres.IsTransient(err)
}

// classify makes sure every returned error carries a kind.
func classify(op string, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	var commitErr *postgres.CommitError
	if errors.As(err, &commitErr) ||
		postgres.IsTransient(err) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.TransientStorage, op, err)
	}
	return apperr.Wrap(apperr.Internal, op, err)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

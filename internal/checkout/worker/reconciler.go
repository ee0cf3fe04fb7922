// Package worker finishes checkout bookkeeping that could not complete inline.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/dwikikusuma/storefront/internal/checkout/app"
)

type CheckedOutClearer interface {
	ClearCheckedOut(ctx context.Context, userID string, orderedAt time.Time) (int64, error)
}

// Reconciler clears carts of committed orders whose inline clear failed.
// Only lines untouched since the order was placed are removed, so items the
// user added afterwards survive.
type Reconciler struct {
	store    app.CleanupStore
	carts    CheckedOutClearer
	log      *slog.Logger
	interval time.Duration
	// minAge keeps the reconciler away from checkouts still clearing inline.
	minAge time.Duration
	batch  int
	now    func() time.Time
}

func NewReconciler(store app.CleanupStore, carts CheckedOutClearer, log *slog.Logger, interval time.Duration) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Reconciler{
		store:    store,
		carts:    carts,
		log:      log.With(slog.String("component", "cart_reconciler")),
		interval: interval,
		minAge:   10 * time.Second,
		batch:    50,
		now:      time.Now,
	}
}

func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
				r.log.Error("reconcile pass failed", slog.Any("err", err))
			}
		}
	}
}

// RunOnce handles one batch and returns how many carts were cleared. A cart
// that fails to clear is recorded and retried on a later pass.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	pending, err := r.store.Pending(ctx, r.now().Add(-r.minAge), r.batch)
	if err != nil {
		return 0, err
	}

	cleared := 0
	for _, c := range pending {
		log := r.log.With(slog.String("order_id", c.OrderID), slog.String("user_id", c.UserID))

		n, err := r.carts.ClearCheckedOut(ctx, c.UserID, c.OrderedAt)
		if err != nil {
			log.Warn("stale cart clear failed", slog.Int("attempts", c.Attempts+1), slog.Any("err", err))
			if markErr := r.store.MarkFailed(ctx, c.OrderID, err.Error()); markErr != nil {
				return cleared, markErr
			}
			continue
		}
		if err := r.store.MarkDone(ctx, c.OrderID); err != nil {
			return cleared, err
		}
		cleared++
		log.Info("stale cart cleared", slog.Int64("lines", n))
	}
	return cleared, nil
}

package shutdown

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

func WithSignals(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// Task is a long running component: it blocks until ctx is cancelled or it fails.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
	// Stop is called once ctx is cancelled; it gets its own timeout context.
	Stop func(ctx context.Context) error
}

// Run starts every task and waits. The first task failure cancels the rest;
// each Stop hook then gets up to grace to finish.
func Run(ctx context.Context, log *slog.Logger, grace time.Duration, tasks ...Task) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, t := range tasks {
		g.Go(func() error {
			log.Info("starting", slog.String("task", t.Name))
			if err := t.Run(gctx); err != nil {
				log.Error("task failed", slog.String("task", t.Name), slog.Any("err", err))
				return err
			}
			return nil
		})
	}

	for _, t := range tasks {
		if t.Stop == nil {
			continue
		}
		g.Go(func() error {
			<-gctx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), grace)
			defer cancel()
			if err := t.Stop(stopCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Warn("stop failed", slog.String("task", t.Name), slog.Any("err", err))
			}
			return nil
		})
	}

	err := g.Wait()
	log.Info("shutdown complete")
	return err
}

package outbox

import (
	"context"
	"log/slog"
	"time"
)

type Store interface {
	ProcessPending(ctx context.Context, limit int, fn func(Record) error) (int, error)
}

type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
}

type Relay struct {
	store     Store
	publisher Publisher
	log       *slog.Logger
	interval  time.Duration
	batchSize int
}

func NewRelay(store Store, publisher Publisher, log *slog.Logger, interval time.Duration) *Relay {
	if log == nil {
		log = slog.Default()
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Relay{
		store:     store,
		publisher: publisher,
		log:       log.With(slog.String("component", "outbox_relay")),
		interval:  interval,
		batchSize: 100,
	}
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info("outbox relay started", slog.Duration("interval", r.interval))
	for {
		select {
		case <-ctx.Done():
			r.log.Info("outbox relay stopped")
			return nil
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
				r.log.Error("outbox relay pass failed", slog.Any("err", err))
			}
		}
	}
}

func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	sent, err := r.store.ProcessPending(ctx, r.batchSize, func(rec Record) error {
		if err := r.publisher.Publish(ctx, rec.Topic, rec.Key, rec.Payload); err != nil {
			return err
		}
		r.log.Debug("event published",
			slog.String("event_id", rec.EventID),
			slog.String("topic", rec.Topic))
		return nil
	})
	if sent > 0 {
		r.log.Info("outbox events relayed", slog.Int("count", sent))
	}
	return sent, err
}

// Package outbox stores integration events in the same transaction as the
// state change that produced them and relays them to a broker afterwards.
package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dwikikusuma/storefront/pkg/postgres"
)

type Record struct {
	ID        int64           `json:"id"`
	EventID   string          `json:"event_id"`
	Topic     string          `json:"topic"`
	Key       string          `json:"key"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	SentAt    *time.Time      `json:"sent_at"`
}

// Insert appends an event using q, which is normally the caller's *sql.Tx.
func Insert(ctx context.Context, q postgres.DBTX, topic, key string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal outbox payload: %w", err)
	}
	eventID := uuid.NewString()
	_, err = q.ExecContext(ctx,
		`INSERT INTO outbox (event_id, topic, key, payload) VALUES ($1, $2, $3, $4)`,
		eventID, topic, key, data)
	if err != nil {
		return "", fmt.Errorf("insert outbox event: %w", err)
	}
	return eventID, nil
}

// SQLStore hands pending records to a callback under row locks, so several
// relays can run against one database without publishing twice.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) ProcessPending(ctx context.Context, limit int, fn func(Record) error) (int, error) {
	var (
		sent       int
		publishErr error
	)
	err := postgres.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT id, event_id, topic, key, payload, created_at, sent_at
			FROM outbox
			WHERE sent_at IS NULL
			ORDER BY id
			LIMIT $1
			FOR UPDATE SKIP LOCKED`, limit)
		if err != nil {
			return fmt.Errorf("fetch pending: %w", err)
		}

		var batch []Record
		for rows.Next() {
			var rec Record
			if err := rows.Scan(&rec.ID, &rec.EventID, &rec.Topic, &rec.Key, &rec.Payload, &rec.CreatedAt, &rec.SentAt); err != nil {
				rows.Close()
				return fmt.Errorf("scan pending: %w", err)
			}
			batch = append(batch, rec)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate pending: %w", err)
		}

		for _, rec := range batch {
			// Stop at the first failure to keep per-key ordering.
			if err := fn(rec); err != nil {
				publishErr = fmt.Errorf("publish event %s: %w", rec.EventID, err)
				return nil
			}
			if _, err := tx.ExecContext(ctx, `UPDATE outbox SET sent_at = now() WHERE id = $1`, rec.ID); err != nil {
				return fmt.Errorf("mark sent: %w", err)
			}
			sent++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return sent, publishErr
}

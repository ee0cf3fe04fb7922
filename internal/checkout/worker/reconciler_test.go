package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwikikusuma/storefront/internal/checkout/domain"
)

type memCleanups struct {
	markers []domain.Cleanup
	done    map[string]bool
	failed  map[string]string
}

func (m *memCleanups) Pending(ctx context.Context, olderThan time.Time, limit int) ([]domain.Cleanup, error) {
	var out []domain.Cleanup
	for _, c := range m.markers {
		if !m.done[c.OrderID] && c.OrderedAt.Before(olderThan) && len(out) < limit {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memCleanups) MarkDone(ctx context.Context, orderID string) error {
	m.done[orderID] = true
	return nil
}

func (m *memCleanups) MarkFailed(ctx context.Context, orderID, reason string) error {
	m.failed[orderID] = reason
	return nil
}

type clearCall struct {
	user  string
	since time.Time
}

type recordingCarts struct {
	failFor string
	calls   []clearCall
}

func (r *recordingCarts) ClearCheckedOut(ctx context.Context, userID string, orderedAt time.Time) (int64, error) {
	r.calls = append(r.calls, clearCall{userID, orderedAt})
	if userID == r.failFor {
		return 0, errors.New("db unavailable")
	}
	return 2, nil
}

func TestReconcilerClearsStaleCarts(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &memCleanups{
		markers: []domain.Cleanup{
			{OrderID: "o1", UserID: "u1", OrderedAt: now.Add(-time.Hour)},
			{OrderID: "o2", UserID: "u2", OrderedAt: now.Add(-time.Hour)},
			{OrderID: "fresh", UserID: "u3", OrderedAt: now.Add(-time.Second)},
		},
		done:   map[string]bool{},
		failed: map[string]string{},
	}
	carts := &recordingCarts{failFor: "u2"}

	r := NewReconciler(store, carts, nil, time.Minute)
	r.now = func() time.Time { return now }

	n, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.True(t, store.done["o1"])
	assert.False(t, store.done["o2"])
	assert.Equal(t, "db unavailable", store.failed["o2"])
	assert.False(t, store.done["fresh"], "inline clear may still be running")

	require.Len(t, carts.calls, 2)
	assert.Equal(t, clearCall{"u1", now.Add(-time.Hour)}, carts.calls[0])

	// a second pass retries only the failed one
	carts.failFor = ""
	n, err = r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, store.done["o2"])
}

func TestReconcilerRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewReconciler(&memCleanups{}, &recordingCarts{}, nil, time.Millisecond)
	assert.NoError(t, r.Run(ctx))
}

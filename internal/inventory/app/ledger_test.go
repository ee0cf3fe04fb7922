package app

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/dwikikusuma/storefront/internal/inventory/domain"
	"github.com/dwikikusuma/storefront/pkg/apperr"
	"github.com/dwikikusuma/storefront/pkg/metrics"
)

// memStock is a products table whose transactions run one at a time and
// roll back on error.
type memStock struct {
	mu       sync.Mutex
	stock    map[string]int64
	eligible map[string]bool
}

func newMemStock() *memStock {
	return &memStock{stock: map[string]int64{}, eligible: map[string]bool{}}
}

func (m *memStock) add(stock int64, eligible bool) string {
	id := uuid.NewString()
	m.stock[id] = stock
	m.eligible[id] = eligible
	return id
}

func (m *memStock) inTx(fn func(StockStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	saved := make(map[string]int64, len(m.stock))
	for k, v := range m.stock {
		saved[k] = v
	}
	if err := fn(memTx{m}); err != nil {
		m.stock = saved
		return err
	}
	return nil
}

func (m *memStock) Increment(ctx context.Context, productID string, qty int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stock[productID]; !ok {
		return 0, apperr.NotFoundf("mem.Increment", "no product")
	}
	m.stock[productID] += qty
	return m.stock[productID], nil
}

type memTx struct{ m *memStock }

func (t memTx) DecrementIfAvailable(ctx context.Context, productID string, qty int64) (bool, error) {
	s, ok := t.m.stock[productID]
	if !ok || !t.m.eligible[productID] || s < qty {
		return false, nil
	}
	t.m.stock[productID] = s - qty
	return true, nil
}

func (t memTx) StockState(ctx context.Context, productID string) (domain.StockState, error) {
	s, ok := t.m.stock[productID]
	return domain.StockState{ProductID: productID, Exists: ok, Eligible: t.m.eligible[productID], Stock: s}, nil
}

func TestReserveDecrementsEveryLine(t *testing.T) {
	store := newMemStock()
	a := store.add(5, true)
	b := store.add(2, true)
	ledger := NewLedger(store, nil, nil)

	var res domain.Reservation
	err := store.inTx(func(tx StockStore) error {
		var err error
		res, err = ledger.Reserve(context.Background(), tx, []domain.Demand{
			{ProductID: b, Quantity: 1},
			{ProductID: a, Quantity: 2},
			{ProductID: b, Quantity: 1},
		})
		return err
	})
	require.NoError(t, err)

	assert.EqualValues(t, 3, store.stock[a])
	assert.EqualValues(t, 0, store.stock[b])
	assert.EqualValues(t, 4, res.Units())
	assert.Len(t, res.Lines, 2)
}

func TestReserveFailureKinds(t *testing.T) {
	store := newMemStock()
	ok := store.add(5, true)
	low := store.add(1, true)
	disabled := store.add(10, false)
	missing := uuid.NewString()

	reg := prometheus.NewRegistry()
	m := metrics.NewCheckout(reg)
	ledger := NewLedger(store, m, nil)

	reserve := func(d ...domain.Demand) error {
		return store.inTx(func(tx StockStore) error {
			_, err := ledger.Reserve(context.Background(), tx, d)
			return err
		})
	}

	err := reserve(domain.Demand{ProductID: ok, Quantity: 1}, domain.Demand{ProductID: low, Quantity: 2})
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.OutOfStock, ae.Kind)
	assert.Equal(t, low, ae.ProductID)
	assert.EqualValues(t, 1, ae.Available)
	assert.EqualValues(t, 5, store.stock[ok], "earlier decrement must roll back")

	err = reserve(domain.Demand{ProductID: disabled, Quantity: 1})
	assert.ErrorIs(t, err, &apperr.Error{Kind: apperr.ProductUnavailable, ProductID: disabled})

	err = reserve(domain.Demand{ProductID: missing, Quantity: 1})
	assert.ErrorIs(t, err, &apperr.Error{Kind: apperr.ProductUnavailable, ProductID: missing})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReservationFailures.WithLabelValues("out_of_stock")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ReservationFailures.WithLabelValues("unavailable")))
}

func TestReserveMergedDemandExceedsStock(t *testing.T) {
	store := newMemStock()
	a := store.add(3, true)
	ledger := NewLedger(store, nil, nil)

	err := store.inTx(func(tx StockStore) error {
		_, err := ledger.Reserve(context.Background(), tx, []domain.Demand{
			{ProductID: a, Quantity: 2},
			{ProductID: a, Quantity: 2},
		})
		return err
	})
	assert.True(t, apperr.IsKind(err, apperr.OutOfStock), "got %v", err)
	assert.EqualValues(t, 3, store.stock[a])
}

func TestReserveRejectsBadDemands(t *testing.T) {
	store := newMemStock()
	a := store.add(3, true)
	ledger := NewLedger(store, nil, nil)

	for _, d := range [][]domain.Demand{
		nil,
		{{ProductID: a, Quantity: 0}},
		{{ProductID: a, Quantity: -2}},
		{{ProductID: "nope", Quantity: 1}},
	} {
		_, err := ledger.Reserve(context.Background(), memTx{store}, d)
		assert.True(t, apperr.IsKind(err, apperr.InvalidArgument), "demands %v: got %v", d, err)
	}
	assert.EqualValues(t, 3, store.stock[a])
}

func TestReserveNeverOversells(t *testing.T) {
	const (
		initial = 10
		perCall = 3
		callers = 25
	)
	store := newMemStock()
	p := store.add(initial, true)
	ledger := NewLedger(store, nil, nil)

	var won, outOfStock atomic.Int64
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < callers; i++ {
		g.Go(func() error {
			err := store.inTx(func(tx StockStore) error {
				_, err := ledger.Reserve(ctx, tx, []domain.Demand{{ProductID: p, Quantity: perCall}})
				return err
			})
			switch {
			case err == nil:
				won.Add(1)
			case apperr.IsKind(err, apperr.OutOfStock):
				outOfStock.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.EqualValues(t, initial/perCall, won.Load())
	assert.EqualValues(t, callers-initial/perCall, outOfStock.Load())
	assert.EqualValues(t, initial%perCall, store.stock[p])
}

func TestRestock(t *testing.T) {
	store := newMemStock()
	a := store.add(1, true)
	ledger := NewLedger(store, nil, nil)
	ctx := context.Background()

	stock, err := ledger.Restock(ctx, a, 4)
	require.NoError(t, err)
	assert.EqualValues(t, 5, stock)

	_, err = ledger.Restock(ctx, a, 0)
	assert.True(t, apperr.IsKind(err, apperr.InvalidArgument))

	_, err = ledger.Restock(ctx, uuid.NewString(), 1)
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

package postgres_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/dwikikusuma/storefront/internal/cart/domain"
	cartpg "github.com/dwikikusuma/storefront/internal/cart/infra/postgres"
	"github.com/dwikikusuma/storefront/internal/storage/pgtest"
	"github.com/dwikikusuma/storefront/pkg/apperr"
)

func TestCartRepo_ConcurrentGetOrCreateSingleCart(t *testing.T) {
	db := pgtest.Open(t)
	repo := cartpg.NewCartRepo(db)
	userID := pgtest.CreateUser(t, db)

	var mu sync.Mutex
	ids := map[string]struct{}{}

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 30; i++ {
		g.Go(func() error {
			cart, _, err := repo.GetOrCreate(ctx, userID)
			if err != nil {
				return err
			}
			mu.Lock()
			ids[cart.ID] = struct{}{}
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Len(t, ids, 1)
}

func TestCartRepo_GetOrCreateUnknownUser(t *testing.T) {
	db := pgtest.Open(t)
	repo := cartpg.NewCartRepo(db)

	_, _, err := repo.GetOrCreate(context.Background(), uuid.NewString())
	assert.True(t, apperr.IsKind(err, apperr.NotFound), "got %v", err)
}

func TestCartRepo_ApplyItemsIsAtomic(t *testing.T) {
	db := pgtest.Open(t)
	repo := cartpg.NewCartRepo(db)
	ctx := context.Background()

	userID := pgtest.CreateUser(t, db)
	product := pgtest.CreateProduct(t, db, "10.00", 5)
	cart, _, err := repo.GetOrCreate(ctx, userID)
	require.NoError(t, err)

	missing := uuid.NewString()
	err = repo.ApplyItems(ctx, cart.ID, []domain.ItemUpdate{
		{ProductID: product, Quantity: 2},
		{ProductID: missing, Quantity: 1},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, &apperr.Error{Kind: apperr.ProductUnavailable, ProductID: missing})

	_, items, err := repo.Get(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCartRepo_ApplyItemsSetsAndRemoves(t *testing.T) {
	db := pgtest.Open(t)
	repo := cartpg.NewCartRepo(db)
	ctx := context.Background()

	userID := pgtest.CreateUser(t, db)
	a := pgtest.CreateProduct(t, db, "10.00", 5)
	b := pgtest.CreateProduct(t, db, "5.00", 5)
	cart, _, err := repo.GetOrCreate(ctx, userID)
	require.NoError(t, err)

	require.NoError(t, repo.ApplyItems(ctx, cart.ID, []domain.ItemUpdate{{ProductID: a, Quantity: 2}, {ProductID: b, Quantity: 1}}))
	require.NoError(t, repo.ApplyItems(ctx, cart.ID, []domain.ItemUpdate{{ProductID: a, Quantity: 4}, {ProductID: b, Quantity: 0}}))

	got, items, err := repo.Get(ctx, userID)
	require.NoError(t, err)
	view := domain.NewView(got, items)
	require.Len(t, view.Items, 1)
	assert.EqualValues(t, 4, view.Items[0].Quantity)
	assert.Equal(t, "40", view.TotalPrice.String())
}

func TestCartRepo_ResetReplacesCart(t *testing.T) {
	db := pgtest.Open(t)
	repo := cartpg.NewCartRepo(db)
	ctx := context.Background()

	userID := pgtest.CreateUser(t, db)
	a := pgtest.CreateProduct(t, db, "1.00", 5)
	cart, _, err := repo.GetOrCreate(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, repo.ApplyItems(ctx, cart.ID, []domain.ItemUpdate{{ProductID: a, Quantity: 1}}))

	fresh, err := repo.Reset(ctx, userID)
	require.NoError(t, err)
	assert.NotEqual(t, cart.ID, fresh.ID)

	_, items, err := repo.Get(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

package app

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dwikikusuma/storefront/internal/cart/domain"
	"github.com/dwikikusuma/storefront/pkg/apperr"
)

type Service struct {
	repo    CartRepo
	catalog CatalogReader
	log     *slog.Logger
}

func NewService(repo CartRepo, catalog CatalogReader, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:    repo,
		catalog: catalog,
		log:     log,
	}
}

func (s *Service) GetOrCreateCart(ctx context.Context, userID string) (domain.CartView, error) {
	if err := checkID("cart.GetOrCreateCart", "user", userID); err != nil {
		return domain.CartView{}, err
	}

	cart, items, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return domain.CartView{}, err
	}
	return domain.NewView(cart, items), nil
}

// GetCart prices an existing cart. It does not create one.
func (s *Service) GetCart(ctx context.Context, userID string) (domain.CartView, error) {
	if err := checkID("cart.GetCart", "user", userID); err != nil {
		return domain.CartView{}, err
	}

	cart, items, err := s.repo.Get(ctx, userID)
	if err != nil {
		return domain.CartView{}, err
	}
	return domain.NewView(cart, items), nil
}

// ApplyItemUpdates applies a batch of quantity changes atomically and returns
// the repriced cart. Quantity < 1 removes the line. Every product being set
// must exist and be available, otherwise nothing is written.
func (s *Service) ApplyItemUpdates(ctx context.Context, userID string, updates []domain.ItemUpdate) (domain.CartView, error) {
	const op = "cart.ApplyItemUpdates"

	if err := checkID(op, "user", userID); err != nil {
		return domain.CartView{}, err
	}
	if len(updates) == 0 {
		return domain.CartView{}, apperr.Invalidf(op, "at least one item update is required")
	}

	batch := make([]domain.ItemUpdate, len(updates))
	seen := make(map[string]struct{}, len(updates))
	var upserts []string
	for i, u := range updates {
		id, err := parseID(op, "product", u.ProductID)
		if err != nil {
			return domain.CartView{}, err
		}
		u.ProductID = id
		if _, dup := seen[id]; dup {
			return domain.CartView{}, apperr.Invalidf(op, "product %s appears more than once", id)
		}
		seen[id] = struct{}{}
		if !u.Removes() {
			upserts = append(upserts, id)
		}
		batch[i] = u
	}

	if len(upserts) > 0 {
		if err := s.checkAvailable(ctx, op, upserts); err != nil {
			return domain.CartView{}, err
		}
	}

	cart, _, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return domain.CartView{}, err
	}

	if err := s.repo.ApplyItems(ctx, cart.ID, batch); err != nil {
		return domain.CartView{}, err
	}

	s.log.DebugContext(ctx, "cart items updated", "user_id", userID, "cart_id", cart.ID, "updates", len(batch))
	return s.GetCart(ctx, userID)
}

// checkAvailable fails on the first id, in request order, that is unknown or
// not currently sellable.
func (s *Service) checkAvailable(ctx context.Context, op string, ids []string) error {
	products, err := s.catalog.ListProductsByIDs(ctx, ids)
	if err != nil {
		return err
	}
	available := make(map[string]bool, len(products))
	for _, p := range products {
		available[p.ID] = p.Available
	}
	for _, id := range ids {
		if !available[id] {
			return apperr.Unavailable(op, id)
		}
	}
	return nil
}

// Clear empties the user's cart by replacing it with a fresh one.
func (s *Service) Clear(ctx context.Context, userID string) (domain.CartView, error) {
	if err := checkID("cart.Clear", "user", userID); err != nil {
		return domain.CartView{}, err
	}

	cart, err := s.repo.Reset(ctx, userID)
	if err != nil {
		return domain.CartView{}, err
	}
	s.log.DebugContext(ctx, "cart cleared", "user_id", userID, "cart_id", cart.ID)
	return domain.NewView(cart, nil), nil
}

// ClearCheckedOut removes the lines that were part of an order placed at
// orderedAt. Lines written after that are left for the next checkout.
func (s *Service) ClearCheckedOut(ctx context.Context, userID string, orderedAt time.Time) (int64, error) {
	if err := checkID("cart.ClearCheckedOut", "user", userID); err != nil {
		return 0, err
	}
	return s.repo.ClearItemsNotModifiedSince(ctx, userID, orderedAt)
}

func checkID(op, what, id string) error {
	_, err := parseID(op, what, id)
	return err
}

// parseID validates id and returns its canonical lowercase hyphenated form,
// the form the catalog and the database hand back.
func parseID(op, what, id string) (string, error) {
	u, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", apperr.Invalidf(op, "malformed %s id %q", what, id)
	}
	return u.String(), nil
}

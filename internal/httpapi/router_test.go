package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartdomain "github.com/dwikikusuma/storefront/internal/cart/domain"
	catalogdomain "github.com/dwikikusuma/storefront/internal/catalog/domain"
	checkoutdomain "github.com/dwikikusuma/storefront/internal/checkout/domain"
	orderdomain "github.com/dwikikusuma/storefront/internal/order/domain"
	"github.com/dwikikusuma/storefront/pkg/apperr"
	"github.com/dwikikusuma/storefront/pkg/idempotency"
	"github.com/dwikikusuma/storefront/pkg/logger"
	"github.com/dwikikusuma/storefront/pkg/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeStore struct {
	lastUser    string
	lastUpdates []cartdomain.ItemUpdate
	checkoutErr error
	lastKey     string
}

func (f *fakeStore) GetProduct(ctx context.Context, id string) (catalogdomain.Product, error) {
	if id == "missing" {
		return catalogdomain.Product{}, apperr.NotFoundf("catalog.Get", "product %s not found", id)
	}
	return catalogdomain.Product{ID: id, Name: "Keyboard", Price: decimal.NewFromInt(10)}, nil
}

func (f *fakeStore) ListProducts(ctx context.Context, query string, limit int, cursor string) ([]catalogdomain.Product, string, error) {
	return nil, "", nil
}

func (f *fakeStore) GetOrCreateCart(ctx context.Context, userID string) (cartdomain.CartView, error) {
	f.lastUser = userID
	return cartdomain.CartView{ID: "c1", UserID: userID, Items: []cartdomain.CartItem{}}, nil
}

func (f *fakeStore) ApplyItemUpdates(ctx context.Context, userID string, updates []cartdomain.ItemUpdate) (cartdomain.CartView, error) {
	f.lastUser, f.lastUpdates = userID, updates
	if len(updates) == 0 {
		return cartdomain.CartView{}, apperr.Invalidf("cart.ApplyItemUpdates", "at least one item update is required")
	}
	return cartdomain.CartView{ID: "c1", UserID: userID, TotalPrice: decimal.NewFromInt(25)}, nil
}

func (f *fakeStore) Clear(ctx context.Context, userID string) (cartdomain.CartView, error) {
	return cartdomain.CartView{ID: "c2", UserID: userID}, nil
}

func (f *fakeStore) Quote(ctx context.Context, userID string) (checkoutdomain.Quote, error) {
	return checkoutdomain.Quote{Total: decimal.NewFromInt(25)}, nil
}

func (f *fakeStore) CheckoutWithKey(ctx context.Context, userID, key string) (orderdomain.Order, error) {
	f.lastKey = key
	if f.checkoutErr != nil {
		return orderdomain.Order{}, f.checkoutErr
	}
	return orderdomain.Order{ID: "o1", UserID: userID, Total: decimal.NewFromInt(25)}, nil
}

func (f *fakeStore) ListOrdersForUser(ctx context.Context, userID string) ([]orderdomain.Order, error) {
	return []orderdomain.Order{{ID: "o1", UserID: userID}}, nil
}

func (f *fakeStore) GetOrder(ctx context.Context, userID, orderID string) (orderdomain.Order, error) {
	return orderdomain.Order{}, apperr.NotFoundf("order.Get", "order %s not found", orderID)
}

func newTestHandler(f *fakeStore) http.Handler {
	reg := prometheus.NewRegistry()
	return NewHandler(
		Services{Catalog: f, Carts: f, Checkout: f, Orders: f},
		Options{
			Log:      logger.Discard(),
			Metrics:  metrics.NewServerMetrics(reg),
			Gatherer: reg,
			Ready:    func(context.Context) error { return nil },
		},
	)
}

func do(h http.Handler, method, path, user, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != "" {
		req.Header.Set(HeaderUserID, user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type errResponse struct {
	Error errorBody `json:"error"`
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var out errResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out.Error
}

func TestCartRoutesRequireUser(t *testing.T) {
	h := newTestHandler(&fakeStore{})

	rec := do(h, http.MethodGet, "/v1/cart", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(h, http.MethodGet, "/v1/cart", "not-a-uuid", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHENTICATED", decodeErr(t, rec).Code)
}

func TestUpdateCart(t *testing.T) {
	f := &fakeStore{}
	h := newTestHandler(f)
	user := uuid.NewString()

	rec := do(h, http.MethodPatch, "/v1/cart", user, `{"items":[{"product_id":"p1","quantity":2},{"product_id":"p2","quantity":0}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, user, f.lastUser)
	assert.Equal(t, []cartdomain.ItemUpdate{{ProductID: "p1", Quantity: 2}, {ProductID: "p2", Quantity: 0}}, f.lastUpdates)

	var view cartdomain.CartView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.True(t, decimal.NewFromInt(25).Equal(view.TotalPrice))

	rec = do(h, http.MethodPatch, "/v1/cart", user, `{"items":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_argument", decodeErr(t, rec).Reason)

	rec = do(h, http.MethodPatch, "/v1/cart", user, `{"items":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckoutErrors(t *testing.T) {
	f := &fakeStore{}
	h := newTestHandler(f)
	user := uuid.NewString()

	rec := do(h, http.MethodPost, "/v1/cart/checkout", user, "")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Empty(t, f.lastKey)

	req := httptest.NewRequest(http.MethodPost, "/v1/cart/checkout", nil)
	req.Header.Set(HeaderUserID, user)
	req.Header.Set(idempotency.Header, "k-42")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "k-42", f.lastKey)

	f.checkoutErr = apperr.NoStock("inventory.Reserve", "p1", 1)
	rec = do(h, http.MethodPost, "/v1/cart/checkout", user, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeErr(t, rec)
	assert.Equal(t, "out_of_stock", body.Reason)
	assert.Equal(t, "p1", body.ProductID)
	require.NotNil(t, body.Available)
	assert.EqualValues(t, 1, *body.Available)

	f.checkoutErr = apperr.E(apperr.EmptyCart, "checkout.Quote", "cart has no purchasable items")
	rec = do(h, http.MethodPost, "/v1/cart/checkout", user, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "empty_cart", decodeErr(t, rec).Reason)

	f.checkoutErr = apperr.Wrap(apperr.TransientStorage, "checkout.Checkout", errors.New("deadlock detected"))
	rec = do(h, http.MethodPost, "/v1/cart/checkout", user, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.True(t, decodeErr(t, rec).Retryable)

	f.checkoutErr = errors.New("boom")
	rec = do(h, http.MethodPost, "/v1/cart/checkout", user, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", decodeErr(t, rec).Message)
}

func TestCatalogAndOrders(t *testing.T) {
	h := newTestHandler(&fakeStore{})
	user := uuid.NewString()

	rec := do(h, http.MethodGet, "/v1/products/missing", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(h, http.MethodGet, "/v1/products", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"products":[],"next_cursor":""}`, rec.Body.String())

	rec = do(h, http.MethodGet, "/v1/products?limit=x", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, http.MethodGet, "/v1/orders", user, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(h, http.MethodGet, "/v1/orders/"+uuid.NewString(), user, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStockCannotBeWrittenOverHTTP(t *testing.T) {
	h := newTestHandler(&fakeStore{})

	for _, user := range []string{"", uuid.NewString()} {
		rec := do(h, http.MethodPost, "/v1/admin/products/"+uuid.NewString()+"/restock", user, `{"quantity":3}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}
}

func TestOpsEndpointsAndCORS(t *testing.T) {
	h := newTestHandler(&fakeStore{})

	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/healthz", "", "").Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/readyz", "", "").Code)

	_ = do(h, http.MethodGet, "/healthz", "", "")
	rec := do(h, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "storefront_http_requests_total")

	req := httptest.NewRequest(http.MethodOptions, "/v1/cart", nil)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	req.Header.Set("Access-Control-Request-Headers", HeaderUserID)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

// Package httpapi exposes the storefront over HTTP/JSON.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"

	cartdomain "github.com/dwikikusuma/storefront/internal/cart/domain"
	catalogdomain "github.com/dwikikusuma/storefront/internal/catalog/domain"
	checkoutdomain "github.com/dwikikusuma/storefront/internal/checkout/domain"
	orderdomain "github.com/dwikikusuma/storefront/internal/order/domain"
	"github.com/dwikikusuma/storefront/pkg/idempotency"
	"github.com/dwikikusuma/storefront/pkg/metrics"
)

type Catalog interface {
	GetProduct(ctx context.Context, id string) (catalogdomain.Product, error)
	ListProducts(ctx context.Context, query string, limit int, cursor string) ([]catalogdomain.Product, string, error)
}

type Carts interface {
	GetOrCreateCart(ctx context.Context, userID string) (cartdomain.CartView, error)
	ApplyItemUpdates(ctx context.Context, userID string, updates []cartdomain.ItemUpdate) (cartdomain.CartView, error)
	Clear(ctx context.Context, userID string) (cartdomain.CartView, error)
}

type Checkout interface {
	Quote(ctx context.Context, userID string) (checkoutdomain.Quote, error)
	CheckoutWithKey(ctx context.Context, userID, key string) (orderdomain.Order, error)
}

type Orders interface {
	ListOrdersForUser(ctx context.Context, userID string) ([]orderdomain.Order, error)
	GetOrder(ctx context.Context, userID, orderID string) (orderdomain.Order, error)
}

type Services struct {
	Catalog  Catalog
	Carts    Carts
	Checkout Checkout
	Orders   Orders
}

type Options struct {
	Log            *slog.Logger
	Metrics        *metrics.ServerMetrics
	Gatherer       prometheus.Gatherer
	Ready          func(ctx context.Context) error
	AllowedOrigins []string
	// RequestTimeout bounds every /v1 handler. Zero means no limit.
	RequestTimeout time.Duration
}

type handler struct {
	svc Services
}

// NewHandler builds the gin engine and wraps it in CORS handling.
func NewHandler(svc Services, opts Options) http.Handler {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	h := &handler{svc: svc}

	r := gin.New()
	r.Use(gin.Recovery(), accessLog(log))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware())
	}

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/readyz", func(c *gin.Context) {
		if opts.Ready != nil {
			if err := opts.Ready(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(opts.Gatherer)))
	}

	v1 := r.Group("/v1")
	if opts.RequestTimeout > 0 {
		v1.Use(withTimeout(opts.RequestTimeout))
	}

	v1.GET("/products", h.listProducts)
	v1.GET("/products/:id", h.getProduct)

	me := v1.Group("", requireUser())
	me.GET("/cart", h.getCart)
	me.PATCH("/cart", h.updateCart)
	me.DELETE("/cart", h.clearCart)
	me.GET("/cart/quote", h.quote)
	me.POST("/cart/checkout", h.checkout)
	me.GET("/orders", h.listOrders)
	me.GET("/orders/:id", h.getOrder)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", HeaderUserID, idempotency.Header},
	}).Handler(r)
}

func withTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	cartdomain "github.com/dwikikusuma/storefront/internal/cart/domain"
	catalogdomain "github.com/dwikikusuma/storefront/internal/catalog/domain"
	"github.com/dwikikusuma/storefront/pkg/apperr"
	"github.com/dwikikusuma/storefront/pkg/idempotency"
)

func (h *handler) listProducts(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(c, apperr.Invalidf("http.listProducts", "limit must be a number"))
			return
		}
		limit = n
	}

	products, next, err := h.svc.Catalog.ListProducts(c.Request.Context(), c.Query("q"), limit, c.Query("cursor"))
	if err != nil {
		writeError(c, err)
		return
	}
	if products == nil {
		products = []catalogdomain.Product{}
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "next_cursor": next})
}

func (h *handler) getProduct(c *gin.Context) {
	p, err := h.svc.Catalog.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handler) getCart(c *gin.Context) {
	view, err := h.svc.Carts.GetOrCreateCart(c.Request.Context(), userID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type updateCartRequest struct {
	Items []cartdomain.ItemUpdate `json:"items"`
}

func (h *handler) updateCart(c *gin.Context) {
	var req updateCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Invalidf("http.updateCart", "invalid body: %v", err))
		return
	}

	view, err := h.svc.Carts.ApplyItemUpdates(c.Request.Context(), userID(c), req.Items)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *handler) clearCart(c *gin.Context) {
	view, err := h.svc.Carts.Clear(c.Request.Context(), userID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *handler) quote(c *gin.Context) {
	q, err := h.svc.Checkout.Quote(c.Request.Context(), userID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (h *handler) checkout(c *gin.Context) {
	order, err := h.svc.Checkout.CheckoutWithKey(c.Request.Context(), userID(c), idempotency.Key(c.Request))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *handler) listOrders(c *gin.Context) {
	orders, err := h.svc.Orders.ListOrdersForUser(c.Request.Context(), userID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *handler) getOrder(c *gin.Context) {
	order, err := h.svc.Orders.GetOrder(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

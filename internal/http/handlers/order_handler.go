// Customer-facing order endpoints.
//
// The status lookup requires both the order number and the email address
// used at purchase; any miss answers with the same 404 so callers cannot
// probe which half was wrong. The preview endpoint serves the latest
// rendered snapshot keyed by the opaque public id.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-order-backend/internal/services"
)

// GetOrderStatus godoc
// @ID          getOrderStatus
// @Summary     Look up an order's status
// @Description Returns the public status view (timeline and shipping info) for an order number + email pair. Both must match; a miss on either returns the same 404.
// @Tags        Orders
// @Produce     json
//
// @Param       orderNumber  path   string  true  "Customer-facing order number"  example(1001)
// @Param       email        query  string  true  "Email used at purchase"        example(customer@example.com)
//
// @Success     200  {object}  services.PublicOrderStatus
// @Failure     400  {object}  handlers.ErrorResponse  "Missing or malformed parameters"
// @Failure     404  {object}  handlers.ErrorResponse  "No matching order"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /orders/{orderNumber}/status [get]
func (h *Handlers) GetOrderStatus(c *gin.Context) {
	orderNumber := c.Param("orderNumber")
	email := c.Query("email")

	view, err := h.orders.GetOrderStatus(c.Request.Context(), orderNumber, email)
	switch {
	case err == nil:
		ok(c, http.StatusOK, view)
	case errors.Is(err, services.ErrInvalidOrderNumber):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "order number is required")
	case errors.Is(err, services.ErrInvalidEmail):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "a valid email is required")
	case errors.Is(err, services.ErrOrderNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "order not found")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "lookup failed")
	}
}

// GetOrderPreview godoc
// @ID          getOrderPreview
// @Summary     Serve the rendered status snapshot
// @Description Returns the most recently rendered HTML status page for an order, keyed by its opaque public id.
// @Tags        Orders
// @Produce     html
//
// @Param       publicID  path  string  true  "Opaque public order id"  example(ord_abcdef123456)
//
// @Success     200  {string}  string  "HTML snapshot"
// @Failure     404  {object}  handlers.ErrorResponse  "No snapshot rendered"
// @Router      /orders/preview/{publicID} [get]
func (h *Handlers) GetOrderPreview(c *gin.Context) {
	publicID := strings.TrimSpace(c.Param("publicID"))

	page, found := h.previews.Get(publicID)
	if !found {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "no snapshot for this order")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

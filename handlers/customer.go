package handlers

import (
	"net/http"
	"strings"

	"canteen-api/apperr"
	"canteen-api/idempotency"
	"canteen-api/middleware"
	"canteen-api/services"

	"github.com/gin-gonic/gin"
)

const HeaderIdempotencyKey = "Idempotency-Key"

type OrderLineRequest struct {
	MenuItemID uint `json:"menu_item_id" binding:"required"`
	Quantity   int  `json:"quantity" binding:"required,min=1,max=1000"`
}

// PlaceOrderRequest places from the stored cart when Items is empty.
type PlaceOrderRequest struct {
	Notes string             `json:"notes" binding:"max=500"`
	Items []OrderLineRequest `json:"items" binding:"omitempty,dive"`
}

type orderListQuery struct {
	pageQuery
	Status string `form:"status"`
}

// PlaceOrder converts the cart or an inline item list into an order
func (h *Handler) PlaceOrder(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)

	var req PlaceOrderRequest
	if err := bindJSON(c, &req, true); err != nil {
		h.respondError(c, err)
		return
	}

	idemKey := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
	if len(idemKey) > 200 {
		h.respondError(c, apperr.New(apperr.KindValidation, "Idempotency-Key must be at most 200 characters"))
		return
	}
	if idemKey != "" {
		orderID, seen, err := h.Idempotency.Lookup(ctx, idempotency.Key(userID, idemKey))
		if err != nil {
			h.Log.Error("idempotency lookup failed", "request_id", middleware.GetRequestID(c), "error", err)
		} else if seen {
			order, err := h.Orders.GetForUser(ctx, orderID, userID)
			if err != nil {
				h.respondError(c, err, "order_id", orderID)
				return
			}
			respond(c, http.StatusOK, order, "Order already placed")
			return
		}
	}

	in := services.PlaceOrderInput{UserID: userID, Notes: strings.TrimSpace(req.Notes)}
	for _, it := range req.Items {
		in.Items = append(in.Items, services.LineRequest{MenuItemID: it.MenuItemID, Quantity: it.Quantity})
	}
	order, err := h.Orders.PlaceOrder(ctx, in)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if idemKey != "" {
		if err := h.Idempotency.Remember(ctx, idempotency.Key(userID, idemKey), order.ID); err != nil {
			h.Log.Error("idempotency remember failed", "request_id", middleware.GetRequestID(c),
				"order_id", order.ID, "error", err)
		}
	}
	respond(c, http.StatusCreated, order, "Order placed successfully")
}

// GetMyOrders lists the caller's orders, newest first
func (h *Handler) GetMyOrders(c *gin.Context) {
	var q orderListQuery
	if err := bindQuery(c, &q); err != nil {
		h.respondError(c, err)
		return
	}
	orders, total, page, err := h.Orders.ListForUser(c.Request.Context(), middleware.GetUserID(c),
		services.OrderQuery{Status: q.Status, Page: q.toPage()})
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondList(c, orders, page, total)
}

// GetOrderDetail returns one of the caller's orders
func (h *Handler) GetOrderDetail(c *gin.Context) {
	orderID, err := paramID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	order, err := h.Orders.GetForUser(c.Request.Context(), orderID, middleware.GetUserID(c))
	if err != nil {
		h.respondError(c, err, "order_id", orderID)
		return
	}
	respond(c, http.StatusOK, order, "")
}

// CancelOrder lets the owner cancel a placed order within the window
func (h *Handler) CancelOrder(c *gin.Context) {
	orderID, err := paramID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	order, err := h.Orders.Cancel(c.Request.Context(), orderID, middleware.GetUserID(c))
	if err != nil {
		h.respondError(c, err, "order_id", orderID)
		return
	}
	respond(c, http.StatusOK, order, "Order cancelled successfully")
}

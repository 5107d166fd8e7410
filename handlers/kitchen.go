package handlers

import (
	"net/http"

	"canteen-api/middleware"
	"canteen-api/services"

	"github.com/gin-gonic/gin"
)

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note" binding:"max=500"`
}

// GetKitchenOrders lists every order for staff, newest first
func (h *Handler) GetKitchenOrders(c *gin.Context) {
	var q orderListQuery
	if err := bindQuery(c, &q); err != nil {
		h.respondError(c, err)
		return
	}
	orders, total, page, err := h.Orders.List(c.Request.Context(),
		services.OrderQuery{Status: q.Status, Page: q.toPage()})
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondList(c, orders, page, total)
}

func (h *Handler) GetKitchenOrder(c *gin.Context) {
	orderID, err := paramID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	order, err := h.Orders.Get(c.Request.Context(), orderID)
	if err != nil {
		h.respondError(c, err, "order_id", orderID)
		return
	}
	respond(c, http.StatusOK, order, "")
}

// UpdateOrderStatus handles the kitchen's state transitions
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	orderID, err := paramID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req UpdateOrderStatusRequest
	if err := bindJSON(c, &req, false); err != nil {
		h.respondError(c, err)
		return
	}
	order, err := h.Orders.UpdateStatus(c.Request.Context(), orderID, req.Status, middleware.GetUserID(c), req.Note)
	if err != nil {
		h.respondError(c, err, "order_id", orderID, "status", req.Status)
		return
	}
	respond(c, http.StatusOK, order, "Order status updated to "+string(order.Status))
}

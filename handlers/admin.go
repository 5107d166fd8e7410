package handlers

import (
	"net/http"

	"canteen-api/middleware"

	"github.com/gin-gonic/gin"
)

type ForceOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason" binding:"max=500"`
}

// AdminForceOrderStatus lets admin override any order state (emergency use)
func (h *Handler) AdminForceOrderStatus(c *gin.Context) {
	orderID, err := paramID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req ForceOrderStatusRequest
	if err := bindJSON(c, &req, false); err != nil {
		h.respondError(c, err)
		return
	}
	order, err := h.Orders.ForceStatus(c.Request.Context(), orderID, req.Status, middleware.GetUserID(c), req.Reason)
	if err != nil {
		h.respondError(c, err, "order_id", orderID, "status", req.Status)
		return
	}
	respond(c, http.StatusOK, order, "Order status force-updated by admin")
}

// AdminGetAllUsers lists users, optionally filtered by role
func (h *Handler) AdminGetAllUsers(c *gin.Context) {
	users, err := h.Auth.ListUsers(c.Request.Context(), c.Query("role"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": users, "total": len(users)})
}

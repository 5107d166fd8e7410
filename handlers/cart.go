package handlers

import (
	"net/http"

	"canteen-api/middleware"

	"github.com/gin-gonic/gin"
)

type AddCartItemRequest struct {
	MenuItemID uint `json:"menu_item_id" binding:"required"`
	Qty        int  `json:"qty" binding:"max=1000"`
}

type UpdateCartItemRequest struct {
	Qty *int `json:"qty" binding:"required,max=1000"`
}

// GetCart returns the caller's cart, creating it on first use
func (h *Handler) GetCart(c *gin.Context) {
	cart, err := h.Carts.Get(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, cart, "")
}

// AddCartItem adds a menu item or bumps the quantity of an existing line
func (h *Handler) AddCartItem(c *gin.Context) {
	var req AddCartItemRequest
	if err := bindJSON(c, &req, false); err != nil {
		h.respondError(c, err)
		return
	}
	cart, err := h.Carts.AddItem(c.Request.Context(), middleware.GetUserID(c), req.MenuItemID, req.Qty)
	if err != nil {
		h.respondError(c, err, "menu_item_id", req.MenuItemID)
		return
	}
	respond(c, http.StatusOK, cart, "")
}

// UpdateCartItem sets a line's quantity; qty <= 0 removes it
func (h *Handler) UpdateCartItem(c *gin.Context) {
	menuItemID, err := paramID(c, "menuItemId")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req UpdateCartItemRequest
	if err := bindJSON(c, &req, false); err != nil {
		h.respondError(c, err)
		return
	}
	cart, err := h.Carts.SetQty(c.Request.Context(), middleware.GetUserID(c), menuItemID, *req.Qty)
	if err != nil {
		h.respondError(c, err, "menu_item_id", menuItemID)
		return
	}
	respond(c, http.StatusOK, cart, "")
}

func (h *Handler) RemoveCartItem(c *gin.Context) {
	menuItemID, err := paramID(c, "menuItemId")
	if err != nil {
		h.respondError(c, err)
		return
	}
	cart, err := h.Carts.RemoveItem(c.Request.Context(), middleware.GetUserID(c), menuItemID)
	if err != nil {
		h.respondError(c, err, "menu_item_id", menuItemID)
		return
	}
	respond(c, http.StatusOK, cart, "")
}

func (h *Handler) ClearCart(c *gin.Context) {
	cart, err := h.Carts.Clear(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, cart, "")
}

package handlers

import (
	"net/http"

	"canteen-api/apperr"
	"canteen-api/services"

	"github.com/gin-gonic/gin"
)

type CreateInventoryRequest struct {
	MenuItemID        uint   `json:"menu_item_id" binding:"required"`
	Quantity          int    `json:"quantity"`
	LowStockThreshold int    `json:"low_stock_threshold"`
	Unit              string `json:"unit" binding:"max=32"`
}

// UpdateInventoryRequest fields are optional; adjust is relative and
// quantity absolute.
type UpdateInventoryRequest struct {
	Quantity          *int    `json:"quantity"`
	Adjust            *int    `json:"adjust"`
	LowStockThreshold *int    `json:"low_stock_threshold"`
	Unit              *string `json:"unit" binding:"omitempty,max=32"`
}

type inventoryListQuery struct {
	pageQuery
	LowStockOnly bool `form:"lowStockOnly"`
}

func (h *Handler) ListInventory(c *gin.Context) {
	var q inventoryListQuery
	if err := bindQuery(c, &q); err != nil {
		h.respondError(c, err)
		return
	}
	items, total, page, err := h.Ledger.List(c.Request.Context(),
		services.InventoryQuery{LowStockOnly: q.LowStockOnly, Page: q.toPage()})
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondList(c, items, page, total)
}

func (h *Handler) GetInventory(c *gin.Context) {
	menuItemID, err := paramID(c, "menuItemId")
	if err != nil {
		h.respondError(c, err)
		return
	}
	inv, err := h.Ledger.Get(c.Request.Context(), menuItemID)
	if err != nil {
		h.respondError(c, err, "menu_item_id", menuItemID)
		return
	}
	respond(c, http.StatusOK, inv, "")
}

func (h *Handler) CreateInventory(c *gin.Context) {
	var req CreateInventoryRequest
	if err := bindJSON(c, &req, false); err != nil {
		h.respondError(c, err)
		return
	}
	inv, err := h.Ledger.Create(c.Request.Context(), services.InventoryInput{
		MenuItemID:        req.MenuItemID,
		Quantity:          req.Quantity,
		LowStockThreshold: req.LowStockThreshold,
		Unit:              req.Unit,
	})
	if err != nil {
		h.respondError(c, err, "menu_item_id", req.MenuItemID)
		return
	}
	respond(c, http.StatusCreated, inv, "Inventory created")
}

// UpdateInventory applies a stock correction; a missing row is created when
// a quantity or adjustment is given
func (h *Handler) UpdateInventory(c *gin.Context) {
	menuItemID, err := paramID(c, "menuItemId")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req UpdateInventoryRequest
	if err := bindJSON(c, &req, false); err != nil {
		h.respondError(c, err)
		return
	}
	if req.Quantity == nil && req.Adjust == nil && req.LowStockThreshold == nil && req.Unit == nil {
		h.respondError(c, apperr.New(apperr.KindValidation, "Nothing to update"))
		return
	}
	inv, err := h.Ledger.Update(c.Request.Context(), menuItemID, services.InventoryUpdate{
		Quantity:          req.Quantity,
		Adjust:            req.Adjust,
		LowStockThreshold: req.LowStockThreshold,
		Unit:              req.Unit,
	})
	if err != nil {
		h.respondError(c, err, "menu_item_id", menuItemID)
		return
	}
	respond(c, http.StatusOK, inv, "Inventory updated")
}

package handlers

import (
	"net/http"
	"strings"

	"canteen-api/models"
	"canteen-api/services"
	"canteen-api/statemachine"

	"github.com/gin-gonic/gin"
)

// ListCategories returns all categories (public)
func (h *Handler) ListCategories(c *gin.Context) {
	cats, err := h.Catalog.ListCategories(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, cats, "")
}

type menuQuery struct {
	pageQuery
	Q         string `form:"q"`
	Category  string `form:"category"`
	Available string `form:"available"`
	SortBy    string `form:"sortBy"`
	Order     string `form:"order"`
}

// ListMenu returns menu items with optional filters (public)
func (h *Handler) ListMenu(c *gin.Context) {
	var q menuQuery
	if err := bindQuery(c, &q); err != nil {
		h.respondError(c, err)
		return
	}
	query := services.MenuQuery{
		Q:        q.Q,
		Category: q.Category,
		SortBy:   q.SortBy,
		Order:    q.Order,
		Page:     q.toPage(),
	}
	switch strings.ToLower(q.Available) {
	case "true":
		v := true
		query.Available = &v
	case "false":
		v := false
		query.Available = &v
	}

	items, total, page, err := h.Catalog.ListMenu(c.Request.Context(), query)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondList(c, items, page, total)
}

// GetStateMachineInfo returns the order lifecycle for informational purposes
func (h *Handler) GetStateMachineInfo(c *gin.Context) {
	next := map[models.OrderStatus][]models.OrderStatus{}
	for _, st := range statemachine.AllStatuses() {
		next[st] = statemachine.ValidTransitionsFrom(st)
		if next[st] == nil {
			next[st] = []models.OrderStatus{}
		}
	}
	respond(c, http.StatusOK, gin.H{
		"statuses":                    statemachine.AllStatuses(),
		"transitions":                 statemachine.GetAllTransitions(),
		"next":                        next,
		"terminal_states":             []string{"served", "cancelled"},
		"cancellation_window_seconds": int(statemachine.CancellationWindow.Seconds()),
		"description":                 "Canteen order lifecycle",
	}, "")
}

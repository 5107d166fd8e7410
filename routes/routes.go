package routes

import (
	"net/http"

	"canteen-api/handlers"
	"canteen-api/middleware"
	"canteen-api/models"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, h *handlers.Handler, jwt *middleware.JWT, service string) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": service})
	})

	// ── Public routes ──────────────────────────────────────────────
	public := r.Group("/api/v1")
	{
		public.POST("/auth/login", h.Login)
		public.POST("/admin-auth/login", h.StaffLogin)

		public.GET("/categories", h.ListCategories)
		public.GET("/menu", h.ListMenu)
		public.GET("/state-machine", h.GetStateMachineInfo)
	}

	// ── Authenticated routes (any role) ────────────────────────────
	auth := r.Group("/api/v1")
	auth.Use(jwt.AuthRequired())
	{
		auth.GET("/auth/me", h.GetProfile)

		auth.GET("/cart", h.GetCart)
		auth.DELETE("/cart", h.ClearCart)
		auth.POST("/cart/items", h.AddCartItem)
		auth.PATCH("/cart/items/:menuItemId", h.UpdateCartItem)
		auth.DELETE("/cart/items/:menuItemId", h.RemoveCartItem)

		auth.POST("/orders", h.PlaceOrder)
		auth.GET("/orders", h.GetMyOrders)
		auth.GET("/orders/:id", h.GetOrderDetail)
		auth.PATCH("/orders/:id/cancel", h.CancelOrder)
	}

	// ── Kitchen routes (staff + admin) ─────────────────────────────
	kitchen := r.Group("/api/v1/admin")
	kitchen.Use(jwt.AuthRequired(), middleware.RoleRequired(models.RoleStaff, models.RoleAdmin))
	{
		kitchen.GET("/inventory", h.ListInventory)
		kitchen.GET("/inventory/:menuItemId", h.GetInventory)
		kitchen.POST("/inventory", h.CreateInventory)
		kitchen.PATCH("/inventory/:menuItemId", h.UpdateInventory)

		kitchen.GET("/orders", h.GetKitchenOrders)
		kitchen.GET("/orders/:id", h.GetKitchenOrder)
		kitchen.PATCH("/orders/:id/status", h.UpdateOrderStatus)
	}

	// ── Admin routes ───────────────────────────────────────────────
	admin := r.Group("/api/v1/admin")
	admin.Use(jwt.AuthRequired(), middleware.RoleRequired(models.RoleAdmin))
	{
		admin.PUT("/orders/:id/force-status", h.AdminForceOrderStatus)
		admin.GET("/users", h.AdminGetAllUsers)
	}
}

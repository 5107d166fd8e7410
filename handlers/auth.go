package handlers

import (
	"net/http"

	"canteen-api/middleware"

	"github.com/gin-gonic/gin"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type StaffLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates any user by email and returns a JWT
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := bindJSON(c, &req, false); err != nil {
		h.respondError(c, err)
		return
	}
	sess, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, sess, "Login successful")
}

// StaffLogin is the admin/staff login by username
func (h *Handler) StaffLogin(c *gin.Context) {
	var req StaffLoginRequest
	if err := bindJSON(c, &req, false); err != nil {
		h.respondError(c, err)
		return
	}
	sess, err := h.Auth.StaffLogin(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.respondError(c, err, "username", req.Username)
		return
	}
	respond(c, http.StatusOK, sess, "Login successful")
}

// GetProfile returns the authenticated user's profile
func (h *Handler) GetProfile(c *gin.Context) {
	user, err := h.Auth.Profile(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, user, "")
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bottle-tracking-backend/internal/auth"
	"bottle-tracking-backend/internal/model"
	"bottle-tracking-backend/internal/response"
)

type userResponse struct {
	model.User
	Role      string `json:"role"`
	RoleLabel string `json:"roleLabel"`
}

func newUserResponse(u model.User) userResponse {
	label, _ := model.RoleLabel(u.RoleID)
	return userResponse{User: u, Role: u.RoleName(), RoleLabel: label}
}

type createUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	RoleID   int    `json:"roleId" binding:"required"`
	Account  string `json:"account"`
}

// ListUsers handles GET /api/users.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.store.ListUsers(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := make([]userResponse, len(users))
	for i, u := range users {
		out[i] = newUserResponse(u)
	}
	response.JSON(c, http.StatusOK, out)
}

// CreateUser handles POST /api/users.
func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	user := model.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		RoleID:       req.RoleID,
		Account:      req.Account,
	}
	if err := h.store.CreateUser(c.Request.Context(), &user); err != nil {
		h.writeError(c, err)
		return
	}

	h.logger.Info("user created", zap.Int64("user_id", user.ID), zap.String("role", user.RoleName()))
	response.JSON(c, http.StatusCreated, newUserResponse(user))
}

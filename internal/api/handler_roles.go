package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bottle-tracking-backend/internal/model"
	"bottle-tracking-backend/internal/response"
)

// GetRoles handles GET /api/roles.
func (h *Handler) GetRoles(c *gin.Context) {
	roles, err := h.store.ListRoles(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roles)
}

// GetRoleOptions handles GET /api/roles/options.
func GetRoleOptions(c *gin.Context) {
	response.JSON(c, http.StatusOK, model.RoleOptions())
}

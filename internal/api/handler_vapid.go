package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bottle-tracking-backend/internal/response"
)

// GetVAPIDPublicKey returns the VAPID public key to the client.
func (h *Handler) GetVAPIDPublicKey(c *gin.Context) {
	if h.webpush == nil || h.webpush.VAPIDPublicKey == "" {
		response.Error(c, http.StatusServiceUnavailable, "vapid keys are not configured")
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"public_key": h.webpush.VAPIDPublicKey})
}

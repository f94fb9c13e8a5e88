package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bottle-tracking-backend/internal/model"
	"bottle-tracking-backend/internal/mw"
	"bottle-tracking-backend/internal/response"
)

type putSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	P256DH   string `json:"p256dh" binding:"required"`
	Auth     string `json:"auth" binding:"required"`
}

type subscriptionResponse struct {
	Endpoint string          `json:"endpoint"`
	Watching []model.Watcher `json:"watching"`
}

// PutSubscription registers the caller's browser for ownership-change notifications.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request")
		return
	}

	s, _ := mw.SessionFrom(c)
	sub := model.PushSubscription{
		Endpoint: req.Endpoint,
		P256DH:   req.P256DH,
		Auth:     req.Auth,
		UserID:   s.User.ID,
	}
	if err := h.store.PutSubscription(c.Request.Context(), &sub); err != nil {
		h.writeError(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, subscriptionResponse{Endpoint: sub.Endpoint})
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription removes one of the caller's subscriptions.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request")
		return
	}

	s, _ := mw.SessionFrom(c)
	if err := h.store.DeleteSubscription(c.Request.Context(), s.User.ID, req.Endpoint); err != nil {
		h.writeError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, nil)
}

// rawQueryParam returns a query value without URL decoding; push endpoints
// are matched byte for byte.
func rawQueryParam(rawQuery, key string) (string, bool) {
	for _, kv := range strings.Split(rawQuery, "&") {
		if strings.HasPrefix(kv, key+"=") {
			return kv[len(key)+1:], true
		}
	}
	return "", false
}

// GetSubscription reports whether an endpoint is registered for the caller
// and which bottles will notify it.
func (h *Handler) GetSubscription(c *gin.Context) {
	raw, ok := rawQueryParam(c.Request.URL.RawQuery, "endpoint")
	if !ok || raw == "" {
		response.Error(c, http.StatusBadRequest, "endpoint is required")
		return
	}

	s, _ := mw.SessionFrom(c)
	ctx := c.Request.Context()
	sub, err := h.store.GetSubscription(ctx, raw)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if sub.UserID != s.User.ID {
		response.Error(c, http.StatusNotFound, "subscription not found")
		return
	}

	watching, err := h.store.WatchedBottles(ctx, s.User.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subscriptionResponse{Endpoint: sub.Endpoint, Watching: watching})
}

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bottle-tracking-backend/internal/auth"
	"bottle-tracking-backend/internal/errs"
	"bottle-tracking-backend/internal/mw"
	"bottle-tracking-backend/internal/response"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token   string       `json:"token"`
	Session auth.Session `json:"session"`
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "email and password required")
		return
	}

	user, err := h.store.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			response.Error(c, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.writeError(c, err)
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		h.logger.Warn("login failed", zap.String("email", req.Email), zap.String("ip", c.ClientIP()))
		response.Error(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := auth.GenerateToken(h.auth.JWTSecret, h.auth.TokenTTL, *user)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.auth.CookieName, token, int(h.auth.TokenTTL.Seconds()), "/", "", h.auth.CookieSecure, true)

	h.logger.Info("user logged in", zap.Int64("user_id", user.ID), zap.String("role", user.RoleName()))
	response.JSON(c, http.StatusOK, loginResponse{Token: token, Session: auth.SessionFromUser(*user)})
}

// Logout handles POST /api/auth/logout by clearing the session cookie.
func (h *Handler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.auth.CookieName, "", -1, "/", "", h.auth.CookieSecure, true)
	response.JSON(c, http.StatusOK, nil)
}

// GetSession handles GET /api/auth/session. Anonymous callers get isLoggedIn=false.
func (h *Handler) GetSession(c *gin.Context) {
	s, _ := mw.SessionFrom(c)
	response.JSON(c, http.StatusOK, s)
}

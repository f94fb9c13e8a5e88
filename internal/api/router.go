package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
	"go.uber.org/zap"

	"bottle-tracking-backend/config"
	"bottle-tracking-backend/internal/model"
	"bottle-tracking-backend/internal/mw"
	"bottle-tracking-backend/internal/response"
)

// NewRouter creates and configures a new Gin router. The returned limiter
// should be pruned periodically by the caller.
func NewRouter(h *Handler, cfg *config.Config, logger *zap.Logger) (*gin.Engine, *mw.IPRateLimiter) {
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	limiter := mw.NewIPRateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	ttl := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(ttl, 2*ttl)
	caching := mw.Cache(cacheStore, ttl)

	r.Use(
		mw.Recovery(logger),
		mw.RateLimiter(limiter),
		mw.Logger(logger),
		mw.Session(cfg.Auth.JWTSecret, cfg.Auth.CookieName),
	)

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, http.StatusNotFound, "not found")
	})

	h.RegisterPages(r)

	api := r.Group("/api")
	{
		api.POST("/auth/login", h.Login)
		api.POST("/auth/logout", h.Logout)
		api.GET("/auth/session", h.GetSession)

		api.GET("/roles", caching, h.GetRoles)
		api.GET("/roles/options", caching, GetRoleOptions)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)

		api.GET("/bottles/:index/owner", h.GetCurrentOwner)
		api.GET("/bottles/:index/owners", h.GetOwnerHistory)
		api.GET("/bottles/:index/watchers", h.GetWatchers)
	}

	authed := api.Group("", mw.RequireRole())
	{
		authed.POST("/bottles/:index/transfer", h.TransferOwner)
		authed.PUT("/bottles/:index/watch", h.PutWatch)
		authed.DELETE("/bottles/:index/watch", h.DeleteWatch)
		authed.GET("/watching", h.GetWatching)

		authed.GET("/subscriptions", h.GetSubscription)
		authed.PUT("/subscriptions", h.PutSubscription)
		authed.DELETE("/subscriptions", h.DeleteSubscription)
	}

	admin := api.Group("/users", mw.RequireRole(model.RoleAdmin))
	{
		admin.GET("", h.ListUsers)
		admin.POST("", h.CreateUser)
	}

	return r, limiter
}

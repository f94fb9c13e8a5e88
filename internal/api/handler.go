package api

import (
	"context"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"bottle-tracking-backend/config"
	"bottle-tracking-backend/internal/store"
)

// Dispatcher is notified about bottles whose owner changed.
type Dispatcher interface {
	Dispatch(ctx context.Context, bottleIndex int64)
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store      store.Store
	auth       config.AuthConfig
	webpush    *webpush.Options
	dispatcher Dispatcher
	logger     *zap.Logger
}

// NewHandler creates a new API handler. webpushOptions and dispatcher may be nil.
func NewHandler(s store.Store, authCfg config.AuthConfig, webpushOptions *webpush.Options, dispatcher Dispatcher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		store:      s,
		auth:       authCfg,
		webpush:    webpushOptions,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

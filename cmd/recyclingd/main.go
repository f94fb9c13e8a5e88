package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"bottle-tracking-backend/config"
	"bottle-tracking-backend/internal/api"
	"bottle-tracking-backend/internal/auth"
	"bottle-tracking-backend/internal/db"
	"bottle-tracking-backend/internal/errs"
	"bottle-tracking-backend/internal/ledger"
	"bottle-tracking-backend/internal/model"
	"bottle-tracking-backend/internal/mw"
	"bottle-tracking-backend/internal/notification"
	"bottle-tracking-backend/internal/store"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", configPath, err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Server.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck
	zap.ReplaceGlobals(logger)
	logger.Info("configuration loaded", zap.String("path", configPath))

	// Initialize database
	gormDB, err := db.Init(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appStore := store.NewGormStore(gormDB)
	if err := appStore.SeedRoles(ctx); err != nil {
		logger.Fatal("failed to seed roles", zap.Error(err))
	}
	if err := ensureBootstrapAdmin(ctx, appStore, cfg.Auth.Bootstrap, logger); err != nil {
		logger.Fatal("failed to create bootstrap admin", zap.Error(err))
	}

	var webpushOptions *webpush.Options
	var dispatcher *notification.WorkerPool
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		dispatcher = notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions, logger.Named("notification"))
		dispatcher.Start(ctx)
	} else {
		logger.Warn("VAPID keys are not configured; watcher notifications are disabled")
	}

	// Nil pools must stay untyped nil inside the interfaces.
	var apiDispatcher api.Dispatcher
	var ledgerDispatcher ledger.Dispatcher
	if dispatcher != nil {
		apiDispatcher = dispatcher
		ledgerDispatcher = dispatcher
	}

	poller := ledger.NewService(&cfg.Ledger, appStore, ledgerDispatcher, logger.Named("ledger"))
	go poller.Run(ctx)

	handler := api.NewHandler(appStore, cfg.Auth, webpushOptions, apiDispatcher, logger.Named("api"))
	router, limiter := api.NewRouter(handler, cfg, logger.Named("http"))
	go pruneVisitors(ctx, limiter, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server ListenAndServe", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received, stopping services")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server Shutdown", zap.Error(err))
	}

	logger.Info("server gracefully stopped")
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// ensureBootstrapAdmin creates the configured admin account on first start.
func ensureBootstrapAdmin(ctx context.Context, s store.Store, b config.BootstrapUser, logger *zap.Logger) error {
	if b.Email == "" || b.Password == "" {
		return nil
	}
	_, err := s.GetUserByEmail(ctx, b.Email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(b.Password)
	if err != nil {
		return err
	}
	name := b.Name
	if name == "" {
		name = "Admin"
	}
	admin := model.User{
		Name:         name,
		Email:        b.Email,
		PasswordHash: hash,
		RoleID:       model.RoleIDAdmin,
		Account:      b.Account,
	}
	if err := s.CreateUser(ctx, &admin); err != nil {
		return err
	}
	logger.Info("bootstrap admin created", zap.String("email", admin.Email))
	return nil
}

// pruneVisitors drops idle rate limiter entries every few minutes.
func pruneVisitors(ctx context.Context, limiter *mw.IPRateLimiter, logger *zap.Logger) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.Prune(10 * time.Minute); n > 0 {
				logger.Debug("pruned idle rate limiter visitors", zap.Int("removed", n))
			}
		}
	}
}

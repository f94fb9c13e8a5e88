package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"bottle-tracking-backend/internal/model"
	"bottle-tracking-backend/internal/store"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Payload is the JSON body pushed to watchers of a bottle.
type Payload struct {
	BottleIndex int64  `json:"bottleIndex"`
	Account     string `json:"account"`
	Type        string `json:"type"`
	Message     string `json:"message"`
}

// WorkerPool manages a pool of workers that notify bottle watchers.
type WorkerPool struct {
	size    int
	jobs    chan int64
	store   store.Store
	webpush *webpush.Options
	sender  NotificationSender
	logger  *zap.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, s store.Store, webpushOptions *webpush.Options, logger *zap.Logger) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan int64, size), // Buffered channel
		store:   s,
		webpush: webpushOptions,
		sender:  &WebPushSender{}, // Use the real sender by default
		logger:  logger,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.logger.Debug("notification worker started", zap.Int("worker", id))
	for {
		select {
		case bottleIndex := <-wp.jobs:
			wp.notifyWatchers(ctx, bottleIndex)
		case <-ctx.Done():
			wp.logger.Debug("notification worker shutting down", zap.Int("worker", id))
			return
		}
	}
}

// Dispatch queues a bottle whose owner changed. It blocks while the queue is
// full and gives up when ctx is done.
func (wp *WorkerPool) Dispatch(ctx context.Context, bottleIndex int64) {
	select {
	case wp.jobs <- bottleIndex:
	case <-ctx.Done():
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan int64 {
	return wp.jobs
}

// notifyWatchers pushes the current owner of a bottle to every subscription of its watchers.
func (wp *WorkerPool) notifyWatchers(ctx context.Context, bottleIndex int64) {
	log := wp.logger.With(zap.Int64("bottle_index", bottleIndex))

	subscriptions, err := wp.store.SubscriptionsForBottle(ctx, bottleIndex)
	if err != nil {
		log.Error("fetching subscriptions failed", zap.Error(err))
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	owner, err := wp.store.CurrentOwner(ctx, bottleIndex)
	if err != nil {
		log.Error("fetching current owner failed", zap.Error(err))
		return
	}

	payload, err := json.Marshal(Payload{
		BottleIndex: bottleIndex,
		Account:     owner.Account,
		Type:        owner.Type,
		Message:     message(*owner),
	})
	if err != nil {
		log.Error("encoding payload failed", zap.Error(err))
		return
	}

	log.Info("sending notifications", zap.Int("subscriptions", len(subscriptions)))
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

// message renders the Spanish notification text. Ownership types share their names with roles.
func message(owner model.Owner) string {
	label := owner.Type
	if id, ok := model.RoleID(owner.Type); ok {
		label, _ = model.RoleLabel(id)
	}
	return fmt.Sprintf("La botella #%d ahora pertenece a %s", owner.BottleIndex, strings.ToLower(label))
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.logger.Warn("sending notification failed", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		wp.logger.Info("subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.store.DeleteExpiredSubscription(ctx, sub.Endpoint); err != nil {
			wp.logger.Error("deleting expired subscription failed", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	}
}

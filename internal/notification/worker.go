package notification

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"staffplan-backend/internal/bus"
	"staffplan-backend/internal/model"
	"staffplan-backend/internal/store"
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

// Payload is the JSON body pushed to browsers.
type Payload struct {
	Topic      bus.Topic    `json:"topic"`
	EventID    string       `json:"event_id"`
	EmployeeID string       `json:"employee_id,omitempty"`
	Status     model.Status `json:"status,omitempty"`
	Kind       string       `json:"kind,omitempty"`
	Count      int          `json:"count,omitempty"`
}

// WorkerPool fans bus notifications out to the push subscriptions of their event.
type WorkerPool struct {
	size    int
	jobs    chan bus.Notification
	store   store.Store
	webpush *webpush.Options
	sender  NotificationSender
	logger  *zap.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, s store.Store, webpushOptions *webpush.Options, logger *zap.Logger) *WorkerPool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan bus.Notification, size*16),
		store:   s,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		logger:  logger,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// Attach feeds every notification published on b into the pool and returns
// the unsubscribe func.
func (wp *WorkerPool) Attach(b *bus.Bus) func() {
	return b.SubscribeAll(wp.Dispatch)
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.logger.Debug("worker started", zap.Int("worker", id))
	for {
		select {
		case n := <-wp.jobs:
			wp.sendNotificationsForEvent(ctx, n)
		case <-ctx.Done():
			wp.logger.Debug("worker shutting down", zap.Int("worker", id))
			return
		}
	}
}

// Dispatch queues a notification. Bus delivery is synchronous, so a full
// queue drops the notification instead of blocking the publisher.
func (wp *WorkerPool) Dispatch(n bus.Notification) {
	select {
	case wp.jobs <- n:
	default:
		wp.logger.Warn("push queue full, dropping notification",
			zap.String("topic", string(n.Topic)),
			zap.String("event_id", n.EventID))
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan bus.Notification {
	return wp.jobs
}

// sendNotificationsForEvent pushes n to every subscription registered for its event.
func (wp *WorkerPool) sendNotificationsForEvent(ctx context.Context, n bus.Notification) {
	subscriptions, err := wp.store.ListPushSubscriptions(ctx, n.EventID)
	if err != nil {
		wp.logger.Error("failed to fetch subscriptions", zap.String("event_id", n.EventID), zap.Error(err))
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(Payload{
		Topic:      n.Topic,
		EventID:    n.EventID,
		EmployeeID: n.EmployeeID,
		Status:     n.Status,
		Kind:       n.Kind,
		Count:      n.Count,
	})
	if err != nil {
		wp.logger.Error("failed to encode push payload", zap.Error(err))
		return
	}

	wp.logger.Debug("sending push notifications",
		zap.String("topic", string(n.Topic)),
		zap.String("event_id", n.EventID),
		zap.Int("subscriptions", len(subscriptions)))
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
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
		wp.logger.Warn("failed to send notification", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		wp.logger.Info("subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.store.DeletePushSubscription(ctx, sub.Endpoint); err != nil {
			wp.logger.Error("failed to delete expired subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	}
}

package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"roomstatus-backend/internal/model"
)

// PushSender defines the interface for sending a web push notification.
type PushSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of PushSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool fans "room ready" web pushes out to every subscriber. Jobs are
// dropped when the queue is full; push delivery is best-effort and must
// never hold up a state transition.
type WorkerPool struct {
	size    int
	jobs    chan int
	db      *gorm.DB
	webpush *webpush.Options
	sender  PushSender
	log     *slog.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options, logger *slog.Logger) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan int, 64),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		log:     logger,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	for {
		select {
		case room := <-wp.jobs:
			wp.sendPushForRoom(ctx, room)
		case <-ctx.Done():
			wp.log.Info("notify.worker.stop", "worker", id)
			return
		}
	}
}

// Dispatch queues a push job without blocking the caller.
func (wp *WorkerPool) Dispatch(room int) {
	select {
	case wp.jobs <- room:
	default:
		wp.log.Warn("notify.push.queue_full", "room", room)
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan int {
	return wp.jobs
}

// sendPushForRoom fetches all subscriptions and pushes a room-ready message.
func (wp *WorkerPool) sendPushForRoom(ctx context.Context, room int) {
	var subscriptions []model.PushSubscription
	if err := wp.db.WithContext(ctx).Find(&subscriptions).Error; err != nil {
		wp.log.Warn("notify.push.subscriptions", "room", room, "err", err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload := []byte(fmt.Sprintf("Room %d is cleaned and ready", room))
	for _, sub := range subscriptions {
		wp.sendPush(ctx, sub, payload)
	}
}

func (wp *WorkerPool) sendPush(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.log.Warn("notify.push.send", "endpoint", sub.Endpoint, "err", err)
		return
	}
	defer resp.Body.Close()

	// 410 Gone means the browser dropped the subscription.
	if resp.StatusCode == http.StatusGone {
		wp.log.Info("notify.push.expired", "endpoint", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			wp.log.Warn("notify.push.delete_expired", "endpoint", sub.Endpoint, "err", err)
		}
	}
}

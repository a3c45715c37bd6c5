package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"dailyChallengesAPI/internal/docstore"
	"dailyChallengesAPI/internal/notification"
)

type PushProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, n notification.Notification) error
}

// Notifier receives the progression events worth a push.
type Notifier interface {
	Dispatch(n notification.Notification) bool
}

// NotificationDispatcher fans pushes out to a small worker pool so the
// progression path never waits on FCM.
type NotificationDispatcher struct {
	devices      docstore.DeviceStore
	pushProvider PushProvider
	workers      int
	jobQueue     chan notification.Notification
	stopChan     chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

func NewNotificationDispatcher(devices docstore.DeviceStore, provider PushProvider, workers int) *NotificationDispatcher {
	if workers < 1 {
		workers = 1
	}
	d := &NotificationDispatcher{
		devices:      devices,
		pushProvider: provider,
		workers:      workers,
		jobQueue:     make(chan notification.Notification, 100),
		stopChan:     make(chan struct{}),
	}

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}

	return d
}

func (d *NotificationDispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case n := <-d.jobQueue:
			d.process(n)
		case <-d.stopChan:
			return
		}
	}
}

func (d *NotificationDispatcher) process(n notification.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tokens, err := d.devices.DeviceTokens(ctx, n.UserID)
	if err != nil {
		slog.Error("failed to load device tokens", "user_id", n.UserID, "error", err)
		return
	}
	if len(tokens) == 0 || d.pushProvider == nil {
		slog.Debug("skipping push", "user_id", n.UserID, "tokens", len(tokens), "provider_set", d.pushProvider != nil)
		return
	}

	if err := d.pushProvider.SendPush(ctx, tokens, n); err != nil {
		pushFailures.Inc()
		slog.Warn("push failed", "user_id", n.UserID, "type", n.Type, "error", err)
		return
	}
	pushesSent.WithLabelValues(string(n.Type)).Inc()
}

// Dispatch queues n and reports whether it was accepted. A full queue drops
// the notification.
func (d *NotificationDispatcher) Dispatch(n notification.Notification) bool {
	select {
	case <-d.stopChan:
		return false
	default:
	}

	select {
	case d.jobQueue <- n:
		return true
	default:
		slog.Warn("notification queue full, dropping", "user_id", n.UserID, "type", n.Type)
		return false
	}
}

// Stop terminates the workers. Queued notifications that were not picked up
// yet are discarded.
func (d *NotificationDispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.stopChan)
	})
	d.wg.Wait()
}

package notifications

import (
	"context"
	"errors"
	"log/slog"
	"merot-portal/pkg/api"
	"sync"
	"time"

	"github.com/google/uuid"
)

const DefaultInterval = 30 * time.Second

type Gateway interface {
	UnreadCount(ctx context.Context) (int64, error)
	ListNotifications(ctx context.Context) ([]api.Notification, error)
	MarkAsRead(ctx context.Context, notificationId uuid.UUID) error
	MarkAllAsRead(ctx context.Context) error
}

// Poller keeps the unread badge current by asking the server on a fixed
// interval. It runs until the context passed to Run is cancelled.
type Poller struct {
	gateway  Gateway
	interval time.Duration
	onChange func(count int64)

	mu     sync.Mutex
	unread int64
	known  bool
}

func NewPoller(gateway Gateway, interval time.Duration, onChange func(count int64)) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{gateway: gateway, interval: interval, onChange: onChange}
}

func (p *Poller) Unread() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.unread
}

// Run polls immediately and then once per interval. Failed polls are logged and
// retried on the next tick.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("notification poller stopped")
			return
		case <-ticker.C:
			p.Refresh(ctx)
		}
	}
}

// Refresh fetches the unread count and fires the callback if it changed.
func (p *Poller) Refresh(ctx context.Context) {
	count, err := p.gateway.UnreadCount(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Warn("error polling unread notifications", "error", err)
		}
		return
	}
	p.update(count)
}

func (p *Poller) update(count int64) {
	p.mu.Lock()
	changed := !p.known || p.unread != count
	p.unread = count
	p.known = true
	p.mu.Unlock()

	if changed && p.onChange != nil {
		p.onChange(count)
	}
}

func (p *Poller) List(ctx context.Context) ([]api.Notification, error) {
	return p.gateway.ListNotifications(ctx)
}

func (p *Poller) MarkAsRead(ctx context.Context, notificationId uuid.UUID) error {
	if err := p.gateway.MarkAsRead(ctx, notificationId); err != nil {
		return err
	}
	p.Refresh(ctx)
	return nil
}

func (p *Poller) MarkAllAsRead(ctx context.Context) error {
	if err := p.gateway.MarkAllAsRead(ctx); err != nil {
		return err
	}
	p.update(0)
	return nil
}

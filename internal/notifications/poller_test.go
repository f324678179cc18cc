package notifications_test

import (
	"context"
	"errors"
	"merot-portal/internal/notifications"
	"merot-portal/pkg/api"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	mu     sync.Mutex
	unread int64
	polls  int
	fail   bool
}

func (g *fakeGateway) set(n int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.unread = n
}

func (g *fakeGateway) UnreadCount(ctx context.Context) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.polls++
	if g.fail {
		return 0, errors.New("offline")
	}
	return g.unread, nil
}

func (g *fakeGateway) ListNotifications(ctx context.Context) ([]api.Notification, error) {
	return []api.Notification{{Id: uuid.New(), Message: "approved"}}, nil
}

func (g *fakeGateway) MarkAsRead(ctx context.Context, notificationId uuid.UUID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.unread--
	return nil
}

func (g *fakeGateway) MarkAllAsRead(ctx context.Context) error {
	g.set(0)
	return nil
}

func TestPollerReportsChanges(t *testing.T) {
	gw := &fakeGateway{unread: 2}

	changes := make(chan int64, 10)
	poller := notifications.NewPoller(gw, 10*time.Millisecond, func(n int64) { changes <- n })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	assert.Equal(t, int64(2), <-changes)

	gw.set(5)
	assert.Equal(t, int64(5), <-changes)
	assert.Equal(t, int64(5), poller.Unread())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancel")
	}

	// Unchanged counts across several polls fire nothing.
	assert.Empty(t, changes)
}

func TestPollerIgnoresFailures(t *testing.T) {
	gw := &fakeGateway{unread: 1}
	var calls []int64
	poller := notifications.NewPoller(gw, time.Hour, func(n int64) { calls = append(calls, n) })
	ctx := context.Background()

	poller.Refresh(ctx)
	gw.fail = true
	poller.Refresh(ctx)
	assert.Equal(t, int64(1), poller.Unread())

	gw.fail = false
	poller.Refresh(ctx)
	assert.Equal(t, []int64{1}, calls)
}

func TestMarkAsRead(t *testing.T) {
	gw := &fakeGateway{unread: 3}
	var calls []int64
	poller := notifications.NewPoller(gw, 0, func(n int64) { calls = append(calls, n) })
	ctx := context.Background()

	poller.Refresh(ctx)

	list, err := poller.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, poller.MarkAsRead(ctx, list[0].Id))
	assert.Equal(t, int64(2), poller.Unread())

	require.NoError(t, poller.MarkAllAsRead(ctx))
	assert.Equal(t, int64(0), poller.Unread())
	assert.Equal(t, []int64{3, 2, 0}, calls)
}

package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeConn struct {
	notifications chan *pgconn.Notification
	waitErr       error

	mu       sync.Mutex
	execs    []string
	released bool
}

func (c *fakeConn) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.execs = append(c.execs, sql)
	return pgconn.CommandTag{}, nil
}

func (c *fakeConn) WaitForNotification(ctx context.Context) (*pgconn.Notification, error) {
	if c.waitErr != nil {
		return nil, c.waitErr
	}
	select {
	case n := <-c.notifications:
		return n, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *fakeConn) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.released = true
}

func (c *fakeConn) snapshot() ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.execs...), c.released
}

func TestListener_RelaysNotifications(t *testing.T) {
	conn := &fakeConn{notifications: make(chan *pgconn.Notification, 3)}
	sink := &recordingSink{name: "rec"}
	l := NewListener(func(context.Context) (Conn, error) { return conn, nil }, NewHub(zap.NewNop(), sink), zap.NewNop())

	conn.notifications <- &pgconn.Notification{Channel: Channel, Payload: `{"table":"registrations","op":"INSERT","id":"r1"}`}
	conn.notifications <- &pgconn.Notification{Channel: Channel, Payload: `garbage`}
	conn.notifications <- &pgconn.Notification{Channel: Channel, Payload: `{"table":"contact_messages","op":"UPDATE","id":"c1"}`}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(sink.received()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	got := sink.received()
	require.Equal(t, "r1", got[0].ID)
	require.Equal(t, OpUpdate, got[1].Op)

	execs, released := conn.snapshot()
	require.Equal(t, []string{"LISTEN " + Channel, "UNLISTEN *"}, execs)
	require.True(t, released)
}

func TestListener_ReconnectsAfterFailure(t *testing.T) {
	var (
		mu       sync.Mutex
		attempts int
	)
	good := &fakeConn{notifications: make(chan *pgconn.Notification, 1)}
	good.notifications <- &pgconn.Notification{Channel: Channel, Payload: `{"table":"registrations","op":"DELETE","id":"r9"}`}

	acquire := func(context.Context) (Conn, error) {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		switch attempts {
		case 1:
			return nil, errors.New("connection refused")
		case 2:
			return &fakeConn{waitErr: errors.New("conn closed")}, nil
		default:
			return good, nil
		}
	}

	sink := &recordingSink{name: "rec"}
	l := NewListener(acquire, NewHub(zap.NewNop(), sink), zap.NewNop())
	l.retryDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	require.Eventually(t, func() bool { return len(sink.received()) == 1 }, time.Second, 5*time.Millisecond)
	mu.Lock()
	require.Equal(t, 3, attempts)
	mu.Unlock()
}

package realtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// DefaultRetryDelay is how long Listener waits before reconnecting.
const DefaultRetryDelay = 3 * time.Second

// Conn is a dedicated connection that can receive notifications.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Release()
}

// Acquirer hands out a Conn for the lifetime of one LISTEN session.
type Acquirer func(ctx context.Context) (Conn, error)

type poolConn struct {
	*pgxpool.Conn
}

func (c poolConn) WaitForNotification(ctx context.Context) (*pgconn.Notification, error) {
	return c.Conn.Conn().WaitForNotification(ctx)
}

// PoolAcquirer acquires connections from pool.
func PoolAcquirer(pool *pgxpool.Pool) Acquirer {
	return func(ctx context.Context) (Conn, error) {
		c, err := pool.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		return poolConn{c}, nil
	}
}

// Listener relays NOTIFY payloads on Channel to a Hub.
type Listener struct {
	acquire    Acquirer
	hub        *Hub
	log        *zap.Logger
	retryDelay time.Duration
	now        func() time.Time
}

// NewListener constructs a Listener.
func NewListener(acquire Acquirer, hub *Hub, log *zap.Logger) *Listener {
	return &Listener{
		acquire:    acquire,
		hub:        hub,
		log:        log,
		retryDelay: DefaultRetryDelay,
		now:        time.Now,
	}
}

// Run listens until ctx is cancelled, reconnecting after failures.
func (l *Listener) Run(ctx context.Context) {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			l.log.Info("change listener stopped")
			return
		}
		l.log.Warn("change listener disconnected, retrying",
			zap.Duration("delay", l.retryDelay),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			l.log.Info("change listener stopped")
			return
		case <-time.After(l.retryDelay):
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := l.acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen conn: %w", err)
	}
	defer func() {
		// The connection goes back to the pool; stop listening first.
		unlistenCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_, _ = conn.Exec(unlistenCtx, "UNLISTEN *")
		conn.Release()
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	l.log.Info("listening for table changes", zap.String("channel", Channel))

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			return fmt.Errorf("wait for notification: %w", err)
		}
		if n.Channel != Channel {
			continue
		}

		c, err := DecodeChange(n.Payload, l.now())
		if err != nil {
			l.log.Warn("dropping malformed change", zap.String("payload", n.Payload), zap.Error(err))
			continue
		}
		l.hub.Dispatch(ctx, c)
	}
}

package redis

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-redsync/redsync/v4"

	"fitness-pay-backend/internal/orders"
)

const (
	lockPrefix     = "order-notify:"
	lockExpiry     = 10 * time.Second
	lockTries      = 20
	lockRetryDelay = 100 * time.Millisecond
)

var _ orders.Locker = (*OrderLocker)(nil)

// OrderLocker serializes notification handling for one order across every
// instance sharing the redis server.
type OrderLocker struct {
	rs *redsync.Redsync
}

func NewOrderLocker(c *Client) *OrderLocker {
	return &OrderLocker{rs: c.Lock}
}

func (l *OrderLocker) Lock(ctx context.Context, orderNo string) (func(), error) {
	mutex := l.rs.NewMutex(lockPrefix+orderNo,
		redsync.WithExpiry(lockExpiry),
		redsync.WithTries(lockTries),
		redsync.WithRetryDelay(lockRetryDelay),
	)
	if err := mutex.LockContext(ctx); err != nil {
		return nil, err
	}

	return func() {
		// The lock expires on its own if this fails.
		if _, err := mutex.UnlockContext(context.WithoutCancel(ctx)); err != nil {
			slog.WarnContext(ctx, "failed to release order lock", "order_no", orderNo, "error", err)
		}
	}, nil
}

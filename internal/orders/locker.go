package orders

import "context"

// Locker serializes notification handling per order_no.
type Locker interface {
	Lock(ctx context.Context, orderNo string) (unlock func(), err error)
}

// NoopLocker performs no coordination; concurrent notifications for one
// order race at the store and the last write wins.
type NoopLocker struct{}

func (NoopLocker) Lock(context.Context, string) (func(), error) {
	return func() {}, nil
}

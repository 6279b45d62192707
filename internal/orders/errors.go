package orders

import "errors"

var (
	ErrNotConfigured  = errors.New("server not configured")
	ErrInvalidOrderNo = errors.New("order_no required")
	ErrOrderNotFound  = errors.New("order not found")
	ErrPersistence    = errors.New("order store failure")
)

package repository

import (
	"context"
	"errors"

	"fitness-pay-backend/internal/orders/entities"
)

var (
	ErrNotFound  = errors.New("order not found")
	ErrDuplicate = errors.New("order already exists")
)

type Order interface {
	Insert(ctx context.Context, order *entities.Order) error
	UpdateByOrderNo(ctx context.Context, orderNo string, patch entities.OrderPatch) error
	FindByOrderNo(ctx context.Context, orderNo string) (*entities.Order, error)
	Migrate(ctx context.Context) error
	Close()
}

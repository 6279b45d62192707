package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"fitness-pay-backend/internal/orders/entities"
	"fitness-pay-backend/internal/orders/repository"
)

const (
	orderKeyPrefix  = "order:"
	maxWatchRetries = 5
)

// OrderRedisRepository stores each order as a JSON string under order:<order_no>.
type OrderRedisRepository struct {
	client *redis.Client
}

// NewOrderRedisRepository connects to a redis:// or rediss:// URL. password
// is applied when the URL does not carry one.
func NewOrderRedisRepository(ctx context.Context, redisURL, password string) (*OrderRedisRepository, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if opts.Password == "" {
		opts.Password = password
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &OrderRedisRepository{client: client}, nil
}

func orderKey(orderNo string) string {
	return orderKeyPrefix + orderNo
}

func (r *OrderRedisRepository) Insert(ctx context.Context, order *entities.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return err
	}

	ok, err := r.client.SetNX(ctx, orderKey(order.OrderNo), data, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return repository.ErrDuplicate
	}
	return nil
}

// UpdateByOrderNo applies patch inside a WATCH transaction so a concurrent
// writer forces a re-read instead of being overwritten.
func (r *OrderRedisRepository) UpdateByOrderNo(ctx context.Context, orderNo string, patch entities.OrderPatch) error {
	key := orderKey(orderNo)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return repository.ErrNotFound
		}
		if err != nil {
			return err
		}

		var order entities.Order
		if err := json.Unmarshal(data, &order); err != nil {
			return fmt.Errorf("decode order %s: %w", orderNo, err)
		}
		patch.Apply(&order)

		updated, err := json.Marshal(&order)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("update %s: %w", orderNo, redis.TxFailedErr)
}

func (r *OrderRedisRepository) FindByOrderNo(ctx context.Context, orderNo string) (*entities.Order, error) {
	data, err := r.client.Get(ctx, orderKey(orderNo)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var order entities.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("decode order %s: %w", orderNo, err)
	}
	return &order, nil
}

// Migrate only checks connectivity; keys need no schema.
func (r *OrderRedisRepository) Migrate(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *OrderRedisRepository) Close() {
	r.client.Close()
}

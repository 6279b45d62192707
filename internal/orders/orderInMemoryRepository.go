package orders

import (
	"context"
	"hash/fnv"
	"maps"
	"sync"

	"fitness-pay-backend/internal/orders/entities"
	"fitness-pay-backend/internal/orders/repository"
)

const shardCount = 64

type orderShard struct {
	sync.RWMutex
	store map[string]*entities.Order
}

// InMemoryOrderDB keeps orders in process memory, sharded by order_no.
// Each shard lock gives the per-key atomicity the other stores get from the database.
type InMemoryOrderDB struct {
	shards [shardCount]*orderShard
}

func NewInMemoryOrderDB() *InMemoryOrderDB {
	db := &InMemoryOrderDB{}
	for i := 0; i < shardCount; i++ {
		db.shards[i] = &orderShard{
			store: make(map[string]*entities.Order),
		}
	}
	return db
}

func (db *InMemoryOrderDB) getShard(key string) *orderShard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return db.shards[h.Sum32()%shardCount]
}

func (db *InMemoryOrderDB) Insert(ctx context.Context, order *entities.Order) error {
	shard := db.getShard(order.OrderNo)
	shard.Lock()
	defer shard.Unlock()

	if _, exists := shard.store[order.OrderNo]; exists {
		return repository.ErrDuplicate
	}
	shard.store[order.OrderNo] = cloneOrder(order)
	return nil
}

func (db *InMemoryOrderDB) UpdateByOrderNo(ctx context.Context, orderNo string, patch entities.OrderPatch) error {
	shard := db.getShard(orderNo)
	shard.Lock()
	defer shard.Unlock()

	order, exists := shard.store[orderNo]
	if !exists {
		return repository.ErrNotFound
	}
	patch.RawNotify = maps.Clone(patch.RawNotify)
	patch.Apply(order)
	return nil
}

func (db *InMemoryOrderDB) FindByOrderNo(ctx context.Context, orderNo string) (*entities.Order, error) {
	shard := db.getShard(orderNo)
	shard.RLock()
	defer shard.RUnlock()

	order, exists := shard.store[orderNo]
	if !exists {
		return nil, repository.ErrNotFound
	}
	return cloneOrder(order), nil
}

func (db *InMemoryOrderDB) Migrate(ctx context.Context) error {
	return nil
}

// Close drops every order without reallocating the shards.
func (db *InMemoryOrderDB) Close() {
	for _, shard := range db.shards {
		shard.Lock()
		clear(shard.store)
		shard.Unlock()
	}
}

func cloneOrder(o *entities.Order) *entities.Order {
	c := *o
	if o.PaidAt != nil {
		paidAt := *o.PaidAt
		c.PaidAt = &paidAt
	}
	c.RawNotify = maps.Clone(o.RawNotify)
	return &c
}

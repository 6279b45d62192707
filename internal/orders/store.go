package orders

import (
	"context"
	"fmt"
	"strings"

	"fitness-pay-backend/internal/orders/repository"
)

// OpenRepository picks the order store from the URL scheme:
// postgres:// or postgresql:// (pgxpool), sqlite://path or file:path
// (go-sqlite3), redis:// or rediss:// (go-redis) and memory:// (process local).
func OpenRepository(ctx context.Context, storeURL, credential string) (repository.Order, error) {
	switch {
	case strings.HasPrefix(storeURL, "postgres://"), strings.HasPrefix(storeURL, "postgresql://"):
		return opened(NewOrderPostgresRepository(ctx, storeURL, credential))
	case strings.HasPrefix(storeURL, "sqlite://"):
		return opened(NewOrderSQLiteRepository(ctx, strings.TrimPrefix(storeURL, "sqlite://")))
	case strings.HasPrefix(storeURL, "file:"):
		return opened(NewOrderSQLiteRepository(ctx, storeURL))
	case strings.HasPrefix(storeURL, "redis://"), strings.HasPrefix(storeURL, "rediss://"):
		return opened(NewOrderRedisRepository(ctx, storeURL, credential))
	case strings.HasPrefix(storeURL, "memory://"):
		return NewInMemoryOrderDB(), nil
	default:
		return nil, fmt.Errorf("unsupported store url %q", storeURL)
	}
}

// opened keeps a failed constructor from leaking a typed nil as a non-nil store.
func opened[T repository.Order](repo T, err error) (repository.Order, error) {
	if err != nil {
		return nil, err
	}
	return repo, nil
}

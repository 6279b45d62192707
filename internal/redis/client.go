package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-redsync/redsync/v4"
	redsync_redis "github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

type Client struct {
	Client *redis.Client
	Lock   *redsync.Redsync
}

// NewClient connects to redisURL, which is either a redis:// URL or a bare
// host:port address.
func NewClient(ctx context.Context, redisURL string) (*Client, error) {
	opts := &redis.Options{Addr: redisURL}
	if strings.Contains(redisURL, "://") {
		var err error
		if opts, err = redis.ParseURL(redisURL); err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
	}
	opts.PoolSize = 20
	opts.MinIdleConns = 5

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	pool := redsync_redis.NewPool(client)
	return &Client{
		Client: client,
		Lock:   redsync.New(pool),
	}, nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}

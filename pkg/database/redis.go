package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisOptions struct {
	Address  string
	Password string
	DB       int
}

// ConnectRedis returns nil without error when no address is configured;
// callers treat a nil client as "realtime and rate limiting disabled".
func ConnectRedis(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	if opts.Address == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect redis: %w", err)
	}
	return rdb, nil
}

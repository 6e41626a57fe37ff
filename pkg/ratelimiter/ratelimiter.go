package ratelimiter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Limiter is a per-user, per-action cooldown backed by redis SETNX.
type Limiter struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Limiter {
	return &Limiter{rdb: rdb}
}

func key(userID uuid.UUID, action string) string {
	return fmt.Sprintf("rate_limit:user:%s:%s", userID.String(), action)
}

// Allow returns true when the action may proceed and starts the cooldown.
// A nil client or a non-positive cooldown always allows.
func (l *Limiter) Allow(ctx context.Context, userID uuid.UUID, action string, cooldown time.Duration) (bool, error) {
	if l == nil || l.rdb == nil || cooldown <= 0 {
		return true, nil
	}

	wasSet, err := l.rdb.SetNX(ctx, key(userID, action), "locked", cooldown).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit in redis: %w", err)
	}
	return wasSet, nil
}

// Clear lifts the cooldown, used when the guarded action failed.
func (l *Limiter) Clear(ctx context.Context, userID uuid.UUID, action string) error {
	if l == nil || l.rdb == nil {
		return nil
	}
	return l.rdb.Del(ctx, key(userID, action)).Err()
}

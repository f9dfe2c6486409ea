package redis

import (
	"context"
	"fmt"
	"time"
)

// RateLimiter enforces a minimum interval between a user's messages.
// SetNX holds a marker key for the interval; while the key lives, further
// messages are rejected.
type RateLimiter struct {
	client RedisClient
	every  time.Duration
}

func NewRateLimiter(client RedisClient, every time.Duration) *RateLimiter {
	return &RateLimiter{client: client, every: every}
}

func (r *RateLimiter) Allow(ctx context.Context, userID int64) (bool, error) {
	if r.every <= 0 {
		return true, nil
	}
	return r.client.SetNX(ctx, messageKey(userID), 1, r.every)
}

func messageKey(userID int64) string {
	return fmt.Sprintf("rate_limit:msg:%d", userID)
}

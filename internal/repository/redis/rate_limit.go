package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/remodely/auth-service/internal/core/port"
)

// RateLimitRepository counts attempts in fixed windows using Redis
// counters. INCR plus a TTL set only on the first hit makes the window
// boundary atomic across instances.
type RateLimitRepository struct {
	client *red.Client
	prefix string
}

// NewRateLimitRepository constructs a repository using the provided Redis
// client and key prefix.
func NewRateLimitRepository(client *red.Client, keyPrefix string) *RateLimitRepository {
	if keyPrefix == "" {
		keyPrefix = "auth:rate-limit"
	}
	return &RateLimitRepository{client: client, prefix: keyPrefix}
}

// Increment bumps the window counter and returns the updated count with
// the time remaining until the window resets.
func (r *RateLimitRepository) Increment(ctx context.Context, identifier string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		return 0, 0, errors.New("window must be positive")
	}

	key := fmt.Sprintf("%s:%s", r.prefix, identifier)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis incr: %w", err)
	}

	if count == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("redis expire: %w", err)
		}
		return int(count), window, nil
	}

	ttl, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis ttl: %w", err)
	}
	if ttl < 0 {
		// Key somehow lost its expiry; reapply so the window cannot stick.
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("redis expire: %w", err)
		}
		ttl = window
	}

	return int(count), ttl, nil
}

var _ port.RateLimitStore = (*RateLimitRepository)(nil)

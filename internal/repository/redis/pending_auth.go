package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/remodely/auth-service/internal/core/domain"
	"github.com/remodely/auth-service/internal/core/port"
	"github.com/remodely/auth-service/internal/repository"
)

const defaultStatePrefix = "auth:oauth:state"

// PendingAuthRepository keeps OAuth CSRF state in Redis. Backing it with
// the shared store (rather than a process-local map) lets any instance
// consume any pending state and survives restarts; Redis TTL enforces the
// ten-minute expiry without a sweeper goroutine.
type PendingAuthRepository struct {
	client *red.Client
	prefix string
}

// NewPendingAuthRepository constructs a repository with the provided
// Redis client and key prefix.
func NewPendingAuthRepository(client *red.Client, keyPrefix string) *PendingAuthRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultStatePrefix
	}

	return &PendingAuthRepository{client: client, prefix: prefix}
}

// Put stores the pending authorization under its state token with the TTL.
func (r *PendingAuthRepository) Put(ctx context.Context, pending domain.PendingAuthorization, ttl time.Duration) error {
	switch {
	case strings.TrimSpace(pending.State) == "":
		return errors.New("state is required")
	case strings.TrimSpace(pending.UserID) == "":
		return errors.New("user id is required")
	case ttl <= 0:
		return errors.New("ttl must be positive")
	}

	payload, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("marshal pending authorization: %w", err)
	}

	if err := r.client.Set(ctx, r.key(pending.State), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set pending authorization: %w", err)
	}

	return nil
}

// Consume atomically removes and returns the entry via GETDEL. Exactly one
// of two concurrent consumers for the same state gets the payload; the
// other (and any consume past the TTL) gets repository.ErrNotFound.
func (r *PendingAuthRepository) Consume(ctx context.Context, state string) (*domain.PendingAuthorization, error) {
	if strings.TrimSpace(state) == "" {
		return nil, repository.ErrNotFound
	}

	raw, err := r.client.GetDel(ctx, r.key(state)).Result()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redis getdel pending authorization: %w", err)
	}

	var pending domain.PendingAuthorization
	if err := json.Unmarshal([]byte(raw), &pending); err != nil {
		return nil, fmt.Errorf("unmarshal pending authorization: %w", err)
	}

	return &pending, nil
}

func (r *PendingAuthRepository) key(state string) string {
	return fmt.Sprintf("%s:%s", r.prefix, state)
}

var _ port.PendingAuthStore = (*PendingAuthRepository)(nil)

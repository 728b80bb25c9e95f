package port

import (
	"context"
	"time"

	"github.com/remodely/auth-service/internal/core/domain"
)

// PendingAuthStore holds OAuth CSRF state between the authorize call and
// the provider callback.
type PendingAuthStore interface {
	Put(ctx context.Context, pending domain.PendingAuthorization, ttl time.Duration) error
	// Consume atomically removes and returns the entry. A second Consume
	// for the same state, or one past its TTL, fails with
	// repository.ErrNotFound; a naive read-then-delete would allow two
	// concurrent callbacks to both succeed.
	Consume(ctx context.Context, state string) (*domain.PendingAuthorization, error)
}

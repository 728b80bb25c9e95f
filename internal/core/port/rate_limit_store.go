package port

import (
	"context"
	"time"
)

// RateLimitStore counts attempts inside a fixed window.
type RateLimitStore interface {
	// Increment bumps the counter for the identifier, starting a new
	// window when none is active, and returns the updated count together
	// with the time remaining until the window resets.
	Increment(ctx context.Context, identifier string, window time.Duration) (count int, resetIn time.Duration, err error)
}

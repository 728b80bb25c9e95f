package port

import (
	"context"
	"time"

	"github.com/remodely/auth-service/internal/core/domain"
)

// UserRepository persists platform accounts.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// GetByEmailOrPhone resolves a single row matching either contact field.
	// Registration uses it as one round trip to report which field collided.
	GetByEmailOrPhone(ctx context.Context, email, phone string) (*domain.User, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	// SetVerificationCode replaces any previous code, keeping at most one
	// live code per user.
	SetVerificationCode(ctx context.Context, id, code string, expiresAt time.Time) error
	// MarkPhoneVerified sets the verified flag and clears the code fields.
	MarkPhoneVerified(ctx context.Context, id string, at time.Time) error
}

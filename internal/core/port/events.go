package port

import (
	"context"

	"github.com/remodely/auth-service/internal/core/domain"
)

// EventPublisher emits auth domain events for downstream consumers.
// Publishing is best-effort; callers log failures and continue.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error
	PublishUserLoggedIn(ctx context.Context, event domain.UserLoggedInEvent) error
	PublishPhoneVerified(ctx context.Context, event domain.PhoneVerifiedEvent) error
	PublishStoreLinked(ctx context.Context, event domain.StoreLinkedEvent) error
	PublishStoreDisconnected(ctx context.Context, event domain.StoreDisconnectedEvent) error
}

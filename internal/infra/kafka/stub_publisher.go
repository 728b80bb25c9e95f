package kafka

import (
	"context"

	"go.uber.org/zap"

	"github.com/remodely/auth-service/internal/core/domain"
	"github.com/remodely/auth-service/internal/core/port"
)

// StubPublisher logs events instead of publishing them. Used when Kafka
// brokers are not configured (local development, tests).
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a logging stub publisher.
func NewStubPublisher(log *zap.Logger) *StubPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &StubPublisher{logger: log}
}

func (s *StubPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	s.logger.Debug("event skipped (no brokers)", zap.String("type", "user.registered"), zap.String("user_id", event.UserID))
	return nil
}

func (s *StubPublisher) PublishUserLoggedIn(_ context.Context, event domain.UserLoggedInEvent) error {
	s.logger.Debug("event skipped (no brokers)", zap.String("type", "user.logged_in"), zap.String("user_id", event.UserID))
	return nil
}

func (s *StubPublisher) PublishPhoneVerified(_ context.Context, event domain.PhoneVerifiedEvent) error {
	s.logger.Debug("event skipped (no brokers)", zap.String("type", "phone.verified"), zap.String("user_id", event.UserID))
	return nil
}

func (s *StubPublisher) PublishStoreLinked(_ context.Context, event domain.StoreLinkedEvent) error {
	s.logger.Debug("event skipped (no brokers)", zap.String("type", "store.linked"), zap.String("store_id", event.StoreID))
	return nil
}

func (s *StubPublisher) PublishStoreDisconnected(_ context.Context, event domain.StoreDisconnectedEvent) error {
	s.logger.Debug("event skipped (no brokers)", zap.String("type", "store.disconnected"), zap.String("store_id", event.StoreID))
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)

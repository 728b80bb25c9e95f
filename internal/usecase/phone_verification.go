package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/remodely/auth-service/internal/core/domain"
	"github.com/remodely/auth-service/internal/core/port"
	"github.com/remodely/auth-service/internal/infra/logger"
	"github.com/remodely/auth-service/internal/infra/security"
	"github.com/remodely/auth-service/internal/repository"
)

var (
	// ErrVerificationCodeInvalid indicates the submitted code does not
	// match the one on file.
	ErrVerificationCodeInvalid = errors.New("verification code invalid")
	// ErrVerificationCodeExpired indicates the code on file is past its TTL.
	ErrVerificationCodeExpired = errors.New("verification code expired")
	// ErrNoVerificationPending indicates no code was ever issued for the
	// account, or a previous one was already consumed.
	ErrNoVerificationPending = errors.New("no verification pending")
	// ErrPhoneMismatch indicates the submitted phone number is not the one
	// on the account.
	ErrPhoneMismatch = errors.New("phone number does not match account")
	// ErrPhoneAlreadyVerified indicates the phone was verified earlier.
	// Handlers report it as a success with a distinct message.
	ErrPhoneAlreadyVerified = errors.New("phone already verified")
	// ErrSMSDeliveryFailed indicates the gateway rejected or could not
	// accept the message.
	ErrSMSDeliveryFailed = errors.New("sms delivery failed")
)

// PhoneVerificationService manages the possession-check lifecycle for
// account phone numbers.
type PhoneVerificationService struct {
	users  port.UserRepository
	sms    port.SMSDispatcher
	events port.EventPublisher
	log    *zap.Logger
	now    func() time.Time
}

// NewPhoneVerificationService constructs a phone verification service.
func NewPhoneVerificationService(users port.UserRepository, sms port.SMSDispatcher, events port.EventPublisher, log *zap.Logger) *PhoneVerificationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PhoneVerificationService{
		users:  users,
		sms:    sms,
		events: events,
		log:    log,
		now:    time.Now,
	}
}

// WithClock overrides the internal clock, used in tests.
func (s *PhoneVerificationService) WithClock(clock func() time.Time) *PhoneVerificationService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// ResendCode issues a fresh code for the account, replacing any previous
// one, and dispatches it. Unlike registration the caller explicitly asked
// for an SMS here, so delivery failure is surfaced.
func (s *PhoneVerificationService) ResendCode(ctx context.Context, userID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}
	if user.PhoneVerified {
		return ErrPhoneAlreadyVerified
	}

	code, err := security.GenerateNumericCode(6)
	if err != nil {
		return fmt.Errorf("generate verification code: %w", err)
	}

	now := s.now().UTC()
	expiresAt := now.Add(verificationCodeTTL)
	if err := s.users.SetVerificationCode(ctx, user.ID, code, expiresAt); err != nil {
		return fmt.Errorf("store verification code: %w", err)
	}

	if s.sms == nil {
		return ErrSMSDeliveryFailed
	}
	message := fmt.Sprintf("Your Remodely verification code is %s. It expires in 10 minutes.", code)
	if err := s.sms.Send(ctx, user.Phone, message); err != nil {
		s.log.Warn("verification sms not delivered",
			zap.String("user_id", user.ID),
			zap.String("phone", logger.MaskPhone(user.Phone)),
			zap.Error(err))
		return fmt.Errorf("%w: %v", ErrSMSDeliveryFailed, err)
	}

	return nil
}

// Verify checks that the submitted phone is the one on the account and
// that the code matches the one on file, then marks the phone verified.
// Re-verifying an already verified phone succeeds without touching the row.
func (s *PhoneVerificationService) Verify(ctx context.Context, userID, phone, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrVerificationCodeInvalid
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	if strings.TrimSpace(phone) != user.Phone {
		return ErrPhoneMismatch
	}
	if user.PhoneVerified {
		return ErrPhoneAlreadyVerified
	}
	if user.PhoneVerificationCode == nil || user.PhoneVerificationExpiresAt == nil {
		return ErrNoVerificationPending
	}

	now := s.now().UTC()
	if !now.Before(*user.PhoneVerificationExpiresAt) {
		return ErrVerificationCodeExpired
	}
	if subtle.ConstantTimeCompare([]byte(code), []byte(*user.PhoneVerificationCode)) != 1 {
		return ErrVerificationCodeInvalid
	}

	if err := s.users.MarkPhoneVerified(ctx, user.ID, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Another request verified the phone between our read and
			// this write. Same terminal state, same answer.
			return ErrPhoneAlreadyVerified
		}
		return fmt.Errorf("mark phone verified: %w", err)
	}

	if s.events != nil {
		if err := s.events.PublishPhoneVerified(ctx, domain.PhoneVerifiedEvent{
			EventID:    uuid.NewString(),
			UserID:     user.ID,
			Phone:      user.Phone,
			VerifiedAt: now,
		}); err != nil {
			s.log.Warn("publish phone.verified failed", zap.Error(err))
		}
	}

	return nil
}

package usecase

import (
	"context"
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

const verificationCodeTTL = 10 * time.Minute

var (
	// ErrEmailTaken indicates the email already belongs to an account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrPhoneTaken indicates the phone number already belongs to an account.
	ErrPhoneTaken = errors.New("phone already registered")
	// ErrInvalidCredentials covers both unknown email and wrong password.
	// Login must not reveal which one failed.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUserNotFound indicates no account matches the identifier.
	ErrUserNotFound = errors.New("user not found")
	// ErrPasswordPolicyViolation indicates the password does not satisfy
	// the registration policy.
	ErrPasswordPolicyViolation = errors.New("password does not meet complexity requirements")
	// ErrInvalidUserType indicates the requested account type is not one
	// of the supported values.
	ErrInvalidUserType = errors.New("unknown user type")
)

// AuthService handles registration, credential login, and token validation.
type AuthService struct {
	users             port.UserRepository
	tokens            *security.TokenService
	sms               port.SMSDispatcher
	events            port.EventPublisher
	passwordValidator *security.PasswordValidator
	log               *zap.Logger
	now               func() time.Time
}

// NewAuthService constructs an auth service.
func NewAuthService(users port.UserRepository, tokens *security.TokenService, sms port.SMSDispatcher, events port.EventPublisher, validator *security.PasswordValidator, log *zap.Logger) *AuthService {
	if validator == nil {
		validator = security.DefaultPasswordValidator()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		users:             users,
		tokens:            tokens,
		sms:               sms,
		events:            events,
		passwordValidator: validator,
		log:               log,
		now:               time.Now,
	}
}

// WithClock overrides the internal clock, used in tests.
func (s *AuthService) WithClock(clock func() time.Time) *AuthService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// RegisterInput carries the registration request fields.
type RegisterInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
	UserType domain.UserType
}

// AuthResult pairs the account with its freshly issued access token.
type AuthResult struct {
	User      domain.User
	Token     string
	ExpiresIn time.Duration
}

// Register creates an account, issues a token, and starts phone
// verification. SMS delivery is best-effort: a gateway failure is logged
// and the registration still succeeds.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	name := strings.TrimSpace(input.Name)
	email := normalizeEmail(input.Email)
	phone := strings.TrimSpace(input.Phone)
	password := input.Password

	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if phone == "" {
		return nil, fmt.Errorf("phone is required")
	}
	userType := input.UserType
	if userType == "" {
		userType = domain.UserTypeCustomer
	}
	if !userType.Valid() {
		return nil, fmt.Errorf("%w %q", ErrInvalidUserType, input.UserType)
	}

	if err := s.passwordValidator.Validate(password); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
	}

	// One round trip to find a collision and name the offending field.
	// The unique constraints still backstop the race below.
	if existing, err := s.users.GetByEmailOrPhone(ctx, email, phone); err == nil {
		if strings.EqualFold(existing.Email, email) {
			return nil, ErrEmailTaken
		}
		return nil, ErrPhoneTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check existing account: %w", err)
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := domain.User{
		ID:              uuid.NewString(),
		Name:            name,
		Email:           email,
		Phone:           phone,
		PasswordHash:    passwordHash,
		UserType:        userType,
		AgreedToTermsAt: &now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// Lost the race against a concurrent signup. Name the field
			// from the violated constraint when the repository tells us.
			var conflict *repository.ConflictError
			if errors.As(err, &conflict) && strings.Contains(conflict.Constraint, "phone") {
				return nil, ErrPhoneTaken
			}
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.startPhoneVerification(ctx, &user, now); err != nil {
		s.log.Warn("verification sms not delivered",
			zap.String("user_id", user.ID),
			zap.String("phone", logger.MaskPhone(user.Phone)),
			zap.Error(err))
	}

	token, err := s.tokens.Issue(user.ID, user.UserType)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	if s.events != nil {
		if err := s.events.PublishUserRegistered(ctx, domain.UserRegisteredEvent{
			EventID:      uuid.NewString(),
			UserID:       user.ID,
			Name:         user.Name,
			Email:        user.Email,
			Phone:        user.Phone,
			UserType:     user.UserType,
			RegisteredAt: now,
		}); err != nil {
			s.log.Warn("publish user.registered failed", zap.Error(err))
		}
	}

	return &AuthResult{User: user, Token: token, ExpiresIn: s.tokens.TTL()}, nil
}

// Login verifies credentials and issues a fresh access token.
func (s *AuthService) Login(ctx context.Context, email, password, ipAddress string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}

	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.log.Warn("update last login failed", zap.String("user_id", user.ID), zap.Error(err))
	}
	user.LastLoginAt = &now

	token, err := s.tokens.Issue(user.ID, user.UserType)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	if s.events != nil {
		if err := s.events.PublishUserLoggedIn(ctx, domain.UserLoggedInEvent{
			EventID:    uuid.NewString(),
			UserID:     user.ID,
			LoggedInAt: now,
			IPAddress:  ipAddress,
		}); err != nil {
			s.log.Warn("publish user.logged_in failed", zap.Error(err))
		}
	}

	return &AuthResult{User: *user, Token: token, ExpiresIn: s.tokens.TTL()}, nil
}

// Profile returns the account for an authenticated user id.
func (s *AuthService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUserNotFound
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	return user, nil
}

// ValidateToken verifies a bearer token and resolves its account. Used by
// the auth middleware and by other services through the validate endpoint.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*domain.User, *security.AccessTokenClaims, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// The account behind an otherwise valid token is gone.
			return nil, nil, security.ErrInvalidToken
		}
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}

	return user, claims, nil
}

// startPhoneVerification stores a fresh code and dispatches it. The code
// is persisted before the send so a delivery retry can reuse it.
func (s *AuthService) startPhoneVerification(ctx context.Context, user *domain.User, now time.Time) error {
	code, err := security.GenerateNumericCode(6)
	if err != nil {
		return fmt.Errorf("generate verification code: %w", err)
	}

	expiresAt := now.Add(verificationCodeTTL)
	if err := s.users.SetVerificationCode(ctx, user.ID, code, expiresAt); err != nil {
		return fmt.Errorf("store verification code: %w", err)
	}
	user.PhoneVerificationCode = &code
	user.PhoneVerificationExpiresAt = &expiresAt

	if s.sms == nil {
		return fmt.Errorf("sms dispatcher not configured")
	}

	message := fmt.Sprintf("Your Remodely verification code is %s. It expires in 10 minutes.", code)
	if err := s.sms.Send(ctx, user.Phone, message); err != nil {
		return fmt.Errorf("dispatch verification sms: %w", err)
	}

	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

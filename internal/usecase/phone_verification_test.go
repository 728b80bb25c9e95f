package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/remodely/auth-service/internal/core/domain"
	"github.com/remodely/auth-service/internal/repository"
)

func pendingVerificationUser(now time.Time) *domain.User {
	code := "123456"
	expires := now.Add(5 * time.Minute)
	return &domain.User{
		ID:                         "u1",
		Phone:                      "+15551234567",
		PhoneVerificationCode:      &code,
		PhoneVerificationExpiresAt: &expires,
	}
}

func TestVerifySuccess(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	users := &mockUserRepository{getByIDResult: pendingVerificationUser(now)}
	events := &mockEventPublisher{}
	svc := NewPhoneVerificationService(users, &mockSMSDispatcher{}, events, nil).
		WithClock(func() time.Time { return now })

	if err := svc.Verify(context.Background(), "u1", "+15551234567", "123456"); err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if users.markVerifiedCalls != 1 {
		t.Fatalf("expected MarkPhoneVerified call, got %d", users.markVerifiedCalls)
	}
	if len(events.verified) != 1 {
		t.Fatalf("expected one verified event, got %d", len(events.verified))
	}
}

func TestVerifyWrongCode(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	users := &mockUserRepository{getByIDResult: pendingVerificationUser(now)}
	svc := NewPhoneVerificationService(users, &mockSMSDispatcher{}, nil, nil).
		WithClock(func() time.Time { return now })

	if err := svc.Verify(context.Background(), "u1", "+15551234567", "654321"); !errors.Is(err, ErrVerificationCodeInvalid) {
		t.Fatalf("expected ErrVerificationCodeInvalid, got %v", err)
	}
	if users.markVerifiedCalls != 0 {
		t.Fatal("expected no MarkPhoneVerified call")
	}
}

func TestVerifyPhoneMismatch(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	users := &mockUserRepository{getByIDResult: pendingVerificationUser(now)}
	svc := NewPhoneVerificationService(users, &mockSMSDispatcher{}, nil, nil).
		WithClock(func() time.Time { return now })

	if err := svc.Verify(context.Background(), "u1", "+15559990000", "123456"); !errors.Is(err, ErrPhoneMismatch) {
		t.Fatalf("expected ErrPhoneMismatch, got %v", err)
	}
	if users.markVerifiedCalls != 0 {
		t.Fatal("expected no MarkPhoneVerified call for foreign phone")
	}
}

func TestVerifyExpiredCode(t *testing.T) {
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	users := &mockUserRepository{getByIDResult: pendingVerificationUser(issued)}
	svc := NewPhoneVerificationService(users, &mockSMSDispatcher{}, nil, nil).
		WithClock(func() time.Time { return issued.Add(time.Hour) })

	if err := svc.Verify(context.Background(), "u1", "+15551234567", "123456"); !errors.Is(err, ErrVerificationCodeExpired) {
		t.Fatalf("expected ErrVerificationCodeExpired, got %v", err)
	}
}

func TestVerifyNoPendingCode(t *testing.T) {
	users := &mockUserRepository{getByIDResult: &domain.User{ID: "u1", Phone: "+15551234567"}}
	svc := NewPhoneVerificationService(users, &mockSMSDispatcher{}, nil, nil)

	if err := svc.Verify(context.Background(), "u1", "+15551234567", "123456"); !errors.Is(err, ErrNoVerificationPending) {
		t.Fatalf("expected ErrNoVerificationPending, got %v", err)
	}
}

func TestVerifyAlreadyVerified(t *testing.T) {
	users := &mockUserRepository{getByIDResult: &domain.User{
		ID:            "u1",
		Phone:         "+15551234567",
		PhoneVerified: true,
	}}
	svc := NewPhoneVerificationService(users, &mockSMSDispatcher{}, nil, nil)

	if err := svc.Verify(context.Background(), "u1", "+15551234567", "123456"); !errors.Is(err, ErrPhoneAlreadyVerified) {
		t.Fatalf("expected ErrPhoneAlreadyVerified, got %v", err)
	}
	if users.markVerifiedCalls != 0 {
		t.Fatal("expected no MarkPhoneVerified call for verified phone")
	}
}

func TestVerifyLostRaceReportsAlreadyVerified(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	users := &mockUserRepository{
		getByIDResult:   pendingVerificationUser(now),
		markVerifiedErr: repository.ErrNotFound,
	}
	svc := NewPhoneVerificationService(users, &mockSMSDispatcher{}, nil, nil).
		WithClock(func() time.Time { return now })

	if err := svc.Verify(context.Background(), "u1", "+15551234567", "123456"); !errors.Is(err, ErrPhoneAlreadyVerified) {
		t.Fatalf("expected ErrPhoneAlreadyVerified on lost race, got %v", err)
	}
}

func TestVerifyUnknownUser(t *testing.T) {
	svc := NewPhoneVerificationService(&mockUserRepository{}, &mockSMSDispatcher{}, nil, nil)

	if err := svc.Verify(context.Background(), "ghost", "+15551234567", "123456"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestResendCodeStoresFreshCode(t *testing.T) {
	users := &mockUserRepository{getByIDResult: &domain.User{ID: "u1", Phone: "+15551234567"}}
	sms := &mockSMSDispatcher{}
	svc := NewPhoneVerificationService(users, sms, nil, nil)

	if err := svc.ResendCode(context.Background(), "u1"); err != nil {
		t.Fatalf("ResendCode returned error: %v", err)
	}
	if users.setCodeCalls != 1 {
		t.Fatalf("expected code to be stored, got %d calls", users.setCodeCalls)
	}
	if len(users.setCodeValue) != 6 {
		t.Fatalf("expected 6-digit code, got %q", users.setCodeValue)
	}
	if sms.sendCalls != 1 {
		t.Fatalf("expected one SMS dispatch, got %d", sms.sendCalls)
	}
}

func TestResendCodeSurfacesDeliveryFailure(t *testing.T) {
	users := &mockUserRepository{getByIDResult: &domain.User{ID: "u1", Phone: "+15551234567"}}
	sms := &mockSMSDispatcher{sendErr: errors.New("gateway down")}
	svc := NewPhoneVerificationService(users, sms, nil, nil)

	if err := svc.ResendCode(context.Background(), "u1"); !errors.Is(err, ErrSMSDeliveryFailed) {
		t.Fatalf("expected ErrSMSDeliveryFailed, got %v", err)
	}
}

func TestResendCodeAlreadyVerified(t *testing.T) {
	users := &mockUserRepository{getByIDResult: &domain.User{ID: "u1", PhoneVerified: true}}
	svc := NewPhoneVerificationService(users, &mockSMSDispatcher{}, nil, nil)

	if err := svc.ResendCode(context.Background(), "u1"); !errors.Is(err, ErrPhoneAlreadyVerified) {
		t.Fatalf("expected ErrPhoneAlreadyVerified, got %v", err)
	}
}

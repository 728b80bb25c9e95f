package security

import (
	"errors"
	"testing"
	"time"

	"github.com/remodely/auth-service/internal/core/domain"
)

func newTestTokenService(t *testing.T, now time.Time) *TokenService {
	t.Helper()
	svc, err := NewTokenService("test-signing-secret", "auth-service", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService returned error: %v", err)
	}
	return svc.WithClock(func() time.Time { return now })
}

func TestTokenServiceIssueAndVerify(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestTokenService(t, now)

	token, err := svc.Issue("user-123", domain.UserTypeContractor)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if claims.UserID != "user-123" {
		t.Fatalf("expected uid user-123, got %q", claims.UserID)
	}
	if claims.UserType != domain.UserTypeContractor {
		t.Fatalf("expected user type CONTRACTOR, got %q", claims.UserType)
	}
}

func TestTokenServiceVerifyExpired(t *testing.T) {
	issuedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestTokenService(t, issuedAt)

	token, err := svc.Issue("user-123", domain.UserTypeCustomer)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	svc.WithClock(func() time.Time { return issuedAt.Add(2 * time.Hour) })

	if _, err := svc.Verify(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenServiceVerifyRejectsForeignSignature(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestTokenService(t, now)

	other, err := NewTokenService("a-different-secret", "auth-service", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService returned error: %v", err)
	}
	token, err := other.WithClock(func() time.Time { return now }).Issue("user-123", domain.UserTypeCustomer)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenServiceVerifyRejectsGarbage(t *testing.T) {
	svc := newTestTokenService(t, time.Now())

	for _, token := range []string{"", "   ", "not.a.jwt"} {
		if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("token %q: expected ErrInvalidToken, got %v", token, err)
		}
	}
}

func TestNewTokenServiceRequiresSecret(t *testing.T) {
	if _, err := NewTokenService("  ", "auth-service", time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

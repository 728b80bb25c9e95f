package domain

import "time"

// UserType classifies an account. It is fixed at registration time;
// promotion to ADMIN happens through administrative tooling, not this API.
type UserType string

const (
	UserTypeCustomer   UserType = "CUSTOMER"
	UserTypeContractor UserType = "CONTRACTOR"
	UserTypeAdmin      UserType = "ADMIN"
)

// Valid reports whether the user type is one of the known classifications.
func (t UserType) Valid() bool {
	switch t {
	case UserTypeCustomer, UserTypeContractor, UserTypeAdmin:
		return true
	}
	return false
}

// User is a platform account with credentials and phone-verification state.
type User struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	UserType     UserType

	PhoneVerified              bool
	PhoneVerificationCode      *string
	PhoneVerificationExpiresAt *time.Time
	PhoneVerifiedAt            *time.Time

	AgreedToTermsAt *time.Time
	LastLoginAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasLiveVerificationCode reports whether a non-expired code is pending.
func (u User) HasLiveVerificationCode(now time.Time) bool {
	return u.PhoneVerificationCode != nil &&
		u.PhoneVerificationExpiresAt != nil &&
		now.Before(*u.PhoneVerificationExpiresAt)
}

package handlers

import (
	"time"

	"github.com/remodely/auth-service/internal/core/domain"
)

// ErrorResponse is the uniform failure payload.
type ErrorResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

// NewErrorResponse builds a failure payload with optional field detail.
func NewErrorResponse(message string, fieldErrors ...string) ErrorResponse {
	return ErrorResponse{
		Success: false,
		Message: message,
		Errors:  fieldErrors,
	}
}

// MessageResponse is a bare success acknowledgement.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// UserView is the public projection of an account. Credential material
// and verification codes never appear here.
type UserView struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone"`
	UserType      domain.UserType `json:"userType"`
	PhoneVerified bool            `json:"phoneVerified"`
	CreatedAt     time.Time       `json:"createdAt"`
	LastLoginAt   *time.Time      `json:"lastLoginAt,omitempty"`
}

// NewUserView projects an account for API responses.
func NewUserView(user domain.User) UserView {
	return UserView{
		ID:            user.ID,
		Name:          user.Name,
		Email:         user.Email,
		Phone:         user.Phone,
		UserType:      user.UserType,
		PhoneVerified: user.PhoneVerified,
		CreatedAt:     user.CreatedAt,
		LastLoginAt:   user.LastLoginAt,
	}
}

// StoreView is the public projection of a linked store. The provider
// access token stays server-side.
type StoreView struct {
	ID            string     `json:"id"`
	StoreDomain   string     `json:"storeDomain"`
	DisplayName   string     `json:"displayName"`
	ResourceCount int        `json:"resourceCount"`
	Currency      string     `json:"currency,omitempty"`
	Scope         string     `json:"scope,omitempty"`
	IsActive      bool       `json:"isActive"`
	ConnectedAt   time.Time  `json:"connectedAt"`
	LastSyncAt    *time.Time `json:"lastSyncAt,omitempty"`
}

// NewStoreView projects a linked store for API responses.
func NewStoreView(store domain.LinkedStore) StoreView {
	return StoreView{
		ID:            store.ID,
		StoreDomain:   store.StoreDomain,
		DisplayName:   store.DisplayName,
		ResourceCount: store.ResourceCount,
		Currency:      store.Currency,
		Scope:         store.Scope,
		IsActive:      store.IsActive,
		ConnectedAt:   store.ConnectedAt,
		LastSyncAt:    store.LastSyncAt,
	}
}

// AuthPayload carries a user plus a freshly issued token.
type AuthPayload struct {
	User      UserView `json:"user"`
	Token     string   `json:"token"`
	ExpiresIn int64    `json:"expiresIn"`
}

// RegisterRequest defines the payload for the registration endpoint.
type RegisterRequest struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Phone        string `json:"phone" binding:"required"`
	Password     string `json:"password" binding:"required"`
	UserType     string `json:"userType"`
	AgreeToTerms bool   `json:"agreeToTerms"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// VerifyPhoneRequest defines the payload for code submission. The phone
// must be the one on the account, re-submitted as a cross-check.
type VerifyPhoneRequest struct {
	Phone string `json:"phone" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// AuthorizeRequest defines the payload to begin a store link.
type AuthorizeRequest struct {
	StoreDomain string `json:"storeDomain" binding:"required"`
}

// TokenExchangeRequest defines the payload for the direct exchange variant.
type TokenExchangeRequest struct {
	Code  string `json:"code" binding:"required"`
	Shop  string `json:"shop" binding:"required"`
	State string `json:"state"`
}

package domain

import "time"

// UserRegisteredEvent is emitted after a successful registration.
type UserRegisteredEvent struct {
	EventID      string
	UserID       string
	Name         string
	Email        string
	Phone        string
	UserType     UserType
	RegisteredAt time.Time
}

// UserLoggedInEvent is emitted after a successful credential login.
type UserLoggedInEvent struct {
	EventID    string
	UserID     string
	LoggedInAt time.Time
	IPAddress  string
}

// PhoneVerifiedEvent is emitted when a phone number is first verified.
type PhoneVerifiedEvent struct {
	EventID    string
	UserID     string
	Phone      string
	VerifiedAt time.Time
}

// StoreLinkedEvent is emitted after a storefront link is created or refreshed.
type StoreLinkedEvent struct {
	EventID     string
	StoreID     string
	StoreDomain string
	OwnerUserID string
	LinkedAt    time.Time
}

// StoreDisconnectedEvent is emitted when an owner deactivates a link.
type StoreDisconnectedEvent struct {
	EventID        string
	StoreID        string
	StoreDomain    string
	OwnerUserID    string
	DisconnectedAt time.Time
}

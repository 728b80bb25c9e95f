package domain

import "time"

// LinkedStore is an external Shopify storefront linked to a platform user.
// The store domain is the provider's canonical account identifier, so
// uniqueness is global: re-linking an already known domain reassigns the
// row instead of duplicating it.
type LinkedStore struct {
	ID          string
	StoreDomain string
	OwnerUserID string

	// AccessToken is provider-issued and must never leave the service.
	AccessToken string
	Scope       string

	DisplayName   string
	ResourceCount int
	Currency      string

	IsActive    bool
	ConnectedAt time.Time
	LastSyncAt  *time.Time
}

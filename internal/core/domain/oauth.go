package domain

import "time"

// PendingAuthorization is the ephemeral CSRF state for one OAuth attempt.
// It is single-use: consuming it removes it, and the backing store expires
// it after a fixed TTL even if the callback never arrives.
type PendingAuthorization struct {
	State       string    `json:"state"`
	UserID      string    `json:"user_id"`
	StoreDomain string    `json:"store_domain"`
	CreatedAt   time.Time `json:"created_at"`
}

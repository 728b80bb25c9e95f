package port

import (
	"context"

	"github.com/remodely/auth-service/internal/core/domain"
)

// StoreRepository persists linked storefront records.
type StoreRepository interface {
	// Upsert inserts or updates the row keyed by store domain as a single
	// atomic statement; two concurrent link attempts for the same domain
	// must never produce duplicate rows.
	Upsert(ctx context.Context, store domain.LinkedStore) (*domain.LinkedStore, error)
	GetByID(ctx context.Context, id string) (*domain.LinkedStore, error)
	ListActiveByOwner(ctx context.Context, ownerUserID string) ([]domain.LinkedStore, error)
	// MostRecentActiveByOwner returns the latest connected active store,
	// or repository.ErrNotFound when the user has none.
	MostRecentActiveByOwner(ctx context.Context, ownerUserID string) (*domain.LinkedStore, error)
	// Deactivate soft-deletes the row; the access token is retained.
	Deactivate(ctx context.Context, id string) error
}

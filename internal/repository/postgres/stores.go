package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/remodely/auth-service/internal/core/domain"
	"github.com/remodely/auth-service/internal/core/port"
	"github.com/remodely/auth-service/internal/repository"
)

var storeColumns = []string{
	"id",
	"store_domain",
	"owner_user_id",
	"access_token",
	"scope",
	"display_name",
	"resource_count",
	"currency",
	"is_active",
	"connected_at",
	"last_sync_at",
}

// StoreRepository implements port.StoreRepository using PostgreSQL.
type StoreRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewStoreRepository wires a PostgreSQL-backed linked-store repository.
func NewStoreRepository(pool *pgxpool.Pool) *StoreRepository {
	return &StoreRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Upsert inserts or refreshes the row keyed by store_domain in one
// statement. ON CONFLICT keeps two concurrent link attempts for the same
// domain from racing a read-check-then-write into duplicate rows; the
// update reassigns ownership and reactivates a previously disconnected row.
func (r *StoreRepository) Upsert(ctx context.Context, store domain.LinkedStore) (*domain.LinkedStore, error) {
	stmt, args, err := r.builder.Insert("auth.linked_stores").
		Columns(storeColumns...).
		Values(
			store.ID,
			store.StoreDomain,
			store.OwnerUserID,
			store.AccessToken,
			store.Scope,
			store.DisplayName,
			store.ResourceCount,
			store.Currency,
			store.IsActive,
			store.ConnectedAt,
			store.LastSyncAt,
		).
		Suffix(`ON CONFLICT (store_domain) DO UPDATE SET
			owner_user_id = EXCLUDED.owner_user_id,
			access_token = EXCLUDED.access_token,
			scope = EXCLUDED.scope,
			display_name = EXCLUDED.display_name,
			resource_count = EXCLUDED.resource_count,
			currency = EXCLUDED.currency,
			is_active = EXCLUDED.is_active,
			connected_at = EXCLUDED.connected_at,
			last_sync_at = EXCLUDED.last_sync_at
			RETURNING ` + strings.Join(storeColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build upsert store sql: %w", err)
	}

	return r.scanOne(r.exec.QueryRow(ctx, stmt, args...))
}

// GetByID retrieves a linked store by identifier.
func (r *StoreRepository) GetByID(ctx context.Context, id string) (*domain.LinkedStore, error) {
	stmt, args, err := r.builder.
		Select(storeColumns...).
		From("auth.linked_stores").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select store sql: %w", err)
	}

	return r.scanOne(r.exec.QueryRow(ctx, stmt, args...))
}

// ListActiveByOwner returns all active stores owned by the user, most
// recently connected first.
func (r *StoreRepository) ListActiveByOwner(ctx context.Context, ownerUserID string) ([]domain.LinkedStore, error) {
	stmt, args, err := r.builder.
		Select(storeColumns...).
		From("auth.linked_stores").
		Where(squirrel.Eq{"owner_user_id": ownerUserID}).
		Where(squirrel.Eq{"is_active": true}).
		OrderBy("connected_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list stores sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query stores: %w", err)
	}
	defer rows.Close()

	stores := make([]domain.LinkedStore, 0)
	for rows.Next() {
		var store domain.LinkedStore
		if err := rows.Scan(
			&store.ID,
			&store.StoreDomain,
			&store.OwnerUserID,
			&store.AccessToken,
			&store.Scope,
			&store.DisplayName,
			&store.ResourceCount,
			&store.Currency,
			&store.IsActive,
			&store.ConnectedAt,
			&store.LastSyncAt,
		); err != nil {
			return nil, fmt.Errorf("scan store: %w", err)
		}
		stores = append(stores, store)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stores: %w", err)
	}

	return stores, nil
}

// MostRecentActiveByOwner returns the latest connected active store.
func (r *StoreRepository) MostRecentActiveByOwner(ctx context.Context, ownerUserID string) (*domain.LinkedStore, error) {
	stmt, args, err := r.builder.
		Select(storeColumns...).
		From("auth.linked_stores").
		Where(squirrel.Eq{"owner_user_id": ownerUserID}).
		Where(squirrel.Eq{"is_active": true}).
		OrderBy("connected_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select latest store sql: %w", err)
	}

	return r.scanOne(r.exec.QueryRow(ctx, stmt, args...))
}

// Deactivate soft-deletes the row. The access token stays on it for audit.
func (r *StoreRepository) Deactivate(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Update("auth.linked_stores").
		Set("is_active", false).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build deactivate store sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("deactivate store: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *StoreRepository) scanOne(row pgx.Row) (*domain.LinkedStore, error) {
	var store domain.LinkedStore

	if err := row.Scan(
		&store.ID,
		&store.StoreDomain,
		&store.OwnerUserID,
		&store.AccessToken,
		&store.Scope,
		&store.DisplayName,
		&store.ResourceCount,
		&store.Currency,
		&store.IsActive,
		&store.ConnectedAt,
		&store.LastSyncAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan store: %w", err)
	}

	return &store, nil
}

var _ port.StoreRepository = (*StoreRepository)(nil)

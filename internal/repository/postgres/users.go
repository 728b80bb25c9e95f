package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/remodely/auth-service/internal/core/domain"
	"github.com/remodely/auth-service/internal/core/port"
	"github.com/remodely/auth-service/internal/repository"
)

var userColumns = []string{
	"id",
	"name",
	"email",
	"phone",
	"password_hash",
	"user_type",
	"phone_verified",
	"phone_verification_code",
	"phone_verification_expires_at",
	"phone_verified_at",
	"agreed_to_terms_at",
	"last_login_at",
	"created_at",
	"updated_at",
}

// UserRepository implements port.UserRepository using PostgreSQL.
type UserRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository wires a PostgreSQL-backed user repository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new user row. Unique violations on email or phone are
// mapped to repository.ConflictError carrying the constraint name.
func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	query := r.builder.Insert("auth.users").
		Columns(userColumns...).
		Values(
			user.ID,
			user.Name,
			user.Email,
			user.Phone,
			user.PasswordHash,
			user.UserType,
			user.PhoneVerified,
			user.PhoneVerificationCode,
			user.PhoneVerificationExpiresAt,
			user.PhoneVerifiedAt,
			user.AgreedToTermsAt,
			user.LastLoginAt,
			user.CreatedAt,
			user.UpdatedAt,
		)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert user sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return &repository.ConflictError{Constraint: pgErr.ConstraintName}
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(userColumns...).
		From("auth.users").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	return r.scanOne(r.exec.QueryRow(ctx, stmt, args...))
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(userColumns...).
		From("auth.users").
		Where(squirrel.Eq{"email": email}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user by email sql: %w", err)
	}

	return r.scanOne(r.exec.QueryRow(ctx, stmt, args...))
}

// GetByEmailOrPhone resolves a single row matching either contact field.
func (r *UserRepository) GetByEmailOrPhone(ctx context.Context, email, phone string) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(userColumns...).
		From("auth.users").
		Where(squirrel.Or{
			squirrel.Eq{"email": email},
			squirrel.Eq{"phone": phone},
		}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user by contact sql: %w", err)
	}

	return r.scanOne(r.exec.QueryRow(ctx, stmt, args...))
}

// UpdateLastLogin records a successful login timestamp.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	stmt, args, err := r.builder.Update("auth.users").
		Set("last_login_at", at).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update last login sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetVerificationCode replaces the pending verification code, keeping at
// most one live code per user.
func (r *UserRepository) SetVerificationCode(ctx context.Context, id, code string, expiresAt time.Time) error {
	now := time.Now().UTC()
	stmt, args, err := r.builder.Update("auth.users").
		Set("phone_verification_code", code).
		Set("phone_verification_expires_at", expiresAt).
		Set("updated_at", now).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set verification code sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("set verification code: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// MarkPhoneVerified sets the verified flag once and clears the code fields.
// The phone_verified guard keeps a repeated call from moving the original
// verification timestamp.
func (r *UserRepository) MarkPhoneVerified(ctx context.Context, id string, at time.Time) error {
	stmt, args, err := r.builder.Update("auth.users").
		Set("phone_verified", true).
		Set("phone_verified_at", at).
		Set("phone_verification_code", nil).
		Set("phone_verification_expires_at", nil).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"phone_verified": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark phone verified sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("mark phone verified: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *UserRepository) scanOne(row pgx.Row) (*domain.User, error) {
	var user domain.User

	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Phone,
		&user.PasswordHash,
		&user.UserType,
		&user.PhoneVerified,
		&user.PhoneVerificationCode,
		&user.PhoneVerificationExpiresAt,
		&user.PhoneVerifiedAt,
		&user.AgreedToTermsAt,
		&user.LastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	return &user, nil
}

var _ port.UserRepository = (*UserRepository)(nil)

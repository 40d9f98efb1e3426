package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoLogPrefix = "db:repository"

// ErrConflict is returned when an insert or update violates a unique
// constraint (username, email, phone number, or an already-revoked jti).
var ErrConflict = errors.New("db:repository - unique constraint violation")

const userColumns = `id, username, name, email, phone_number, password_digest,
	        created_at, updated_at, deleted_at`

// Repository provides database access for account operations. Lookups
// only return live accounts; soft-deleted rows are invisible to them.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateUser inserts a new account and returns the stored row.
func (r *Repository) CreateUser(ctx context.Context, params CreateUserParams) (*User, error) {
	slog.Debug(fmt.Sprintf("%s - CreateUser username=%s", repoLogPrefix, params.Username))

	now := time.Now().UTC()
	row := r.pool.QueryRow(ctx,
		`INSERT INTO users (username, name, email, phone_number, password_digest, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)
		 RETURNING `+userColumns,
		params.Username, params.Name, params.Email, params.PhoneNumber, params.PasswordDigest, now)

	user, err := scanUser(row)
	if err != nil {
		return nil, wrapConflict("CreateUser", err)
	}
	return user, nil
}

// CreateUserParams holds parameters for CreateUser.
type CreateUserParams struct {
	Username       string
	Name           *string
	Email          *string
	PhoneNumber    *string
	PasswordDigest string
}

// GetUserByID finds a live account by id. Returns (nil, nil) when no
// such account exists.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+`
		 FROM users
		 WHERE id = $1 AND deleted_at IS NULL
		 LIMIT 1`, id)

	return noRowsAsNil(scanUser(row))
}

// GetUserByUsername finds a live account by username.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+`
		 FROM users
		 WHERE username = $1 AND deleted_at IS NULL
		 LIMIT 1`, username)

	return noRowsAsNil(scanUser(row))
}

// GetUserByEmail finds a live account by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+`
		 FROM users
		 WHERE email = $1 AND deleted_at IS NULL
		 LIMIT 1`, email)

	return noRowsAsNil(scanUser(row))
}

// GetUserByPhoneNumber finds a live account by phone number.
func (r *Repository) GetUserByPhoneNumber(ctx context.Context, phoneNumber string) (*User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+`
		 FROM users
		 WHERE phone_number = $1 AND deleted_at IS NULL
		 LIMIT 1`, phoneNumber)

	return noRowsAsNil(scanUser(row))
}

// UpdateUser applies the non-nil fields of params to a live account and
// returns the updated row, or (nil, nil) when the account is gone.
func (r *Repository) UpdateUser(ctx context.Context, id int64, params UpdateUserParams) (*User, error) {
	slog.Debug(fmt.Sprintf("%s - UpdateUser id=%d", repoLogPrefix, id))

	now := time.Now().UTC()
	row := r.pool.QueryRow(ctx,
		`UPDATE users SET
		   username = COALESCE($2, username),
		   name = COALESCE($3, name),
		   email = COALESCE($4, email),
		   phone_number = COALESCE($5, phone_number),
		   password_digest = COALESCE($6, password_digest),
		   updated_at = $7
		 WHERE id = $1 AND deleted_at IS NULL
		 RETURNING `+userColumns,
		id, params.Username, params.Name, params.Email, params.PhoneNumber, params.PasswordDigest, now)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapConflict("UpdateUser", err)
	}
	return user, nil
}

// UpdateUserParams holds the optional fields for UpdateUser; nil leaves
// the stored value untouched.
type UpdateUserParams struct {
	Username       *string
	Name           *string
	Email          *string
	PhoneNumber    *string
	PasswordDigest *string
}

// SoftDeleteUser marks a live account deleted. Returns false when no
// live account matched.
func (r *Repository) SoftDeleteUser(ctx context.Context, id int64) (bool, error) {
	slog.Debug(fmt.Sprintf("%s - SoftDeleteUser id=%d", repoLogPrefix, id))

	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET deleted_at = $2, updated_at = $2
		 WHERE id = $1 AND deleted_at IS NULL`,
		id, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("%s - SoftDeleteUser failed: %w", repoLogPrefix, err)
	}
	return tag.RowsAffected() > 0, nil
}

// InsertRevocation records a token id as revoked. A second revocation of
// the same jti returns ErrConflict.
func (r *Repository) InsertRevocation(ctx context.Context, jti uuid.UUID, expiresAt *time.Time) error {
	slog.Debug(fmt.Sprintf("%s - InsertRevocation jti=%s", repoLogPrefix, jti))

	_, err := r.pool.Exec(ctx,
		`INSERT INTO revocations (jti, expires_at, created_at)
		 VALUES ($1, $2, $3)`,
		jti, expiresAt, time.Now().UTC())
	if err != nil {
		return wrapConflict("InsertRevocation", err)
	}
	return nil
}

// IsRevoked reports whether a token id has been revoked.
func (r *Repository) IsRevoked(ctx context.Context, jti uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM revocations WHERE jti = $1)`, jti).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s - IsRevoked failed: %w", repoLogPrefix, err)
	}
	return exists, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Name, &u.Email, &u.PhoneNumber, &u.PasswordDigest,
		&u.CreatedAt, &u.UpdatedAt, &u.DeletedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func noRowsAsNil(u *User, err error) (*User, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s - query failed: %w", repoLogPrefix, err)
	}
	return u, nil
}

// wrapConflict maps a postgres unique violation (23505) to ErrConflict
// and wraps everything else with the operation name.
func wrapConflict(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s - %s: %w", repoLogPrefix, op, ErrConflict)
	}
	return fmt.Errorf("%s - %s failed: %w", repoLogPrefix, op, err)
}

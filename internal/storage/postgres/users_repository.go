package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pitchside/server/internal/auth"
	"github.com/pitchside/server/internal/domain/users"
	"github.com/pitchside/server/internal/metrics"
)

var _ users.Repository = (*UserRepository)(nil)

type UserRepository struct {
	db *DB
}

const userColumns = `u.id, u.username, u.email, u.password_hash, u.role, u.is_active, u.last_login,
       u.reset_token_hash, u.reset_token_expire_at, u.created_at, u.updated_at`

func (r *UserRepository) Get(ctx context.Context, id string) (*users.User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id)
}

// GetByEmail matches case-insensitively; emails are stored lower case.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users u WHERE u.email = lower($1)`, email)
}

func (r *UserRepository) GetByResetToken(ctx context.Context, tokenHash string) (*users.User, error) {
	if tokenHash == "" {
		return nil, users.ErrNotFound
	}
	return r.one(ctx, `SELECT `+userColumns+` FROM users u WHERE u.reset_token_hash = $1`, tokenHash)
}

func (r *UserRepository) Create(ctx context.Context, u *users.User) error {
	start := time.Now()
	_, err := r.db.queryer(ctx).Exec(ctx, `
INSERT INTO users (id, username, email, password_hash, role, is_active, last_login,
                   reset_token_hash, reset_token_expire_at, created_at, updated_at)
VALUES ($1, $2, lower($3), $4, $5, $6, $7, $8, $9, $10, $11)`,
		u.ID,
		u.Username,
		u.Email,
		u.PasswordHash,
		string(u.Role),
		u.IsActive,
		u.LastLogin,
		nullString(u.ResetTokenHash),
		u.ResetTokenExpireAt,
		u.CreatedAt,
		u.UpdatedAt,
	)
	metrics.RecordQuery("insert_user", start, err)
	if err != nil {
		return writeError("insert user", err)
	}
	return nil
}

func (r *UserRepository) Update(ctx context.Context, u *users.User) error {
	tag, err := r.db.queryer(ctx).Exec(ctx, `
UPDATE users
   SET username = $2, email = lower($3), password_hash = $4, role = $5, is_active = $6,
       last_login = $7, reset_token_hash = $8, reset_token_expire_at = $9, updated_at = $10
 WHERE id = $1`,
		u.ID,
		u.Username,
		u.Email,
		u.PasswordHash,
		string(u.Role),
		u.IsActive,
		u.LastLogin,
		nullString(u.ResetTokenHash),
		u.ResetTokenExpireAt,
		u.UpdatedAt,
	)
	if err != nil {
		return writeError("update user", err)
	}
	if tag.RowsAffected() == 0 {
		return users.ErrNotFound
	}
	return nil
}

// Delete removes the account. Teams it managed keep their manager details
// but lose the owning user.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.queryer(ctx).Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return users.ErrNotFound
	}
	return nil
}

func (r *UserRepository) one(ctx context.Context, sql string, arg string) (*users.User, error) {
	var (
		u         users.User
		role      string
		tokenHash *string
	)
	err := r.db.queryer(ctx).QueryRow(ctx, sql, arg).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&role,
		&u.IsActive,
		&u.LastLogin,
		&tokenHash,
		&u.ResetTokenExpireAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, users.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.Role = auth.Role(role)
	u.ResetTokenHash = derefString(tokenHash)
	return &u, nil
}

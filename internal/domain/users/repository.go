package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/pitchside/server/internal/auth"
	"github.com/pitchside/server/internal/storage"
)

var (
	ErrNotFound = fmt.Errorf("user %w", storage.ErrNotFound)

	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", auth.ErrUnauthorized)
	ErrInactive           = fmt.Errorf("account is deactivated: %w", auth.ErrUnauthorized)
	ErrWrongPassword      = fmt.Errorf("current password is incorrect: %w", auth.ErrUnauthorized)

	// ErrInvalidResetToken is a client error: the link is unknown or expired.
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
)

type Repository interface {
	Get(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// GetByResetToken finds the user holding a reset token hash.
	GetByResetToken(ctx context.Context, tokenHash string) (*User, error)
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id string) error
}

package users

import (
	"time"

	"github.com/pitchside/server/internal/auth"
)

type User struct {
	ID                 string     `json:"id"`
	Username           string     `json:"username"`
	Email              string     `json:"email"`
	Role               auth.Role  `json:"role"`
	IsActive           bool       `json:"isActive"`
	LastLogin          *time.Time `json:"lastLogin,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
	PasswordHash       string     `json:"-"`
	ResetTokenHash     string     `json:"-"`
	ResetTokenExpireAt *time.Time `json:"-"`
}

// Actor is the identity the user acts as.
func (u *User) Actor() auth.Actor {
	return auth.Actor{UserID: u.ID, Role: u.Role}
}

// RegisterInput is the body of POST /auth/register. Admin accounts are
// never self-registered.
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=30,username"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72,password_strength"`
	Role     string `json:"role" validate:"omitempty,oneof=TeamManager Viewer"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordInput struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordInput struct {
	Password string `json:"password" validate:"required,min=6,max=72,password_strength"`
}

type UpdateDetailsInput struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=30,username"`
	Email    *string `json:"email" validate:"omitempty,email,max=254"`
}

type UpdatePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,max=72,password_strength"`
}

// Package users manages accounts: registration, login, password reset and
// profile changes. Token issuing stays with the HTTP layer.
package users

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pitchside/server/internal/audit"
	"github.com/pitchside/server/internal/auth"
	"github.com/pitchside/server/internal/domain/ids"
	"github.com/pitchside/server/internal/email"
	"github.com/pitchside/server/internal/metrics"
	"github.com/pitchside/server/internal/storage"
	"github.com/pitchside/server/internal/validation"
)

const (
	// ResetTokenTTL is how long a password reset link stays valid.
	ResetTokenTTL = time.Hour

	resetTokenBytes = 32
)

type Service struct {
	repo      Repository
	notify    email.Dispatcher
	audit     *audit.Logger
	validator *validation.Validator
	clientURL string
	cost      int
	logger    zerolog.Logger
	now       func() time.Time
}

// NewService wires the account service. clientURL is the web client's base
// URL used for reset links.
func NewService(repo Repository, notify email.Dispatcher, auditLogger *audit.Logger, clientURL string, logger zerolog.Logger) *Service {
	if notify == nil {
		notify = email.NopDispatcher{}
	}
	return &Service{
		repo:      repo,
		notify:    notify,
		audit:     auditLogger,
		validator: validation.NewValidator(),
		clientURL: strings.TrimRight(clientURL, "/"),
		cost:      auth.DefaultPasswordCost,
		logger:    logger.With().Str("component", "users").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an active account and sends the welcome email.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	role := auth.RoleViewer
	if in.Role != "" {
		role = auth.Role(in.Role)
	}
	u, err := s.create(ctx, in.Username, in.Email, in.Password, role)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("register", "failure").Inc()
		return nil, err
	}
	metrics.AuthAttempts.WithLabelValues("register", "success").Inc()
	s.notify.Dispatch(ctx, email.Welcome(u.Email, u.Username, string(u.Role)))
	return u, nil
}

func (s *Service) create(ctx context.Context, username, address, password string, role auth.Role) (*User, error) {
	hash, err := auth.HashPassword(password, s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	id, err := ids.NewULID()
	if err != nil {
		return nil, err
	}
	now := s.now()
	u := &User{
		ID:           id,
		Username:     username,
		Email:        address,
		Role:         role,
		IsActive:     true,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// EnsureAdmin creates the bootstrap admin unless an account with that email
// already exists. It reports whether an account was created.
func (s *Service) EnsureAdmin(ctx context.Context, username, address, password string) (bool, error) {
	address = normalizeEmail(address)
	if _, err := s.repo.GetByEmail(ctx, address); err == nil {
		return false, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return false, err
	}
	if _, err := s.create(ctx, strings.TrimSpace(username), address, password, auth.RoleAdmin); err != nil {
		return false, err
	}
	s.logger.Info().Str("email", address).Msg("bootstrap admin created")
	return true, nil
}

// Login checks credentials and stamps lastLogin.
func (s *Service) Login(ctx context.Context, in LoginInput) (*User, error) {
	in.Email = normalizeEmail(in.Email)
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	u, err := s.repo.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			metrics.AuthAttempts.WithLabelValues("login", "failure").Inc()
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(u.PasswordHash, in.Password) {
		metrics.AuthAttempts.WithLabelValues("login", "failure").Inc()
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		metrics.AuthAttempts.WithLabelValues("login", "inactive").Inc()
		return nil, ErrInactive
	}

	now := s.now()
	u.LastLogin = &now
	u.UpdatedAt = now
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	metrics.AuthAttempts.WithLabelValues("login", "success").Inc()
	return u, nil
}

// Authenticate loads the user behind a validated token. Missing and
// deactivated accounts are both unauthorized.
func (s *Service) Authenticate(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, auth.ErrUnauthorized
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrInactive
	}
	return u, nil
}

// Me returns the caller's account.
func (s *Service) Me(ctx context.Context, id string) (*User, error) {
	return s.repo.Get(ctx, id)
}

// ForgotPassword stores a one hour reset token and emails its link.
func (s *Service) ForgotPassword(ctx context.Context, in ForgotPasswordInput) error {
	in.Email = normalizeEmail(in.Email)
	if err := s.validator.Struct(in); err != nil {
		return err
	}
	u, err := s.repo.GetByEmail(ctx, in.Email)
	if err != nil {
		return err
	}

	token, err := newResetToken()
	if err != nil {
		return err
	}
	expires := s.now().Add(ResetTokenTTL)
	u.ResetTokenHash = hashToken(token)
	u.ResetTokenExpireAt = &expires
	u.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, u); err != nil {
		return err
	}

	link := s.clientURL + "/reset-password/" + token
	s.notify.Dispatch(ctx, email.PasswordReset(u.Email, u.Username, link, ResetTokenTTL))
	s.audit.LogSuccess(ctx, "user.password_reset_requested", "user", u.ID, nil)
	return nil
}

// ResetPassword swaps the password of the account holding token and
// invalidates the token.
func (s *Service) ResetPassword(ctx context.Context, token string, in ResetPasswordInput) (*User, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidResetToken
	}
	u, err := s.repo.GetByResetToken(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidResetToken
		}
		return nil, err
	}
	now := s.now()
	if u.ResetTokenExpireAt == nil || now.After(*u.ResetTokenExpireAt) {
		return nil, ErrInvalidResetToken
	}

	hash, err := auth.HashPassword(in.Password, s.cost)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = hash
	u.ResetTokenHash = ""
	u.ResetTokenExpireAt = nil
	u.UpdatedAt = now
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	s.audit.LogSuccess(ctx, "user.password_reset", "user", u.ID, nil)
	return u, nil
}

// UpdateDetails changes the caller's username or email.
func (s *Service) UpdateDetails(ctx context.Context, id string, in UpdateDetailsInput) (*User, error) {
	if in.Username != nil {
		v := strings.TrimSpace(*in.Username)
		in.Username = &v
	}
	if in.Email != nil {
		v := normalizeEmail(*in.Email)
		in.Email = &v
	}
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Username != nil {
		u.Username = *in.Username
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	u.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// UpdatePassword changes the caller's password after checking the current one.
func (s *Service) UpdatePassword(ctx context.Context, id string, in UpdatePasswordInput) (*User, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(u.PasswordHash, in.CurrentPassword) {
		return nil, ErrWrongPassword
	}
	hash, err := auth.HashPassword(in.NewPassword, s.cost)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = hash
	u.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	s.audit.LogSuccess(ctx, "user.password_changed", "user", u.ID, nil)
	return u, nil
}

// Delete removes the caller's account. Teams they manage stay; their
// manager.userId no longer matches anyone.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.LogSuccess(ctx, "user.deleted", "user", id, nil)
	return nil
}

func normalizeEmail(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

func newResetToken() (string, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

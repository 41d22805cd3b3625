package users

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pitchside/server/internal/audit"
	"github.com/pitchside/server/internal/auth"
	"github.com/pitchside/server/internal/email"
	"github.com/pitchside/server/internal/storage"
	"github.com/pitchside/server/internal/validation"
)

type memRepo struct {
	users map[string]User
}

func (m *memRepo) Get(ctx context.Context, id string) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *memRepo) GetByEmail(ctx context.Context, address string) (*User, error) {
	for _, u := range m.users {
		if u.Email == address {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memRepo) GetByResetToken(ctx context.Context, hash string) (*User, error) {
	for _, u := range m.users {
		if u.ResetTokenHash != "" && u.ResetTokenHash == hash {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memRepo) Create(ctx context.Context, u *User) error {
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return &storage.ConflictError{Field: "email"}
		}
		if existing.Username == u.Username {
			return &storage.ConflictError{Field: "username"}
		}
	}
	m.users[u.ID] = *u
	return nil
}

func (m *memRepo) Update(ctx context.Context, u *User) error {
	m.users[u.ID] = *u
	return nil
}

func (m *memRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	return nil
}

type fixture struct {
	svc  *Service
	repo *memRepo
	mail *email.Recorder
	now  time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := &memRepo{users: map[string]User{}}
	rec := &email.Recorder{}
	svc := NewService(repo, rec, audit.Nop(), "https://pitchside.example/", zerolog.Nop())
	svc.cost = bcrypt.MinCost
	f := &fixture{svc: svc, repo: repo, mail: rec, now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	svc.now = func() time.Time { return f.now }
	return f
}

func register(t *testing.T, f *fixture) *User {
	t.Helper()
	u, err := f.svc.Register(context.Background(), RegisterInput{
		Username: "captain_cool",
		Email:    "Captain@Example.com",
		Password: "Wicket#42",
	})
	require.NoError(t, err)
	return u
}

func TestRegisterDefaultsToViewer(t *testing.T) {
	f := newFixture(t)
	u := register(t, f)

	require.Equal(t, auth.RoleViewer, u.Role)
	require.Equal(t, "captain@example.com", u.Email)
	require.True(t, u.IsActive)
	require.NotEqual(t, "Wicket#42", u.PasswordHash)
	require.Equal(t, []email.Kind{email.KindWelcome}, f.mail.Kinds())
}

func TestRegisterRejects(t *testing.T) {
	f := newFixture(t)
	register(t, f)

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Username: "other", Email: "captain@example.com", Password: "Wicket#42",
	})
	var conflict *storage.ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, "email", conflict.Field)

	_, err = f.svc.Register(context.Background(), RegisterInput{
		Username: "x!", Email: "bad", Password: "weak", Role: "Admin",
	})
	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)
	fields := map[string]bool{}
	for _, fe := range verrs {
		fields[fe.Field] = true
	}
	require.True(t, fields["username"])
	require.True(t, fields["email"])
	require.True(t, fields["password"])
	require.True(t, fields["role"])
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	register(t, f)

	u, err := f.svc.Login(context.Background(), LoginInput{Email: "CAPTAIN@example.com", Password: "Wicket#42"})
	require.NoError(t, err)
	require.NotNil(t, u.LastLogin)
	require.Equal(t, f.now, *u.LastLogin)

	_, err = f.svc.Login(context.Background(), LoginInput{Email: "captain@example.com", Password: "wrong"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.ErrorIs(t, err, auth.ErrUnauthorized)

	_, err = f.svc.Login(context.Background(), LoginInput{Email: "nobody@example.com", Password: "Wicket#42"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginInactive(t *testing.T) {
	f := newFixture(t)
	u := register(t, f)
	stored := f.repo.users[u.ID]
	stored.IsActive = false
	f.repo.users[u.ID] = stored

	_, err := f.svc.Login(context.Background(), LoginInput{Email: "captain@example.com", Password: "Wicket#42"})
	require.ErrorIs(t, err, ErrInactive)

	_, err = f.svc.Authenticate(context.Background(), u.ID)
	require.ErrorIs(t, err, auth.ErrUnauthorized)
}

func TestAuthenticateMissingUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Authenticate(context.Background(), "01J00000000000000000000MSS")
	require.ErrorIs(t, err, auth.ErrUnauthorized)
}

func resetToken(t *testing.T, f *fixture) string {
	t.Helper()
	msg := f.mail.Messages[len(f.mail.Messages)-1]
	require.Equal(t, email.KindPasswordReset, msg.Kind)
	link, _ := msg.Data["resetUrl"].(string)
	require.True(t, strings.HasPrefix(link, "https://pitchside.example/reset-password/"))
	return strings.TrimPrefix(link, "https://pitchside.example/reset-password/")
}

func TestForgotAndResetPassword(t *testing.T) {
	f := newFixture(t)
	u := register(t, f)

	require.NoError(t, f.svc.ForgotPassword(context.Background(), ForgotPasswordInput{Email: "captain@example.com"}))
	token := resetToken(t, f)
	require.Len(t, token, 64)
	require.NotEqual(t, token, f.repo.users[u.ID].ResetTokenHash)

	_, err := f.svc.ResetPassword(context.Background(), token, ResetPasswordInput{Password: "Boundary#66"})
	require.NoError(t, err)
	require.Empty(t, f.repo.users[u.ID].ResetTokenHash)

	_, err = f.svc.Login(context.Background(), LoginInput{Email: "captain@example.com", Password: "Boundary#66"})
	require.NoError(t, err)

	_, err = f.svc.ResetPassword(context.Background(), token, ResetPasswordInput{Password: "Another#77"})
	require.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestResetTokenExpires(t *testing.T) {
	f := newFixture(t)
	register(t, f)
	require.NoError(t, f.svc.ForgotPassword(context.Background(), ForgotPasswordInput{Email: "captain@example.com"}))
	token := resetToken(t, f)

	f.now = f.now.Add(ResetTokenTTL + time.Second)
	_, err := f.svc.ResetPassword(context.Background(), token, ResetPasswordInput{Password: "Boundary#66"})
	require.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	f := newFixture(t)
	err := f.svc.ForgotPassword(context.Background(), ForgotPasswordInput{Email: "ghost@example.com"})
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdatePassword(t *testing.T) {
	f := newFixture(t)
	u := register(t, f)

	_, err := f.svc.UpdatePassword(context.Background(), u.ID, UpdatePasswordInput{CurrentPassword: "nope", NewPassword: "Boundary#66"})
	require.ErrorIs(t, err, ErrWrongPassword)

	_, err = f.svc.UpdatePassword(context.Background(), u.ID, UpdatePasswordInput{CurrentPassword: "Wicket#42", NewPassword: "Boundary#66"})
	require.NoError(t, err)
	require.True(t, auth.CheckPassword(f.repo.users[u.ID].PasswordHash, "Boundary#66"))
}

func TestUpdateDetailsAndDelete(t *testing.T) {
	f := newFixture(t)
	u := register(t, f)

	name := "skipper"
	updated, err := f.svc.UpdateDetails(context.Background(), u.ID, UpdateDetailsInput{Username: &name})
	require.NoError(t, err)
	require.Equal(t, "skipper", updated.Username)
	require.Equal(t, "captain@example.com", updated.Email)

	require.NoError(t, f.svc.Delete(context.Background(), u.ID))
	_, err = f.svc.Me(context.Background(), u.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.EnsureAdmin(context.Background(), "admin", "admin@example.com", "Admin#123")
	require.NoError(t, err)
	require.True(t, created)

	created, err = f.svc.EnsureAdmin(context.Background(), "admin", "ADMIN@example.com", "Admin#123")
	require.NoError(t, err)
	require.False(t, created)

	u, err := f.svc.Login(context.Background(), LoginInput{Email: "admin@example.com", Password: "Admin#123"})
	require.NoError(t, err)
	require.Equal(t, auth.RoleAdmin, u.Role)
}

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pitchside/server/internal/api/middleware"
	"github.com/pitchside/server/internal/auth"
	"github.com/pitchside/server/internal/domain/users"
)

type userStub struct {
	UserService
	login func(ctx context.Context, in users.LoginInput) (*users.User, error)
	reset func(ctx context.Context, token string, in users.ResetPasswordInput) (*users.User, error)
	me    func(ctx context.Context, id string) (*users.User, error)
}

func (s userStub) Login(ctx context.Context, in users.LoginInput) (*users.User, error) {
	return s.login(ctx, in)
}

func (s userStub) ResetPassword(ctx context.Context, token string, in users.ResetPasswordInput) (*users.User, error) {
	return s.reset(ctx, token, in)
}

func (s userStub) Me(ctx context.Context, id string) (*users.User, error) { return s.me(ctx, id) }

// Authenticate lets the stub back middleware.Protect too.
func (s userStub) Authenticate(ctx context.Context, id string) (*users.User, error) {
	return s.me(ctx, id)
}

var alice = &users.User{
	ID:       managerActor.UserID,
	Username: "alice",
	Email:    "alice@example.com",
	Role:     auth.RoleTeamManager,
	IsActive: true,
}

type authFixture struct {
	mux      *http.ServeMux
	tokens   *auth.JWTManager
	denylist *auth.Denylist
}

func newAuthFixture(t *testing.T, stub userStub) authFixture {
	t.Helper()
	if stub.me == nil {
		stub.me = func(ctx context.Context, id string) (*users.User, error) {
			if id != alice.ID {
				return nil, users.ErrNotFound
			}
			return alice, nil
		}
	}
	tokens := auth.NewJWTManager([]byte("test-secret-that-is-long-enough-0123456789"), time.Hour, "pitchside-test")
	denylist := auth.NewDenylist(time.Now, time.Minute)
	h := NewAuthHandler(stub, tokens, denylist, false, "test")
	protect := middleware.Protect(tokens, denylist, stub, "test")

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", h.Login)
	mux.HandleFunc("PUT /api/auth/resetpassword/{token}", h.ResetPassword)
	mux.Handle("GET /api/auth/me", protect(http.HandlerFunc(h.Me)))
	mux.Handle("GET /api/auth/logout", protect(http.HandlerFunc(h.Logout)))
	return authFixture{mux: mux, tokens: tokens, denylist: denylist}
}

func TestLoginSetsCookieAndReturnsToken(t *testing.T) {
	f := newAuthFixture(t, userStub{
		login: func(ctx context.Context, in users.LoginInput) (*users.User, error) {
			if in.Password != "Secret1!" {
				return nil, users.ErrInvalidCredentials
			}
			return alice, nil
		},
	})

	rec, body := serve(t, f.mux, auth.Actor{}, http.MethodPost, "/api/auth/login",
		`{"email":"alice@example.com","password":"Secret1!"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, body["success"])
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	require.Equal(t, "alice", body["user"].(map[string]any)["username"])
	require.NotContains(t, rec.Body.String(), "passwordHash")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, middleware.TokenCookie, cookies[0].Name)
	require.Equal(t, token, cookies[0].Value)
	require.True(t, cookies[0].HttpOnly)

	claims, err := f.tokens.Validate(token)
	require.NoError(t, err)
	require.Equal(t, alice.ID, claims.Subject)
}

func TestLoginBadCredentials(t *testing.T) {
	f := newAuthFixture(t, userStub{
		login: func(ctx context.Context, in users.LoginInput) (*users.User, error) {
			return nil, users.ErrInvalidCredentials
		},
	})

	rec, body := serve(t, f.mux, auth.Actor{}, http.MethodPost, "/api/auth/login",
		`{"email":"alice@example.com","password":"wrong"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, false, body["success"])
	require.Empty(t, rec.Result().Cookies())
}

func TestLogoutDeniesToken(t *testing.T) {
	f := newAuthFixture(t, userStub{})
	token, err := f.tokens.Generate(alice.ID, alice.Role)
	require.NoError(t, err)

	call := func(target string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		f.mux.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusOK, call("/api/auth/me").Code)

	rec := call("/api/auth/logout")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"success":true,"data":{}}`, rec.Body.String())
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "none", cookies[0].Value)
	require.Equal(t, 1, f.denylist.Len())

	rec = call("/api/auth/me")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "Not authorized to access this route")
}

func TestMeViaCookie(t *testing.T) {
	f := newAuthFixture(t, userStub{})
	token, err := f.tokens.Generate(alice.ID, alice.Role)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: middleware.TokenCookie, Value: token})
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), `"email":"alice@example.com"`))
}

func TestResetPasswordInvalidToken(t *testing.T) {
	f := newAuthFixture(t, userStub{
		reset: func(ctx context.Context, token string, in users.ResetPasswordInput) (*users.User, error) {
			require.Equal(t, "deadbeef", token)
			return nil, users.ErrInvalidResetToken
		},
	})

	rec, body := serve(t, f.mux, auth.Actor{}, http.MethodPut, "/api/auth/resetpassword/deadbeef", `{"password":"N3w!pass"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Invalid token", body["error"])
}

func TestResetPasswordSendsToken(t *testing.T) {
	f := newAuthFixture(t, userStub{
		reset: func(ctx context.Context, token string, in users.ResetPasswordInput) (*users.User, error) {
			return alice, nil
		},
	})

	rec, body := serve(t, f.mux, auth.Actor{}, http.MethodPut, "/api/auth/resetpassword/cafe", `{"password":"N3w!pass"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, body["token"])
}

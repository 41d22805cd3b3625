package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/csrf"

	"github.com/pitchside/server/internal/api/middleware"
	"github.com/pitchside/server/internal/api/problem"
	"github.com/pitchside/server/internal/api/render"
	"github.com/pitchside/server/internal/auth"
	"github.com/pitchside/server/internal/domain/users"
)

type UserService interface {
	Register(ctx context.Context, in users.RegisterInput) (*users.User, error)
	Login(ctx context.Context, in users.LoginInput) (*users.User, error)
	Me(ctx context.Context, id string) (*users.User, error)
	ForgotPassword(ctx context.Context, in users.ForgotPasswordInput) error
	ResetPassword(ctx context.Context, token string, in users.ResetPasswordInput) (*users.User, error)
	UpdateDetails(ctx context.Context, id string, in users.UpdateDetailsInput) (*users.User, error)
	UpdatePassword(ctx context.Context, id string, in users.UpdatePasswordInput) (*users.User, error)
	Delete(ctx context.Context, id string) error
}

type AuthHandler struct {
	Users        UserService
	Tokens       *auth.JWTManager
	Denylist     *auth.Denylist
	CookieSecure bool
	Env          string
	now          func() time.Time
}

func NewAuthHandler(users UserService, tokens *auth.JWTManager, denylist *auth.Denylist, cookieSecure bool, env string) *AuthHandler {
	return &AuthHandler{
		Users:        users,
		Tokens:       tokens,
		Denylist:     denylist,
		CookieSecure: cookieSecure,
		Env:          env,
		now:          time.Now,
	}
}

type tokenResponse struct {
	Success bool        `json:"success"`
	Token   string      `json:"token"`
	User    *users.User `json:"user"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Data    string `json:"data"`
}

type csrfResponse struct {
	Success   bool   `json:"success"`
	CSRFToken string `json:"csrfToken"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in users.RegisterInput
	if err := decodeJSON(r, &in); err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	u, err := h.Users.Register(r.Context(), in)
	if err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	h.sendToken(w, r, http.StatusOK, u)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in users.LoginInput
	if err := decodeJSON(r, &in); err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	u, err := h.Users.Login(r.Context(), in)
	if err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	h.sendToken(w, r, http.StatusOK, u)
}

// Logout denies the presented token for the rest of its lifetime and
// overwrites the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.revoke(r)
	h.clearCookie(w)
	render.Deleted(w, r)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.Users.Me(r.Context(), actorFrom(r).UserID)
	if err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	render.One(w, r, http.StatusOK, u, nil)
}

func (h *AuthHandler) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	var in users.UpdateDetailsInput
	if err := decodeJSON(r, &in); err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	u, err := h.Users.UpdateDetails(r.Context(), actorFrom(r).UserID, in)
	if err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	render.One(w, r, http.StatusOK, u, nil)
}

// UpdatePassword changes the password and issues a fresh token; the old one
// is denied.
func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var in users.UpdatePasswordInput
	if err := decodeJSON(r, &in); err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	u, err := h.Users.UpdatePassword(r.Context(), actorFrom(r).UserID, in)
	if err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	h.revoke(r)
	h.sendToken(w, r, http.StatusOK, u)
}

func (h *AuthHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	if err := h.Users.Delete(r.Context(), actorFrom(r).UserID); err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	h.revoke(r)
	h.clearCookie(w)
	render.Deleted(w, r)
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var in users.ForgotPasswordInput
	if err := decodeJSON(r, &in); err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	if err := h.Users.ForgotPassword(r.Context(), in); err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	render.JSON(w, r, http.StatusOK, messageResponse{Success: true, Data: "Email sent"})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var in users.ResetPasswordInput
	if err := decodeJSON(r, &in); err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	u, err := h.Users.ResetPassword(r.Context(), pathParam(r, "token"), in)
	if err != nil {
		if errors.Is(err, users.ErrInvalidResetToken) {
			problem.Write(w, r, http.StatusBadRequest, "Invalid token", err, h.Env)
			return
		}
		problem.Error(w, r, err, h.Env)
		return
	}
	h.sendToken(w, r, http.StatusOK, u)
}

// CSRF returns the token cookie-authenticated clients must echo in the
// X-CSRF-Token header. Mount behind middleware.CSRFIssuer.
func (h *AuthHandler) CSRF(w http.ResponseWriter, r *http.Request) {
	token := csrf.Token(r)
	w.Header().Set(middleware.CSRFHeader, token)
	render.JSON(w, r, http.StatusOK, csrfResponse{Success: true, CSRFToken: token})
}

func (h *AuthHandler) sendToken(w http.ResponseWriter, r *http.Request, status int, u *users.User) {
	token, err := h.Tokens.Generate(u.ID, u.Role)
	if err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  h.now().Add(h.Tokens.Expiry()),
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	render.JSON(w, r, status, tokenResponse{Success: true, Token: token, User: u})
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "none",
		Path:     "/",
		Expires:  h.now().Add(10 * time.Second),
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) revoke(r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())
	if claims == nil || h.Denylist == nil {
		return
	}
	h.Denylist.Add(claims.TokenID(), claims.Expiry())
}

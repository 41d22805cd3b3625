package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/pitchside/server/internal/api/problem"
	"github.com/pitchside/server/internal/auth"
	"github.com/pitchside/server/internal/domain/users"
)

// TokenCookie holds the session JWT for browser clients.
const TokenCookie = "token"

// UserLoader resolves the subject of a valid token to a live account.
type UserLoader interface {
	Authenticate(ctx context.Context, id string) (*users.User, error)
}

type claimsKey struct{}

// Protect requires a valid, non-denylisted token for an active user. The
// bearer header wins over the cookie. On success the acting user is stored
// with auth.WithActor and the token claims with WithClaims.
func Protect(tokens *auth.JWTManager, denylist *auth.Denylist, loader UserLoader, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := authenticate(r, tokens, denylist)
			if err != nil {
				unauthorized(w, r, err, env)
				return
			}
			user, err := loader.Authenticate(r.Context(), claims.Subject)
			if err != nil {
				unauthorized(w, r, err, env)
				return
			}

			ctx := auth.WithActor(r.Context(), user.Actor())
			ctx = WithClaims(ctx, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(r *http.Request, tokens *auth.JWTManager, denylist *auth.Denylist) (*auth.Claims, error) {
	raw := requestToken(r)
	if raw == "" {
		return nil, auth.ErrMissingToken
	}
	claims, err := tokens.Validate(raw)
	if err != nil {
		return nil, err
	}
	if denylist != nil && denylist.Contains(claims.TokenID()) {
		return nil, auth.ErrInvalidToken
	}
	return claims, nil
}

// requestToken reads "Authorization: Bearer x" and falls back to the cookie.
// Logout overwrites the cookie with "none".
func requestToken(r *http.Request) string {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		if token, err := auth.TokenFromHeader(header); err == nil {
			return token
		}
	}
	cookie, err := r.Cookie(TokenCookie)
	if err != nil || cookie.Value == "none" {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}

func unauthorized(w http.ResponseWriter, r *http.Request, err error, env string) {
	switch {
	case errors.Is(err, auth.ErrUnauthorized),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		problem.Write(w, r, http.StatusUnauthorized, "Not authorized to access this route", err, env)
	default:
		problem.Error(w, r, err, env)
	}
}

// WithClaims stores the validated token claims on ctx.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFrom returns the claims stored by Protect, or nil.
func ClaimsFrom(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey{}).(*auth.Claims)
	return claims
}

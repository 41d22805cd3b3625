package middleware

import (
	"net/http"
	"strings"

	"github.com/gorilla/csrf"

	"github.com/pitchside/server/internal/api/problem"
)

// CSRFHeader carries the token returned by GET /api/auth/csrf.
const CSRFHeader = "X-CSRF-Token"

// CSRF guards requests authenticated by the token cookie. Requests carrying
// a bearer header, or no session cookie at all, cannot be forged by a third
// party site and pass straight through. Safe methods are never checked.
func CSRF(authKey []byte, secure bool) func(http.Handler) http.Handler {
	protect := csrf.Protect(authKey,
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.RequestHeader(CSRFHeader),
		csrf.ErrorHandler(http.HandlerFunc(csrfFailure)),
	)

	return func(next http.Handler) http.Handler {
		protected := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cookieAuthenticated(r) {
				next.ServeHTTP(w, r)
				return
			}
			if !secure {
				r = csrf.PlaintextHTTPRequest(r)
			}
			protected.ServeHTTP(w, r)
		})
	}
}

// CSRFIssuer runs gorilla/csrf on a route so the handler can read the masked
// token with csrf.Token. Only mount it on safe methods.
func CSRFIssuer(authKey []byte, secure bool) func(http.Handler) http.Handler {
	protect := csrf.Protect(authKey,
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.RequestHeader(CSRFHeader),
	)
	return func(next http.Handler) http.Handler {
		protected := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !secure {
				r = csrf.PlaintextHTTPRequest(r)
			}
			protected.ServeHTTP(w, r)
		})
	}
}

func cookieAuthenticated(r *http.Request) bool {
	if strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		return false
	}
	cookie, err := r.Cookie(TokenCookie)
	return err == nil && cookie.Value != "" && cookie.Value != "none"
}

func csrfFailure(w http.ResponseWriter, r *http.Request) {
	problem.Write(w, r, http.StatusForbidden, "CSRF token validation failed", csrf.FailureReason(r), "")
}

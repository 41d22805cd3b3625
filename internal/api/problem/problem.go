// Package problem writes error responses in the API's failure envelope:
// {"success": false, "error": "..."} or, for rejected input,
// {"success": false, "errors": [{"field": ..., "message": ...}]}.
package problem

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/pitchside/server/internal/auth"
	"github.com/pitchside/server/internal/storage"
	"github.com/pitchside/server/internal/validation"
)

const contentType = "application/json"

// Body is the failure envelope. Error holds a string or a list of strings.
type Body struct {
	Success bool                    `json:"success"`
	Error   any                     `json:"error,omitempty"`
	Errors  []validation.FieldError `json:"errors,omitempty"`
}

// Write sends status with message. err is logged (5xx at error level, 4xx at
// warn) and, outside development and test, never shown to the client.
func Write(w http.ResponseWriter, r *http.Request, status int, message string, err error, env string) {
	if message == "" {
		if err != nil && showDetail(env) {
			message = err.Error()
		} else {
			message = http.StatusText(status)
		}
	}
	logFailure(r, status, message, err)
	writeBody(w, status, Body{Error: message})
}

// Validation sends 400 with one entry per rejected field.
func Validation(w http.ResponseWriter, r *http.Request, errs validation.Errors) {
	logFailure(r, http.StatusBadRequest, "validation failed", errs)
	writeBody(w, http.StatusBadRequest, Body{Errors: errs})
}

// Error maps a domain error to its status and writes it.
func Error(w http.ResponseWriter, r *http.Request, err error, env string) {
	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		Validation(w, r, fieldErrs)
		return
	}

	var conflict *storage.ConflictError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &conflict):
		Write(w, r, http.StatusConflict, conflictMessage(conflict), err, env)
	case errors.Is(err, storage.ErrConflict):
		Write(w, r, http.StatusConflict, err.Error(), err, env)
	case errors.Is(err, storage.ErrNotFound):
		Write(w, r, http.StatusNotFound, err.Error(), err, env)
	case errors.Is(err, auth.ErrForbidden):
		Write(w, r, http.StatusForbidden, "Not authorized to perform this action", err, env)
	case errors.Is(err, auth.ErrUnauthorized),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrMissingToken):
		Write(w, r, http.StatusUnauthorized, unauthorizedMessage(err), err, env)
	case errors.As(err, &tooLarge):
		Write(w, r, http.StatusRequestEntityTooLarge, "Request body too large", err, env)
	default:
		Write(w, r, http.StatusInternalServerError, "", err, env)
	}
}

func conflictMessage(c *storage.ConflictError) string {
	if c.Field == "" {
		return "Duplicate field value entered"
	}
	return "Duplicate value for " + c.Field
}

// Token problems share one message so clients cannot probe which check failed.
func unauthorizedMessage(err error) string {
	if errors.Is(err, auth.ErrUnauthorized) {
		return err.Error()
	}
	return "Not authorized to access this route"
}

func showDetail(env string) bool {
	return env == "development" || env == "test"
}

func logFailure(r *http.Request, status int, message string, err error) {
	if r == nil || status < 400 {
		return
	}
	logger := zerolog.Ctx(r.Context())
	var event *zerolog.Event
	if status >= 500 {
		event = logger.Error()
	} else {
		event = logger.Warn()
	}
	event.
		Err(err).
		Int("status", status).
		Str("path", r.URL.Path).
		Str("method", r.Method).
		Msg(message)
}

func writeBody(w http.ResponseWriter, status int, body Body) {
	body.Success = false
	payload, err := json.Marshal(body)
	if err != nil {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"error":"Server Error"}`))
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}

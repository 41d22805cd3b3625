package storage

import (
	"context"
	"errors"
)

// ErrNotFound is wrapped by every domain's not-found sentinel so transport
// code can map them with one errors.Is check.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned by stores when a write would break a uniqueness
// rule. Wrapped errors carry the offending field.
var ErrConflict = errors.New("conflict")

// ConflictError names the field that collided.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	if e.Field == "" {
		return "duplicate value"
	}
	return "duplicate value for " + e.Field
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// Transactor runs fn inside one transaction. Repositories used with the ctx
// passed to fn join that transaction; nested calls reuse it.
type Transactor interface {
	WithTx(ctx context.Context, fn func(context.Context) error) error
}

// NoTx runs fn directly. Used by tests and stores without transactions.
type NoTx struct{}

func (NoTx) WithTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

package tournaments

import (
	"context"
	"fmt"
	"time"

	"github.com/pitchside/server/internal/domain/query"
	"github.com/pitchside/server/internal/storage"
)

var (
	ErrNotFound           = fmt.Errorf("tournament %w", storage.ErrNotFound)
	ErrNotRegistered      = fmt.Errorf("team is not registered for this tournament: %w", storage.ErrNotFound)
	ErrRegistrationClosed = fmt.Errorf("registration deadline has passed: %w", storage.ErrConflict)
	ErrAlreadyRegistered  = fmt.Errorf("team is already registered for this tournament: %w", storage.ErrConflict)
)

// Repository stores tournaments. Reads include the registrations in Teams.
type Repository interface {
	List(ctx context.Context, spec query.Spec) ([]Tournament, int, error)
	Get(ctx context.Context, id string) (*Tournament, error)
	Lock(ctx context.Context, id string) (*Tournament, error)
	Create(ctx context.Context, t *Tournament) error
	Update(ctx context.Context, t *Tournament) error
	// Delete removes the tournament, its registrations and its matches.
	Delete(ctx context.Context, id string) error
	AddEntry(ctx context.Context, tournamentID string, r Registration, at time.Time) error
	SetEntryStatus(ctx context.Context, tournamentID, teamID, status string, at time.Time) error
	// Refreshable lists tournaments whose status may still change with time.
	Refreshable(ctx context.Context) ([]Tournament, error)
	SetStatus(ctx context.Context, id, status string, at time.Time) error
}

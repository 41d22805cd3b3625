package matches

import (
	"context"
	"fmt"

	"github.com/pitchside/server/internal/domain/query"
	"github.com/pitchside/server/internal/domain/stats"
	"github.com/pitchside/server/internal/storage"
)

var ErrNotFound = fmt.Errorf("match %w", storage.ErrNotFound)

// ErrTournamentNotFound is returned when a match names an unknown tournament.
var ErrTournamentNotFound = fmt.Errorf("tournament %w", storage.ErrNotFound)

type Repository interface {
	List(ctx context.Context, spec query.Spec) ([]Match, int, error)
	Get(ctx context.Context, id string) (*Match, error)
	Lock(ctx context.Context, id string) (*Match, error)
	Create(ctx context.Context, m *Match) error
	Update(ctx context.Context, m *Match) error
	Delete(ctx context.Context, id string) error
	// Innings returns every innings recorded in a tournament's matches.
	Innings(ctx context.Context, tournamentID string) ([]stats.Innings, error)
	// StatusCounts counts a tournament's matches per status.
	StatusCounts(ctx context.Context, tournamentID string) (map[string]int, error)
}

// TournamentChecker confirms a tournament exists. It returns
// ErrTournamentNotFound (or any error wrapping storage.ErrNotFound) when not.
type TournamentChecker interface {
	TournamentExists(ctx context.Context, id string) error
}

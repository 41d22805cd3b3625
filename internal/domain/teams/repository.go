package teams

import (
	"context"
	"fmt"
	"time"

	"github.com/pitchside/server/internal/domain/query"
	"github.com/pitchside/server/internal/domain/stats"
	"github.com/pitchside/server/internal/storage"
)

var ErrNotFound = fmt.Errorf("team %w", storage.ErrNotFound)

// Repository stores teams. Reads return the roster in Players.
type Repository interface {
	List(ctx context.Context, spec query.Spec) ([]Team, int, error)
	Get(ctx context.Context, id string) (*Team, error)
	// Lock reads a team and holds a row lock until the surrounding
	// transaction ends.
	Lock(ctx context.Context, id string) (*Team, error)
	GetMany(ctx context.Context, ids []string) ([]Team, error)
	Create(ctx context.Context, team *Team) error
	Update(ctx context.Context, team *Team) error
	Delete(ctx context.Context, id string) error
	Touch(ctx context.Context, id string, at time.Time) error
	SaveStats(ctx context.Context, id string, st stats.TeamStats, at time.Time) error
}

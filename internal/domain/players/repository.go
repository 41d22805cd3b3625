package players

import (
	"context"
	"fmt"
	"time"

	"github.com/pitchside/server/internal/domain/query"
	"github.com/pitchside/server/internal/storage"
)

var (
	ErrNotFound  = fmt.Errorf("player %w", storage.ErrNotFound)
	ErrNotOnTeam = fmt.Errorf("player is not on this team: %w", storage.ErrNotFound)
)

type Repository interface {
	List(ctx context.Context, spec query.Spec) ([]Player, int, error)
	Get(ctx context.Context, id string) (*Player, error)
	// Lock reads a player and holds its row until the transaction ends.
	Lock(ctx context.Context, id string) (*Player, error)
	Create(ctx context.Context, p *Player) error
	Update(ctx context.Context, p *Player) error
	Delete(ctx context.Context, id string) error
	SaveStats(ctx context.Context, id string, st Stats, at time.Time) error
	// Names maps player ids to names; unknown ids are left out.
	Names(ctx context.Context, ids []string) (map[string]string, error)
}

package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	ownerID    = "01HYX3KQW7ERTV9XNBM2P8QJZF"
	strangerID = "01HYX3KQW7ERTV9XNBM2P8QJZG"
)

func TestCanManageTeam(t *testing.T) {
	tests := []struct {
		name  string
		actor Actor
		allow bool
	}{
		{"admin always", Actor{UserID: strangerID, Role: RoleAdmin}, true},
		{"owning manager", Actor{UserID: ownerID, Role: RoleTeamManager}, true},
		{"owning manager different case", Actor{UserID: "01hyx3kqw7ertv9xnbm2p8qjzf", Role: RoleTeamManager}, true},
		{"other manager", Actor{UserID: strangerID, Role: RoleTeamManager}, false},
		{"viewer even if id matches", Actor{UserID: ownerID, Role: RoleViewer}, false},
		{"manager without id", Actor{Role: RoleTeamManager}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanManageTeam(tt.actor, ownerID)
			if tt.allow {
				require.NoError(t, err)
				require.NoError(t, CanManagePlayer(tt.actor, ownerID))
				return
			}
			require.ErrorIs(t, err, ErrForbidden)
			require.ErrorIs(t, CanManagePlayer(tt.actor, ownerID), ErrForbidden)
		})
	}
}

func TestEmptyOwnerNeverMatches(t *testing.T) {
	require.ErrorIs(t, CanManageTeam(Actor{Role: RoleTeamManager}, ""), ErrForbidden)
}

func TestCanCreateTeam(t *testing.T) {
	require.NoError(t, CanCreateTeam(Actor{Role: RoleAdmin}))
	require.NoError(t, CanCreateTeam(Actor{Role: RoleTeamManager}))
	require.ErrorIs(t, CanCreateTeam(Actor{Role: RoleViewer}), ErrForbidden)
}

func TestRequireAdmin(t *testing.T) {
	require.NoError(t, RequireAdmin(Actor{Role: RoleAdmin}))
	require.ErrorIs(t, RequireAdmin(Actor{UserID: ownerID, Role: RoleTeamManager}), ErrForbidden)
	require.ErrorIs(t, RequireAdmin(Actor{Role: RoleViewer}), ErrForbidden)
}

func TestActorContext(t *testing.T) {
	_, ok := ActorFrom(context.Background())
	require.False(t, ok)

	ctx := WithActor(context.Background(), Actor{UserID: ownerID, Role: RoleTeamManager})
	got, ok := ActorFrom(ctx)
	require.True(t, ok)
	require.Equal(t, ownerID, got.UserID)
}

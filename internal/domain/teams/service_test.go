package teams

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/pitchside/server/internal/auth"
	"github.com/pitchside/server/internal/domain/ids"
	"github.com/pitchside/server/internal/domain/query"
	"github.com/pitchside/server/internal/domain/stats"
	"github.com/pitchside/server/internal/email"
	"github.com/pitchside/server/internal/storage"
	"github.com/pitchside/server/internal/validation"
)

type memRepo struct {
	teams map[string]Team
}

func newMemRepo() *memRepo { return &memRepo{teams: map[string]Team{}} }

func (m *memRepo) List(ctx context.Context, spec query.Spec) ([]Team, int, error) {
	out := make([]Team, 0, len(m.teams))
	for _, t := range m.teams {
		out = append(out, t)
	}
	return out, len(out), nil
}

func (m *memRepo) Get(ctx context.Context, id string) (*Team, error) {
	t, ok := m.teams[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (m *memRepo) Lock(ctx context.Context, id string) (*Team, error) { return m.Get(ctx, id) }

func (m *memRepo) GetMany(ctx context.Context, teamIDs []string) ([]Team, error) {
	var out []Team
	for _, id := range teamIDs {
		if t, ok := m.teams[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memRepo) Create(ctx context.Context, team *Team) error {
	for _, t := range m.teams {
		if t.Name == team.Name {
			return &storage.ConflictError{Field: "name"}
		}
	}
	m.teams[team.ID] = *team
	return nil
}

func (m *memRepo) Update(ctx context.Context, team *Team) error {
	m.teams[team.ID] = *team
	return nil
}

func (m *memRepo) Delete(ctx context.Context, id string) error {
	delete(m.teams, id)
	return nil
}

func (m *memRepo) Touch(ctx context.Context, id string, at time.Time) error {
	t := m.teams[id]
	t.UpdatedAt = at
	m.teams[id] = t
	return nil
}

func (m *memRepo) SaveStats(ctx context.Context, id string, st stats.TeamStats, at time.Time) error {
	t := m.teams[id]
	t.Stats = st
	m.teams[id] = t
	return nil
}

var (
	admin   = auth.Actor{UserID: "01J0000000000000000000ADMN", Role: auth.RoleAdmin}
	owner   = auth.Actor{UserID: "01J00000000000000000000WNR", Role: auth.RoleTeamManager}
	rival   = auth.Actor{UserID: "01J0000000000000000000RVAL", Role: auth.RoleTeamManager}
	watcher = auth.Actor{UserID: "01J0000000000000000000VWER", Role: auth.RoleViewer}
)

func newService(t *testing.T) (*Service, *memRepo, *email.Recorder) {
	t.Helper()
	repo := newMemRepo()
	rec := &email.Recorder{}
	return NewService(repo, storage.NoTx{}, rec, zerolog.Nop()), repo, rec
}

func validInput() CreateInput {
	return CreateInput{
		Name:      "Mumbai Mavericks",
		ShortName: "mum",
		Manager:   ManagerInput{Name: "Asha Rao", Contact: "asha@example.com"},
	}
}

func TestCreateAssignsManagerAndNotifies(t *testing.T) {
	svc, _, rec := newService(t)

	team, err := svc.Create(context.Background(), owner, validInput())
	require.NoError(t, err)
	require.True(t, ids.IsULID(team.ID))
	require.Equal(t, "MUM", team.ShortName)
	require.Equal(t, owner.UserID, team.Manager.UserID)
	require.True(t, team.IsActive)
	require.Equal(t, []email.Kind{email.KindTeamUpdate}, rec.Kinds())
	require.Equal(t, UpdateTeamCreation, rec.Messages[0].Data["updateType"])
}

func TestCreateRejectsViewer(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.Create(context.Background(), watcher, validInput())
	require.ErrorIs(t, err, auth.ErrForbidden)
}

func TestCreateValidates(t *testing.T) {
	svc, _, rec := newService(t)
	in := validInput()
	in.Name = "X"
	in.ShortName = "TOOLONG"
	in.Manager.Contact = "not-an-email"

	_, err := svc.Create(context.Background(), admin, in)
	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)
	fields := map[string]bool{}
	for _, fe := range verrs {
		fields[fe.Field] = true
	}
	require.True(t, fields["name"])
	require.True(t, fields["shortName"])
	require.True(t, fields["manager.contact"])
	require.Empty(t, rec.Messages)
}

func TestCreateDuplicateNameIsConflict(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.Create(context.Background(), owner, validInput())
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), admin, validInput())
	require.ErrorIs(t, err, storage.ErrConflict)
}

func TestUpdateOwnership(t *testing.T) {
	svc, _, rec := newService(t)
	team, err := svc.Create(context.Background(), owner, validInput())
	require.NoError(t, err)

	name := "Mumbai Monsoons"
	_, err = svc.Update(context.Background(), rival, team.ID, UpdateInput{Name: &name})
	require.ErrorIs(t, err, auth.ErrForbidden)

	_, err = svc.Update(context.Background(), watcher, team.ID, UpdateInput{Name: &name})
	require.ErrorIs(t, err, auth.ErrForbidden)

	got, err := svc.Get(context.Background(), team.ID)
	require.NoError(t, err)
	require.Equal(t, "Mumbai Mavericks", got.Name, "public read still works")

	updated, err := svc.Update(context.Background(), owner, team.ID, UpdateInput{Name: &name})
	require.NoError(t, err)
	require.Equal(t, name, updated.Name)
	require.Equal(t, owner.UserID, updated.Manager.UserID)
	require.Equal(t, []email.Kind{email.KindTeamUpdate, email.KindTeamUpdate}, rec.Kinds())
}

func TestUpdateStatsIsAdminOnly(t *testing.T) {
	svc, _, _ := newService(t)
	team, err := svc.Create(context.Background(), owner, validInput())
	require.NoError(t, err)

	st := stats.TeamStats{Points: 4, NetRunRate: 1.25}
	_, err = svc.Update(context.Background(), owner, team.ID, UpdateInput{Stats: &st})
	require.ErrorIs(t, err, auth.ErrForbidden)

	updated, err := svc.Update(context.Background(), admin, team.ID, UpdateInput{Stats: &st})
	require.NoError(t, err)
	require.Equal(t, 4, updated.Stats.Points)
}

func TestMissingTeamIsNotFoundBeforeForbidden(t *testing.T) {
	svc, _, _ := newService(t)
	missing, err := ids.NewULID()
	require.NoError(t, err)

	name := "Anything"
	_, err = svc.Update(context.Background(), rival, missing, UpdateInput{Name: &name})
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, err, storage.ErrNotFound)

	err = svc.Delete(context.Background(), watcher, missing)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Get(context.Background(), "507f1f77bcf86cd799439011")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteIsAdminOnly(t *testing.T) {
	svc, repo, _ := newService(t)
	team, err := svc.Create(context.Background(), owner, validInput())
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(context.Background(), owner, team.ID), auth.ErrForbidden)
	require.NoError(t, svc.Delete(context.Background(), admin, team.ID))
	require.Empty(t, repo.teams)
}

func TestStatsView(t *testing.T) {
	team := &Team{
		Stats: stats.TeamStats{MatchesPlayed: 3, MatchesWon: 2, MatchesLost: 1},
		Players: []Member{
			{ID: "a", PlayerType: PlayerTypeBatsman},
			{ID: "b", PlayerType: PlayerTypeBatsman},
			{ID: "c", PlayerType: PlayerTypeBowler},
			{ID: "d", PlayerType: PlayerTypeWicketKeeper},
		},
	}
	view := NewStatsView(team)
	require.Equal(t, 4, view.TotalPlayers)
	require.Equal(t, 66.67, view.WinPercentage)
	require.Equal(t, PlayerCategories{Batsmen: 2, Bowlers: 1, WicketKeepers: 1}, view.PlayerCategories)

	require.Equal(t, 0.0, NewStatsView(&Team{}).WinPercentage)
}

func TestNotifyManagerSkipsMissingContact(t *testing.T) {
	svc, _, rec := newService(t)
	svc.NotifyManager(context.Background(), &Team{Name: "Lions"}, UpdateTeamDetails, "x")
	svc.NotifyManager(context.Background(), nil, UpdateTeamDetails, "x")
	require.Empty(t, rec.Messages)
}

func TestAuthorize(t *testing.T) {
	svc, _, _ := newService(t)
	team, err := svc.Create(context.Background(), owner, validInput())
	require.NoError(t, err)

	_, err = svc.Authorize(context.Background(), rival, team.ID)
	require.True(t, errors.Is(err, auth.ErrForbidden))

	got, err := svc.Authorize(context.Background(), admin, team.ID)
	require.NoError(t, err)
	require.Equal(t, team.ID, got.ID)
}

func TestRecordResultUpdatesBothTeams(t *testing.T) {
	svc, repo, _ := newService(t)
	home, err := svc.Create(context.Background(), owner, validInput())
	require.NoError(t, err)
	in := validInput()
	in.Name = "Pune Panthers"
	in.ShortName = "PUN"
	away, err := svc.Create(context.Background(), rival, in)
	require.NoError(t, err)

	seeded := repo.teams[home.ID]
	seeded.Stats.Points = 6
	repo.teams[home.ID] = seeded

	require.NoError(t, svc.RecordResult(context.Background(), away.ID, home.ID))

	require.Equal(t, stats.TeamStats{MatchesPlayed: 1, MatchesWon: 1}, repo.teams[away.ID].Stats)
	require.Equal(t, stats.TeamStats{MatchesPlayed: 1, MatchesLost: 1, Points: 6}, repo.teams[home.ID].Stats)
}

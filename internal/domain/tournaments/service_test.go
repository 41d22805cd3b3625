package tournaments

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/pitchside/server/internal/auth"
	"github.com/pitchside/server/internal/domain/matches"
	"github.com/pitchside/server/internal/domain/query"
	"github.com/pitchside/server/internal/domain/stats"
	"github.com/pitchside/server/internal/domain/teams"
	"github.com/pitchside/server/internal/email"
	"github.com/pitchside/server/internal/storage"
	"github.com/pitchside/server/internal/validation"
)

type memRepo struct {
	items map[string]Tournament
}

func (m *memRepo) List(ctx context.Context, spec query.Spec) ([]Tournament, int, error) {
	var out []Tournament
	for _, t := range m.items {
		out = append(out, t)
	}
	return out, len(out), nil
}

func (m *memRepo) Get(ctx context.Context, id string) (*Tournament, error) {
	t, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	t.Teams = append([]Registration(nil), t.Teams...)
	return &t, nil
}

func (m *memRepo) Lock(ctx context.Context, id string) (*Tournament, error) { return m.Get(ctx, id) }

func (m *memRepo) Create(ctx context.Context, t *Tournament) error {
	for _, existing := range m.items {
		if existing.Name == t.Name {
			return &storage.ConflictError{Field: "name"}
		}
	}
	m.items[t.ID] = *t
	return nil
}

func (m *memRepo) Update(ctx context.Context, t *Tournament) error {
	m.items[t.ID] = *t
	return nil
}

func (m *memRepo) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	return nil
}

func (m *memRepo) AddEntry(ctx context.Context, id string, r Registration, at time.Time) error {
	t := m.items[id]
	t.Teams = append(t.Teams, r)
	m.items[id] = t
	return nil
}

func (m *memRepo) SetEntryStatus(ctx context.Context, id, teamID, status string, at time.Time) error {
	t := m.items[id]
	for i := range t.Teams {
		if t.Teams[i].TeamID == teamID {
			t.Teams[i].Status = status
		}
	}
	m.items[id] = t
	return nil
}

func (m *memRepo) Refreshable(ctx context.Context) ([]Tournament, error) {
	var out []Tournament
	for _, t := range m.items {
		if t.Status != StatusCancelled && t.Status != StatusCompleted {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memRepo) SetStatus(ctx context.Context, id, status string, at time.Time) error {
	t := m.items[id]
	t.Status = status
	m.items[id] = t
	return nil
}

type teamRepo struct {
	teams map[string]teams.Team
}

func (r *teamRepo) List(context.Context, query.Spec) ([]teams.Team, int, error) { return nil, 0, nil }

func (r *teamRepo) Get(ctx context.Context, id string) (*teams.Team, error) {
	t, ok := r.teams[id]
	if !ok {
		return nil, teams.ErrNotFound
	}
	return &t, nil
}

func (r *teamRepo) Lock(ctx context.Context, id string) (*teams.Team, error) { return r.Get(ctx, id) }

func (r *teamRepo) GetMany(ctx context.Context, teamIDs []string) ([]teams.Team, error) {
	var out []teams.Team
	for _, id := range teamIDs {
		if t, ok := r.teams[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *teamRepo) Create(context.Context, *teams.Team) error                           { return nil }
func (r *teamRepo) Update(context.Context, *teams.Team) error                           { return nil }
func (r *teamRepo) Delete(context.Context, string) error                                { return nil }
func (r *teamRepo) Touch(context.Context, string, time.Time) error                      { return nil }
func (r *teamRepo) SaveStats(context.Context, string, stats.TeamStats, time.Time) error { return nil }

// matchRepo serves canned per-tournament aggregates.
type matchRepo struct {
	innings []stats.Innings
	counts  map[string]int
}

func (r *matchRepo) List(context.Context, query.Spec) ([]matches.Match, int, error) { return nil, 0, nil }
func (r *matchRepo) Get(context.Context, string) (*matches.Match, error)            { return nil, matches.ErrNotFound }
func (r *matchRepo) Lock(context.Context, string) (*matches.Match, error)           { return nil, matches.ErrNotFound }
func (r *matchRepo) Create(context.Context, *matches.Match) error                   { return nil }
func (r *matchRepo) Update(context.Context, *matches.Match) error                   { return nil }
func (r *matchRepo) Delete(context.Context, string) error                           { return nil }

func (r *matchRepo) Innings(context.Context, string) ([]stats.Innings, error) { return r.innings, nil }

func (r *matchRepo) StatusCounts(context.Context, string) (map[string]int, error) {
	return r.counts, nil
}

type nameSet map[string]string

func (n nameSet) Names(ctx context.Context, playerIDs []string) (map[string]string, error) {
	return n, nil
}

const (
	eagles = "01J00000000000000000000E61"
	hawks  = "01J00000000000000000000HWK"
	absent = "01J00000000000000000000MSS"
)

var (
	admin = auth.Actor{UserID: "01J0000000000000000000ADMN", Role: auth.RoleAdmin}
	owner = auth.Actor{UserID: "01J00000000000000000000WNR", Role: auth.RoleTeamManager}
	rival = auth.Actor{UserID: "01J0000000000000000000RVAL", Role: auth.RoleTeamManager}
)

type fixture struct {
	svc     *Service
	repo    *memRepo
	matches *matchRepo
	mail    *email.Recorder
	now     time.Time
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	tr := &teamRepo{teams: map[string]teams.Team{
		eagles: {
			ID: eagles, Name: "Eagles",
			Manager: teams.Manager{Name: "Nia", Contact: "nia@example.com", UserID: owner.UserID},
			Stats:   stats.TeamStats{MatchesPlayed: 2, MatchesWon: 2, Points: 4, NetRunRate: 1.1},
		},
		hawks: {
			ID: hawks, Name: "Hawks",
			Manager: teams.Manager{Name: "Omar", Contact: "omar@example.com", UserID: rival.UserID},
			Stats:   stats.TeamStats{MatchesPlayed: 2, MatchesLost: 2},
		},
	}}
	rec := &email.Recorder{}
	teamSvc := teams.NewService(tr, storage.NoTx{}, rec, zerolog.Nop())
	mr := &matchRepo{counts: map[string]int{}}
	matchSvc := matches.NewService(mr, teamSvc, nil, storage.NoTx{}, rec, zerolog.Nop())
	repo := &memRepo{items: map[string]Tournament{}}
	svc := NewService(repo, teamSvc, matchSvc, nameSet{"p1": "Kane", "p2": "Root"}, storage.NoTx{}, rec, zerolog.Nop())
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return fixture{svc: svc, repo: repo, matches: mr, mail: rec, now: now}
}

func validTournament(now time.Time) CreateInput {
	overs := 20
	return CreateInput{
		Name:                 "Spring Cup",
		Season:               "2024",
		Format:               FormatT20,
		Overs:                &overs,
		RegistrationDeadline: now.AddDate(0, 0, 7),
		StartDate:            now.AddDate(0, 0, 10),
		EndDate:              now.AddDate(0, 0, 30),
		Organizer:            Organizer{Name: "City Cricket Board"},
	}
}

func createTournament(t *testing.T, f fixture) *Tournament {
	t.Helper()
	tr, err := f.svc.Create(context.Background(), admin, validTournament(f.now))
	require.NoError(t, err)
	return tr
}

func TestCreateDefaults(t *testing.T) {
	f := newFixture(t)
	tr := createTournament(t, f)

	require.Equal(t, StatusDraft, tr.Status)
	require.Equal(t, DefaultPoints, tr.PointsSystem)
	require.Equal(t, "USD", tr.PrizeMoney.Currency)
	require.Equal(t, 2, tr.QualificationRules.TeamsPerGroup)
	require.Equal(t, 20, tr.DurationDays)
	require.True(t, tr.IsRegistrationOpen)
}

func TestCreateRules(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), owner, validTournament(f.now))
	require.ErrorIs(t, err, auth.ErrForbidden)

	in := validTournament(f.now)
	in.Overs = nil
	in.EndDate = in.StartDate.Add(-time.Hour)
	_, err = f.svc.Create(context.Background(), admin, in)
	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs, 2)

	in = validTournament(f.now)
	in.Format = FormatTest
	in.Overs = nil
	_, err = f.svc.Create(context.Background(), admin, in)
	require.NoError(t, err)
}

func TestGetRefreshesStatus(t *testing.T) {
	f := newFixture(t)
	tr := createTournament(t, f)

	got, err := f.svc.Get(context.Background(), tr.ID)
	require.NoError(t, err)
	require.Equal(t, StatusRegistration, got.Status)
	require.Equal(t, StatusRegistration, f.repo.items[tr.ID].Status)
}

func TestRegisterAsManagerIsPending(t *testing.T) {
	f := newFixture(t)
	tr := createTournament(t, f)

	got, err := f.svc.Register(context.Background(), owner, tr.ID, RegisterInput{Team: eagles})
	require.NoError(t, err)
	require.Len(t, got.Teams, 1)
	require.Equal(t, EntryPending, got.Teams[0].Status)
	require.Equal(t, 0, got.TotalTeams)
	require.Equal(t, email.KindTournamentRegistration, f.mail.Messages[len(f.mail.Messages)-1].Kind)
}

func TestRegisterAsAdminIsApproved(t *testing.T) {
	f := newFixture(t)
	tr := createTournament(t, f)

	got, err := f.svc.Register(context.Background(), admin, tr.ID, RegisterInput{TeamID: hawks})
	require.NoError(t, err)
	require.Equal(t, EntryApproved, got.Teams[0].Status)
	require.Equal(t, 1, got.TotalTeams)
}

func TestRegisterRules(t *testing.T) {
	f := newFixture(t)
	tr := createTournament(t, f)

	_, err := f.svc.Register(context.Background(), owner, absent, RegisterInput{Team: eagles})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Register(context.Background(), owner, tr.ID, RegisterInput{Team: absent})
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = f.svc.Register(context.Background(), rival, tr.ID, RegisterInput{Team: eagles})
	require.ErrorIs(t, err, auth.ErrForbidden)

	_, err = f.svc.Register(context.Background(), owner, tr.ID, RegisterInput{Team: eagles})
	require.NoError(t, err)
	_, err = f.svc.Register(context.Background(), owner, tr.ID, RegisterInput{Team: eagles})
	require.ErrorIs(t, err, ErrAlreadyRegistered)
	require.ErrorIs(t, err, storage.ErrConflict)

	_, err = f.svc.Register(context.Background(), owner, tr.ID, RegisterInput{})
	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)
}

func TestRegisterAfterDeadline(t *testing.T) {
	f := newFixture(t)
	tr := createTournament(t, f)
	f.svc.now = func() time.Time { return f.now.AddDate(0, 0, 8) }

	_, err := f.svc.Register(context.Background(), admin, tr.ID, RegisterInput{Team: eagles})
	require.ErrorIs(t, err, ErrRegistrationClosed)
	require.ErrorIs(t, err, storage.ErrConflict)
}

func TestSetEntryStatus(t *testing.T) {
	f := newFixture(t)
	tr := createTournament(t, f)
	_, err := f.svc.Register(context.Background(), owner, tr.ID, RegisterInput{Team: eagles})
	require.NoError(t, err)

	_, err = f.svc.SetEntryStatus(context.Background(), owner, tr.ID, eagles, StatusInput{Status: EntryApproved})
	require.ErrorIs(t, err, auth.ErrForbidden)

	_, err = f.svc.SetEntryStatus(context.Background(), admin, tr.ID, hawks, StatusInput{Status: EntryApproved})
	require.ErrorIs(t, err, ErrNotRegistered)

	_, err = f.svc.SetEntryStatus(context.Background(), admin, tr.ID, eagles, StatusInput{Status: "Maybe"})
	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)

	got, err := f.svc.SetEntryStatus(context.Background(), admin, tr.ID, eagles, StatusInput{Status: EntryApproved})
	require.NoError(t, err)
	require.Equal(t, 1, got.TotalTeams)

	last := f.mail.Messages[len(f.mail.Messages)-1]
	require.Equal(t, email.KindTeamUpdate, last.Kind)
	require.Equal(t, "Your registration status for Spring Cup has been updated to Approved", last.Data["details"])
}

func TestPointsTableAndStats(t *testing.T) {
	f := newFixture(t)
	tr := createTournament(t, f)
	for _, team := range []string{hawks, eagles} {
		_, err := f.svc.Register(context.Background(), admin, tr.ID, RegisterInput{Team: team})
		require.NoError(t, err)
	}

	table, err := f.svc.PointsTable(context.Background(), tr.ID)
	require.NoError(t, err)
	require.Len(t, table, 2)
	require.Equal(t, "Eagles", table[0].Team)

	f.matches.counts = map[string]int{matches.StatusCompleted: 3, matches.StatusScheduled: 2, matches.StatusInProgress: 1}
	f.matches.innings = []stats.Innings{
		{BattingScores: []stats.BattingScore{{Player: "p1", Runs: 40}}, BowlingFigures: []stats.BowlingFigure{{Player: "p2", Wickets: 2}}},
		{BattingScores: []stats.BattingScore{{Player: "p1", Runs: 25}, {Player: "p2", Runs: 70}}},
	}

	view, err := f.svc.Stats(context.Background(), tr.ID)
	require.NoError(t, err)
	require.Equal(t, 2, view.TotalTeams)
	require.Equal(t, 3, view.MatchesPlayed)
	require.Equal(t, 3, view.MatchesRemaining)
	require.Equal(t, "Root", view.TopScorers[0].Name)
	require.Equal(t, 70, view.TopScorers[0].Runs)
	require.Equal(t, 65, view.TopScorers[1].Runs)
	require.Equal(t, "Root", view.TopWicketTakers[0].Name)
	require.Len(t, view.TeamStats, 2)
}

func TestRefreshAll(t *testing.T) {
	f := newFixture(t)
	tr := createTournament(t, f)
	cancelled := validTournament(f.now)
	cancelled.Name = "Abandoned Shield"
	cancelled.Status = StatusCancelled
	_, err := f.svc.Create(context.Background(), admin, cancelled)
	require.NoError(t, err)

	changed, err := f.svc.RefreshAll(context.Background(), f.now.AddDate(0, 0, 12))
	require.NoError(t, err)
	require.Equal(t, 1, changed)
	require.Equal(t, StatusOngoing, f.repo.items[tr.ID].Status)

	changed, err = f.svc.RefreshAll(context.Background(), f.now.AddDate(0, 0, 12))
	require.NoError(t, err)
	require.Zero(t, changed)
}

func TestDeleteRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	tr := createTournament(t, f)

	require.ErrorIs(t, f.svc.Delete(context.Background(), owner, tr.ID), auth.ErrForbidden)
	require.ErrorIs(t, f.svc.Delete(context.Background(), admin, absent), ErrNotFound)
	require.NoError(t, f.svc.Delete(context.Background(), admin, tr.ID))
	require.Empty(t, f.repo.items)
}

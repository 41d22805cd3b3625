// Package tournaments runs tournaments: their date-driven status, team
// registration and review, and the points table and leaderboards built
// from the tournament's matches.
package tournaments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pitchside/server/internal/auth"
	"github.com/pitchside/server/internal/domain/ids"
	"github.com/pitchside/server/internal/domain/matches"
	"github.com/pitchside/server/internal/domain/query"
	"github.com/pitchside/server/internal/domain/stats"
	"github.com/pitchside/server/internal/domain/teams"
	"github.com/pitchside/server/internal/email"
	"github.com/pitchside/server/internal/metrics"
	"github.com/pitchside/server/internal/sanitize"
	"github.com/pitchside/server/internal/storage"
	"github.com/pitchside/server/internal/validation"
)

// PlayerNames resolves player ids for leaderboards.
type PlayerNames interface {
	Names(ctx context.Context, ids []string) (map[string]string, error)
}

type Service struct {
	repo      Repository
	teams     *teams.Service
	matches   *matches.Service
	players   PlayerNames
	tx        storage.Transactor
	notify    email.Dispatcher
	validator *validation.Validator
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(repo Repository, teamSvc *teams.Service, matchSvc *matches.Service, players PlayerNames, tx storage.Transactor, notify email.Dispatcher, logger zerolog.Logger) *Service {
	if tx == nil {
		tx = storage.NoTx{}
	}
	if notify == nil {
		notify = email.NopDispatcher{}
	}
	return &Service{
		repo:      repo,
		teams:     teamSvc,
		matches:   matchSvc,
		players:   players,
		tx:        tx,
		notify:    notify,
		validator: validation.NewValidator(),
		logger:    logger.With().Str("component", "tournaments").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) List(ctx context.Context, spec query.Spec) ([]Tournament, int, error) {
	list, total, err := s.repo.List(ctx, spec)
	if err != nil {
		return nil, 0, err
	}
	now := s.now()
	for i := range list {
		list[i].RefreshStatus(now)
		list[i].Derive(now)
	}
	return list, total, nil
}

func (s *Service) ByStatus(ctx context.Context, spec query.Spec, status string) ([]Tournament, int, error) {
	return s.List(ctx, spec.With(Schema.Eq("status", status)))
}

func (s *Service) Active(ctx context.Context, spec query.Spec) ([]Tournament, int, error) {
	return s.ByStatus(ctx, spec, StatusOngoing)
}

// Upcoming lists tournaments that have not started, soonest first.
func (s *Service) Upcoming(ctx context.Context, spec query.Spec) ([]Tournament, int, error) {
	spec.Sort = mustSort("startDate")
	return s.List(ctx, spec.With(Schema.Cmp("startDate", query.OpGt, s.now())))
}

// RegistrationOpen lists tournaments in Registration whose deadline is
// still ahead.
func (s *Service) RegistrationOpen(ctx context.Context, spec query.Spec) ([]Tournament, int, error) {
	spec = spec.With(Schema.Cmp("registrationDeadline", query.OpGt, s.now()))
	return s.ByStatus(ctx, spec, StatusRegistration)
}

func (s *Service) ByFormat(ctx context.Context, spec query.Spec, format string) ([]Tournament, int, error) {
	return s.List(ctx, spec.With(Schema.Eq("format", format)))
}

func (s *Service) BySeason(ctx context.Context, spec query.Spec, season string) ([]Tournament, int, error) {
	return s.List(ctx, spec.With(Schema.Eq("season", season)))
}

// ByTeam lists tournaments the team has entered, whatever the entry status.
func (s *Service) ByTeam(ctx context.Context, spec query.Spec, teamID string) ([]Tournament, int, error) {
	return s.List(ctx, spec.With(Schema.Eq("teams.team", ids.Normalize(teamID))))
}

// Between lists tournaments starting on or after from and ending on or
// before to. Zero bounds are open.
func (s *Service) Between(ctx context.Context, spec query.Spec, from, to time.Time) ([]Tournament, int, error) {
	if !from.IsZero() {
		spec = spec.With(Schema.Cmp("startDate", query.OpGte, from))
	}
	if !to.IsZero() {
		spec = spec.With(Schema.Cmp("endDate", query.OpLte, to))
	}
	return s.List(ctx, spec)
}

func mustSort(raw string) []query.SortKey {
	keys, err := Schema.SortBy(raw)
	if err != nil {
		panic(err)
	}
	return keys
}

// Get loads a tournament, bringing its status up to date first.
func (s *Service) Get(ctx context.Context, id string) (*Tournament, error) {
	if !ids.IsULID(id) {
		return nil, ErrNotFound
	}
	t, err := s.repo.Get(ctx, ids.Normalize(id))
	if err != nil {
		return nil, err
	}
	now := s.now()
	if t.RefreshStatus(now) {
		if err := s.repo.SetStatus(ctx, t.ID, t.Status, now); err != nil {
			s.logger.Warn().Err(err).Str("tournament_id", t.ID).Msg("persisting refreshed status failed")
		} else {
			metrics.TournamentStatusChanges.WithLabelValues(t.Status).Inc()
		}
	}
	t.Derive(now)
	return t, nil
}

// RefreshAll applies RefreshStatus to every tournament that can still move
// and returns how many changed.
func (s *Service) RefreshAll(ctx context.Context, now time.Time) (int, error) {
	list, err := s.repo.Refreshable(ctx)
	if err != nil {
		return 0, err
	}
	changed := 0
	for i := range list {
		t := &list[i]
		from := t.Status
		if !t.RefreshStatus(now) {
			continue
		}
		if err := s.repo.SetStatus(ctx, t.ID, t.Status, now); err != nil {
			return changed, fmt.Errorf("set status of %s: %w", t.ID, err)
		}
		metrics.TournamentStatusChanges.WithLabelValues(t.Status).Inc()
		s.logger.Info().Str("tournament_id", t.ID).Str("from", from).Str("to", t.Status).Msg("tournament status refreshed")
		changed++
	}
	return changed, nil
}

func (s *Service) Create(ctx context.Context, actor auth.Actor, in CreateInput) (*Tournament, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	sanitizeCreate(&in)
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	id, err := ids.NewULID()
	if err != nil {
		return nil, err
	}
	now := s.now()
	t := &Tournament{
		ID:                   id,
		Name:                 in.Name,
		Season:               in.Season,
		Description:          in.Description,
		Format:               in.Format,
		Overs:                in.Overs,
		Status:               StatusDraft,
		RegistrationDeadline: in.RegistrationDeadline.UTC(),
		StartDate:            in.StartDate.UTC(),
		EndDate:              in.EndDate.UTC(),
		Teams:                []Registration{},
		PointsSystem:         DefaultPoints,
		Venues:               in.Venues,
		Stages:               in.Stages,
		QualificationRules:   QualificationRules{TeamsPerGroup: 2, Criteria: defaultCriteria},
		Organizer:            in.Organizer,
		Sponsors:             in.Sponsors,
		PrizeMoney:           PrizeMoney{Currency: "USD"},
		IsActive:             true,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if in.Status != "" {
		t.Status = in.Status
	}
	if in.PointsSystem != nil {
		t.PointsSystem = *in.PointsSystem
	}
	if in.QualificationRules != nil {
		t.QualificationRules = *in.QualificationRules
	}
	if in.PrizeMoney != nil {
		t.PrizeMoney = *in.PrizeMoney
	}
	normalize(t)
	if err := checkConsistency(t); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	t.Derive(now)
	return t, nil
}

func (s *Service) Update(ctx context.Context, actor auth.Actor, id string, in UpdateInput) (*Tournament, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	sanitizeUpdate(&in)
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	var t *Tournament
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		t, err = s.repo.Lock(ctx, ids.Normalize(id))
		if err != nil {
			return err
		}
		applyUpdate(t, in)
		normalize(t)
		if err := checkConsistency(t); err != nil {
			return err
		}
		t.UpdatedAt = s.now()
		return s.repo.Update(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	t.Derive(s.now())
	return t, nil
}

// Delete removes a tournament together with its matches and registrations.
func (s *Service) Delete(ctx context.Context, actor auth.Actor, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := auth.RequireAdmin(actor); err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		return s.repo.Delete(ctx, ids.Normalize(id))
	})
}

// Register enters a team. Admin entries are approved at once; a manager's
// own entry waits for review.
func (s *Service) Register(ctx context.Context, actor auth.Actor, id string, in RegisterInput) (*Tournament, error) {
	teamRef := strings.TrimSpace(in.TeamRef())
	if teamRef == "" {
		return nil, validation.New("team", "is required")
	}
	if !ids.IsULID(id) {
		return nil, ErrNotFound
	}

	var (
		t    *Tournament
		team *teams.Team
	)
	now := s.now()
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		t, err = s.repo.Lock(ctx, ids.Normalize(id))
		if err != nil {
			return err
		}
		team, err = s.teams.Authorize(ctx, actor, teamRef)
		if err != nil {
			return err
		}
		if now.After(t.RegistrationDeadline) {
			return ErrRegistrationClosed
		}
		if _, ok := t.Entry(team.ID); ok {
			return ErrAlreadyRegistered
		}
		entry := Registration{
			TeamID:           team.ID,
			TeamName:         team.Name,
			Status:           EntryPending,
			RegistrationDate: now,
		}
		if actor.IsAdmin() {
			entry.Status = EntryApproved
		}
		if err := s.repo.AddEntry(ctx, t.ID, entry, now); err != nil {
			return err
		}
		t.Teams = append(t.Teams, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	t.Derive(now)

	entry, _ := t.Entry(team.ID)
	if team.Manager.Contact != "" {
		s.notify.Dispatch(ctx, email.TournamentRegistration(team.Manager.Contact, email.RegistrationDetails{
			ManagerName:    team.Manager.Name,
			TeamName:       team.Name,
			TournamentName: t.Name,
			Status:         entry.Status,
			Start:          t.StartDate,
			End:            t.EndDate,
			Format:         t.Format,
		}))
	}
	return t, nil
}

// SetEntryStatus approves, rejects or resets a team's registration.
func (s *Service) SetEntryStatus(ctx context.Context, actor auth.Actor, id, teamID string, in StatusInput) (*Tournament, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	entry, ok := t.Entry(ids.Normalize(teamID))
	if !ok {
		return nil, ErrNotRegistered
	}

	now := s.now()
	if err := s.repo.SetEntryStatus(ctx, t.ID, entry.TeamID, in.Status, now); err != nil {
		return nil, err
	}
	entry.Status = in.Status
	t.UpdatedAt = now
	t.Derive(now)

	team, err := s.teams.Get(ctx, entry.TeamID)
	if err != nil {
		s.logger.Warn().Err(err).Str("team_id", entry.TeamID).Msg("skipping registration email")
		return t, nil
	}
	s.teams.NotifyManager(ctx, team, teams.UpdateRegistrationDecision,
		fmt.Sprintf("Your registration status for %s has been updated to %s", t.Name, in.Status))
	return t, nil
}

// PointsTable ranks the approved teams.
func (s *Service) PointsTable(ctx context.Context, id string) ([]stats.PointsRow, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.pointsTable(ctx, t)
}

func (s *Service) pointsTable(ctx context.Context, t *Tournament) ([]stats.PointsRow, error) {
	teamIDs := make([]string, 0, len(t.Teams))
	for _, r := range t.Teams {
		if r.Status == EntryApproved {
			teamIDs = append(teamIDs, r.TeamID)
		}
	}
	found, err := s.teams.GetMany(ctx, teamIDs)
	if err != nil {
		return nil, err
	}
	entries := make([]stats.Entry, 0, len(found))
	for _, team := range found {
		entries = append(entries, stats.Entry{TeamID: team.ID, TeamName: team.Name, Approved: true, Stats: team.Stats})
	}
	return stats.PointsTable(entries), nil
}

// Stats gathers match counts, leaderboards and the points table. The match
// and team reads run concurrently.
func (s *Service) Stats(ctx context.Context, id string) (StatsView, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return StatsView{}, err
	}

	var (
		counts  map[string]int
		innings []stats.Innings
		table   []stats.PointsRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts, err = s.matches.StatusCounts(gctx, t.ID)
		return err
	})
	g.Go(func() error {
		var err error
		innings, err = s.matches.Innings(gctx, t.ID)
		return err
	})
	g.Go(func() error {
		var err error
		table, err = s.pointsTable(gctx, t)
		return err
	})
	if err := g.Wait(); err != nil {
		return StatsView{}, err
	}

	byRuns, byWickets := stats.TopPerformers(innings, stats.TopN)
	if s.players != nil {
		playerIDs := make([]string, 0, len(byRuns)+len(byWickets))
		for _, p := range append(append([]stats.Performer(nil), byRuns...), byWickets...) {
			playerIDs = append(playerIDs, p.PlayerID)
		}
		names, err := s.players.Names(ctx, playerIDs)
		if err != nil {
			return StatsView{}, err
		}
		stats.NameAll(byRuns, names)
		stats.NameAll(byWickets, names)
	}

	view := StatsView{
		TotalTeams:      t.TotalTeams,
		TopScorers:      byRuns,
		TopWicketTakers: byWickets,
		TeamStats:       table,
	}
	for status, n := range counts {
		if status == matches.StatusCompleted {
			view.MatchesPlayed += n
		} else {
			view.MatchesRemaining += n
		}
	}
	if view.TopScorers == nil {
		view.TopScorers = []stats.Performer{}
	}
	if view.TopWicketTakers == nil {
		view.TopWicketTakers = []stats.Performer{}
	}
	return view, nil
}

// Schedule lists a tournament's matches in start order.
func (s *Service) Schedule(ctx context.Context, spec query.Spec, id string) ([]matches.Match, int, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	spec.Sort = []query.SortKey{{Field: "schedule.startDate", Column: matches.Schema.Fields["schedule.startDate"].Column}}
	return s.matches.ByTournament(ctx, spec, t.ID)
}

// checkConsistency enforces the rules that span several fields.
func checkConsistency(t *Tournament) error {
	var errs validation.Errors
	if t.Format != FormatTest && t.Overs == nil {
		errs.Add("overs", "is required unless format is Test")
	}
	if t.StartDate.Before(t.RegistrationDeadline) {
		errs.Add("registrationDeadline", "must not be after startDate")
	}
	if t.EndDate.Before(t.StartDate) {
		errs.Add("endDate", "must not be before startDate")
	}
	return errs.Err()
}

func normalize(t *Tournament) {
	if t.Venues == nil {
		t.Venues = []Venue{}
	}
	if t.Stages == nil {
		t.Stages = []Stage{}
	}
	for i := range t.Stages {
		if t.Stages[i].Groups == nil {
			t.Stages[i].Groups = []Group{}
		}
		for j := range t.Stages[i].Groups {
			for k, id := range t.Stages[i].Groups[j].Teams {
				t.Stages[i].Groups[j].Teams[k] = ids.Normalize(id)
			}
		}
	}
	if t.Sponsors == nil {
		t.Sponsors = []Sponsor{}
	}
	if t.QualificationRules.Criteria == nil {
		t.QualificationRules.Criteria = []string{}
	}
	if t.PrizeMoney.Currency == "" {
		t.PrizeMoney.Currency = "USD"
	}
	if t.PrizeMoney.Other == nil {
		t.PrizeMoney.Other = []Prize{}
	}
}

func applyUpdate(t *Tournament, in UpdateInput) {
	if in.Name != nil {
		t.Name = *in.Name
	}
	if in.Season != nil {
		t.Season = *in.Season
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Format != nil {
		t.Format = *in.Format
	}
	if in.Overs != nil {
		t.Overs = in.Overs
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	if in.RegistrationDeadline != nil {
		t.RegistrationDeadline = in.RegistrationDeadline.UTC()
	}
	if in.StartDate != nil {
		t.StartDate = in.StartDate.UTC()
	}
	if in.EndDate != nil {
		t.EndDate = in.EndDate.UTC()
	}
	if in.PointsSystem != nil {
		t.PointsSystem = *in.PointsSystem
	}
	if in.Venues != nil {
		t.Venues = *in.Venues
	}
	if in.Stages != nil {
		t.Stages = *in.Stages
	}
	if in.QualificationRules != nil {
		t.QualificationRules = *in.QualificationRules
	}
	if in.Organizer != nil {
		t.Organizer = *in.Organizer
	}
	if in.Sponsors != nil {
		t.Sponsors = *in.Sponsors
	}
	if in.PrizeMoney != nil {
		t.PrizeMoney = *in.PrizeMoney
	}
	if in.IsActive != nil {
		t.IsActive = *in.IsActive
	}
}

func sanitizeCreate(in *CreateInput) {
	sanitize.Texts(&in.Name, &in.Season, &in.Organizer.Name)
	in.Description = sanitize.HTML(in.Description)
	in.Organizer.Contact.Email = strings.TrimSpace(in.Organizer.Contact.Email)
	for i := range in.Venues {
		sanitize.Texts(&in.Venues[i].Ground, &in.Venues[i].City, &in.Venues[i].Country)
	}
	for i := range in.Stages {
		sanitize.Texts(&in.Stages[i].Name)
	}
	for i := range in.Sponsors {
		sanitize.Texts(&in.Sponsors[i].Name)
	}
}

func sanitizeUpdate(in *UpdateInput) {
	sanitize.Texts(in.Name, in.Season)
	if in.Description != nil {
		clean := sanitize.HTML(*in.Description)
		in.Description = &clean
	}
	if in.Organizer != nil {
		sanitize.Texts(&in.Organizer.Name)
	}
	if in.Venues != nil {
		for i := range *in.Venues {
			v := &(*in.Venues)[i]
			sanitize.Texts(&v.Ground, &v.City, &v.Country)
		}
	}
}

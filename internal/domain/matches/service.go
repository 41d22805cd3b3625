// Package matches schedules matches, records their scores and applies the
// result of a completed match to both teams.
package matches

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pitchside/server/internal/auth"
	"github.com/pitchside/server/internal/domain/ids"
	"github.com/pitchside/server/internal/domain/query"
	"github.com/pitchside/server/internal/domain/stats"
	"github.com/pitchside/server/internal/domain/teams"
	"github.com/pitchside/server/internal/email"
	"github.com/pitchside/server/internal/metrics"
	"github.com/pitchside/server/internal/sanitize"
	"github.com/pitchside/server/internal/storage"
	"github.com/pitchside/server/internal/validation"
)

var dismissals = map[string]bool{
	"": true, "Bowled": true, "Caught": true, "LBW": true, "Run Out": true,
	"Stumped": true, "Hit Wicket": true, "Not Out": true,
}

type Service struct {
	repo        Repository
	teams       *teams.Service
	tournaments TournamentChecker
	tx          storage.Transactor
	notify      email.Dispatcher
	validator   *validation.Validator
	logger      zerolog.Logger
	now         func() time.Time
}

func NewService(repo Repository, teamSvc *teams.Service, tournaments TournamentChecker, tx storage.Transactor, notify email.Dispatcher, logger zerolog.Logger) *Service {
	if tx == nil {
		tx = storage.NoTx{}
	}
	if notify == nil {
		notify = email.NopDispatcher{}
	}
	return &Service{
		repo:        repo,
		teams:       teamSvc,
		tournaments: tournaments,
		tx:          tx,
		notify:      notify,
		validator:   validation.NewValidator(),
		logger:      logger.With().Str("component", "matches").Logger(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) List(ctx context.Context, spec query.Spec) ([]Match, int, error) {
	list, total, err := s.repo.List(ctx, spec)
	if err != nil {
		return nil, 0, err
	}
	for i := range list {
		list[i].Derive()
	}
	return list, total, nil
}

func (s *Service) ByTournament(ctx context.Context, spec query.Spec, tournamentID string) ([]Match, int, error) {
	return s.List(ctx, spec.With(Schema.Eq("tournament", ids.Normalize(tournamentID))))
}

// ByTeam lists matches where the team plays on either side.
func (s *Service) ByTeam(ctx context.Context, spec query.Spec, teamID string) ([]Match, int, error) {
	return s.List(ctx, spec.With(Schema.Eq("team", ids.Normalize(teamID))))
}

// Between lists matches starting inside [from, to]. Zero bounds are open.
func (s *Service) Between(ctx context.Context, spec query.Spec, from, to time.Time) ([]Match, int, error) {
	if !from.IsZero() {
		spec = spec.With(Schema.Cmp("schedule.startDate", query.OpGte, from))
	}
	if !to.IsZero() {
		spec = spec.With(Schema.Cmp("schedule.startDate", query.OpLte, to))
	}
	return s.List(ctx, spec)
}

func (s *Service) ByStatus(ctx context.Context, spec query.Spec, status string) ([]Match, int, error) {
	return s.List(ctx, spec.With(Schema.Eq("status", status)))
}

func (s *Service) Live(ctx context.Context, spec query.Spec) ([]Match, int, error) {
	return s.ByStatus(ctx, spec, StatusInProgress)
}

// Recent lists completed matches, latest first.
func (s *Service) Recent(ctx context.Context, spec query.Spec) ([]Match, int, error) {
	spec.Sort = mustSort("-schedule.startDate")
	return s.ByStatus(ctx, spec, StatusCompleted)
}

// Upcoming lists scheduled matches that have not started, soonest first.
func (s *Service) Upcoming(ctx context.Context, spec query.Spec) ([]Match, int, error) {
	spec.Sort = mustSort("schedule.startDate")
	spec = spec.With(Schema.Cmp("schedule.startDate", query.OpGte, s.now()))
	return s.ByStatus(ctx, spec, StatusScheduled)
}

func (s *Service) ByType(ctx context.Context, spec query.Spec, matchType string) ([]Match, int, error) {
	return s.List(ctx, spec.With(Schema.Eq("matchType", matchType)))
}

func (s *Service) ByVenue(ctx context.Context, spec query.Spec, ground string) ([]Match, int, error) {
	return s.List(ctx, spec.With(Schema.Eq("venue.ground", ground)))
}

func mustSort(raw string) []query.SortKey {
	keys, err := Schema.SortBy(raw)
	if err != nil {
		panic(err)
	}
	return keys
}

func (s *Service) Get(ctx context.Context, id string) (*Match, error) {
	if !ids.IsULID(id) {
		return nil, ErrNotFound
	}
	m, err := s.repo.Get(ctx, ids.Normalize(id))
	if err != nil {
		return nil, err
	}
	m.Derive()
	return m, nil
}

// Innings returns every innings played in a tournament.
func (s *Service) Innings(ctx context.Context, tournamentID string) ([]stats.Innings, error) {
	return s.repo.Innings(ctx, tournamentID)
}

// StatusCounts counts a tournament's matches per status.
func (s *Service) StatusCounts(ctx context.Context, tournamentID string) (map[string]int, error) {
	return s.repo.StatusCounts(ctx, tournamentID)
}

// Stats builds the per-innings summary for one match.
func (s *Service) Stats(ctx context.Context, id string) (StatsView, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return StatsView{}, err
	}
	names := s.teamNames(ctx, m)
	view := StatsView{
		MatchInfo: MatchInfo{
			Teams: []TeamRef{
				{ID: m.Teams.Team1, Name: names[m.Teams.Team1]},
				{ID: m.Teams.Team2, Name: names[m.Teams.Team2]},
			},
			Venue:  m.Venue,
			Date:   m.Schedule.StartDate,
			Result: m.Result,
		},
		Innings: make([]stats.InningsSummary, 0, len(m.Innings)),
	}
	for _, in := range m.Innings {
		view.Innings = append(view.Innings, stats.Summarize(in))
	}
	return view, nil
}

// Create schedules a match between two existing teams and tells both
// managers about it.
func (s *Service) Create(ctx context.Context, actor auth.Actor, in CreateInput) (*Match, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	sanitizeCreate(&in)
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	if in.Schedule.EndDate != nil && in.Schedule.EndDate.Before(in.Schedule.StartDate) {
		return nil, validation.New("schedule.endDate", "must not be before startDate")
	}

	side1, side2, err := s.loadSides(ctx, in.Teams)
	if err != nil {
		return nil, err
	}
	if in.Tournament != "" {
		if !ids.IsULID(in.Tournament) {
			return nil, ErrTournamentNotFound
		}
		in.Tournament = ids.Normalize(in.Tournament)
		if s.tournaments != nil {
			if err := s.tournaments.TournamentExists(ctx, in.Tournament); err != nil {
				return nil, err
			}
		}
	}

	id, err := ids.NewULID()
	if err != nil {
		return nil, err
	}
	now := s.now()
	m := &Match{
		ID:           id,
		MatchNumber:  in.MatchNumber,
		MatchType:    in.MatchType,
		TournamentID: in.Tournament,
		Teams:        Teams{Team1: side1.ID, Team2: side2.ID},
		Venue:        in.Venue,
		Schedule:     in.Schedule,
		Toss:         in.Toss,
		Overs:        DefaultOvers,
		Status:       StatusScheduled,
		Innings:      []stats.Innings{},
		Umpires:      in.Umpires,
		Weather:      in.Weather,
		Highlights:   in.Highlights,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.Overs != nil {
		m.Overs = *in.Overs
	}
	if in.Status != "" {
		m.Status = in.Status
	}
	if m.Umpires == nil {
		m.Umpires = []Umpire{}
	}
	if m.Highlights == nil {
		m.Highlights = []string{}
	}
	m.Schedule.StartDate = m.Schedule.StartDate.UTC()

	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	m.Derive()

	s.notify.Dispatch(ctx, email.MatchSchedule(managerContacts(side1, side2), email.MatchDetails{
		Team1:     side1.Name,
		Team2:     side2.Name,
		Start:     m.Schedule.StartDate,
		Ground:    m.Venue.Ground,
		City:      m.Venue.City,
		MatchType: m.MatchType,
	}))
	return m, nil
}

// Update edits a match. Moving it into Completed with a winner applies the
// result to both teams, the same as a score update.
func (s *Service) Update(ctx context.Context, actor auth.Actor, id string, in UpdateInput) (*Match, error) {
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
	if in.Teams != nil {
		if _, _, err := s.loadSides(ctx, *in.Teams); err != nil {
			return nil, err
		}
	}

	var (
		m         *Match
		completed bool
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		m, err = s.repo.Lock(ctx, ids.Normalize(id))
		if err != nil {
			return err
		}
		before := decided(m)
		applyUpdate(m, in)
		if m.Schedule.EndDate != nil && m.Schedule.EndDate.Before(m.Schedule.StartDate) {
			return validation.New("schedule.endDate", "must not be before startDate")
		}
		completed, err = s.transition(ctx, m, before)
		if err != nil {
			return err
		}
		m.UpdatedAt = s.now()
		return s.repo.Update(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	m.Derive()
	if completed {
		s.announceResult(ctx, m)
	}
	return m, nil
}

// UpdateScore replaces a match's innings and optionally its status and
// result. Team aggregates change once, when the match first becomes
// Completed with a winner. A match marked Completed without a result is
// counted when the winner arrives.
func (s *Service) UpdateScore(ctx context.Context, actor auth.Actor, id string, in ScoreInput) (*Match, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	var (
		m         *Match
		completed bool
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		m, err = s.repo.Lock(ctx, ids.Normalize(id))
		if err != nil {
			return err
		}
		if err := validateInnings(m, in.Innings); err != nil {
			return err
		}
		before := decided(m)
		m.Innings = in.Innings
		if m.Innings == nil {
			m.Innings = []stats.Innings{}
		}
		if in.Status != nil {
			m.Status = *in.Status
		}
		if in.Result != nil {
			m.Result = sanitizeResult(*in.Result)
		}
		completed, err = s.transition(ctx, m, before)
		if err != nil {
			return err
		}
		m.UpdatedAt = s.now()
		return s.repo.Update(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	m.Derive()
	if completed {
		s.announceResult(ctx, m)
	}
	return m, nil
}

// decided reports whether a match's result has already been applied to the
// teams: it is Completed and names a winner.
func decided(m *Match) bool {
	return m.Status == StatusCompleted && strings.TrimSpace(m.Result.Winner) != ""
}

// transition applies the side effects of a status change made inside the
// current transaction and reports whether the match was just decided.
// alreadyDecided is decided(m) before the change.
func (s *Service) transition(ctx context.Context, m *Match, alreadyDecided bool) (bool, error) {
	if m.Status != StatusCompleted {
		return false, nil
	}
	if m.Schedule.EndDate == nil {
		end := s.now()
		m.Schedule.EndDate = &end
	}
	if alreadyDecided || strings.TrimSpace(m.Result.Winner) == "" {
		return false, nil
	}
	winner, loser, err := stats.Outcome(m.Teams.Team1, m.Teams.Team2, ids.Normalize(m.Result.Winner))
	if err != nil {
		if errors.Is(err, stats.ErrWinnerNotInMatch) {
			return false, validation.New("result.winner", err.Error())
		}
		return false, err
	}
	m.Result.Winner = winner
	if err := s.teams.RecordResult(ctx, winner, loser); err != nil {
		return false, fmt.Errorf("record result: %w", err)
	}
	metrics.MatchesCompleted.Inc()
	s.logger.Info().Str("match_id", m.ID).Str("winner", winner).Msg("match completed")
	return true, nil
}

func (s *Service) announceResult(ctx context.Context, m *Match) {
	side1, err1 := s.teams.Get(ctx, m.Teams.Team1)
	side2, err2 := s.teams.Get(ctx, m.Teams.Team2)
	if err1 != nil || err2 != nil {
		s.logger.Warn().Str("match_id", m.ID).Msg("skipping result email: team missing")
		return
	}
	name := map[string]string{side1.ID: side1.Name, side2.ID: side2.Name}
	lines := make([]email.InningsLine, 0, len(m.Innings))
	for _, in := range m.Innings {
		lines = append(lines, email.InningsLine{Team: name[in.Team], Runs: in.TotalRuns, Wickets: in.Wickets, Overs: in.Overs})
	}
	s.notify.Dispatch(ctx, email.MatchResult(managerContacts(side1, side2), email.ResultDetails{
		Team1:       side1.Name,
		Team2:       side2.Name,
		Winner:      name[m.Result.Winner],
		Margin:      m.Result.WinningMargin,
		WinningType: m.Result.WinningType,
		Description: m.Result.Description,
		Innings:     lines,
	}))
}

// Delete removes a match. Team aggregates already applied are kept.
func (s *Service) Delete(ctx context.Context, actor auth.Actor, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := auth.RequireAdmin(actor); err != nil {
		return err
	}
	return s.repo.Delete(ctx, ids.Normalize(id))
}

func (s *Service) loadSides(ctx context.Context, t Teams) (*teams.Team, *teams.Team, error) {
	side1, err := s.teams.Get(ctx, t.Team1)
	if err != nil {
		return nil, nil, err
	}
	side2, err := s.teams.Get(ctx, t.Team2)
	if err != nil {
		return nil, nil, err
	}
	if side1.ID == side2.ID {
		return nil, nil, validation.New("teams.team2", "must differ from team1")
	}
	return side1, side2, nil
}

func (s *Service) teamNames(ctx context.Context, m *Match) map[string]string {
	names := map[string]string{}
	found, err := s.teams.GetMany(ctx, []string{m.Teams.Team1, m.Teams.Team2})
	if err != nil {
		s.logger.Warn().Err(err).Str("match_id", m.ID).Msg("team lookup failed")
		return names
	}
	for _, t := range found {
		names[t.ID] = t.Name
	}
	return names
}

func managerContacts(sides ...*teams.Team) []string {
	var to []string
	for _, t := range sides {
		if t != nil && t.Manager.Contact != "" {
			to = append(to, t.Manager.Contact)
		}
	}
	return to
}

// validateInnings checks each innings belongs to one of the match's teams
// and carries sane counts.
func validateInnings(m *Match, innings []stats.Innings) error {
	var errs validation.Errors
	for i, in := range innings {
		field := fmt.Sprintf("innings[%d]", i)
		innings[i].Team = ids.Normalize(in.Team)
		if !m.HasTeam(innings[i].Team) {
			errs.Add(field+".team", "must be one of the match teams")
		}
		if in.TotalRuns < 0 {
			errs.Add(field+".totalRuns", "must be greater than or equal to 0")
		}
		if in.Wickets < 0 || in.Wickets > 10 {
			errs.Add(field+".wickets", "must be between 0 and 10")
		}
		if in.Overs < 0 {
			errs.Add(field+".overs", "must be greater than or equal to 0")
		}
		for j, b := range in.BattingScores {
			if !dismissals[b.DismissalType] {
				errs.Add(fmt.Sprintf("%s.battingScores[%d].dismissalType", field, j), "is not a known dismissal")
			}
			if b.Runs < 0 || b.BallsFaced < 0 {
				errs.Add(fmt.Sprintf("%s.battingScores[%d]", field, j), "runs and balls must not be negative")
			}
		}
		for j, f := range in.BowlingFigures {
			if f.Wickets < 0 || f.Wickets > 10 || f.Runs < 0 || f.Overs < 0 {
				errs.Add(fmt.Sprintf("%s.bowlingFigures[%d]", field, j), "has an out of range value")
			}
		}
	}
	return errs.Err()
}

func applyUpdate(m *Match, in UpdateInput) {
	if in.MatchNumber != nil {
		m.MatchNumber = *in.MatchNumber
	}
	if in.MatchType != nil {
		m.MatchType = *in.MatchType
	}
	if in.Teams != nil {
		m.Teams = Teams{Team1: ids.Normalize(in.Teams.Team1), Team2: ids.Normalize(in.Teams.Team2)}
	}
	if in.Venue != nil {
		m.Venue = *in.Venue
	}
	if in.Schedule != nil {
		m.Schedule = *in.Schedule
	}
	if in.Toss != nil {
		m.Toss = *in.Toss
	}
	if in.Overs != nil {
		m.Overs = *in.Overs
	}
	if in.Status != nil {
		m.Status = *in.Status
	}
	if in.Result != nil {
		m.Result = sanitizeResult(*in.Result)
	}
	if in.Umpires != nil {
		m.Umpires = *in.Umpires
	}
	if in.Weather != nil {
		m.Weather = *in.Weather
	}
	if in.Highlights != nil {
		m.Highlights = sanitize.TextSlice(*in.Highlights)
	}
	if in.IsActive != nil {
		m.IsActive = *in.IsActive
	}
}

func sanitizeResult(r Result) Result {
	r.Winner = ids.Normalize(r.Winner)
	r.Description = sanitize.Text(r.Description)
	return r
}

func sanitizeCreate(in *CreateInput) {
	sanitize.Texts(&in.Venue.Ground, &in.Venue.City, &in.Venue.Country, &in.Weather.Condition)
	in.Teams.Team1 = strings.TrimSpace(in.Teams.Team1)
	in.Teams.Team2 = strings.TrimSpace(in.Teams.Team2)
	in.Tournament = strings.TrimSpace(in.Tournament)
	in.Toss.Winner = ids.Normalize(in.Toss.Winner)
	in.Highlights = sanitize.TextSlice(in.Highlights)
	for i := range in.Umpires {
		sanitize.Texts(&in.Umpires[i].Name)
	}
}

func sanitizeUpdate(in *UpdateInput) {
	if in.Venue != nil {
		sanitize.Texts(&in.Venue.Ground, &in.Venue.City, &in.Venue.Country)
	}
	if in.Toss != nil {
		in.Toss.Winner = ids.Normalize(in.Toss.Winner)
	}
	if in.Weather != nil {
		sanitize.Texts(&in.Weather.Condition)
	}
	if in.Umpires != nil {
		for i := range *in.Umpires {
			sanitize.Texts(&(*in.Umpires)[i].Name)
		}
	}
}

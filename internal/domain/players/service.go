// Package players manages players, their team membership and the batting,
// bowling and fielding aggregates kept on each player.
package players

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pitchside/server/internal/auth"
	"github.com/pitchside/server/internal/domain/ids"
	"github.com/pitchside/server/internal/domain/query"
	"github.com/pitchside/server/internal/domain/teams"
	"github.com/pitchside/server/internal/sanitize"
	"github.com/pitchside/server/internal/storage"
	"github.com/pitchside/server/internal/validation"
)

type Service struct {
	repo      Repository
	teams     *teams.Service
	tx        storage.Transactor
	validator *validation.Validator
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(repo Repository, teamSvc *teams.Service, tx storage.Transactor, logger zerolog.Logger) *Service {
	if tx == nil {
		tx = storage.NoTx{}
	}
	return &Service{
		repo:      repo,
		teams:     teamSvc,
		tx:        tx,
		validator: validation.NewValidator(),
		logger:    logger.With().Str("component", "players").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) List(ctx context.Context, spec query.Spec) ([]Player, int, error) {
	list, total, err := s.repo.List(ctx, spec)
	if err != nil {
		return nil, 0, err
	}
	now := s.now()
	for i := range list {
		list[i].Age = AgeOn(list[i].DateOfBirth, now)
	}
	return list, total, nil
}

// ByRole lists players of one player type.
func (s *Service) ByRole(ctx context.Context, spec query.Spec, role string) ([]Player, int, error) {
	return s.List(ctx, spec.With(Schema.Eq("playerType", role)))
}

// ByTeam lists a team's players.
func (s *Service) ByTeam(ctx context.Context, spec query.Spec, teamID string) ([]Player, int, error) {
	return s.List(ctx, spec.With(Schema.Eq("team", ids.Normalize(teamID))))
}

// TopScorers orders by career runs.
func (s *Service) TopScorers(ctx context.Context, spec query.Spec) ([]Player, int, error) {
	spec.Sort = mustSort("-stats.batting.runs")
	return s.List(ctx, spec)
}

// TopWicketTakers orders by career wickets.
func (s *Service) TopWicketTakers(ctx context.Context, spec query.Spec) ([]Player, int, error) {
	spec.Sort = mustSort("-stats.bowling.wickets")
	return s.List(ctx, spec)
}

// AllRounders lists all-rounders by batting average, then bowling average.
func (s *Service) AllRounders(ctx context.Context, spec query.Spec) ([]Player, int, error) {
	spec.Sort = mustSort("-stats.batting.average,-stats.bowling.average")
	return s.ByRole(ctx, spec, TypeAllRounder)
}

func mustSort(raw string) []query.SortKey {
	keys, err := Schema.SortBy(raw)
	if err != nil {
		panic(err)
	}
	return keys
}

func (s *Service) Get(ctx context.Context, id string) (*Player, error) {
	if !ids.IsULID(id) {
		return nil, ErrNotFound
	}
	p, err := s.repo.Get(ctx, ids.Normalize(id))
	if err != nil {
		return nil, err
	}
	p.Age = AgeOn(p.DateOfBirth, s.now())
	return p, nil
}

func (s *Service) Stats(ctx context.Context, id string) (StatsView, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return StatsView{}, err
	}
	return StatsView{
		Batting:  p.Stats.Batting,
		Bowling:  p.Stats.Bowling,
		Fielding: p.Stats.Fielding,
		Matches:  p.Stats.Batting.Matches,
		Age:      p.Age,
	}, nil
}

// Names resolves display names for a set of player ids.
func (s *Service) Names(ctx context.Context, playerIDs []string) (map[string]string, error) {
	if len(playerIDs) == 0 {
		return map[string]string{}, nil
	}
	return s.repo.Names(ctx, playerIDs)
}

// Create adds a player to the team named in the body.
func (s *Service) Create(ctx context.Context, actor auth.Actor, in CreateInput) (*Player, error) {
	p, team, err := s.create(ctx, actor, in)
	if err != nil {
		return nil, err
	}
	s.teams.NotifyManager(ctx, team, "New Player Added", fmt.Sprintf("%s has been added to your team.", p.Name))
	return p, nil
}

// AddToTeam creates a player directly on a team's roster.
func (s *Service) AddToTeam(ctx context.Context, actor auth.Actor, teamID string, in CreateInput) (*Player, error) {
	in.Team = teamID
	p, team, err := s.create(ctx, actor, in)
	if err != nil {
		return nil, err
	}
	s.teams.NotifyManager(ctx, team, teams.UpdatePlayerAddition, fmt.Sprintf("New player %s has been added to your team.", p.Name))
	return p, nil
}

func (s *Service) create(ctx context.Context, actor auth.Actor, in CreateInput) (*Player, *teams.Team, error) {
	sanitize.Texts(&in.Name, &in.ContactInfo.Phone, &in.ContactInfo.Address)
	in.ContactInfo.Email = strings.TrimSpace(in.ContactInfo.Email)
	in.Team = strings.TrimSpace(in.Team)
	if err := s.validator.Struct(in); err != nil {
		return nil, nil, err
	}
	now := s.now()
	dob, err := parseBirthDate(in.DateOfBirth, now)
	if err != nil {
		return nil, nil, err
	}

	id, err := ids.NewULID()
	if err != nil {
		return nil, nil, err
	}
	bowling := in.BowlingStyle
	if bowling == "" {
		bowling = BowlingNone
	}
	p := &Player{
		ID:           id,
		Name:         in.Name,
		DateOfBirth:  dob,
		PlayerType:   in.PlayerType,
		BattingStyle: in.BattingStyle,
		BowlingStyle: bowling,
		JerseyNumber: *in.JerseyNumber,
		ContactInfo:  in.ContactInfo,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var team *teams.Team
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		team, err = s.teams.Lock(ctx, actor, in.Team)
		if err != nil {
			return err
		}
		p.TeamID = team.ID
		p.TeamName = team.Name
		if err := s.repo.Create(ctx, p); err != nil {
			return err
		}
		return s.teams.Touch(ctx, team.ID)
	})
	if err != nil {
		return nil, nil, err
	}
	p.Age = AgeOn(p.DateOfBirth, now)
	return p, team, nil
}

// Update changes a player's details. Only the manager of the player's team
// or an admin may do so.
func (s *Service) Update(ctx context.Context, actor auth.Actor, id string, in UpdateInput) (*Player, error) {
	sanitize.Texts(in.Name)
	if in.ContactInfo != nil {
		sanitize.Texts(&in.ContactInfo.Phone, &in.ContactInfo.Address)
		in.ContactInfo.Email = strings.TrimSpace(in.ContactInfo.Email)
	}
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	var dob time.Time
	if in.DateOfBirth != nil {
		t, err := query.ParseTime(*in.DateOfBirth)
		if err != nil {
			return nil, validation.New("dateOfBirth", err.Error())
		}
		dob = t
	}

	var (
		p    *Player
		team *teams.Team
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		p, team, err = s.lockOwned(ctx, actor, id)
		if err != nil {
			return err
		}
		applyUpdate(p, in, dob)
		p.UpdatedAt = s.now()
		return s.repo.Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	p.Age = AgeOn(p.DateOfBirth, s.now())

	s.teams.NotifyManager(ctx, team, teams.UpdatePlayerDetails, fmt.Sprintf("%s's details have been updated.", p.Name))
	return p, nil
}

// Delete removes a player and the roster entry with it.
func (s *Service) Delete(ctx context.Context, actor auth.Actor, id string) error {
	var (
		p    *Player
		team *teams.Team
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		p, team, err = s.lockOwned(ctx, actor, id)
		if err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, p.ID); err != nil {
			return err
		}
		return s.teams.Touch(ctx, team.ID)
	})
	if err != nil {
		return err
	}
	s.teams.NotifyManager(ctx, team, "Player Removed", fmt.Sprintf("%s has been removed from your team.", p.Name))
	return nil
}

// RemoveFromTeam deletes a player through its team's roster. Both the team
// and the player must exist, and the player must be on that team, before
// ownership is checked.
func (s *Service) RemoveFromTeam(ctx context.Context, actor auth.Actor, teamID, playerID string) error {
	team, err := s.teams.Get(ctx, teamID)
	if err != nil {
		return err
	}
	p, err := s.Get(ctx, playerID)
	if err != nil {
		return err
	}
	if !ids.Equal(p.TeamID, team.ID) {
		return ErrNotOnTeam
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.teams.Lock(ctx, actor, team.ID); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, p.ID); err != nil {
			return err
		}
		return s.teams.Touch(ctx, team.ID)
	})
	if err != nil {
		return err
	}
	s.teams.NotifyManager(ctx, team, teams.UpdatePlayerRemoval, fmt.Sprintf("Player %s has been removed from your team.", p.Name))
	return nil
}

// UpdateStats folds one innings of batting and bowling into the player's
// aggregates and overwrites any fielding counters given. The same input
// sent twice is counted twice.
func (s *Service) UpdateStats(ctx context.Context, actor auth.Actor, id string, in StatsInput) (Stats, error) {
	if err := s.validator.Struct(in); err != nil {
		return Stats{}, err
	}
	var out Stats
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		p, _, err := s.lockOwned(ctx, actor, id)
		if err != nil {
			return err
		}
		if in.Batting != nil {
			UpdateBatting(&p.Stats.Batting, *in.Batting)
		}
		if in.Bowling != nil {
			UpdateBowling(&p.Stats.Bowling, *in.Bowling)
		}
		if in.Fielding != nil {
			MergeFielding(&p.Stats.Fielding, *in.Fielding)
		}
		out = p.Stats
		return s.repo.SaveStats(ctx, p.ID, p.Stats, s.now())
	})
	return out, err
}

// lockOwned locks a player and checks the actor manages its team.
func (s *Service) lockOwned(ctx context.Context, actor auth.Actor, id string) (*Player, *teams.Team, error) {
	if !ids.IsULID(id) {
		return nil, nil, ErrNotFound
	}
	p, err := s.repo.Lock(ctx, ids.Normalize(id))
	if err != nil {
		return nil, nil, err
	}
	team, err := s.teams.Get(ctx, p.TeamID)
	if err != nil {
		return nil, nil, err
	}
	if err := auth.CanManagePlayer(actor, team.Manager.UserID); err != nil {
		return nil, nil, err
	}
	return p, team, nil
}

func parseBirthDate(raw string, now time.Time) (time.Time, error) {
	dob, err := query.ParseTime(raw)
	if err != nil {
		return time.Time{}, validation.New("dateOfBirth", err.Error())
	}
	if AgeOn(dob, now) < MinimumAge {
		return time.Time{}, validation.New("dateOfBirth", fmt.Sprintf("player must be at least %d years old", MinimumAge))
	}
	return dob.UTC(), nil
}

func applyUpdate(p *Player, in UpdateInput, dob time.Time) {
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.DateOfBirth != nil {
		p.DateOfBirth = dob.UTC()
	}
	if in.PlayerType != nil {
		p.PlayerType = *in.PlayerType
	}
	if in.BattingStyle != nil {
		p.BattingStyle = *in.BattingStyle
	}
	if in.BowlingStyle != nil {
		p.BowlingStyle = *in.BowlingStyle
	}
	if in.JerseyNumber != nil {
		p.JerseyNumber = *in.JerseyNumber
	}
	if in.ContactInfo != nil {
		p.ContactInfo = *in.ContactInfo
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
}

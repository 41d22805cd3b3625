// Package teams manages teams, their managers and the aggregate match
// stats stored on each team.
package teams

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pitchside/server/internal/auth"
	"github.com/pitchside/server/internal/domain/ids"
	"github.com/pitchside/server/internal/domain/query"
	"github.com/pitchside/server/internal/domain/stats"
	"github.com/pitchside/server/internal/email"
	"github.com/pitchside/server/internal/sanitize"
	"github.com/pitchside/server/internal/storage"
	"github.com/pitchside/server/internal/validation"
)

// Update types used in team notification emails.
const (
	UpdateTeamCreation         = "Team Creation"
	UpdateTeamDetails          = "Team Update"
	UpdatePlayerAddition       = "Player Addition"
	UpdatePlayerDetails        = "Player Update"
	UpdatePlayerRemoval        = "Player Removal"
	UpdateRegistrationDecision = "Tournament Registration Update"
)

type Service struct {
	repo      Repository
	tx        storage.Transactor
	notify    email.Dispatcher
	validator *validation.Validator
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(repo Repository, tx storage.Transactor, notify email.Dispatcher, logger zerolog.Logger) *Service {
	if tx == nil {
		tx = storage.NoTx{}
	}
	if notify == nil {
		notify = email.NopDispatcher{}
	}
	return &Service{
		repo:      repo,
		tx:        tx,
		notify:    notify,
		validator: validation.NewValidator(),
		logger:    logger.With().Str("component", "teams").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) List(ctx context.Context, spec query.Spec) ([]Team, int, error) {
	return s.repo.List(ctx, spec)
}

func (s *Service) Get(ctx context.Context, id string) (*Team, error) {
	if !ids.IsULID(id) {
		return nil, ErrNotFound
	}
	return s.repo.Get(ctx, ids.Normalize(id))
}

// GetMany returns the teams that exist among teamIDs, in no set order.
func (s *Service) GetMany(ctx context.Context, teamIDs []string) ([]Team, error) {
	if len(teamIDs) == 0 {
		return nil, nil
	}
	return s.repo.GetMany(ctx, teamIDs)
}

func (s *Service) Stats(ctx context.Context, id string) (StatsView, error) {
	team, err := s.Get(ctx, id)
	if err != nil {
		return StatsView{}, err
	}
	return NewStatsView(team), nil
}

// Authorize loads a team and checks that actor may manage it. A missing
// team is reported before any ownership decision.
func (s *Service) Authorize(ctx context.Context, actor auth.Actor, id string) (*Team, error) {
	team, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.CanManageTeam(actor, team.Manager.UserID); err != nil {
		return nil, err
	}
	return team, nil
}

// Lock is Authorize for use inside a transaction: the team row stays locked
// until the transaction ends.
func (s *Service) Lock(ctx context.Context, actor auth.Actor, id string) (*Team, error) {
	if !ids.IsULID(id) {
		return nil, ErrNotFound
	}
	team, err := s.repo.Lock(ctx, ids.Normalize(id))
	if err != nil {
		return nil, err
	}
	if err := auth.CanManageTeam(actor, team.Manager.UserID); err != nil {
		return nil, err
	}
	return team, nil
}

// Touch bumps a team's updatedAt after a roster change.
func (s *Service) Touch(ctx context.Context, id string) error {
	return s.repo.Touch(ctx, id, s.now())
}

// Create registers a team managed by the caller.
func (s *Service) Create(ctx context.Context, actor auth.Actor, in CreateInput) (*Team, error) {
	if err := auth.CanCreateTeam(actor); err != nil {
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
	team := &Team{
		ID:         id,
		Name:       in.Name,
		ShortName:  strings.ToUpper(in.ShortName),
		Logo:       in.Logo,
		HomeGround: in.HomeGround,
		Manager: Manager{
			Name:    in.Manager.Name,
			Contact: in.Manager.Contact,
			UserID:  actor.UserID,
		},
		Coach:     in.Coach,
		Players:   []Member{},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, team); err != nil {
		return nil, err
	}

	s.NotifyManager(ctx, team, UpdateTeamCreation, "Your team has been successfully created.")
	return team, nil
}

// Update applies in to a team the caller manages.
func (s *Service) Update(ctx context.Context, actor auth.Actor, id string, in UpdateInput) (*Team, error) {
	sanitizeUpdate(&in)
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	var team *Team
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		team, err = s.Lock(ctx, actor, id)
		if err != nil {
			return err
		}
		if in.Stats != nil && !actor.IsAdmin() {
			return auth.ErrForbidden
		}
		applyUpdate(team, in)
		team.UpdatedAt = s.now()
		return s.repo.Update(ctx, team)
	})
	if err != nil {
		return nil, err
	}

	s.NotifyManager(ctx, team, UpdateTeamDetails, "Your team details have been updated.")
	return team, nil
}

// Delete removes a team; its players go with it.
func (s *Service) Delete(ctx context.Context, actor auth.Actor, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := auth.RequireAdmin(actor); err != nil {
		return err
	}
	return s.repo.Delete(ctx, ids.Normalize(id))
}

// RecordResult applies a decided match to both teams' aggregates. Call it
// inside the transaction that completes the match; rows are locked in id
// order so concurrent completions cannot deadlock.
func (s *Service) RecordResult(ctx context.Context, winnerID, loserID string) error {
	first, second := winnerID, loserID
	if second < first {
		first, second = second, first
	}
	locked := make(map[string]*Team, 2)
	for _, id := range []string{first, second} {
		team, err := s.repo.Lock(ctx, id)
		if err != nil {
			return err
		}
		locked[id] = team
	}
	winner, loser := locked[winnerID], locked[loserID]
	stats.ApplyCompletion(&winner.Stats, &loser.Stats)

	now := s.now()
	if err := s.repo.SaveStats(ctx, winner.ID, winner.Stats, now); err != nil {
		return err
	}
	return s.repo.SaveStats(ctx, loser.ID, loser.Stats, now)
}

// NotifyManager emails the team's manager about a change. Delivery is best
// effort.
func (s *Service) NotifyManager(ctx context.Context, team *Team, updateType, details string) {
	if team == nil || team.Manager.Contact == "" {
		return
	}
	s.notify.Dispatch(ctx, email.TeamUpdate(team.Manager.Contact, team.Manager.Name, team.Name, updateType, details))
}

func applyUpdate(team *Team, in UpdateInput) {
	if in.Name != nil {
		team.Name = *in.Name
	}
	if in.ShortName != nil {
		team.ShortName = strings.ToUpper(*in.ShortName)
	}
	if in.Logo != nil {
		team.Logo = *in.Logo
	}
	if in.HomeGround != nil {
		team.HomeGround = *in.HomeGround
	}
	if in.Manager != nil {
		team.Manager.Name = in.Manager.Name
		team.Manager.Contact = in.Manager.Contact
	}
	if in.Coach != nil {
		team.Coach = *in.Coach
	}
	if in.IsActive != nil {
		team.IsActive = *in.IsActive
	}
	if in.Stats != nil {
		team.Stats = *in.Stats
	}
}

func sanitizeCreate(in *CreateInput) {
	sanitize.Texts(&in.Name, &in.ShortName, &in.HomeGround, &in.Manager.Name, &in.Coach.Name, &in.Coach.Specialization)
	in.Logo = strings.TrimSpace(in.Logo)
	in.Manager.Contact = strings.TrimSpace(in.Manager.Contact)
}

func sanitizeUpdate(in *UpdateInput) {
	sanitize.Texts(in.Name, in.ShortName, in.HomeGround)
	if in.Manager != nil {
		sanitize.Texts(&in.Manager.Name)
		in.Manager.Contact = strings.TrimSpace(in.Manager.Contact)
	}
	if in.Coach != nil {
		sanitize.Texts(&in.Coach.Name, &in.Coach.Specialization)
	}
}

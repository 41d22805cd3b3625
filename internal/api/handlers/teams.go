package handlers

import (
	"context"
	"net/http"

	"github.com/pitchside/server/internal/api/problem"
	"github.com/pitchside/server/internal/api/render"
	"github.com/pitchside/server/internal/auth"
	"github.com/pitchside/server/internal/domain/players"
	"github.com/pitchside/server/internal/domain/query"
	"github.com/pitchside/server/internal/domain/teams"
)

type TeamService interface {
	List(ctx context.Context, spec query.Spec) ([]teams.Team, int, error)
	Get(ctx context.Context, id string) (*teams.Team, error)
	Stats(ctx context.Context, id string) (teams.StatsView, error)
	Create(ctx context.Context, actor auth.Actor, in teams.CreateInput) (*teams.Team, error)
	Update(ctx context.Context, actor auth.Actor, id string, in teams.UpdateInput) (*teams.Team, error)
	Delete(ctx context.Context, actor auth.Actor, id string) error
}

// RosterService adds and removes players through a team.
type RosterService interface {
	AddToTeam(ctx context.Context, actor auth.Actor, teamID string, in players.CreateInput) (*players.Player, error)
	RemoveFromTeam(ctx context.Context, actor auth.Actor, teamID, playerID string) error
}

type TeamsHandler struct {
	Service TeamService
	Roster  RosterService
	Env     string
}

func NewTeamsHandler(service TeamService, roster RosterService, env string) *TeamsHandler {
	return &TeamsHandler{Service: service, Roster: roster, Env: env}
}

func (h *TeamsHandler) List(w http.ResponseWriter, r *http.Request) {
	spec, err := listSpec(teams.Schema, r)
	if err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	items, total, err := h.Service.List(r.Context(), spec)
	if err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	writeList(w, r, spec, items, total)
}

func (h *TeamsHandler) Get(w http.ResponseWriter, r *http.Request) {
	team, err := h.Service.Get(r.Context(), pathParam(r, "id"))
	if err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	render.One(w, r, http.StatusOK, team, fieldsParam(r))
}

func (h *TeamsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	view, err := h.Service.Stats(r.Context(), pathParam(r, "id"))
	if err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	render.One(w, r, http.StatusOK, view, nil)
}

func (h *TeamsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in teams.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	team, err := h.Service.Create(r.Context(), actorFrom(r), in)
	if err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	render.One(w, r, http.StatusCreated, team, nil)
}

func (h *TeamsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in teams.UpdateInput
	if err := decodeJSON(r, &in); err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	team, err := h.Service.Update(r.Context(), actorFrom(r), pathParam(r, "id"), in)
	if err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	render.One(w, r, http.StatusOK, team, nil)
}

func (h *TeamsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), actorFrom(r), pathParam(r, "id")); err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	render.Deleted(w, r)
}

// AddPlayer creates a player directly on the team in the path. A "team"
// field in the body is ignored.
func (h *TeamsHandler) AddPlayer(w http.ResponseWriter, r *http.Request) {
	var in players.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	player, err := h.Roster.AddToTeam(r.Context(), actorFrom(r), pathParam(r, "id"), in)
	if err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	render.One(w, r, http.StatusCreated, player, nil)
}

func (h *TeamsHandler) RemovePlayer(w http.ResponseWriter, r *http.Request) {
	err := h.Roster.RemoveFromTeam(r.Context(), actorFrom(r), pathParam(r, "id"), pathParam(r, "playerId"))
	if err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	render.Deleted(w, r)
}

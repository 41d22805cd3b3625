package handlers

import (
	"context"
	"net/http"

	"github.com/pitchside/server/internal/api/problem"
	"github.com/pitchside/server/internal/api/render"
	"github.com/pitchside/server/internal/auth"
	"github.com/pitchside/server/internal/domain/players"
	"github.com/pitchside/server/internal/domain/query"
)

type PlayerService interface {
	List(ctx context.Context, spec query.Spec) ([]players.Player, int, error)
	ByRole(ctx context.Context, spec query.Spec, role string) ([]players.Player, int, error)
	ByTeam(ctx context.Context, spec query.Spec, teamID string) ([]players.Player, int, error)
	TopScorers(ctx context.Context, spec query.Spec) ([]players.Player, int, error)
	TopWicketTakers(ctx context.Context, spec query.Spec) ([]players.Player, int, error)
	AllRounders(ctx context.Context, spec query.Spec) ([]players.Player, int, error)
	Get(ctx context.Context, id string) (*players.Player, error)
	Stats(ctx context.Context, id string) (players.StatsView, error)
	Create(ctx context.Context, actor auth.Actor, in players.CreateInput) (*players.Player, error)
	Update(ctx context.Context, actor auth.Actor, id string, in players.UpdateInput) (*players.Player, error)
	Delete(ctx context.Context, actor auth.Actor, id string) error
	UpdateStats(ctx context.Context, actor auth.Actor, id string, in players.StatsInput) (players.Stats, error)
}

type PlayersHandler struct {
	Service PlayerService
	Env     string
}

func NewPlayersHandler(service PlayerService, env string) *PlayersHandler {
	return &PlayersHandler{Service: service, Env: env}
}

type playerLister func(ctx context.Context, spec query.Spec, r *http.Request) ([]players.Player, int, error)

// list runs one of the list variants. Every variant shares the query
// parsing and response shape; only the service call differs.
func (h *PlayersHandler) list(fn playerLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spec, err := listSpec(players.Schema, r)
		if err != nil {
			problem.Error(w, r, err, h.Env)
			return
		}
		items, total, err := fn(r.Context(), spec, r)
		if err != nil {
			problem.Error(w, r, err, h.Env)
			return
		}
		writeList(w, r, spec, items, total)
	}
}

func (h *PlayersHandler) List() http.HandlerFunc {
	return h.list(func(ctx context.Context, spec query.Spec, _ *http.Request) ([]players.Player, int, error) {
		return h.Service.List(ctx, spec)
	})
}

func (h *PlayersHandler) ByRole() http.HandlerFunc {
	return h.list(func(ctx context.Context, spec query.Spec, r *http.Request) ([]players.Player, int, error) {
		return h.Service.ByRole(ctx, spec, pathParam(r, "role"))
	})
}

func (h *PlayersHandler) ByTeam() http.HandlerFunc {
	return h.list(func(ctx context.Context, spec query.Spec, r *http.Request) ([]players.Player, int, error) {
		return h.Service.ByTeam(ctx, spec, pathParam(r, "teamId"))
	})
}

func (h *PlayersHandler) TopScorers() http.HandlerFunc {
	return h.list(func(ctx context.Context, spec query.Spec, _ *http.Request) ([]players.Player, int, error) {
		return h.Service.TopScorers(ctx, spec)
	})
}

func (h *PlayersHandler) TopWicketTakers() http.HandlerFunc {
	return h.list(func(ctx context.Context, spec query.Spec, _ *http.Request) ([]players.Player, int, error) {
		return h.Service.TopWicketTakers(ctx, spec)
	})
}

func (h *PlayersHandler) AllRounders() http.HandlerFunc {
	return h.list(func(ctx context.Context, spec query.Spec, _ *http.Request) ([]players.Player, int, error) {
		return h.Service.AllRounders(ctx, spec)
	})
}

func (h *PlayersHandler) Get(w http.ResponseWriter, r *http.Request) {
	player, err := h.Service.Get(r.Context(), pathParam(r, "id"))
	if err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	render.One(w, r, http.StatusOK, player, fieldsParam(r))
}

func (h *PlayersHandler) Stats(w http.ResponseWriter, r *http.Request) {
	view, err := h.Service.Stats(r.Context(), pathParam(r, "id"))
	if err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	render.One(w, r, http.StatusOK, view, nil)
}

func (h *PlayersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in players.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	player, err := h.Service.Create(r.Context(), actorFrom(r), in)
	if err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	render.One(w, r, http.StatusCreated, player, nil)
}

func (h *PlayersHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in players.UpdateInput
	if err := decodeJSON(r, &in); err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	player, err := h.Service.Update(r.Context(), actorFrom(r), pathParam(r, "id"), in)
	if err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	render.One(w, r, http.StatusOK, player, nil)
}

func (h *PlayersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), actorFrom(r), pathParam(r, "id")); err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	render.Deleted(w, r)
}

// UpdateStats folds one match performance into the player's totals.
func (h *PlayersHandler) UpdateStats(w http.ResponseWriter, r *http.Request) {
	var in players.StatsInput
	if err := decodeJSON(r, &in); err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	st, err := h.Service.UpdateStats(r.Context(), actorFrom(r), pathParam(r, "id"), in)
	if err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	render.One(w, r, http.StatusOK, st, nil)
}

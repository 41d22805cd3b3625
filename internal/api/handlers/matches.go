package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/pitchside/server/internal/api/problem"
	"github.com/pitchside/server/internal/api/render"
	"github.com/pitchside/server/internal/auth"
	"github.com/pitchside/server/internal/domain/matches"
	"github.com/pitchside/server/internal/domain/query"
)

type MatchService interface {
	List(ctx context.Context, spec query.Spec) ([]matches.Match, int, error)
	ByTournament(ctx context.Context, spec query.Spec, tournamentID string) ([]matches.Match, int, error)
	ByTeam(ctx context.Context, spec query.Spec, teamID string) ([]matches.Match, int, error)
	Between(ctx context.Context, spec query.Spec, from, to time.Time) ([]matches.Match, int, error)
	ByStatus(ctx context.Context, spec query.Spec, status string) ([]matches.Match, int, error)
	Live(ctx context.Context, spec query.Spec) ([]matches.Match, int, error)
	Recent(ctx context.Context, spec query.Spec) ([]matches.Match, int, error)
	Upcoming(ctx context.Context, spec query.Spec) ([]matches.Match, int, error)
	ByType(ctx context.Context, spec query.Spec, matchType string) ([]matches.Match, int, error)
	ByVenue(ctx context.Context, spec query.Spec, ground string) ([]matches.Match, int, error)
	Get(ctx context.Context, id string) (*matches.Match, error)
	Stats(ctx context.Context, id string) (matches.StatsView, error)
	Create(ctx context.Context, actor auth.Actor, in matches.CreateInput) (*matches.Match, error)
	Update(ctx context.Context, actor auth.Actor, id string, in matches.UpdateInput) (*matches.Match, error)
	UpdateScore(ctx context.Context, actor auth.Actor, id string, in matches.ScoreInput) (*matches.Match, error)
	Delete(ctx context.Context, actor auth.Actor, id string) error
}

type MatchesHandler struct {
	Service MatchService
	Env     string
}

func NewMatchesHandler(service MatchService, env string) *MatchesHandler {
	return &MatchesHandler{Service: service, Env: env}
}

type matchLister func(ctx context.Context, spec query.Spec, r *http.Request) ([]matches.Match, int, error)

func (h *MatchesHandler) list(fn matchLister, omit ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spec, err := listSpec(matches.Schema, r, omit...)
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

func (h *MatchesHandler) List() http.HandlerFunc {
	return h.list(func(ctx context.Context, spec query.Spec, _ *http.Request) ([]matches.Match, int, error) {
		return h.Service.List(ctx, spec)
	})
}

// Schedule lists matches starting between the startDate and endDate query
// parameters, both required.
func (h *MatchesHandler) Schedule() http.HandlerFunc {
	return h.list(func(ctx context.Context, spec query.Spec, r *http.Request) ([]matches.Match, int, error) {
		from, to, err := dateRange(r)
		if err != nil {
			return nil, 0, err
		}
		return h.Service.Between(ctx, spec, from, to)
	}, "startDate", "endDate")
}

func (h *MatchesHandler) ByStatus() http.HandlerFunc {
	return h.list(func(ctx context.Context, spec query.Spec, r *http.Request) ([]matches.Match, int, error) {
		return h.Service.ByStatus(ctx, spec, pathParam(r, "status"))
	})
}

func (h *MatchesHandler) Live() http.HandlerFunc {
	return h.list(func(ctx context.Context, spec query.Spec, _ *http.Request) ([]matches.Match, int, error) {
		return h.Service.Live(ctx, spec)
	})
}

func (h *MatchesHandler) Recent() http.HandlerFunc {
	return h.list(func(ctx context.Context, spec query.Spec, _ *http.Request) ([]matches.Match, int, error) {
		return h.Service.Recent(ctx, spec)
	})
}

func (h *MatchesHandler) Upcoming() http.HandlerFunc {
	return h.list(func(ctx context.Context, spec query.Spec, _ *http.Request) ([]matches.Match, int, error) {
		return h.Service.Upcoming(ctx, spec)
	})
}

func (h *MatchesHandler) ByType() http.HandlerFunc {
	return h.list(func(ctx context.Context, spec query.Spec, r *http.Request) ([]matches.Match, int, error) {
		return h.Service.ByType(ctx, spec, pathParam(r, "type"))
	})
}

func (h *MatchesHandler) ByVenue() http.HandlerFunc {
	return h.list(func(ctx context.Context, spec query.Spec, r *http.Request) ([]matches.Match, int, error) {
		return h.Service.ByVenue(ctx, spec, pathParam(r, "venue"))
	})
}

func (h *MatchesHandler) ByTournament() http.HandlerFunc {
	return h.list(func(ctx context.Context, spec query.Spec, r *http.Request) ([]matches.Match, int, error) {
		return h.Service.ByTournament(ctx, spec, pathParam(r, "id"))
	})
}

func (h *MatchesHandler) ByTeam() http.HandlerFunc {
	return h.list(func(ctx context.Context, spec query.Spec, r *http.Request) ([]matches.Match, int, error) {
		return h.Service.ByTeam(ctx, spec, pathParam(r, "id"))
	})
}

func (h *MatchesHandler) Get(w http.ResponseWriter, r *http.Request) {
	match, err := h.Service.Get(r.Context(), pathParam(r, "id"))
	if err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	render.One(w, r, http.StatusOK, match, fieldsParam(r))
}

func (h *MatchesHandler) Stats(w http.ResponseWriter, r *http.Request) {
	view, err := h.Service.Stats(r.Context(), pathParam(r, "id"))
	if err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	render.One(w, r, http.StatusOK, view, nil)
}

func (h *MatchesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in matches.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	match, err := h.Service.Create(r.Context(), actorFrom(r), in)
	if err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	render.One(w, r, http.StatusCreated, match, nil)
}

func (h *MatchesHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in matches.UpdateInput
	if err := decodeJSON(r, &in); err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	match, err := h.Service.Update(r.Context(), actorFrom(r), pathParam(r, "id"), in)
	if err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	render.One(w, r, http.StatusOK, match, nil)
}

func (h *MatchesHandler) UpdateScore(w http.ResponseWriter, r *http.Request) {
	var in matches.ScoreInput
	if err := decodeJSON(r, &in); err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	match, err := h.Service.UpdateScore(r.Context(), actorFrom(r), pathParam(r, "id"), in)
	if err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	render.One(w, r, http.StatusOK, match, nil)
}

func (h *MatchesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), actorFrom(r), pathParam(r, "id")); err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	render.Deleted(w, r)
}

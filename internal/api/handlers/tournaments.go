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
	"github.com/pitchside/server/internal/domain/stats"
	"github.com/pitchside/server/internal/domain/tournaments"
)

type TournamentService interface {
	List(ctx context.Context, spec query.Spec) ([]tournaments.Tournament, int, error)
	ByStatus(ctx context.Context, spec query.Spec, status string) ([]tournaments.Tournament, int, error)
	Active(ctx context.Context, spec query.Spec) ([]tournaments.Tournament, int, error)
	Upcoming(ctx context.Context, spec query.Spec) ([]tournaments.Tournament, int, error)
	RegistrationOpen(ctx context.Context, spec query.Spec) ([]tournaments.Tournament, int, error)
	ByFormat(ctx context.Context, spec query.Spec, format string) ([]tournaments.Tournament, int, error)
	BySeason(ctx context.Context, spec query.Spec, season string) ([]tournaments.Tournament, int, error)
	ByTeam(ctx context.Context, spec query.Spec, teamID string) ([]tournaments.Tournament, int, error)
	Between(ctx context.Context, spec query.Spec, from, to time.Time) ([]tournaments.Tournament, int, error)
	Get(ctx context.Context, id string) (*tournaments.Tournament, error)
	Stats(ctx context.Context, id string) (tournaments.StatsView, error)
	PointsTable(ctx context.Context, id string) ([]stats.PointsRow, error)
	Schedule(ctx context.Context, spec query.Spec, id string) ([]matches.Match, int, error)
	Create(ctx context.Context, actor auth.Actor, in tournaments.CreateInput) (*tournaments.Tournament, error)
	Update(ctx context.Context, actor auth.Actor, id string, in tournaments.UpdateInput) (*tournaments.Tournament, error)
	Delete(ctx context.Context, actor auth.Actor, id string) error
	Register(ctx context.Context, actor auth.Actor, id string, in tournaments.RegisterInput) (*tournaments.Tournament, error)
	SetEntryStatus(ctx context.Context, actor auth.Actor, id, teamID string, in tournaments.StatusInput) (*tournaments.Tournament, error)
}

type TournamentsHandler struct {
	Service TournamentService
	Env     string
}

func NewTournamentsHandler(service TournamentService, env string) *TournamentsHandler {
	return &TournamentsHandler{Service: service, Env: env}
}

type tournamentLister func(ctx context.Context, spec query.Spec, r *http.Request) ([]tournaments.Tournament, int, error)

func (h *TournamentsHandler) list(fn tournamentLister, omit ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spec, err := listSpec(tournaments.Schema, r, omit...)
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

func (h *TournamentsHandler) List() http.HandlerFunc {
	return h.list(func(ctx context.Context, spec query.Spec, _ *http.Request) ([]tournaments.Tournament, int, error) {
		return h.Service.List(ctx, spec)
	})
}

func (h *TournamentsHandler) ByStatus() http.HandlerFunc {
	return h.list(func(ctx context.Context, spec query.Spec, r *http.Request) ([]tournaments.Tournament, int, error) {
		return h.Service.ByStatus(ctx, spec, pathParam(r, "status"))
	})
}

func (h *TournamentsHandler) Active() http.HandlerFunc {
	return h.list(func(ctx context.Context, spec query.Spec, _ *http.Request) ([]tournaments.Tournament, int, error) {
		return h.Service.Active(ctx, spec)
	})
}

func (h *TournamentsHandler) Upcoming() http.HandlerFunc {
	return h.list(func(ctx context.Context, spec query.Spec, _ *http.Request) ([]tournaments.Tournament, int, error) {
		return h.Service.Upcoming(ctx, spec)
	})
}

func (h *TournamentsHandler) RegistrationOpen() http.HandlerFunc {
	return h.list(func(ctx context.Context, spec query.Spec, _ *http.Request) ([]tournaments.Tournament, int, error) {
		return h.Service.RegistrationOpen(ctx, spec)
	})
}

func (h *TournamentsHandler) ByFormat() http.HandlerFunc {
	return h.list(func(ctx context.Context, spec query.Spec, r *http.Request) ([]tournaments.Tournament, int, error) {
		return h.Service.ByFormat(ctx, spec, pathParam(r, "format"))
	})
}

func (h *TournamentsHandler) BySeason() http.HandlerFunc {
	return h.list(func(ctx context.Context, spec query.Spec, r *http.Request) ([]tournaments.Tournament, int, error) {
		return h.Service.BySeason(ctx, spec, pathParam(r, "season"))
	})
}

func (h *TournamentsHandler) ByTeam() http.HandlerFunc {
	return h.list(func(ctx context.Context, spec query.Spec, r *http.Request) ([]tournaments.Tournament, int, error) {
		return h.Service.ByTeam(ctx, spec, pathParam(r, "teamId"))
	})
}

// Between lists tournaments inside the startDate..endDate window.
func (h *TournamentsHandler) Between() http.HandlerFunc {
	return h.list(func(ctx context.Context, spec query.Spec, r *http.Request) ([]tournaments.Tournament, int, error) {
		from, to, err := dateRange(r)
		if err != nil {
			return nil, 0, err
		}
		return h.Service.Between(ctx, spec, from, to)
	}, "startDate", "endDate")
}

func (h *TournamentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.Service.Get(r.Context(), pathParam(r, "id"))
	if err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	render.One(w, r, http.StatusOK, t, fieldsParam(r))
}

func (h *TournamentsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	view, err := h.Service.Stats(r.Context(), pathParam(r, "id"))
	if err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	render.One(w, r, http.StatusOK, view, nil)
}

func (h *TournamentsHandler) PointsTable(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Service.PointsTable(r.Context(), pathParam(r, "id"))
	if err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	if rows == nil {
		rows = []stats.PointsRow{}
	}
	render.One(w, r, http.StatusOK, rows, nil)
}

// Schedule lists the tournament's matches; query parameters filter matches.
func (h *TournamentsHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	spec, err := listSpec(matches.Schema, r)
	if err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	items, total, err := h.Service.Schedule(r.Context(), spec, pathParam(r, "id"))
	if err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	writeList(w, r, spec, items, total)
}

func (h *TournamentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in tournaments.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	t, err := h.Service.Create(r.Context(), actorFrom(r), in)
	if err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	render.One(w, r, http.StatusCreated, t, nil)
}

func (h *TournamentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in tournaments.UpdateInput
	if err := decodeJSON(r, &in); err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	t, err := h.Service.Update(r.Context(), actorFrom(r), pathParam(r, "id"), in)
	if err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	render.One(w, r, http.StatusOK, t, nil)
}

func (h *TournamentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), actorFrom(r), pathParam(r, "id")); err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	render.Deleted(w, r)
}

func (h *TournamentsHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in tournaments.RegisterInput
	if err := decodeJSON(r, &in); err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	t, err := h.Service.Register(r.Context(), actorFrom(r), pathParam(r, "id"), in)
	if err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	render.One(w, r, http.StatusOK, t, nil)
}

func (h *TournamentsHandler) SetEntryStatus(w http.ResponseWriter, r *http.Request) {
	var in tournaments.StatusInput
	if err := decodeJSON(r, &in); err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	t, err := h.Service.SetEntryStatus(r.Context(), actorFrom(r), pathParam(r, "id"), pathParam(r, "teamId"), in)
	if err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	render.One(w, r, http.StatusOK, t, nil)
}

package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pitchside/server/internal/auth"
	"github.com/pitchside/server/internal/domain/matches"
	"github.com/pitchside/server/internal/domain/query"
	"github.com/pitchside/server/internal/domain/stats"
	"github.com/pitchside/server/internal/domain/tournaments"
)

type tournamentStub struct {
	TournamentService
	register    func(ctx context.Context, actor auth.Actor, id string, in tournaments.RegisterInput) (*tournaments.Tournament, error)
	setStatus   func(ctx context.Context, actor auth.Actor, id, teamID string, in tournaments.StatusInput) (*tournaments.Tournament, error)
	pointsTable func(ctx context.Context, id string) ([]stats.PointsRow, error)
	schedule    func(ctx context.Context, spec query.Spec, id string) ([]matches.Match, int, error)
}

func (s tournamentStub) Register(ctx context.Context, actor auth.Actor, id string, in tournaments.RegisterInput) (*tournaments.Tournament, error) {
	return s.register(ctx, actor, id, in)
}

func (s tournamentStub) SetEntryStatus(ctx context.Context, actor auth.Actor, id, teamID string, in tournaments.StatusInput) (*tournaments.Tournament, error) {
	return s.setStatus(ctx, actor, id, teamID, in)
}

func (s tournamentStub) PointsTable(ctx context.Context, id string) ([]stats.PointsRow, error) {
	return s.pointsTable(ctx, id)
}

func (s tournamentStub) Schedule(ctx context.Context, spec query.Spec, id string) ([]matches.Match, int, error) {
	return s.schedule(ctx, spec, id)
}

func tournamentsMux(h *TournamentsHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /api/tournaments/schedule", h.Between())
	mux.HandleFunc("GET /api/tournaments/{id}/points-table", h.PointsTable)
	mux.HandleFunc("GET /api/tournaments/{id}/schedule", h.Schedule)
	mux.HandleFunc("POST /api/tournaments/{id}/teams", h.Register)
	mux.HandleFunc("PUT /api/tournaments/{id}/teams/{teamId}", h.SetEntryStatus)
	return mux
}

func TestTournamentsRegister(t *testing.T) {
	tournamentID := "01HYX3KQW7ERTV9XNBM2P8QJZT"
	var gotTeam string
	stub := tournamentStub{
		register: func(ctx context.Context, actor auth.Actor, id string, in tournaments.RegisterInput) (*tournaments.Tournament, error) {
			require.Equal(t, managerActor, actor)
			require.Equal(t, tournamentID, id)
			gotTeam = in.TeamRef()
			if gotTeam == missingID {
				return nil, tournaments.ErrAlreadyRegistered
			}
			return &tournaments.Tournament{ID: id, Name: "Summer Cup"}, nil
		},
	}
	mux := tournamentsMux(NewTournamentsHandler(stub, "test"))

	rec, body := serve(t, mux, managerActor, http.MethodPost, "/api/tournaments/"+tournamentID+"/teams",
		`{"team":"01HYX3KQW7ERTV9XNBM2P8QJZE"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "01HYX3KQW7ERTV9XNBM2P8QJZE", gotTeam)
	require.Equal(t, "Summer Cup", body["data"].(map[string]any)["name"])

	rec, body = serve(t, mux, managerActor, http.MethodPost, "/api/tournaments/"+tournamentID+"/teams",
		`{"teamId":"`+missingID+`"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, tournaments.ErrAlreadyRegistered.Error(), body["error"])
}

func TestTournamentsRegisterAfterDeadline(t *testing.T) {
	stub := tournamentStub{
		register: func(ctx context.Context, actor auth.Actor, id string, in tournaments.RegisterInput) (*tournaments.Tournament, error) {
			return nil, tournaments.ErrRegistrationClosed
		},
	}
	mux := tournamentsMux(NewTournamentsHandler(stub, "test"))

	rec, body := serve(t, mux, managerActor, http.MethodPost, "/api/tournaments/"+missingID+"/teams", `{"team":"x"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, body["error"], "registration deadline has passed")
}

func TestTournamentsSetEntryStatusReadsBothIDs(t *testing.T) {
	var gotID, gotTeam string
	stub := tournamentStub{
		setStatus: func(ctx context.Context, actor auth.Actor, id, teamID string, in tournaments.StatusInput) (*tournaments.Tournament, error) {
			gotID, gotTeam = id, teamID
			return nil, tournaments.ErrNotRegistered
		},
	}
	mux := tournamentsMux(NewTournamentsHandler(stub, "test"))

	rec, _ := serve(t, mux, adminActor, http.MethodPut,
		"/api/tournaments/01HYX3KQW7ERTV9XNBM2P8QJZT/teams/01HYX3KQW7ERTV9XNBM2P8QJZE", `{"status":"Approved"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "01HYX3KQW7ERTV9XNBM2P8QJZT", gotID)
	require.Equal(t, "01HYX3KQW7ERTV9XNBM2P8QJZE", gotTeam)
}

func TestTournamentsPointsTableEmpty(t *testing.T) {
	stub := tournamentStub{
		pointsTable: func(ctx context.Context, id string) ([]stats.PointsRow, error) { return nil, nil },
	}
	mux := tournamentsMux(NewTournamentsHandler(stub, "test"))

	rec, body := serve(t, mux, auth.Actor{}, http.MethodGet, "/api/tournaments/"+missingID+"/points-table", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []any{}, body["data"])
}

func TestTournamentsScheduleFiltersMatches(t *testing.T) {
	var gotSpec query.Spec
	stub := tournamentStub{
		schedule: func(ctx context.Context, spec query.Spec, id string) ([]matches.Match, int, error) {
			gotSpec = spec
			return nil, 0, nil
		},
	}
	mux := tournamentsMux(NewTournamentsHandler(stub, "test"))

	rec, _ := serve(t, mux, auth.Actor{}, http.MethodGet, "/api/tournaments/"+missingID+"/schedule?status=Completed", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, gotSpec.Filters, 1)

	rec, _ = serve(t, mux, auth.Actor{}, http.MethodGet, "/api/tournaments/"+missingID+"/schedule?season=2026", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTournamentsBetweenRequiresDates(t *testing.T) {
	mux := tournamentsMux(NewTournamentsHandler(tournamentStub{}, "test"))
	rec, body := serve(t, mux, auth.Actor{}, http.MethodGet, "/api/tournaments/schedule", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Len(t, body["errors"], 2)
}

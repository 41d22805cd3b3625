package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pitchside/server/internal/domain/query"
	"github.com/pitchside/server/internal/domain/stats"
	"github.com/pitchside/server/internal/domain/tournaments"
)

type TournamentReader interface {
	Active(ctx context.Context, spec query.Spec) ([]tournaments.Tournament, int, error)
	PointsTable(ctx context.Context, id string) ([]stats.PointsRow, error)
	Stats(ctx context.Context, id string) (tournaments.StatsView, error)
}

type TournamentTools struct {
	tournaments TournamentReader
}

func NewTournamentTools(tournaments TournamentReader) *TournamentTools {
	return &TournamentTools{tournaments: tournaments}
}

func (t *TournamentTools) ActiveTournamentsTool() mcp.Tool {
	return mcp.NewTool("active_tournaments",
		mcp.WithDescription("List tournaments currently in progress."),
		mcp.WithNumber("limit", mcp.Description("Maximum tournaments to return (default 10)")),
	)
}

func (t *TournamentTools) ActiveTournamentsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t == nil || t.tournaments == nil {
		return mcp.NewToolResultError("tournaments service not configured"), nil
	}
	var args pageArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	args.Sort = ""
	spec, err := args.spec(tournaments.Schema)
	if err != nil {
		return toolError("invalid arguments", err)
	}
	items, total, err := t.tournaments.Active(ctx, spec)
	if err != nil {
		return toolError("failed to list tournaments", err)
	}
	return listResult(items, total, spec)
}

func (t *TournamentTools) PointsTableTool() mcp.Tool {
	return mcp.NewTool("points_table",
		mcp.WithDescription("Standings of a tournament ranked by points, then net run rate."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Tournament id (ULID)")),
	)
}

func (t *TournamentTools) PointsTableHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t == nil || t.tournaments == nil {
		return mcp.NewToolResultError("tournaments service not configured"), nil
	}
	var args struct {
		ID string `json:"id"`
	}
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	if res, ok := requireID(args.ID); !ok {
		return res, nil
	}
	rows, err := t.tournaments.PointsTable(ctx, args.ID)
	if err != nil {
		return toolError("failed to load points table", err)
	}
	if rows == nil {
		rows = []stats.PointsRow{}
	}
	return toolResultJSON(map[string]any{"items": rows})
}

func (t *TournamentTools) TournamentStatsTool() mcp.Tool {
	return mcp.NewTool("tournament_stats",
		mcp.WithDescription("Summary of a tournament: matches played and remaining, top run scorers and wicket takers."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Tournament id (ULID)")),
	)
}

func (t *TournamentTools) TournamentStatsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t == nil || t.tournaments == nil {
		return mcp.NewToolResultError("tournaments service not configured"), nil
	}
	var args struct {
		ID string `json:"id"`
	}
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	if res, ok := requireID(args.ID); !ok {
		return res, nil
	}
	view, err := t.tournaments.Stats(ctx, args.ID)
	if err != nil {
		return toolError("failed to load tournament stats", err)
	}
	return toolResultJSON(view)
}

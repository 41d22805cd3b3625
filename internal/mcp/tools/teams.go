package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pitchside/server/internal/domain/players"
	"github.com/pitchside/server/internal/domain/query"
	"github.com/pitchside/server/internal/domain/teams"
)

type TeamReader interface {
	List(ctx context.Context, spec query.Spec) ([]teams.Team, int, error)
	Get(ctx context.Context, id string) (*teams.Team, error)
}

type PlayerReader interface {
	TopScorers(ctx context.Context, spec query.Spec) ([]players.Player, int, error)
	TopWicketTakers(ctx context.Context, spec query.Spec) ([]players.Player, int, error)
	AllRounders(ctx context.Context, spec query.Spec) ([]players.Player, int, error)
}

// TeamTools exposes teams and player leaderboards.
type TeamTools struct {
	teams   TeamReader
	players PlayerReader
}

func NewTeamTools(teams TeamReader, players PlayerReader) *TeamTools {
	return &TeamTools{teams: teams, players: players}
}

func (t *TeamTools) ListTeamsTool() mcp.Tool {
	return mcp.NewTool("list_teams",
		mcp.WithDescription("List cricket teams with their managers, rosters and season records."),
		mcp.WithNumber("limit", mcp.Description("Maximum teams to return (default 10, max 100)")),
		mcp.WithNumber("page", mcp.Description("1-based page number")),
		mcp.WithString("sort", mcp.Description("Sort expression, e.g. -stats.points or name")),
	)
}

func (t *TeamTools) ListTeamsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t == nil || t.teams == nil {
		return mcp.NewToolResultError("teams service not configured"), nil
	}
	var args pageArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	spec, err := args.spec(teams.Schema)
	if err != nil {
		return toolError("invalid arguments", err)
	}
	items, total, err := t.teams.List(ctx, spec)
	if err != nil {
		return toolError("failed to list teams", err)
	}
	return listResult(items, total, spec)
}

func (t *TeamTools) GetTeamTool() mcp.Tool {
	return mcp.NewTool("get_team",
		mcp.WithDescription("Get one team by id, including its roster and statistics."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Team id (ULID)")),
	)
}

func (t *TeamTools) GetTeamHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t == nil || t.teams == nil {
		return mcp.NewToolResultError("teams service not configured"), nil
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
	team, err := t.teams.Get(ctx, args.ID)
	if err != nil {
		return toolError("failed to get team", err)
	}
	return toolResultJSON(team)
}

func (t *TeamTools) LeaderboardTool() mcp.Tool {
	return mcp.NewTool("player_leaderboard",
		mcp.WithDescription("Rank players by career runs, wickets, or as all-rounders."),
		mcp.WithString("kind",
			mcp.Required(),
			mcp.Enum("runs", "wickets", "all-rounders"),
			mcp.Description("Which leaderboard to return"),
		),
		mcp.WithNumber("limit", mcp.Description("Maximum players to return (default 10)")),
	)
}

func (t *TeamTools) LeaderboardHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t == nil || t.players == nil {
		return mcp.NewToolResultError("players service not configured"), nil
	}
	var args struct {
		pageArgs
		Kind string `json:"kind"`
	}
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}

	var rank func(context.Context, query.Spec) ([]players.Player, int, error)
	switch args.Kind {
	case "runs":
		rank = t.players.TopScorers
	case "wickets":
		rank = t.players.TopWicketTakers
	case "all-rounders":
		rank = t.players.AllRounders
	default:
		return mcp.NewToolResultError("kind must be runs, wickets or all-rounders"), nil
	}

	// The leaderboard fixes its own order.
	args.Sort = ""
	spec, err := args.spec(players.Schema)
	if err != nil {
		return toolError("invalid arguments", err)
	}
	items, total, err := rank(ctx, spec)
	if err != nil {
		return toolError("failed to rank players", err)
	}
	return listResult(items, total, spec)
}

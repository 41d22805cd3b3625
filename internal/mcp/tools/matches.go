package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pitchside/server/internal/domain/matches"
	"github.com/pitchside/server/internal/domain/query"
)

type MatchReader interface {
	Live(ctx context.Context, spec query.Spec) ([]matches.Match, int, error)
	Upcoming(ctx context.Context, spec query.Spec) ([]matches.Match, int, error)
	Get(ctx context.Context, id string) (*matches.Match, error)
}

type MatchTools struct {
	matches MatchReader
}

func NewMatchTools(matches MatchReader) *MatchTools {
	return &MatchTools{matches: matches}
}

func (t *MatchTools) ListMatchesTool() mcp.Tool {
	return mcp.NewTool("list_matches",
		mcp.WithDescription("List matches that are live now or scheduled next."),
		mcp.WithString("when",
			mcp.Enum("live", "upcoming"),
			mcp.DefaultString("live"),
			mcp.Description("live for matches in progress, upcoming for the fixture list"),
		),
		mcp.WithNumber("limit", mcp.Description("Maximum matches to return (default 10)")),
	)
}

func (t *MatchTools) ListMatchesHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t == nil || t.matches == nil {
		return mcp.NewToolResultError("matches service not configured"), nil
	}
	var args struct {
		pageArgs
		When string `json:"when"`
	}
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}

	list := t.matches.Live
	switch args.When {
	case "", "live":
	case "upcoming":
		list = t.matches.Upcoming
	default:
		return mcp.NewToolResultError("when must be live or upcoming"), nil
	}

	args.Sort = ""
	spec, err := args.spec(matches.Schema)
	if err != nil {
		return toolError("invalid arguments", err)
	}
	items, total, err := list(ctx, spec)
	if err != nil {
		return toolError("failed to list matches", err)
	}
	return listResult(items, total, spec)
}

func (t *MatchTools) GetMatchTool() mcp.Tool {
	return mcp.NewTool("get_match",
		mcp.WithDescription("Get one match by id with the toss, innings scores and result."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Match id (ULID)")),
	)
}

func (t *MatchTools) GetMatchHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t == nil || t.matches == nil {
		return mcp.NewToolResultError("matches service not configured"), nil
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
	match, err := t.matches.Get(ctx, args.ID)
	if err != nil {
		return toolError("failed to get match", err)
	}
	return toolResultJSON(match)
}

package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	matchPreviewPrompt    = "match_preview"
	tournamentRecapPrompt = "tournament_recap"
)

type PromptTemplates struct{}

func NewPromptTemplates() *PromptTemplates {
	return &PromptTemplates{}
}

func (p *PromptTemplates) MatchPreviewPrompt() mcp.Prompt {
	return mcp.NewPrompt(
		matchPreviewPrompt,
		mcp.WithPromptDescription("Write a preview of an upcoming match from both teams' records"),
		mcp.WithArgument("match_id", mcp.ArgumentDescription("Match id (ULID)"), mcp.RequiredArgument()),
		mcp.WithArgument("tone", mcp.ArgumentDescription("Writing style, e.g. broadcast or club newsletter")),
	)
}

func (p *PromptTemplates) TournamentRecapPrompt() mcp.Prompt {
	return mcp.NewPrompt(
		tournamentRecapPrompt,
		mcp.WithPromptDescription("Summarise the standings and standout players of a tournament"),
		mcp.WithArgument("tournament_id", mcp.ArgumentDescription("Tournament id (ULID)"), mcp.RequiredArgument()),
	)
}

func (p *PromptTemplates) MatchPreviewHandler(_ context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	args := request.Params.Arguments
	matchID := getArgString(args, "match_id")
	if matchID == "" {
		return nil, fmt.Errorf("match_id is required")
	}
	tone := getArgString(args, "tone")
	if tone == "" {
		tone = "broadcast"
	}

	text := fmt.Sprintf(`Write a %s-style preview of match %s.

Call get_match for the fixture, then get_team for both sides. Cover recent
form (wins, losses, net run rate), the venue and the likely key players.
Do not invent scores for a match that has not started.`, tone, matchID)

	return &mcp.GetPromptResult{
		Description: "Preview of an upcoming match",
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.NewTextContent(text),
			},
		},
	}, nil
}

func (p *PromptTemplates) TournamentRecapHandler(_ context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	tournamentID := getArgString(request.Params.Arguments, "tournament_id")
	if tournamentID == "" {
		return nil, fmt.Errorf("tournament_id is required")
	}

	text := fmt.Sprintf(`Summarise tournament %s.

Call points_table for the standings and tournament_stats for the leading run
scorers and wicket takers. Report teams in points-table order and explain
any ties with net run rate.`, tournamentID)

	return &mcp.GetPromptResult{
		Description: "Tournament standings recap",
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.NewTextContent(text),
			},
		},
	}, nil
}

func getArgString(args map[string]string, key string) string {
	if args == nil {
		return ""
	}
	return strings.TrimSpace(args[key])
}

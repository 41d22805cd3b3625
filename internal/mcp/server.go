// Package mcp exposes read-only cricket queries to Model Context Protocol
// clients.
package mcp

import (
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/pitchside/server/internal/mcp/prompts"
	"github.com/pitchside/server/internal/mcp/tools"
)

// Services are the read paths the tools query.
type Services struct {
	Teams       tools.TeamReader
	Players     tools.PlayerReader
	Matches     tools.MatchReader
	Tournaments tools.TournamentReader
}

type Config struct {
	Name    string
	Version string
}

// Server wraps the MCP server with the cricket domain services.
type Server struct {
	mcp *mcpserver.MCPServer
}

func NewServer(cfg Config, svc Services) *Server {
	mcpServer := mcpserver.NewMCPServer(
		cfg.Name,
		cfg.Version,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithPromptCapabilities(false),
		mcpserver.WithRecovery(),
		mcpserver.WithInstructions("Read-only access to cricket teams, players, matches and tournament standings."),
	)

	srv := &Server{mcp: mcpServer}
	srv.registerTools(svc)
	srv.registerPrompts()
	return srv
}

// MCPServer returns the underlying server for use with transports.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcp
}

func (s *Server) registerTools(svc Services) {
	teamTools := tools.NewTeamTools(svc.Teams, svc.Players)
	s.mcp.AddTool(teamTools.ListTeamsTool(), teamTools.ListTeamsHandler)
	s.mcp.AddTool(teamTools.GetTeamTool(), teamTools.GetTeamHandler)
	s.mcp.AddTool(teamTools.LeaderboardTool(), teamTools.LeaderboardHandler)

	matchTools := tools.NewMatchTools(svc.Matches)
	s.mcp.AddTool(matchTools.ListMatchesTool(), matchTools.ListMatchesHandler)
	s.mcp.AddTool(matchTools.GetMatchTool(), matchTools.GetMatchHandler)

	tournamentTools := tools.NewTournamentTools(svc.Tournaments)
	s.mcp.AddTool(tournamentTools.ActiveTournamentsTool(), tournamentTools.ActiveTournamentsHandler)
	s.mcp.AddTool(tournamentTools.PointsTableTool(), tournamentTools.PointsTableHandler)
	s.mcp.AddTool(tournamentTools.TournamentStatsTool(), tournamentTools.TournamentStatsHandler)
}

func (s *Server) registerPrompts() {
	templates := prompts.NewPromptTemplates()
	s.mcp.AddPrompt(templates.MatchPreviewPrompt(), templates.MatchPreviewHandler)
	s.mcp.AddPrompt(templates.TournamentRecapPrompt(), templates.TournamentRecapHandler)
}

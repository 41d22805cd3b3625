// Command mcp-server serves read-only cricket queries over the Model
// Context Protocol.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pitchside/server/internal/api/middleware"
	"github.com/pitchside/server/internal/config"
	"github.com/pitchside/server/internal/domain/matches"
	"github.com/pitchside/server/internal/domain/players"
	"github.com/pitchside/server/internal/domain/teams"
	"github.com/pitchside/server/internal/domain/tournaments"
	"github.com/pitchside/server/internal/email"
	"github.com/pitchside/server/internal/mcp"
	"github.com/pitchside/server/internal/storage/postgres"
)

// Version is set via ldflags during build.
var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("PITCHSIDE_CONFIG"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	transport, err := mcp.LoadTransportConfig()
	if err != nil {
		return err
	}

	// Logs always go to stderr so the stdio transport stays clean.
	logger := config.NewStderrLogger(cfg.Logging)
	logger.Info().Str("transport", string(transport.Type)).Str("version", Version).Msg("starting MCP server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	pool, err := postgres.Open(openCtx, cfg.Database.URL, cfg.Database.MaxConnections)
	cancel()
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()

	db, err := postgres.New(pool)
	if err != nil {
		return err
	}

	// Every tool is a read, so nothing is ever sent.
	notify := email.NopDispatcher{}
	teamSvc := teams.NewService(db.Teams(), db, notify, logger)
	playerSvc := players.NewService(db.Players(), teamSvc, db, logger)
	matchSvc := matches.NewService(db.Matches(), teamSvc, db.Tournaments(), db, notify, logger)
	tournamentSvc := tournaments.NewService(db.Tournaments(), teamSvc, matchSvc, playerSvc, db, notify, logger)

	srv := mcp.NewServer(mcp.Config{Name: "Pitchside", Version: Version}, mcp.Services{
		Teams:       teamSvc,
		Players:     playerSvc,
		Matches:     matchSvc,
		Tournaments: tournamentSvc,
	})

	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.Server.TrustedProxyCIDRs)
	defer limiter.Stop()

	return mcp.Serve(ctx, srv.MCPServer(), transport, mcp.Middleware(limiter.Limit(middleware.TierPublic)), logger)
}

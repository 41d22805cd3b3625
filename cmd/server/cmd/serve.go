package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pitchside/server/internal/api"
	"github.com/pitchside/server/internal/api/handlers"
	"github.com/pitchside/server/internal/audit"
	"github.com/pitchside/server/internal/auth"
	"github.com/pitchside/server/internal/config"
	"github.com/pitchside/server/internal/domain/matches"
	"github.com/pitchside/server/internal/domain/players"
	"github.com/pitchside/server/internal/domain/teams"
	"github.com/pitchside/server/internal/domain/tournaments"
	"github.com/pitchside/server/internal/domain/users"
	"github.com/pitchside/server/internal/email"
	"github.com/pitchside/server/internal/jobs"
	"github.com/pitchside/server/internal/metrics"
	"github.com/pitchside/server/internal/storage/postgres"
	"github.com/pitchside/server/internal/telemetry"
)

const denylistPruneInterval = 10 * time.Minute

type serveOptions struct {
	host string
	port int
}

func newServeCommand(flags *globalFlags) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the Pitchside HTTP server and begin accepting API requests.

The server will:
- Load configuration from the environment, .env and the optional --config file
- Apply pending database migrations
- Create the bootstrap admin when ADMIN_USERNAME, ADMIN_EMAIL and ADMIN_PASSWORD are set
- Start the background job workers (email delivery, tournament status refresh)
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  # Start with configuration from the environment
  server serve

  # Start on a specific host and port
  server serve --host 127.0.0.1 --port 9090

  # Start with debug logging
  server serve --log-level debug --log-format console`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, flags, *opts)
		},
	}
	cmd.Flags().StringVar(&opts.host, "host", "", "server host address (default: 0.0.0.0)")
	cmd.Flags().IntVar(&opts.port, "port", 0, "server port (default: 8080)")
	return cmd
}

func runServer(ctx context.Context, flags *globalFlags, opts serveOptions) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if opts.host != "" {
		cfg.Server.Host = opts.host
	}
	if opts.port != 0 {
		cfg.Server.Port = opts.port
	}

	logger := config.NewLogger(cfg.Logging)
	logger.Info().Str("version", Version).Str("environment", cfg.Environment).Msg("starting pitchside server")
	metrics.Init(Version, GitCommit, BuildDate)

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Tracing, Version)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn().Err(err).Msg("tracing shutdown error")
		}
	}()

	if err := postgres.MigrateUp(cfg.Database.URL, ""); err != nil {
		return err
	}

	poolCtx, poolCancel := context.WithTimeout(ctx, 10*time.Second)
	pool, err := postgres.Open(poolCtx, cfg.Database.URL, cfg.Database.MaxConnections)
	poolCancel()
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()

	db, err := postgres.New(pool)
	if err != nil {
		return err
	}

	dbCollector := metrics.NewDBCollector(pool)
	go dbCollector.Start(ctx, 15*time.Second)
	defer dbCollector.Stop()

	mailer, err := email.NewService(cfg.Email, logger)
	if err != nil {
		return fmt.Errorf("email: %w", err)
	}

	// The status refresh worker is registered before the tournament service
	// exists; the service needs the queue-backed dispatcher first.
	var tournamentSvc *tournaments.Service
	refresher := jobs.RefresherFunc(func(ctx context.Context, now time.Time) (int, error) {
		return tournamentSvc.RefreshAll(ctx, now)
	})

	riverClient, dispatcher, err := newDispatcher(ctx, cfg, pool, mailer, refresher, logger)
	if err != nil {
		return err
	}

	teamSvc := teams.NewService(db.Teams(), db, dispatcher, logger)
	playerSvc := players.NewService(db.Players(), teamSvc, db, logger)
	matchSvc := matches.NewService(db.Matches(), teamSvc, db.Tournaments(), db, dispatcher, logger)
	tournamentSvc = tournaments.NewService(db.Tournaments(), teamSvc, matchSvc, playerSvc, db, dispatcher, logger)
	userSvc := users.NewService(db.Users(), dispatcher, audit.NewLogger(logger), cfg.Server.ClientURL, logger)

	if cfg.AdminBootstrap.Enabled() {
		bootstrapAdmin(ctx, userSvc, cfg, logger)
	}

	denylist := auth.NewDenylist(time.Now, denylistPruneInterval)
	denylist.Start(ctx)
	defer denylist.Stop()

	router, err := api.NewRouter(api.Options{
		Config: cfg,
		Logger: logger,
		Services: api.Services{
			Teams:       teamSvc,
			Roster:      playerSvc,
			Players:     playerSvc,
			Matches:     matchSvc,
			Tournaments: tournamentSvc,
			Users:       userSvc,
		},
		Tokens:    auth.NewJWTManager([]byte(cfg.Auth.JWTSecret), cfg.Auth.JWTExpiry(), cfg.Auth.JWTIssuer),
		Denylist:  denylist,
		Health:    handlers.NewHealthChecker(pool, riverClient != nil, Version, GitCommit),
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
	})
	if err != nil {
		return err
	}
	defer router.RateLimiter.Stop()

	if riverClient != nil {
		if err := riverClient.Start(ctx); err != nil {
			return fmt.Errorf("river workers failed to start: %w", err)
		}
		logger.Info().Int("workers", cfg.Jobs.Workers).Msg("river background job workers started")
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := riverClient.Stop(stopCtx); err != nil {
				logger.Error().Err(err).Msg("river workers shutdown error")
				return
			}
			logger.Info().Msg("river workers stopped")
		}()
	}

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           router.Handler,
		ReadTimeout:       10 * time.Second, // Total time to read request
		WriteTimeout:      30 * time.Second, // Total time to write response
		ReadHeaderTimeout: 5 * time.Second,  // Time to read headers
		MaxHeaderBytes:    1 << 20,          // 1 MB max header size
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	return gracefulShutdown(server, cfg.Server.ShutdownTimeout, logger)
}

// newDispatcher picks how notifications are delivered. With jobs enabled
// they go through River; otherwise they are sent inline.
func newDispatcher(ctx context.Context, cfg config.Config, pool *pgxpool.Pool, mailer *email.Service, refresher jobs.StatusRefresher, logger zerolog.Logger) (*river.Client[pgx.Tx], email.Dispatcher, error) {
	if !cfg.Email.Enabled {
		logger.Warn().Msg("email disabled; notifications are logged only")
	}
	if !cfg.Jobs.Enabled {
		logger.Warn().Msg("background jobs disabled; emails are sent inline and tournament statuses refresh on read")
		return nil, email.DirectDispatcher{Sender: mailer, Logger: logger}, nil
	}

	if err := jobs.Migrate(ctx, pool); err != nil {
		return nil, nil, err
	}
	client, err := jobs.NewClient(
		pool,
		cfg.Jobs,
		jobs.NewWorkers(mailer, refresher, logger),
		config.NewSlogLogger(cfg.Logging),
		[]rivertype.Hook{metrics.NewRiverMetricsHook()},
		jobs.NewPeriodicJobs(cfg.Jobs),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("river client: %w", err)
	}
	dispatcher := jobs.QueueDispatcher{
		Client: client,
		Policy: jobs.NewRetryPolicy(cfg.Jobs.EmailMaxAttempts),
		Logger: logger,
	}
	return client, dispatcher, nil
}

func bootstrapAdmin(ctx context.Context, userSvc *users.Service, cfg config.Config, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	bootstrap := cfg.AdminBootstrap
	created, err := userSvc.EnsureAdmin(ctx, bootstrap.Username, bootstrap.Email, bootstrap.Password)
	if err != nil {
		logger.Error().Err(err).Msg("admin bootstrap failed")
		return
	}
	if !created {
		return
	}
	// Redact email in production to avoid PII in logs.
	if cfg.IsProduction() {
		logger.Info().Str("username", bootstrap.Username).Msg("bootstrapped admin user")
	} else {
		logger.Info().Str("email", bootstrap.Email).Str("username", bootstrap.Username).Msg("bootstrapped admin user")
	}
}

func gracefulShutdown(server *http.Server, timeout time.Duration, logger zerolog.Logger) error {
	logger.Info().Msg("shutting down")
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/riverqueue/river/rivertype"

	"github.com/pitchside/server/internal/config"
)

const (
	JobKindSendEmail               = "send_email"
	JobKindTournamentStatusRefresh = "tournament_status_refresh"
)

// QueueNotifications holds email jobs so a slow provider never delays the
// periodic work on the default queue.
const QueueNotifications = "notifications"

const (
	DefaultEmailMaxAttempts      = 5
	TournamentRefreshMaxAttempts = 1

	defaultTournamentRefreshPeriod = 15 * time.Minute
)

// RetryConfig controls per-kind retry behavior.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// RetryPolicy implements River's ClientRetryPolicy with per-kind exponential backoff.
type RetryPolicy struct {
	Default RetryConfig
	ByKind  map[string]RetryConfig
}

// NewRetryPolicy builds the policy. emailAttempts <= 0 uses the default.
func NewRetryPolicy(emailAttempts int) *RetryPolicy {
	if emailAttempts <= 0 {
		emailAttempts = DefaultEmailMaxAttempts
	}
	return &RetryPolicy{
		Default: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   30 * time.Second,
			MaxDelay:    30 * time.Minute,
		},
		ByKind: map[string]RetryConfig{
			JobKindSendEmail: {
				MaxAttempts: emailAttempts,
				BaseDelay:   1 * time.Minute,
				MaxDelay:    1 * time.Hour,
			},
			// The next periodic run does the same work.
			JobKindTournamentStatusRefresh: {
				MaxAttempts: TournamentRefreshMaxAttempts,
			},
		},
	}
}

// NextRetry determines the next retry time for a failed job.
func (p *RetryPolicy) NextRetry(job *rivertype.JobRow) time.Time {
	cfg := p.configFor(job.Kind)
	if cfg.BaseDelay == 0 {
		return time.Now()
	}

	attempt := job.Attempt
	if attempt < 1 {
		attempt = 1
	}

	delay := time.Duration(float64(cfg.BaseDelay) * math.Pow(2, float64(attempt-1)))
	if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}

	if job.AttemptedAt != nil {
		return job.AttemptedAt.Add(delay)
	}
	return time.Now().Add(delay)
}

// InsertOpts returns default insert options for a job kind.
func (p *RetryPolicy) InsertOpts(kind string) *river.InsertOpts {
	opts := &river.InsertOpts{MaxAttempts: p.configFor(kind).MaxAttempts}
	if kind == JobKindSendEmail {
		opts.Queue = QueueNotifications
	}
	return opts
}

func (p *RetryPolicy) configFor(kind string) RetryConfig {
	if p == nil {
		return RetryConfig{MaxAttempts: 3, BaseDelay: time.Minute, MaxDelay: time.Hour}
	}
	if cfg, ok := p.ByKind[kind]; ok {
		return cfg
	}
	return p.Default
}

// NewClientConfig builds a River client configuration with retry policy.
func NewClientConfig(cfg config.JobsConfig, workers *river.Workers, logger *slog.Logger, hooks []rivertype.Hook, periodicJobs []*river.PeriodicJob) *river.Config {
	policy := NewRetryPolicy(cfg.EmailMaxAttempts)
	maxWorkers := cfg.Workers
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	rc := &river.Config{
		Workers:      workers,
		RetryPolicy:  policy,
		MaxAttempts:  policy.Default.MaxAttempts,
		PeriodicJobs: periodicJobs,
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: maxWorkers},
			QueueNotifications: {MaxWorkers: maxWorkers},
		},
		Hooks: hooks,
	}
	if logger != nil {
		rc.Logger = logger
		rc.ErrorHandler = NewAlertingErrorHandler(logger, nil)
	}
	return rc
}

// NewClient creates a River client using pgx v5.
func NewClient(pool *pgxpool.Pool, cfg config.JobsConfig, workers *river.Workers, logger *slog.Logger, hooks []rivertype.Hook, periodicJobs []*river.PeriodicJob) (*river.Client[pgx.Tx], error) {
	return river.NewClient(riverpgxv5.New(pool), NewClientConfig(cfg, workers, logger, hooks, periodicJobs))
}

// NewPeriodicJobs schedules the tournament status refresh. It runs once on
// start so a restarted server does not wait a full period.
func NewPeriodicJobs(cfg config.JobsConfig) []*river.PeriodicJob {
	every := cfg.StatusRefreshInterval
	if every <= 0 {
		every = defaultTournamentRefreshPeriod
	}
	return []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(every),
			func() (river.JobArgs, *river.InsertOpts) {
				return TournamentStatusArgs{}, &river.InsertOpts{MaxAttempts: TournamentRefreshMaxAttempts}
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		),
	}
}

// Migrate creates or upgrades River's own tables. It is separate from the
// application migrations so River upgrades follow the library version.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{}); err != nil {
		return fmt.Errorf("river migrate: %w", err)
	}
	return nil
}

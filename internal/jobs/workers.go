package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/rs/zerolog"

	"github.com/pitchside/server/internal/email"
	"github.com/pitchside/server/internal/metrics"
)

// SendEmailArgs carries a fully built notification.
type SendEmailArgs struct {
	Message email.Message `json:"message"`
}

func (SendEmailArgs) Kind() string { return JobKindSendEmail }

// SendEmailWorker renders and delivers queued notifications. A failed send
// is retried by River with backoff.
type SendEmailWorker struct {
	river.WorkerDefaults[SendEmailArgs]
	Sender email.Sender
}

func (w SendEmailWorker) Work(ctx context.Context, job *river.Job[SendEmailArgs]) error {
	if w.Sender == nil {
		return fmt.Errorf("email sender not configured")
	}
	if job == nil {
		return fmt.Errorf("send email job missing")
	}
	err := w.Sender.Send(ctx, job.Args.Message)
	if errors.Is(err, email.ErrNoRecipients) {
		return river.JobCancel(err)
	}
	return err
}

// TournamentStatusArgs triggers a refresh of every tournament's status.
type TournamentStatusArgs struct{}

func (TournamentStatusArgs) Kind() string { return JobKindTournamentStatusRefresh }

// StatusRefresher applies date driven status transitions.
type StatusRefresher interface {
	RefreshAll(ctx context.Context, now time.Time) (int, error)
}

// RefresherFunc adapts a function to StatusRefresher. The server uses it to
// register the worker before the tournament service exists.
type RefresherFunc func(ctx context.Context, now time.Time) (int, error)

func (f RefresherFunc) RefreshAll(ctx context.Context, now time.Time) (int, error) {
	return f(ctx, now)
}

type TournamentStatusWorker struct {
	river.WorkerDefaults[TournamentStatusArgs]
	Refresher StatusRefresher
	Logger    zerolog.Logger
	Now       func() time.Time
}

func (w TournamentStatusWorker) Work(ctx context.Context, job *river.Job[TournamentStatusArgs]) error {
	if w.Refresher == nil {
		return fmt.Errorf("tournament refresher not configured")
	}
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	changed, err := w.Refresher.RefreshAll(ctx, now().UTC())
	if err != nil {
		return fmt.Errorf("refresh tournament statuses: %w", err)
	}
	if changed > 0 {
		w.Logger.Info().Int("changed", changed).Msg("tournament statuses refreshed")
	}
	return nil
}

// NewWorkers registers every worker the server runs.
func NewWorkers(sender email.Sender, refresher StatusRefresher, logger zerolog.Logger) *river.Workers {
	workers := river.NewWorkers()
	river.AddWorker[SendEmailArgs](workers, SendEmailWorker{Sender: sender})
	river.AddWorker[TournamentStatusArgs](workers, TournamentStatusWorker{
		Refresher: refresher,
		Logger:    logger.With().Str("component", "jobs").Logger(),
	})
	return workers
}

// Inserter is the part of *river.Client used to enqueue jobs.
type Inserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// QueueDispatcher sends notifications through the job queue. An enqueue
// failure is logged and dropped like any other notification failure.
type QueueDispatcher struct {
	Client Inserter
	Policy *RetryPolicy
	Logger zerolog.Logger
}

func (d QueueDispatcher) Dispatch(ctx context.Context, msg email.Message) {
	if len(msg.To) == 0 {
		return
	}
	_, err := d.Client.Insert(ctx, SendEmailArgs{Message: msg}, d.Policy.InsertOpts(JobKindSendEmail))
	if err != nil {
		metrics.EmailsSent.WithLabelValues(string(msg.Kind), "failed").Inc()
		d.Logger.Warn().Err(err).Str("kind", string(msg.Kind)).Msg("failed to enqueue notification email")
	}
}

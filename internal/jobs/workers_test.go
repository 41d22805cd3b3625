package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/pitchside/server/internal/email"
)

type recordingSender struct {
	sent []email.Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg email.Message) error {
	s.sent = append(s.sent, msg)
	return s.err
}

func TestSendEmailWorker(t *testing.T) {
	sender := &recordingSender{}
	worker := SendEmailWorker{Sender: sender}
	msg := email.Welcome("new@example.com", "newbie", "Viewer")

	err := worker.Work(context.Background(), &river.Job[SendEmailArgs]{
		JobRow: &rivertype.JobRow{Kind: JobKindSendEmail},
		Args:   SendEmailArgs{Message: msg},
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	require.Equal(t, email.KindWelcome, sender.sent[0].Kind)
}

func TestSendEmailWorkerReturnsSendErrors(t *testing.T) {
	sender := &recordingSender{err: errors.New("provider down")}
	worker := SendEmailWorker{Sender: sender}

	err := worker.Work(context.Background(), &river.Job[SendEmailArgs]{
		JobRow: &rivertype.JobRow{Kind: JobKindSendEmail},
		Args:   SendEmailArgs{Message: email.Welcome("new@example.com", "newbie", "Viewer")},
	})
	require.ErrorContains(t, err, "provider down")
}

func TestSendEmailWorkerWithoutSender(t *testing.T) {
	err := SendEmailWorker{}.Work(context.Background(), &river.Job[SendEmailArgs]{})
	require.Error(t, err)
}

type fakeRefresher struct {
	calledWith time.Time
	changed    int
	err        error
}

func (f *fakeRefresher) RefreshAll(_ context.Context, now time.Time) (int, error) {
	f.calledWith = now
	return f.changed, f.err
}

func TestTournamentStatusWorker(t *testing.T) {
	fixed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	refresher := &fakeRefresher{changed: 2}
	worker := TournamentStatusWorker{Refresher: refresher, Logger: zerolog.Nop(), Now: func() time.Time { return fixed }}

	require.NoError(t, worker.Work(context.Background(), &river.Job[TournamentStatusArgs]{}))
	require.Equal(t, fixed, refresher.calledWith)

	refresher.err = errors.New("db gone")
	require.ErrorContains(t, worker.Work(context.Background(), &river.Job[TournamentStatusArgs]{}), "db gone")
}

type fakeInserter struct {
	args []river.JobArgs
	opts []*river.InsertOpts
	err  error
}

func (f *fakeInserter) Insert(_ context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error) {
	f.args = append(f.args, args)
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return nil, f.err
	}
	return &rivertype.JobInsertResult{Job: &rivertype.JobRow{Kind: args.Kind()}}, nil
}

func TestQueueDispatcher(t *testing.T) {
	inserter := &fakeInserter{}
	d := QueueDispatcher{Client: inserter, Policy: NewRetryPolicy(3), Logger: zerolog.Nop()}

	d.Dispatch(context.Background(), email.TeamUpdate("m@example.com", "M", "Lions", "Team Update", "details"))
	require.Len(t, inserter.args, 1)
	require.Equal(t, JobKindSendEmail, inserter.args[0].Kind())
	require.Equal(t, QueueNotifications, inserter.opts[0].Queue)

	d.Dispatch(context.Background(), email.TeamUpdate("", "M", "Lions", "Team Update", "details"))
	require.Len(t, inserter.args, 1, "messages without recipients are never enqueued")
}

func TestQueueDispatcherSwallowsInsertErrors(t *testing.T) {
	inserter := &fakeInserter{err: errors.New("queue unavailable")}
	d := QueueDispatcher{Client: inserter, Policy: NewRetryPolicy(3), Logger: zerolog.Nop()}

	require.NotPanics(t, func() {
		d.Dispatch(context.Background(), email.Welcome("a@example.com", "a", "Viewer"))
	})
}

func TestNewWorkers(t *testing.T) {
	require.NotNil(t, NewWorkers(&recordingSender{}, &fakeRefresher{}, zerolog.Nop()))
}

package jobs

import (
	"testing"
	"time"

	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/require"

	"github.com/pitchside/server/internal/config"
)

func TestNewRetryPolicy(t *testing.T) {
	policy := NewRetryPolicy(0)
	require.Equal(t, DefaultEmailMaxAttempts, policy.ByKind[JobKindSendEmail].MaxAttempts)
	require.Equal(t, TournamentRefreshMaxAttempts, policy.ByKind[JobKindTournamentStatusRefresh].MaxAttempts)

	policy = NewRetryPolicy(8)
	require.Equal(t, 8, policy.ByKind[JobKindSendEmail].MaxAttempts)
}

func TestRetryPolicyNextRetry(t *testing.T) {
	policy := NewRetryPolicy(5)
	now := time.Now()

	tests := []struct {
		name     string
		kind     string
		attempt  int
		expected time.Duration
	}{
		{name: "email first attempt", kind: JobKindSendEmail, attempt: 1, expected: time.Minute},
		{name: "email backoff doubles", kind: JobKindSendEmail, attempt: 3, expected: 4 * time.Minute},
		{name: "email capped", kind: JobKindSendEmail, attempt: 12, expected: time.Hour},
		{name: "refresh retries immediately", kind: JobKindTournamentStatusRefresh, attempt: 1, expected: 0},
		{name: "unknown kind uses default", kind: "other", attempt: 2, expected: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &rivertype.JobRow{Kind: tt.kind, Attempt: tt.attempt, AttemptedAt: &now}
			delay := policy.NextRetry(job).Sub(now)
			require.InDelta(t, tt.expected.Seconds(), delay.Seconds(), 2)
		})
	}
}

func TestInsertOptsRoutesEmailToNotificationsQueue(t *testing.T) {
	policy := NewRetryPolicy(4)

	opts := policy.InsertOpts(JobKindSendEmail)
	require.Equal(t, QueueNotifications, opts.Queue)
	require.Equal(t, 4, opts.MaxAttempts)

	opts = policy.InsertOpts(JobKindTournamentStatusRefresh)
	require.Empty(t, opts.Queue)
}

func TestNewClientConfig(t *testing.T) {
	cfg := NewClientConfig(config.JobsConfig{Workers: 0, EmailMaxAttempts: 2}, nil, nil, nil, nil)
	require.Equal(t, 1, cfg.Queues[QueueNotifications].MaxWorkers)
	require.Contains(t, cfg.Queues, "default")
	require.Nil(t, cfg.ErrorHandler)
}

func TestNewPeriodicJobs(t *testing.T) {
	jobs := NewPeriodicJobs(config.JobsConfig{})
	require.Len(t, jobs, 1)
	require.NotNil(t, jobs[0])
}

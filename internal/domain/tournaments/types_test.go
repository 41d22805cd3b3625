package tournaments

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2024, 3, d, 12, 0, 0, 0, time.UTC)
}

func TestRefreshStatus(t *testing.T) {
	base := Tournament{RegistrationDeadline: day(5), StartDate: day(10), EndDate: day(20)}

	cases := []struct {
		name   string
		status string
		now    time.Time
		want   string
		moved  bool
	}{
		{"before deadline", StatusDraft, day(1), StatusRegistration, true},
		{"between deadline and start", StatusRegistration, day(7), StatusRegistration, false},
		{"between deadline and start from draft", StatusDraft, day(7), StatusDraft, false},
		{"on start date", StatusRegistration, day(10), StatusOngoing, true},
		{"on end date", StatusOngoing, day(20), StatusOngoing, false},
		{"after end", StatusOngoing, day(21), StatusCompleted, true},
		{"cancelled stays", StatusCancelled, day(15), StatusCancelled, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := base
			tr.Status = tc.status
			require.Equal(t, tc.moved, tr.RefreshStatus(tc.now))
			require.Equal(t, tc.want, tr.Status)
		})
	}
}

func TestDerive(t *testing.T) {
	tr := Tournament{
		RegistrationDeadline: day(5),
		StartDate:            day(10),
		EndDate:              day(20).Add(time.Hour),
		Teams: []Registration{
			{TeamID: "a", Status: EntryApproved},
			{TeamID: "b", Status: EntryPending},
			{TeamID: "c", Status: EntryApproved},
			{TeamID: "d", Status: EntryRejected},
		},
	}
	tr.Derive(day(5))
	require.Equal(t, 2, tr.TotalTeams)
	require.True(t, tr.IsRegistrationOpen)
	require.Equal(t, 11, tr.DurationDays)

	tr.Derive(day(6))
	require.False(t, tr.IsRegistrationOpen)
}

func TestRegisterInputAlias(t *testing.T) {
	require.Equal(t, "x", RegisterInput{Team: "x", TeamID: "y"}.TeamRef())
	require.Equal(t, "y", RegisterInput{TeamID: "y"}.TeamRef())
}

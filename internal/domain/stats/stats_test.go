package stats

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWinPercentage(t *testing.T) {
	require.Equal(t, 0.0, WinPercentage(0, 0))
	require.Equal(t, 0.0, WinPercentage(3, 0))
	require.Equal(t, 66.67, WinPercentage(2, 3))
	require.Equal(t, 100.0, WinPercentage(4, 4))
	require.Equal(t, 14.29, WinPercentage(1, 7))
}

func TestRunRate(t *testing.T) {
	require.Equal(t, 0.0, RunRate(120, 0))
	require.Equal(t, 8.0, RunRate(160, 20))
	require.Equal(t, 8.42, RunRate(160, 19))
	require.Equal(t, 6.67, RunRate(20, 3))
}

func TestApplyCompletionLeavesPointsAlone(t *testing.T) {
	winner := TeamStats{MatchesPlayed: 2, MatchesWon: 1, MatchesLost: 1, Points: 2, NetRunRate: 0.35}
	loser := TeamStats{MatchesPlayed: 1, MatchesWon: 1, Points: 2, NetRunRate: 1.1}

	ApplyCompletion(&winner, &loser)

	require.Equal(t, TeamStats{MatchesPlayed: 3, MatchesWon: 2, MatchesLost: 1, Points: 2, NetRunRate: 0.35}, winner)
	require.Equal(t, TeamStats{MatchesPlayed: 2, MatchesWon: 1, MatchesLost: 1, Points: 2, NetRunRate: 1.1}, loser)
}

func TestOutcome(t *testing.T) {
	w, l, err := Outcome("A", "B", "B")
	require.NoError(t, err)
	require.Equal(t, "B", w)
	require.Equal(t, "A", l)

	w, l, err = Outcome("01HYX3KQW7ERTV9XNBM2P8QJZF", "01HYX3KQW7ERTV9XNBM2P8QJZG", "01hyx3kqw7ertv9xnbm2p8qjzf")
	require.NoError(t, err)
	require.Equal(t, "01HYX3KQW7ERTV9XNBM2P8QJZF", w)
	require.Equal(t, "01HYX3KQW7ERTV9XNBM2P8QJZG", l)

	_, _, err = Outcome("A", "B", "C")
	require.ErrorIs(t, err, ErrWinnerNotInMatch)
	_, _, err = Outcome("A", "B", "")
	require.ErrorIs(t, err, ErrWinnerNotInMatch)
}

func TestPointsTableOrdering(t *testing.T) {
	rows := PointsTable([]Entry{
		{TeamID: "t1", TeamName: "Falcons", Approved: true, Stats: TeamStats{MatchesPlayed: 3, MatchesWon: 1, MatchesLost: 2, Points: 2, NetRunRate: 0.5}},
		{TeamID: "t2", TeamName: "Hawks", Approved: true, Stats: TeamStats{MatchesPlayed: 3, MatchesWon: 2, MatchesLost: 1, Points: 4, NetRunRate: -0.2}},
		{TeamID: "t3", TeamName: "Owls", Approved: false, Stats: TeamStats{Points: 10}},
		{TeamID: "t4", TeamName: "Kites", Approved: true, Stats: TeamStats{MatchesPlayed: 3, MatchesWon: 1, MatchesLost: 2, Points: 2, NetRunRate: 1.25}},
	})

	require.Len(t, rows, 3)
	require.Equal(t, "Hawks", rows[0].Team)
	require.Equal(t, "Kites", rows[1].Team)
	require.Equal(t, "Falcons", rows[2].Team)
	require.Equal(t, PointsRow{TeamID: "t2", Team: "Hawks", MatchesPlayed: 3, MatchesWon: 2, MatchesLost: 1, Points: 4, NetRunRate: -0.2}, rows[0])

	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1], rows[i]
		require.True(t, prev.Points > cur.Points || (prev.Points == cur.Points && prev.NetRunRate >= cur.NetRunRate))
	}
}

func TestPointsTableEmpty(t *testing.T) {
	require.Empty(t, PointsTable(nil))
	require.NotNil(t, PointsTable(nil))
}

func TestTwoDecidedMatchesTieOnlyAfterEqualPointAwards(t *testing.T) {
	a := TeamStats{}
	b := TeamStats{}
	ApplyCompletion(&a, &b)
	ApplyCompletion(&b, &a)

	require.Equal(t, a.MatchesWon, b.MatchesWon)
	require.Equal(t, 0, a.Points)
	require.Equal(t, 0, b.Points)

	a.Points += 2
	b.Points += 2
	rows := PointsTable([]Entry{
		{TeamID: "a", Approved: true, Stats: a},
		{TeamID: "b", Approved: true, Stats: b},
	})
	require.Equal(t, rows[0].Points, rows[1].Points)
}

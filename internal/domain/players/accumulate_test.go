package players

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpdateBattingFreshHalfCentury(t *testing.T) {
	var s BattingStats
	UpdateBatting(&s, BattingInnings{Runs: 55, BallsFaced: 40, IsOut: true})

	require.Equal(t, BattingStats{
		Matches:      1,
		Innings:      1,
		Runs:         55,
		HighestScore: 55,
		Fifties:      1,
		BallsFaced:   40,
		StrikeRate:   137.5,
		Average:      55,
	}, s)
}

func TestUpdateBattingNotOutAverageFallsBackToRuns(t *testing.T) {
	var s BattingStats
	UpdateBatting(&s, BattingInnings{Runs: 120, BallsFaced: 90, IsOut: false})

	require.Equal(t, 1, s.NotOuts)
	require.Equal(t, 1, s.Hundreds)
	require.Equal(t, 0, s.Fifties)
	require.Equal(t, 120.0, s.Average)
	require.Equal(t, 133.33, s.StrikeRate)
}

func TestUpdateBattingMilestonesUseInningsRuns(t *testing.T) {
	var s BattingStats
	UpdateBatting(&s, BattingInnings{Runs: 40, BallsFaced: 30, IsOut: true})
	UpdateBatting(&s, BattingInnings{Runs: 30, BallsFaced: 25, IsOut: true})

	require.Equal(t, 70, s.Runs)
	require.Equal(t, 0, s.Fifties, "cumulative runs never earn a fifty")
	require.Equal(t, 40, s.HighestScore)
	require.Equal(t, 35.0, s.Average)
}

func TestUpdateBattingZeroBalls(t *testing.T) {
	var s BattingStats
	UpdateBatting(&s, BattingInnings{Runs: 0, BallsFaced: 0, IsOut: false})
	require.Equal(t, 0.0, s.StrikeRate)
	require.Equal(t, 0.0, s.Average)
}

func TestUpdateBattingDoubleApplicationDoubleCounts(t *testing.T) {
	var s BattingStats
	in := BattingInnings{Runs: 10, BallsFaced: 8, IsOut: true}
	UpdateBatting(&s, in)
	UpdateBatting(&s, in)
	require.Equal(t, 2, s.Matches)
	require.Equal(t, 20, s.Runs)
}

func TestUpdateBowlingBestFigures(t *testing.T) {
	var s BowlingStats
	UpdateBowling(&s, BowlingSpell{Overs: 4, Wickets: 2, Runs: 20})
	UpdateBowling(&s, BowlingSpell{Overs: 4, Wickets: 3, Runs: 15})

	require.Equal(t, BestBowling{Wickets: 3, Runs: 15}, s.BestBowling)
	require.Equal(t, 4.38, s.Economy)
	require.Equal(t, 7.0, s.Average)
	require.Equal(t, 8.0, s.Overs)
	require.Equal(t, 35, s.RunsGiven)
	require.Equal(t, 2, s.Matches)
}

func TestUpdateBowlingEqualWicketsPrefersFewerRuns(t *testing.T) {
	var s BowlingStats
	UpdateBowling(&s, BowlingSpell{Overs: 4, Wickets: 2, Runs: 30})
	UpdateBowling(&s, BowlingSpell{Overs: 4, Wickets: 2, Runs: 18})
	require.Equal(t, BestBowling{Wickets: 2, Runs: 18}, s.BestBowling)

	UpdateBowling(&s, BowlingSpell{Overs: 4, Wickets: 1, Runs: 5})
	require.Equal(t, BestBowling{Wickets: 2, Runs: 18}, s.BestBowling, "fewer wickets never wins")
}

func TestUpdateBowlingWicketless(t *testing.T) {
	var s BowlingStats
	UpdateBowling(&s, BowlingSpell{Overs: 0, Wickets: 0, Runs: 12})
	require.Equal(t, 0.0, s.Economy)
	require.Equal(t, 0.0, s.Average)
	require.Equal(t, BestBowling{}, s.BestBowling)
}

func TestMergeFielding(t *testing.T) {
	s := FieldingStats{Catches: 3, Stumpings: 1, RunOuts: 2}
	five := 5
	MergeFielding(&s, FieldingInput{Catches: &five})
	require.Equal(t, FieldingStats{Catches: 5, Stumpings: 1, RunOuts: 2}, s)
}

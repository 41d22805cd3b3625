// Package stats holds the cricket scoring rules that turn stored match and
// team records into derived views: win percentages, run rates, points
// tables, leaderboards and the aggregate update applied when a match is
// completed. Everything here is pure; callers load the data.
package stats

import (
	"errors"
	"math"
	"sort"
	"strings"
)

// ErrWinnerNotInMatch is returned when a declared winner is neither team.
var ErrWinnerNotInMatch = errors.New("winner must be one of the match teams")

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// WinPercentage is won/played*100, or 0 before any match has been played.
func WinPercentage(won, played int) float64 {
	if played == 0 {
		return 0
	}
	return Round2(float64(won) / float64(played) * 100)
}

// RunRate is runs per over, or 0 when no overs were bowled.
func RunRate(runs int, overs float64) float64 {
	if overs == 0 {
		return 0
	}
	return Round2(float64(runs) / overs)
}

// TeamStats is the aggregate record stored on every team.
type TeamStats struct {
	MatchesPlayed int     `json:"matchesPlayed"`
	MatchesWon    int     `json:"matchesWon"`
	MatchesLost   int     `json:"matchesLost"`
	MatchesDrawn  int     `json:"matchesDrawn"`
	Points        int     `json:"points"`
	NetRunRate    float64 `json:"netRunRate"`
}

// ApplyCompletion records one decided match. Points and net run rate are
// left alone; they are maintained by explicit edits.
func ApplyCompletion(winner, loser *TeamStats) {
	winner.MatchesPlayed++
	winner.MatchesWon++
	loser.MatchesPlayed++
	loser.MatchesLost++
}

// Outcome splits a match's two teams into winner and loser.
func Outcome(team1, team2, winner string) (winnerID, loserID string, err error) {
	w := strings.TrimSpace(winner)
	switch {
	case w == "":
		return "", "", ErrWinnerNotInMatch
	case strings.EqualFold(w, team1):
		return team1, team2, nil
	case strings.EqualFold(w, team2):
		return team2, team1, nil
	}
	return "", "", ErrWinnerNotInMatch
}

// Entry is one team registered in a tournament, joined with its stats.
type Entry struct {
	TeamID   string
	TeamName string
	Approved bool
	Stats    TeamStats
}

// PointsRow is one line of a points table.
type PointsRow struct {
	TeamID        string  `json:"teamId"`
	Team          string  `json:"team"`
	MatchesPlayed int     `json:"matches"`
	MatchesWon    int     `json:"won"`
	MatchesLost   int     `json:"lost"`
	Points        int     `json:"points"`
	NetRunRate    float64 `json:"netRunRate"`
}

// PointsTable ranks approved entries by points, then net run rate. Rows that
// tie on both keep no particular order.
func PointsTable(entries []Entry) []PointsRow {
	rows := make([]PointsRow, 0, len(entries))
	for _, e := range entries {
		if !e.Approved {
			continue
		}
		rows = append(rows, PointsRow{
			TeamID:        e.TeamID,
			Team:          e.TeamName,
			MatchesPlayed: e.Stats.MatchesPlayed,
			MatchesWon:    e.Stats.MatchesWon,
			MatchesLost:   e.Stats.MatchesLost,
			Points:        e.Stats.Points,
			NetRunRate:    e.Stats.NetRunRate,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Points != rows[j].Points {
			return rows[i].Points > rows[j].Points
		}
		return rows[i].NetRunRate > rows[j].NetRunRate
	})
	return rows
}

package players

import "github.com/pitchside/server/internal/domain/stats"

type BattingStats struct {
	Matches      int     `json:"matches"`
	Innings      int     `json:"innings"`
	Runs         int     `json:"runs"`
	HighestScore int     `json:"highestScore"`
	Fifties      int     `json:"fifties"`
	Hundreds     int     `json:"hundreds"`
	NotOuts      int     `json:"notOuts"`
	BallsFaced   int     `json:"ballsFaced"`
	StrikeRate   float64 `json:"strikeRate"`
	Average      float64 `json:"average"`
}

type BestBowling struct {
	Wickets int `json:"wickets"`
	Runs    int `json:"runs"`
}

type BowlingStats struct {
	Matches     int         `json:"matches"`
	Innings     int         `json:"innings"`
	Overs       float64     `json:"overs"`
	Wickets     int         `json:"wickets"`
	RunsGiven   int         `json:"runsGiven"`
	BestBowling BestBowling `json:"bestBowling"`
	Economy     float64     `json:"economy"`
	Average     float64     `json:"average"`
}

type FieldingStats struct {
	Catches   int `json:"catches"`
	Stumpings int `json:"stumpings"`
	RunOuts   int `json:"runOuts"`
}

type Stats struct {
	Batting  BattingStats  `json:"batting"`
	Bowling  BowlingStats  `json:"bowling"`
	Fielding FieldingStats `json:"fielding"`
}

// BattingInnings is one innings at the crease.
type BattingInnings struct {
	Runs       int  `json:"runs" validate:"gte=0"`
	BallsFaced int  `json:"ballsFaced" validate:"gte=0"`
	IsOut      bool `json:"isOut"`
}

// BowlingSpell is one innings with the ball.
type BowlingSpell struct {
	Overs   float64 `json:"overs" validate:"gte=0"`
	Wickets int     `json:"wickets" validate:"gte=0,lte=10"`
	Runs    int     `json:"runs" validate:"gte=0"`
}

// FieldingInput overwrites whichever counters are present.
type FieldingInput struct {
	Catches   *int `json:"catches" validate:"omitempty,gte=0"`
	Stumpings *int `json:"stumpings" validate:"omitempty,gte=0"`
	RunOuts   *int `json:"runOuts" validate:"omitempty,gte=0"`
}

// UpdateBatting adds one innings to s. Milestones count the innings' own
// runs. Applying the same innings twice counts it twice.
func UpdateBatting(s *BattingStats, in BattingInnings) {
	s.Matches++
	s.Innings++
	s.Runs += in.Runs
	s.BallsFaced += in.BallsFaced
	if !in.IsOut {
		s.NotOuts++
	}
	switch {
	case in.Runs >= 100:
		s.Hundreds++
	case in.Runs >= 50:
		s.Fifties++
	}
	if in.Runs > s.HighestScore {
		s.HighestScore = in.Runs
	}

	s.StrikeRate = 0
	if s.BallsFaced > 0 {
		s.StrikeRate = stats.Round2(float64(s.Runs) / float64(s.BallsFaced) * 100)
	}
	if dismissals := s.Innings - s.NotOuts; dismissals > 0 {
		s.Average = stats.Round2(float64(s.Runs) / float64(dismissals))
	} else {
		s.Average = float64(s.Runs)
	}
}

// UpdateBowling adds one spell to s. The best figures prefer more wickets,
// then fewer runs for the same wickets.
func UpdateBowling(s *BowlingStats, in BowlingSpell) {
	s.Matches++
	s.Innings++
	s.Overs += in.Overs
	s.Wickets += in.Wickets
	s.RunsGiven += in.Runs

	if in.Wickets > s.BestBowling.Wickets ||
		(in.Wickets == s.BestBowling.Wickets && in.Runs < s.BestBowling.Runs) {
		s.BestBowling = BestBowling{Wickets: in.Wickets, Runs: in.Runs}
	}

	s.Economy = 0
	if s.Overs > 0 {
		s.Economy = stats.Round2(float64(s.RunsGiven) / s.Overs)
	}
	s.Average = 0
	if s.Wickets > 0 {
		s.Average = stats.Round2(float64(s.RunsGiven) / float64(s.Wickets))
	}
}

// MergeFielding copies the counters present in in onto s.
func MergeFielding(s *FieldingStats, in FieldingInput) {
	if in.Catches != nil {
		s.Catches = *in.Catches
	}
	if in.Stumpings != nil {
		s.Stumpings = *in.Stumpings
	}
	if in.RunOuts != nil {
		s.RunOuts = *in.RunOuts
	}
}

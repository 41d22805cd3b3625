package stats

import "sort"

const (
	inningsLeaders = 3
	TopN           = 5
)

// Extras conceded in one innings.
type Extras struct {
	Wides   int `json:"wides"`
	NoBalls int `json:"noBalls"`
	Byes    int `json:"byes"`
	LegByes int `json:"legByes"`
	Penalty int `json:"penalty"`
}

func (e Extras) Total() int {
	return e.Wides + e.NoBalls + e.Byes + e.LegByes + e.Penalty
}

type BattingScore struct {
	Player        string `json:"player"`
	Runs          int    `json:"runs"`
	BallsFaced    int    `json:"ballsFaced"`
	Fours         int    `json:"fours"`
	Sixes         int    `json:"sixes"`
	IsOut         bool   `json:"isOut"`
	DismissalType string `json:"dismissalType"`
	Bowler        string `json:"bowler,omitempty"`
}

type BowlingFigure struct {
	Player  string  `json:"player"`
	Overs   float64 `json:"overs"`
	Maidens int     `json:"maidens"`
	Runs    int     `json:"runs"`
	Wickets int     `json:"wickets"`
	Wides   int     `json:"wides"`
	NoBalls int     `json:"noBalls"`
}

// Innings is one team's batting turn.
type Innings struct {
	Team           string          `json:"team"`
	TotalRuns      int             `json:"totalRuns"`
	Wickets        int             `json:"wickets"`
	Overs          float64         `json:"overs"`
	Extras         Extras          `json:"extras"`
	BattingScores  []BattingScore  `json:"battingScores"`
	BowlingFigures []BowlingFigure `json:"bowlingFigures"`
}

// TopBatters returns the three highest scores of the innings.
func TopBatters(in Innings) []BattingScore {
	out := append([]BattingScore(nil), in.BattingScores...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Runs > out[j].Runs
	})
	return head(out, inningsLeaders)
}

// TopBowlers returns the three best figures: most wickets, then fewest runs.
func TopBowlers(in Innings) []BowlingFigure {
	out := append([]BowlingFigure(nil), in.BowlingFigures...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Wickets != out[j].Wickets {
			return out[i].Wickets > out[j].Wickets
		}
		return out[i].Runs < out[j].Runs
	})
	return head(out, inningsLeaders)
}

// InningsSummary is the per-innings block of a match stats view.
type InningsSummary struct {
	Team       string          `json:"team"`
	TotalScore int             `json:"totalScore"`
	Wickets    int             `json:"wickets"`
	Overs      float64         `json:"overs"`
	RunRate    float64         `json:"runRate"`
	Extras     int             `json:"extras"`
	TopScorers []BattingScore  `json:"topScorers"`
	TopBowlers []BowlingFigure `json:"topBowlers"`
}

func Summarize(in Innings) InningsSummary {
	return InningsSummary{
		Team:       in.Team,
		TotalScore: in.TotalRuns,
		Wickets:    in.Wickets,
		Overs:      in.Overs,
		RunRate:    RunRate(in.TotalRuns, in.Overs),
		Extras:     in.Extras.Total(),
		TopScorers: TopBatters(in),
		TopBowlers: TopBowlers(in),
	}
}

// Performer is a player's running total across several matches.
type Performer struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Runs     int    `json:"runs"`
	Wickets  int    `json:"wickets"`
}

// TopPerformers sums runs and wickets per player over every innings given
// and returns the n best by runs and the n best by wickets. A player seen
// only with the ball still appears in the runs list with 0 runs, and the
// other way round.
func TopPerformers(innings []Innings, n int) (byRuns, byWickets []Performer) {
	index := map[string]int{}
	var all []Performer
	entry := func(id string) *Performer {
		i, ok := index[id]
		if !ok {
			i = len(all)
			index[id] = i
			all = append(all, Performer{PlayerID: id})
		}
		return &all[i]
	}

	for _, in := range innings {
		for _, b := range in.BattingScores {
			entry(b.Player).Runs += b.Runs
		}
		for _, f := range in.BowlingFigures {
			entry(f.Player).Wickets += f.Wickets
		}
	}

	byRuns = append([]Performer(nil), all...)
	sort.SliceStable(byRuns, func(i, j int) bool { return byRuns[i].Runs > byRuns[j].Runs })
	byWickets = append([]Performer(nil), all...)
	sort.SliceStable(byWickets, func(i, j int) bool { return byWickets[i].Wickets > byWickets[j].Wickets })
	return head(byRuns, n), head(byWickets, n)
}

// NameAll fills Name from names, keyed by player id.
func NameAll(ps []Performer, names map[string]string) {
	for i := range ps {
		if name, ok := names[ps[i].PlayerID]; ok {
			ps[i].Name = name
		}
	}
}

func head[T any](s []T, n int) []T {
	n = max(n, 0)
	if len(s) > n {
		return s[:n]
	}
	return s
}

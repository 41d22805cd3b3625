package teams

import (
	"time"

	"github.com/pitchside/server/internal/domain/query"
	"github.com/pitchside/server/internal/domain/stats"
)

// Player types counted in the team stats view.
const (
	PlayerTypeBatsman      = "Batsman"
	PlayerTypeBowler       = "Bowler"
	PlayerTypeAllRounder   = "All-Rounder"
	PlayerTypeWicketKeeper = "Wicket-Keeper"
)

type Manager struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
	UserID  string `json:"userId"`
}

type Coach struct {
	Name           string `json:"name,omitempty" validate:"omitempty,max=100"`
	Specialization string `json:"specialization,omitempty" validate:"omitempty,max=100"`
}

// Member is a roster entry: the player fields shown inside a team.
type Member struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PlayerType string `json:"playerType"`
}

type Team struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	ShortName  string          `json:"shortName"`
	Logo       string          `json:"logo,omitempty"`
	HomeGround string          `json:"homeGround,omitempty"`
	Manager    Manager         `json:"manager"`
	Coach      Coach           `json:"coach"`
	Players    []Member        `json:"players"`
	Stats      stats.TeamStats `json:"stats"`
	IsActive   bool            `json:"isActive"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// ManagerInput is the manager block a client may send. The owning user is
// never taken from the body.
type ManagerInput struct {
	Name    string `json:"name" validate:"required,min=2,max=100"`
	Contact string `json:"contact" validate:"required,email"`
}

type CreateInput struct {
	Name       string       `json:"name" validate:"required,min=2,max=100"`
	ShortName  string       `json:"shortName" validate:"required,min=2,max=4,shortname"`
	Logo       string       `json:"logo" validate:"omitempty,url"`
	HomeGround string       `json:"homeGround" validate:"omitempty,max=200"`
	Manager    ManagerInput `json:"manager"`
	Coach      Coach        `json:"coach"`
}

// UpdateInput changes only the fields that are present. Stats may only be
// edited by an admin; points and net run rate have no other writer.
type UpdateInput struct {
	Name       *string          `json:"name" validate:"omitempty,min=2,max=100"`
	ShortName  *string          `json:"shortName" validate:"omitempty,min=2,max=4,shortname"`
	Logo       *string          `json:"logo" validate:"omitempty,url"`
	HomeGround *string          `json:"homeGround" validate:"omitempty,max=200"`
	Manager    *ManagerInput    `json:"manager"`
	Coach      *Coach           `json:"coach"`
	IsActive   *bool            `json:"isActive"`
	Stats      *stats.TeamStats `json:"stats"`
}

// PlayerCategories counts the roster by player type.
type PlayerCategories struct {
	Batsmen       int `json:"batsmen"`
	Bowlers       int `json:"bowlers"`
	AllRounders   int `json:"allRounders"`
	WicketKeepers int `json:"wicketKeepers"`
}

// StatsView is the response of GET /teams/{id}/stats.
type StatsView struct {
	TotalPlayers     int              `json:"totalPlayers"`
	MatchStats       stats.TeamStats  `json:"matchStats"`
	WinPercentage    float64          `json:"winPercentage"`
	PlayerCategories PlayerCategories `json:"playerCategories"`
}

// NewStatsView derives the stats view from a team and its roster.
func NewStatsView(t *Team) StatsView {
	view := StatsView{
		TotalPlayers:  len(t.Players),
		MatchStats:    t.Stats,
		WinPercentage: stats.WinPercentage(t.Stats.MatchesWon, t.Stats.MatchesPlayed),
	}
	for _, m := range t.Players {
		switch m.PlayerType {
		case PlayerTypeBatsman:
			view.PlayerCategories.Batsmen++
		case PlayerTypeBowler:
			view.PlayerCategories.Bowlers++
		case PlayerTypeAllRounder:
			view.PlayerCategories.AllRounders++
		case PlayerTypeWicketKeeper:
			view.PlayerCategories.WicketKeepers++
		}
	}
	return view
}

// Schema lists the fields GET /teams accepts for filtering and sorting.
var Schema = query.Schema{
	DefaultSort: "name",
	Fields: map[string]query.Field{
		"name":                {Column: "t.name", Kind: query.KindText},
		"shortName":           {Column: "t.short_name", Kind: query.KindText},
		"homeGround":          {Column: "t.home_ground", Kind: query.KindText},
		"isActive":            {Column: "t.is_active", Kind: query.KindBool},
		"manager.userId":      {Column: "t.manager_user_id", Kind: query.KindText},
		"manager.name":        {Column: "t.manager_name", Kind: query.KindText},
		"stats.matchesPlayed": {Column: "(t.stats->>'matchesPlayed')::int", Kind: query.KindInt},
		"stats.matchesWon":    {Column: "(t.stats->>'matchesWon')::int", Kind: query.KindInt},
		"stats.matchesLost":   {Column: "(t.stats->>'matchesLost')::int", Kind: query.KindInt},
		"stats.points":        {Column: "(t.stats->>'points')::int", Kind: query.KindInt},
		"stats.netRunRate":    {Column: "(t.stats->>'netRunRate')::float8", Kind: query.KindFloat},
		"createdAt":           {Column: "t.created_at", Kind: query.KindTime},
		"updatedAt":           {Column: "t.updated_at", Kind: query.KindTime},
	},
}

package matches

import (
	"time"

	"github.com/pitchside/server/internal/domain/query"
	"github.com/pitchside/server/internal/domain/stats"
)

const (
	TypeLeague       = "League"
	TypeQuarterFinal = "Quarter Final"
	TypeSemiFinal    = "Semi Final"
	TypeFinal        = "Final"
)

const (
	StatusScheduled  = "Scheduled"
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"
	StatusAbandoned  = "Abandoned"
	StatusCancelled  = "Cancelled"
)

const DefaultOvers = 20

type Teams struct {
	Team1 string `json:"team1" validate:"required"`
	Team2 string `json:"team2" validate:"required,nefield=Team1"`
}

type Venue struct {
	Ground  string `json:"ground" validate:"required,max=200"`
	City    string `json:"city" validate:"omitempty,max=100"`
	Country string `json:"country" validate:"omitempty,max=100"`
}

type Schedule struct {
	StartDate time.Time  `json:"startDate" validate:"required"`
	EndDate   *time.Time `json:"endDate,omitempty"`
}

type Toss struct {
	Winner   string `json:"winner,omitempty"`
	Decision string `json:"decision,omitempty" validate:"omitempty,oneof=Bat Bowl"`
}

type Result struct {
	Winner        string `json:"winner,omitempty"`
	WinningMargin int    `json:"winningMargin,omitempty" validate:"gte=0"`
	WinningType   string `json:"winningType,omitempty" validate:"omitempty,oneof=Runs Wickets 'Super Over' DLS"`
	Description   string `json:"description,omitempty" validate:"max=500"`
}

type Umpire struct {
	Name string `json:"name" validate:"required"`
	Role string `json:"role" validate:"required,oneof=Main TV Third Reserve"`
}

type Weather struct {
	Condition   string  `json:"condition,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	Humidity    float64 `json:"humidity,omitempty" validate:"gte=0,lte=100"`
}

type Match struct {
	ID              string          `json:"id"`
	MatchNumber     int             `json:"matchNumber"`
	MatchType       string          `json:"matchType"`
	TournamentID    string          `json:"tournament,omitempty"`
	Teams           Teams           `json:"teams"`
	Venue           Venue           `json:"venue"`
	Schedule        Schedule        `json:"schedule"`
	Toss            Toss            `json:"toss"`
	Overs           int             `json:"overs"`
	Status          string          `json:"status"`
	Innings         []stats.Innings `json:"innings"`
	Result          Result          `json:"result"`
	Umpires         []Umpire        `json:"umpires"`
	Weather         Weather         `json:"weather"`
	Highlights      []string        `json:"highlights"`
	IsActive        bool            `json:"isActive"`
	DurationMinutes int             `json:"durationMinutes,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Derive fills fields computed from stored ones.
func (m *Match) Derive() {
	m.DurationMinutes = 0
	if m.Schedule.EndDate != nil && m.Schedule.EndDate.After(m.Schedule.StartDate) {
		m.DurationMinutes = int(m.Schedule.EndDate.Sub(m.Schedule.StartDate).Minutes())
	}
}

// HasTeam reports whether teamID plays in the match.
func (m *Match) HasTeam(teamID string) bool {
	return teamID != "" && (teamID == m.Teams.Team1 || teamID == m.Teams.Team2)
}

type CreateInput struct {
	MatchNumber int      `json:"matchNumber" validate:"required,gte=1"`
	MatchType   string   `json:"matchType" validate:"required,oneof=League 'Quarter Final' 'Semi Final' Final"`
	Tournament  string   `json:"tournament"`
	Teams       Teams    `json:"teams"`
	Venue       Venue    `json:"venue"`
	Schedule    Schedule `json:"schedule"`
	Toss        Toss     `json:"toss"`
	Overs       *int     `json:"overs" validate:"omitempty,gte=1,lte=50"`
	Status      string   `json:"status" validate:"omitempty,oneof=Scheduled 'In Progress' Abandoned Cancelled"`
	Umpires     []Umpire `json:"umpires" validate:"dive"`
	Weather     Weather  `json:"weather"`
	Highlights  []string `json:"highlights"`
}

// UpdateInput replaces only the fields present.
type UpdateInput struct {
	MatchNumber *int      `json:"matchNumber" validate:"omitempty,gte=1"`
	MatchType   *string   `json:"matchType" validate:"omitempty,oneof=League 'Quarter Final' 'Semi Final' Final"`
	Teams       *Teams    `json:"teams"`
	Venue       *Venue    `json:"venue"`
	Schedule    *Schedule `json:"schedule"`
	Toss        *Toss     `json:"toss"`
	Overs       *int      `json:"overs" validate:"omitempty,gte=1,lte=50"`
	Status      *string   `json:"status" validate:"omitempty,oneof=Scheduled 'In Progress' Completed Abandoned Cancelled"`
	Result      *Result   `json:"result"`
	Umpires     *[]Umpire `json:"umpires" validate:"omitempty,dive"`
	Weather     *Weather  `json:"weather"`
	Highlights  *[]string `json:"highlights"`
	IsActive    *bool     `json:"isActive"`
}

// ScoreInput is the body of PUT /matches/{id}/score. Innings replace the
// stored innings wholesale.
type ScoreInput struct {
	Innings []stats.Innings `json:"innings"`
	Status  *string         `json:"status" validate:"omitempty,oneof=Scheduled 'In Progress' Completed Abandoned Cancelled"`
	Result  *Result         `json:"result"`
}

// TeamRef names one side in a stats view.
type TeamRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type MatchInfo struct {
	Teams  []TeamRef `json:"teams"`
	Venue  Venue     `json:"venue"`
	Date   time.Time `json:"date"`
	Result Result    `json:"result"`
}

// StatsView is the response of GET /matches/{id}/stats.
type StatsView struct {
	MatchInfo MatchInfo              `json:"matchInfo"`
	Innings   []stats.InningsSummary `json:"innings"`
}

var Schema = query.Schema{
	DefaultSort: "schedule.startDate",
	Fields: map[string]query.Field{
		"matchNumber":        {Column: "m.match_number", Kind: query.KindInt},
		"matchType":          {Column: "m.match_type", Kind: query.KindText},
		"tournament":         {Column: "m.tournament_id", Kind: query.KindText},
		"team":               {Column: "ARRAY[m.team1_id, m.team2_id]", Kind: query.KindText, Multi: true},
		"teams.team1":        {Column: "m.team1_id", Kind: query.KindText},
		"teams.team2":        {Column: "m.team2_id", Kind: query.KindText},
		"status":             {Column: "m.status", Kind: query.KindText},
		"overs":              {Column: "m.overs", Kind: query.KindInt},
		"venue.ground":       {Column: "m.venue->>'ground'", Kind: query.KindText},
		"venue.city":         {Column: "m.venue->>'city'", Kind: query.KindText},
		"schedule.startDate": {Column: "m.start_date", Kind: query.KindTime},
		"schedule.endDate":   {Column: "m.end_date", Kind: query.KindTime},
		"result.winner":      {Column: "m.result->>'winner'", Kind: query.KindText},
		"isActive":           {Column: "m.is_active", Kind: query.KindBool},
		"createdAt":          {Column: "m.created_at", Kind: query.KindTime},
	},
}

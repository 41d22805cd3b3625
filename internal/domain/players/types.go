package players

import (
	"time"

	"github.com/pitchside/server/internal/domain/query"
)

const (
	TypeBatsman      = "Batsman"
	TypeBowler       = "Bowler"
	TypeAllRounder   = "All-Rounder"
	TypeWicketKeeper = "Wicket-Keeper"

	BowlingNone = "None"

	// MinimumAge is checked when a player is created.
	MinimumAge = 15
)

type ContactInfo struct {
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   string `json:"phone,omitempty" validate:"omitempty,max=30"`
	Address string `json:"address,omitempty" validate:"omitempty,max=300"`
}

type Player struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	DateOfBirth  time.Time   `json:"dateOfBirth"`
	Age          int         `json:"age"`
	PlayerType   string      `json:"playerType"`
	BattingStyle string      `json:"battingStyle"`
	BowlingStyle string      `json:"bowlingStyle"`
	JerseyNumber int         `json:"jerseyNumber"`
	TeamID       string      `json:"team"`
	TeamName     string      `json:"teamName,omitempty"`
	ContactInfo  ContactInfo `json:"contactInfo"`
	Stats        Stats       `json:"stats"`
	IsActive     bool        `json:"isActive"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// AgeOn is whole years between dob and now, using 365.25-day years.
func AgeOn(dob, now time.Time) int {
	if dob.IsZero() || now.Before(dob) {
		return 0
	}
	const year = 365.25 * 24 * float64(time.Hour)
	return int(float64(now.Sub(dob)) / year)
}

type CreateInput struct {
	Name         string      `json:"name" validate:"required,min=2,max=100"`
	DateOfBirth  string      `json:"dateOfBirth" validate:"required"`
	PlayerType   string      `json:"playerType" validate:"required,oneof=Batsman Bowler All-Rounder Wicket-Keeper"`
	BattingStyle string      `json:"battingStyle" validate:"required,oneof='Right Handed' 'Left Handed'"`
	BowlingStyle string      `json:"bowlingStyle" validate:"omitempty,oneof='Right Arm Fast' 'Right Arm Medium' 'Right Arm Off-Spin' 'Left Arm Fast' 'Left Arm Medium' 'Left Arm Spin' None"`
	JerseyNumber *int        `json:"jerseyNumber" validate:"required,gte=0,lte=999"`
	Team         string      `json:"team" validate:"required"`
	ContactInfo  ContactInfo `json:"contactInfo"`
}

// UpdateInput changes only the fields present. A player never changes team
// through an update.
type UpdateInput struct {
	Name         *string      `json:"name" validate:"omitempty,min=2,max=100"`
	DateOfBirth  *string      `json:"dateOfBirth"`
	PlayerType   *string      `json:"playerType" validate:"omitempty,oneof=Batsman Bowler All-Rounder Wicket-Keeper"`
	BattingStyle *string      `json:"battingStyle" validate:"omitempty,oneof='Right Handed' 'Left Handed'"`
	BowlingStyle *string      `json:"bowlingStyle" validate:"omitempty,oneof='Right Arm Fast' 'Right Arm Medium' 'Right Arm Off-Spin' 'Left Arm Fast' 'Left Arm Medium' 'Left Arm Spin' None"`
	JerseyNumber *int         `json:"jerseyNumber" validate:"omitempty,gte=0,lte=999"`
	ContactInfo  *ContactInfo `json:"contactInfo"`
	IsActive     *bool        `json:"isActive"`
}

// StatsInput is the body of PUT /players/{id}/stats.
type StatsInput struct {
	Batting  *BattingInnings `json:"batting"`
	Bowling  *BowlingSpell   `json:"bowling"`
	Fielding *FieldingInput  `json:"fielding"`
}

// StatsView is the response of GET /players/{id}/stats.
type StatsView struct {
	Batting  BattingStats  `json:"batting"`
	Bowling  BowlingStats  `json:"bowling"`
	Fielding FieldingStats `json:"fielding"`
	Matches  int           `json:"matches"`
	Age      int           `json:"age"`
}

var Schema = query.Schema{
	DefaultSort: "-stats.batting.runs",
	Fields: map[string]query.Field{
		"name":                       {Column: "p.name", Kind: query.KindText},
		"playerType":                 {Column: "p.player_type", Kind: query.KindText},
		"battingStyle":               {Column: "p.batting_style", Kind: query.KindText},
		"bowlingStyle":               {Column: "p.bowling_style", Kind: query.KindText},
		"jerseyNumber":               {Column: "p.jersey_number", Kind: query.KindInt},
		"team":                       {Column: "p.team_id", Kind: query.KindText},
		"isActive":                   {Column: "p.is_active", Kind: query.KindBool},
		"dateOfBirth":                {Column: "p.date_of_birth", Kind: query.KindTime},
		"stats.batting.runs":         {Column: "(p.stats->'batting'->>'runs')::int", Kind: query.KindInt},
		"stats.batting.average":      {Column: "(p.stats->'batting'->>'average')::float8", Kind: query.KindFloat},
		"stats.batting.strikeRate":   {Column: "(p.stats->'batting'->>'strikeRate')::float8", Kind: query.KindFloat},
		"stats.batting.highestScore": {Column: "(p.stats->'batting'->>'highestScore')::int", Kind: query.KindInt},
		"stats.bowling.wickets":      {Column: "(p.stats->'bowling'->>'wickets')::int", Kind: query.KindInt},
		"stats.bowling.average":      {Column: "(p.stats->'bowling'->>'average')::float8", Kind: query.KindFloat},
		"stats.bowling.economy":      {Column: "(p.stats->'bowling'->>'economy')::float8", Kind: query.KindFloat},
		"createdAt":                  {Column: "p.created_at", Kind: query.KindTime},
	},
}

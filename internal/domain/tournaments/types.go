package tournaments

import (
	"math"
	"time"

	"github.com/pitchside/server/internal/domain/query"
	"github.com/pitchside/server/internal/domain/stats"
)

const (
	FormatT20    = "T20"
	FormatODI    = "ODI"
	FormatTest   = "Test"
	FormatCustom = "Custom"
)

const (
	StatusDraft        = "Draft"
	StatusRegistration = "Registration"
	StatusOngoing      = "Ongoing"
	StatusCompleted    = "Completed"
	StatusCancelled    = "Cancelled"
)

// Registration statuses.
const (
	EntryPending  = "Pending"
	EntryApproved = "Approved"
	EntryRejected = "Rejected"
)

type PointsSystem struct {
	Win      int `json:"win" validate:"gte=0"`
	Loss     int `json:"loss"`
	Tie      int `json:"tie" validate:"gte=0"`
	NoResult int `json:"noResult" validate:"gte=0"`
	Bonus    int `json:"bonus" validate:"gte=0"`
}

// DefaultPoints is used when a tournament is created without a points system.
var DefaultPoints = PointsSystem{Win: 2, Loss: 0, Tie: 1, NoResult: 1, Bonus: 0}

type Venue struct {
	Ground   string `json:"ground" validate:"required,max=200"`
	City     string `json:"city,omitempty" validate:"max=100"`
	Country  string `json:"country,omitempty" validate:"max=100"`
	Capacity int    `json:"capacity,omitempty" validate:"gte=0"`
}

type Group struct {
	Name  string   `json:"name"`
	Teams []string `json:"teams"`
}

type Stage struct {
	Name      string     `json:"name" validate:"required"`
	Type      string     `json:"type" validate:"required,oneof=League Group Knockout Final"`
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
	Groups    []Group    `json:"groups"`
}

type QualificationRules struct {
	TeamsPerGroup int      `json:"teamsPerGroup" validate:"gte=0"`
	Criteria      []string `json:"criteria" validate:"dive,oneof=Points NetRunRate HeadToHead BowlingStrikeRate BattingAverage"`
}

var defaultCriteria = []string{"Points", "NetRunRate"}

type OrganizerContact struct {
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Phone string `json:"phone,omitempty" validate:"max=30"`
}

type Organizer struct {
	Name    string           `json:"name" validate:"required,max=200"`
	Contact OrganizerContact `json:"contact"`
}

type Sponsor struct {
	Name            string `json:"name" validate:"required"`
	Logo            string `json:"logo,omitempty" validate:"omitempty,url"`
	Website         string `json:"website,omitempty" validate:"omitempty,url"`
	SponsorshipType string `json:"sponsorshipType,omitempty" validate:"omitempty,oneof=Title Principal Associate Other"`
}

type Prize struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount" validate:"gte=0"`
}

type PrizeMoney struct {
	Currency   string  `json:"currency"`
	Winner     float64 `json:"winner,omitempty" validate:"gte=0"`
	RunnerUp   float64 `json:"runnerUp,omitempty" validate:"gte=0"`
	ThirdPlace float64 `json:"thirdPlace,omitempty" validate:"gte=0"`
	Other      []Prize `json:"other" validate:"dive"`
}

// Registration is one team's entry.
type Registration struct {
	TeamID           string    `json:"team"`
	TeamName         string    `json:"teamName,omitempty"`
	Status           string    `json:"status"`
	RegistrationDate time.Time `json:"registrationDate"`
}

type Tournament struct {
	ID                   string             `json:"id"`
	Name                 string             `json:"name"`
	Season               string             `json:"season"`
	Description          string             `json:"description,omitempty"`
	Format               string             `json:"format"`
	Overs                *int               `json:"overs,omitempty"`
	Status               string             `json:"status"`
	RegistrationDeadline time.Time          `json:"registrationDeadline"`
	StartDate            time.Time          `json:"startDate"`
	EndDate              time.Time          `json:"endDate"`
	Teams                []Registration     `json:"teams"`
	PointsSystem         PointsSystem       `json:"pointsSystem"`
	Venues               []Venue            `json:"venues"`
	Stages               []Stage            `json:"stages"`
	QualificationRules   QualificationRules `json:"qualificationRules"`
	Organizer            Organizer          `json:"organizer"`
	Sponsors             []Sponsor          `json:"sponsors"`
	PrizeMoney           PrizeMoney         `json:"prizeMoney"`
	IsActive             bool               `json:"isActive"`
	TotalTeams           int                `json:"totalTeams"`
	IsRegistrationOpen   bool               `json:"isRegistrationOpen"`
	DurationDays         int                `json:"durationDays"`
	CreatedAt            time.Time          `json:"createdAt"`
	UpdatedAt            time.Time          `json:"updatedAt"`
}

// RefreshStatus moves the tournament along its date-driven lifecycle and
// reports whether the status changed. Between the deadline and the start
// date the status is left as it is. Cancelled tournaments never move.
func (t *Tournament) RefreshStatus(now time.Time) bool {
	if t.Status == StatusCancelled {
		return false
	}
	next := t.Status
	switch {
	case now.Before(t.RegistrationDeadline):
		next = StatusRegistration
	case !now.Before(t.StartDate) && !now.After(t.EndDate):
		next = StatusOngoing
	case now.After(t.EndDate):
		next = StatusCompleted
	}
	if next == t.Status {
		return false
	}
	t.Status = next
	return true
}

// Derive fills the computed fields as of now.
func (t *Tournament) Derive(now time.Time) {
	t.TotalTeams = 0
	for _, r := range t.Teams {
		if r.Status == EntryApproved {
			t.TotalTeams++
		}
	}
	t.IsRegistrationOpen = !now.After(t.RegistrationDeadline)
	t.DurationDays = 0
	if t.EndDate.After(t.StartDate) {
		t.DurationDays = int(math.Ceil(t.EndDate.Sub(t.StartDate).Hours() / 24))
	}
}

// Entry finds a team's registration.
func (t *Tournament) Entry(teamID string) (*Registration, bool) {
	for i := range t.Teams {
		if t.Teams[i].TeamID == teamID {
			return &t.Teams[i], true
		}
	}
	return nil, false
}

type CreateInput struct {
	Name                 string              `json:"name" validate:"required,min=3,max=100"`
	Season               string              `json:"season" validate:"required,max=50"`
	Format               string              `json:"format" validate:"required,oneof=T20 ODI Test Custom"`
	Overs                *int                `json:"overs" validate:"omitempty,gte=1,lte=50"`
	Status               string              `json:"status" validate:"omitempty,oneof=Draft Registration Ongoing Completed Cancelled"`
	RegistrationDeadline time.Time           `json:"registrationDeadline" validate:"required"`
	StartDate            time.Time           `json:"startDate" validate:"required"`
	EndDate              time.Time           `json:"endDate" validate:"required"`
	Organizer            Organizer           `json:"organizer"`
	Description          string              `json:"description" validate:"max=2000"`
	PointsSystem         *PointsSystem       `json:"pointsSystem"`
	Venues               []Venue             `json:"venues" validate:"dive"`
	Stages               []Stage             `json:"stages" validate:"dive"`
	QualificationRules   *QualificationRules `json:"qualificationRules"`
	Sponsors             []Sponsor           `json:"sponsors" validate:"dive"`
	PrizeMoney           *PrizeMoney         `json:"prizeMoney"`
}

// UpdateInput replaces only the fields present. Registrations are changed
// through the registration endpoints, never here.
type UpdateInput struct {
	Name                 *string             `json:"name" validate:"omitempty,min=3,max=100"`
	Season               *string             `json:"season" validate:"omitempty,max=50"`
	Description          *string             `json:"description" validate:"omitempty,max=2000"`
	Format               *string             `json:"format" validate:"omitempty,oneof=T20 ODI Test Custom"`
	Overs                *int                `json:"overs" validate:"omitempty,gte=1,lte=50"`
	Status               *string             `json:"status" validate:"omitempty,oneof=Draft Registration Ongoing Completed Cancelled"`
	RegistrationDeadline *time.Time          `json:"registrationDeadline"`
	StartDate            *time.Time          `json:"startDate"`
	EndDate              *time.Time          `json:"endDate"`
	PointsSystem         *PointsSystem       `json:"pointsSystem"`
	Venues               *[]Venue            `json:"venues" validate:"omitempty,dive"`
	Stages               *[]Stage            `json:"stages" validate:"omitempty,dive"`
	QualificationRules   *QualificationRules `json:"qualificationRules"`
	Organizer            *Organizer          `json:"organizer"`
	Sponsors             *[]Sponsor          `json:"sponsors" validate:"omitempty,dive"`
	PrizeMoney           *PrizeMoney         `json:"prizeMoney"`
	IsActive             *bool               `json:"isActive"`
}

// RegisterInput is the body of POST /tournaments/{id}/teams. teamId is
// accepted as an alias of team.
type RegisterInput struct {
	Team   string `json:"team"`
	TeamID string `json:"teamId"`
}

func (in RegisterInput) TeamRef() string {
	if in.Team != "" {
		return in.Team
	}
	return in.TeamID
}

type StatusInput struct {
	Status string `json:"status" validate:"required,oneof=Pending Approved Rejected"`
}

// StatsView is the response of GET /tournaments/{id}/stats.
type StatsView struct {
	TotalTeams       int               `json:"totalTeams"`
	MatchesPlayed    int               `json:"matchesPlayed"`
	MatchesRemaining int               `json:"matchesRemaining"`
	TopScorers       []stats.Performer `json:"topScorers"`
	TopWicketTakers  []stats.Performer `json:"topWicketTakers"`
	TeamStats        []stats.PointsRow `json:"teamStats"`
}

var Schema = query.Schema{
	DefaultSort: "-startDate",
	Fields: map[string]query.Field{
		"name":                 {Column: "t.name", Kind: query.KindText},
		"season":               {Column: "t.season", Kind: query.KindText},
		"format":               {Column: "t.format", Kind: query.KindText},
		"status":               {Column: "t.status", Kind: query.KindText},
		"overs":                {Column: "t.overs", Kind: query.KindInt},
		"registrationDeadline": {Column: "t.registration_deadline", Kind: query.KindTime},
		"startDate":            {Column: "t.start_date", Kind: query.KindTime},
		"endDate":              {Column: "t.end_date", Kind: query.KindTime},
		"teams.team":           {Column: "ARRAY(SELECT tt.team_id FROM tournament_teams tt WHERE tt.tournament_id = t.id)", Kind: query.KindText, Multi: true},
		"isActive":             {Column: "t.is_active", Kind: query.KindBool},
		"createdAt":            {Column: "t.created_at", Kind: query.KindTime},
	},
}

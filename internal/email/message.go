package email

import (
	"fmt"
	"strings"
	"time"
)

// Kind selects the template used to render a message.
type Kind string

const (
	KindWelcome                Kind = "welcome"
	KindPasswordReset          Kind = "password_reset"
	KindMatchSchedule          Kind = "match_schedule"
	KindMatchResult            Kind = "match_result"
	KindTournamentRegistration Kind = "tournament_registration"
	KindTeamUpdate             Kind = "team_update"
)

// Message is a rendered-on-send notification. It round-trips through JSON
// so it can ride on a background job, which is why Data holds only plain
// strings, numbers and slices of maps.
type Message struct {
	Kind    Kind           `json:"kind"`
	To      []string       `json:"to"`
	Subject string         `json:"subject"`
	Data    map[string]any `json:"data"`
}

const (
	dateLayout = "Mon, 02 Jan 2006"
	timeLayout = "15:04 MST"
)

func recipients(to ...string) []string {
	out := make([]string, 0, len(to))
	seen := map[string]bool{}
	for _, addr := range to {
		addr = strings.TrimSpace(addr)
		key := strings.ToLower(addr)
		if addr == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, addr)
	}
	return out
}

func Welcome(to, username, role string) Message {
	return Message{
		Kind:    KindWelcome,
		To:      recipients(to),
		Subject: "Welcome to Cricket Tournament Manager",
		Data:    map[string]any{"username": username, "role": role},
	}
}

func PasswordReset(to, username, resetURL string, ttl time.Duration) Message {
	return Message{
		Kind:    KindPasswordReset,
		To:      recipients(to),
		Subject: "Password Reset Request",
		Data: map[string]any{
			"username":  username,
			"resetUrl":  resetURL,
			"expiresIn": humanDuration(ttl),
		},
	}
}

// MatchDetails is the part of a match both schedule and result emails show.
type MatchDetails struct {
	Team1     string
	Team2     string
	Start     time.Time
	Ground    string
	City      string
	MatchType string
}

func MatchSchedule(to []string, m MatchDetails) Message {
	return Message{
		Kind:    KindMatchSchedule,
		To:      recipients(to...),
		Subject: "Match Schedule Notification",
		Data: map[string]any{
			"team1":     m.Team1,
			"team2":     m.Team2,
			"date":      m.Start.Format(dateLayout),
			"time":      m.Start.Format(timeLayout),
			"ground":    m.Ground,
			"city":      m.City,
			"matchType": m.MatchType,
		},
	}
}

// InningsLine is one "Team: runs/wickets (overs)" summary row.
type InningsLine struct {
	Team    string
	Runs    int
	Wickets int
	Overs   float64
}

// ResultDetails describes a decided match.
type ResultDetails struct {
	Team1       string
	Team2       string
	Winner      string
	Margin      int
	WinningType string
	Description string
	Innings     []InningsLine
}

func MatchResult(to []string, r ResultDetails) Message {
	innings := make([]any, 0, len(r.Innings))
	for _, in := range r.Innings {
		innings = append(innings, map[string]any{
			"team":    in.Team,
			"runs":    in.Runs,
			"wickets": in.Wickets,
			"overs":   in.Overs,
		})
	}
	margin := ""
	if r.Margin > 0 {
		margin = strings.TrimSpace(fmt.Sprintf("%d %s", r.Margin, r.WinningType))
	}
	return Message{
		Kind:    KindMatchResult,
		To:      recipients(to...),
		Subject: "Match Result Notification",
		Data: map[string]any{
			"team1":       r.Team1,
			"team2":       r.Team2,
			"winner":      r.Winner,
			"margin":      margin,
			"description": r.Description,
			"innings":     innings,
		},
	}
}

// RegistrationDetails describes a team's entry into a tournament.
type RegistrationDetails struct {
	ManagerName    string
	TeamName       string
	TournamentName string
	Status         string
	Start          time.Time
	End            time.Time
	Format         string
}

func TournamentRegistration(to string, r RegistrationDetails) Message {
	return Message{
		Kind:    KindTournamentRegistration,
		To:      recipients(to),
		Subject: "Registration Confirmation - " + r.TournamentName,
		Data: map[string]any{
			"managerName":    r.ManagerName,
			"teamName":       r.TeamName,
			"tournamentName": r.TournamentName,
			"status":         r.Status,
			"startDate":      r.Start.Format(dateLayout),
			"endDate":        r.End.Format(dateLayout),
			"format":         r.Format,
		},
	}
}

func TeamUpdate(to, managerName, teamName, updateType, details string) Message {
	return Message{
		Kind:    KindTeamUpdate,
		To:      recipients(to),
		Subject: "Team Update Notification",
		Data: map[string]any{
			"managerName": managerName,
			"teamName":    teamName,
			"updateType":  updateType,
			"details":     details,
		},
	}
}

func humanDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "a short while"
	case d%time.Hour == 0:
		if h := int(d / time.Hour); h != 1 {
			return fmt.Sprintf("%d hours", h)
		}
		return "1 hour"
	default:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	}
}

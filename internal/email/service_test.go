package email

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/pitchside/server/internal/config"
)

func TestValidateEmailAddress_Valid(t *testing.T) {
	tests := []string{
		"user@example.com",
		"test.user@example.com",
		"user+tag@example.co.uk",
		"firstname.lastname@company.org",
		"User Name <user@example.com>", // RFC 5322 format with display name
	}

	for _, email := range tests {
		t.Run(email, func(t *testing.T) {
			err := validateEmailAddress(email)
			if err != nil {
				t.Errorf("Expected valid email %q to pass validation, got error: %v", email, err)
			}
		})
	}
}

func TestValidateEmailAddress_InvalidFormat(t *testing.T) {
	tests := []struct {
		email       string
		description string
	}{
		{"", "empty string"},
		{"notanemail", "no @ symbol"},
		{"@example.com", "missing local part"},
		{"user@", "missing domain"},
		{"user @example.com", "space before @"},
		{"user@exam ple.com", "space in domain"},
		{"user@@example.com", "double @"},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			err := validateEmailAddress(tt.email)
			if err == nil {
				t.Errorf("Expected error for invalid email %q (%s), but got none", tt.email, tt.description)
			}
		})
	}
}

func TestValidateEmailAddress_HeaderInjection(t *testing.T) {
	tests := []struct {
		email       string
		description string
	}{
		{
			"victim@example.com\r\nBcc: attacker@evil.com",
			"CRLF with Bcc injection",
		},
		{
			"test@example.com\nCc: hacker@evil.com",
			"LF with Cc injection",
		},
		{
			"user@domain.com\r\nSubject: Phishing",
			"CRLF with Subject injection",
		},
		{
			"user@domain.com\rX-Mailer: Evil",
			"CR with custom header injection",
		},
		{
			"user@domain.com\nContent-Type: text/plain",
			"LF with Content-Type injection",
		},
		{
			"attacker@evil.com\r\n\r\n<html><body>Phishing content</body></html>",
			"double CRLF to inject body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			err := validateEmailAddress(tt.email)
			if err == nil {
				t.Errorf("Expected error for email with header injection %q (%s), but got none", tt.email, tt.description)
			}
		})
	}
}

func TestValidateEmailAddress_EdgeCases(t *testing.T) {
	tests := []struct {
		email       string
		shouldPass  bool
		description string
	}{
		{"user+tag@example.com", true, "plus addressing"},
		{"user.name@example.com", true, "dots in local part"},
		{"123@example.com", true, "numeric local part"},
		{"a@b.c", true, "minimal valid email"},
		{"user@subdomain.example.com", true, "subdomain"},
		{"user@example.co.uk", true, "multi-level TLD"},
		{"User <user@example.com>", true, "display name with angle brackets"},
		{"user@[192.168.1.1]", true, "IP address domain (RFC 5321)"},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			err := validateEmailAddress(tt.email)
			if tt.shouldPass && err != nil {
				t.Errorf("Expected email %q to pass validation (%s), got error: %v", tt.email, tt.description, err)
			}
			if !tt.shouldPass && err == nil {
				t.Errorf("Expected email %q to fail validation (%s), but got none", tt.email, tt.description)
			}
		})
	}
}

func TestValidateLinkURL(t *testing.T) {
	valid := []string{
		"https://example.com/reset/abc",
		"http://localhost:3000/reset?token=abc123",
		"https://[::1]/reset",
	}
	for _, link := range valid {
		require.NoError(t, validateLinkURL(link), link)
	}

	invalid := []string{
		"",
		"javascript:alert('xss')",
		"data:text/html,<script>alert('xss')</script>",
		"ftp://example.com/file",
		"//example.com/reset",
		"/reset/abc",
		"https://",
	}
	for _, link := range invalid {
		require.Error(t, validateLinkURL(link), link)
	}
}

func newDisabledService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(config.EmailConfig{Enabled: false, From: "noreply@example.com"}, zerolog.Nop())
	require.NoError(t, err)
	return svc
}

func TestRenderEveryKind(t *testing.T) {
	svc := newDisabledService(t)
	start := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	messages := []Message{
		Welcome("a@example.com", "asha", "TeamManager"),
		PasswordReset("a@example.com", "asha", "https://app.example.com/reset/tok", time.Hour),
		MatchSchedule([]string{"a@example.com"}, MatchDetails{Team1: "Lions", Team2: "Tigers", Start: start, Ground: "Eden Gardens", City: "Kolkata", MatchType: "T20"}),
		MatchResult([]string{"a@example.com"}, ResultDetails{
			Team1: "Lions", Team2: "Tigers", Winner: "Lions", Margin: 12, WinningType: "runs",
			Innings: []InningsLine{{Team: "Lions", Runs: 180, Wickets: 6, Overs: 20}},
		}),
		TournamentRegistration("a@example.com", RegistrationDetails{ManagerName: "Asha", TeamName: "Lions", TournamentName: "Summer Cup", Status: "Pending", Start: start, End: start.AddDate(0, 0, 10), Format: "T20"}),
		TeamUpdate("a@example.com", "Asha", "Lions", "Team Creation", "Team created"),
	}

	for _, msg := range messages {
		t.Run(string(msg.Kind), func(t *testing.T) {
			body, err := svc.Render(msg)
			require.NoError(t, err)
			require.Contains(t, body, appName)
			require.Contains(t, body, msg.Subject)
		})
	}
}

func TestRenderMatchResultShowsMargin(t *testing.T) {
	svc := newDisabledService(t)
	body, err := svc.Render(MatchResult([]string{"a@example.com"}, ResultDetails{
		Team1: "Lions", Team2: "Tigers", Winner: "Tigers", Margin: 4, WinningType: "wickets",
	}))
	require.NoError(t, err)
	require.Contains(t, body, "4 wickets")
	require.Contains(t, body, "Tigers")
}

func TestRenderEscapesData(t *testing.T) {
	svc := newDisabledService(t)
	body, err := svc.Render(TeamUpdate("a@example.com", "<script>x</script>", "Lions", "Team Update", "ok"))
	require.NoError(t, err)
	require.False(t, strings.Contains(body, "<script>x</script>"))
}

func TestSendDisabledSkips(t *testing.T) {
	svc := newDisabledService(t)
	require.NoError(t, svc.Send(context.Background(), Welcome("a@example.com", "asha", "Viewer")))
}

func TestSendRejectsBadInput(t *testing.T) {
	svc := newDisabledService(t)

	err := svc.Send(context.Background(), Welcome("   ", "asha", "Viewer"))
	require.ErrorIs(t, err, ErrNoRecipients)

	err = svc.Send(context.Background(), Welcome("victim@example.com\r\nBcc: x@evil.com", "asha", "Viewer"))
	require.Error(t, err)

	err = svc.Send(context.Background(), PasswordReset("a@example.com", "asha", "javascript:alert(1)", time.Hour))
	require.ErrorContains(t, err, "invalid reset link")
}

func TestHumanDuration(t *testing.T) {
	require.Equal(t, "1 hour", humanDuration(time.Hour))
	require.Equal(t, "24 hours", humanDuration(24*time.Hour))
	require.Equal(t, "30 minutes", humanDuration(30*time.Minute))
}

func TestNewServiceRejectsBadSender(t *testing.T) {
	_, err := NewService(config.EmailConfig{Enabled: true, Provider: "smtp", From: "not-an-address"}, zerolog.Nop())
	require.Error(t, err)
}

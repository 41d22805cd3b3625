package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"net/mail"
	"net/smtp"
	"net/url"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"

	"github.com/pitchside/server/internal/config"
	"github.com/pitchside/server/internal/metrics"
)

//go:embed templates/*.html
var templateFS embed.FS

const appName = "Cricket Tournament Manager"

// ErrNoRecipients is returned for a message with nobody to send it to.
var ErrNoRecipients = errors.New("message has no recipients")

// Service renders templates and delivers them through Resend or SMTP. When
// disabled it logs what it would have sent.
type Service struct {
	config       config.EmailConfig
	templates    *template.Template
	logger       zerolog.Logger
	provider     string
	resendClient *resend.Client
}

// templateData is what every template receives.
type templateData struct {
	Subject string
	AppName string
	Year    int
	Data    map[string]any
}

// NewService parses the embedded templates and sets up the configured provider.
func NewService(cfg config.EmailConfig, logger zerolog.Logger) (*Service, error) {
	if cfg.Enabled {
		if err := validateEmailAddress(cfg.From); err != nil {
			return nil, fmt.Errorf("invalid sender email in config: %w", err)
		}
	}

	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	svc := &Service{
		config:    cfg,
		templates: templates,
		logger:    logger.With().Str("component", "email").Logger(),
		provider:  strings.ToLower(cfg.Provider),
	}
	if cfg.Enabled && svc.provider == "resend" {
		svc.resendClient = resend.NewClient(cfg.ResendAPIKey)
	}
	return svc, nil
}

// Send renders msg and delivers it to every recipient. The first delivery
// error is returned after all recipients were attempted.
func (s *Service) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	for _, to := range msg.To {
		if err := validateEmailAddress(to); err != nil {
			return fmt.Errorf("invalid recipient email: %w", err)
		}
	}
	if link, ok := msg.Data["resetUrl"].(string); ok {
		if err := validateLinkURL(link); err != nil {
			return fmt.Errorf("invalid reset link: %w", err)
		}
	}

	if !s.config.Enabled {
		s.logger.Info().
			Str("kind", string(msg.Kind)).
			Strs("to", msg.To).
			Str("subject", msg.Subject).
			Msg("email service disabled, skipping email")
		metrics.EmailsSent.WithLabelValues(string(msg.Kind), "skipped").Inc()
		return nil
	}

	htmlBody, err := s.Render(msg)
	if err != nil {
		return err
	}

	var firstErr error
	for _, to := range msg.To {
		err := s.deliver(ctx, to, msg.Subject, htmlBody)
		status := "sent"
		if err != nil {
			status = "failed"
			if firstErr == nil {
				firstErr = err
			}
		}
		metrics.EmailsSent.WithLabelValues(string(msg.Kind), status).Inc()
	}
	if firstErr != nil {
		return fmt.Errorf("failed to send %s email: %w", msg.Kind, firstErr)
	}
	return nil
}

func (s *Service) deliver(ctx context.Context, to, subject, htmlBody string) error {
	switch s.provider {
	case "resend":
		return s.sendViaResend(ctx, to, subject, htmlBody)
	case "smtp":
		return s.sendViaSMTP(to, subject, htmlBody)
	default:
		return fmt.Errorf("unknown email provider %q", s.provider)
	}
}

// Render produces the HTML body for msg.
func (s *Service) Render(msg Message) (string, error) {
	name := string(msg.Kind) + ".html"
	var buf bytes.Buffer
	data := templateData{
		Subject: msg.Subject,
		AppName: appName,
		Year:    time.Now().Year(),
		Data:    msg.Data,
	}
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.String(), nil
}

func (s *Service) fromHeader() string {
	if s.config.FromName == "" {
		return s.config.From
	}
	return (&mail.Address{Name: s.config.FromName, Address: s.config.From}).String()
}

// validateEmailAddress validates an email address for format and header injection attempts
func validateEmailAddress(email string) error {
	if strings.ContainsAny(email, "\r\n") {
		return fmt.Errorf("invalid email address: contains newline characters")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}
	if strings.ContainsAny(addr.Address, "\r\n") {
		return fmt.Errorf("invalid email address: contains newline characters")
	}
	return nil
}

// validateLinkURL rejects javascript:, data: and other non-web schemes.
func validateLinkURL(link string) error {
	u, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %s (must be http or https)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}

// sendViaSMTP delivers over STARTTLS (port 587).
func (s *Service) sendViaSMTP(to, subject, htmlBody string) error {
	headers := [][2]string{
		{"From", s.fromHeader()},
		{"To", to},
		{"Subject", mime.QEncoding.Encode("UTF-8", subject)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/html; charset=UTF-8"},
	}

	var msg bytes.Buffer
	for _, h := range headers {
		fmt.Fprintf(&msg, "%s: %s\r\n", h[0], h[1])
	}
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	addr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func() { _ = client.Close() }()

	tlsConfig := &tls.Config{
		ServerName: s.config.SMTPHost,
		MinVersion: tls.VersionTLS12,
	}
	if err := client.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}
	if s.config.SMTPUser != "" {
		auth := smtp.PlainAuth("", s.config.SMTPUser, s.config.SMTPPassword, s.config.SMTPHost)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}
	if err := client.Mail(s.config.From); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data writer: %w", err)
	}
	if _, err := w.Write(msg.Bytes()); err != nil {
		return fmt.Errorf("failed to write email body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}
	if err := client.Quit(); err != nil {
		return fmt.Errorf("failed to quit SMTP connection: %w", err)
	}

	s.logger.Info().Str("to", to).Msg("email sent via SMTP")
	return nil
}

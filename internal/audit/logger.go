package audit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pitchside/server/internal/auth"
)

// Entry represents a single audit log entry with structured fields
type Entry struct {
	Timestamp    time.Time         `json:"timestamp"`
	Action       string            `json:"action"`
	Actor        string            `json:"actor"`
	Role         string            `json:"role,omitempty"`
	ResourceType string            `json:"resource_type,omitempty"`
	ResourceID   string            `json:"resource_id,omitempty"`
	IPAddress    string            `json:"ip_address,omitempty"`
	Status       string            `json:"status"` // "success" or "failure"
	Details      map[string]string `json:"details,omitempty"`
}

// Logger records administrative and ownership-sensitive mutations
// (team deletion, registration review, score updates, account changes).
type Logger struct {
	output zerolog.Logger
}

// NewLogger writes audit entries through logger under an "audit" key.
func NewLogger(logger zerolog.Logger) *Logger {
	return &Logger{output: logger.With().Str("component", "audit").Logger()}
}

// Nop discards everything. Handy for tests.
func Nop() *Logger {
	return &Logger{output: zerolog.Nop()}
}

func (l *Logger) Log(entry Entry) {
	if l == nil {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	l.output.Info().Interface("audit", entry).Msg(entry.Action)
}

// LogSuccess logs a successful operation performed by actor.
func (l *Logger) LogSuccess(ctx context.Context, action, resourceType, resourceID string, details map[string]string) {
	l.Log(entryFor(ctx, action, resourceType, resourceID, "success", details))
}

// LogFailure logs a refused or failed operation.
func (l *Logger) LogFailure(ctx context.Context, action, resourceType, resourceID string, details map[string]string) {
	l.Log(entryFor(ctx, action, resourceType, resourceID, "failure", details))
}

func entryFor(ctx context.Context, action, resourceType, resourceID, status string, details map[string]string) Entry {
	entry := Entry{
		Action:       action,
		Actor:        "anonymous",
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Status:       status,
		Details:      details,
		IPAddress:    clientIPFrom(ctx),
	}
	if actor, ok := auth.ActorFrom(ctx); ok {
		entry.Actor = actor.UserID
		entry.Role = string(actor.Role)
	}
	return entry
}

type contextKey string

const (
	auditLoggerKey contextKey = "auditLogger"
	clientIPKey    contextKey = "clientIP"
)

// WithRequest stores the caller's IP so service-layer audit calls can include it.
func WithRequest(ctx context.Context, r *http.Request) context.Context {
	return context.WithValue(ctx, clientIPKey, extractClientIP(r))
}

func clientIPFrom(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}

// extractClientIP gets the client IP from request headers or RemoteAddr
func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// WithLogger adds an audit logger to the request context
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, auditLoggerKey, logger)
}

// FromContext retrieves the audit logger from the request context, or a
// logger that discards entries.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(auditLoggerKey).(*Logger); ok {
		return logger
	}
	return Nop()
}

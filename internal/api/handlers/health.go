package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pitchside/server/internal/metrics"
)

// HealthDB is the part of *pgxpool.Pool the checks use.
type HealthDB interface {
	Ping(ctx context.Context) error
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type HealthCheck struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	GitCommit string                 `json:"git_commit"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

type CheckResult struct {
	Status    string         `json:"status"`
	Message   string         `json:"message,omitempty"`
	LatencyMs int64          `json:"latency_ms"`
	Details   map[string]any `json:"details,omitempty"`
}

const (
	checkPass = "pass"
	checkWarn = "warn"
	checkFail = "fail"
)

type HealthChecker struct {
	db          HealthDB
	jobsEnabled bool
	version     string
	gitCommit   string
	now         func() time.Time
}

func NewHealthChecker(db HealthDB, jobsEnabled bool, version, gitCommit string) *HealthChecker {
	return &HealthChecker{
		db:          db,
		jobsEnabled: jobsEnabled,
		version:     version,
		gitCommit:   gitCommit,
		now:         time.Now,
	}
}

// Health runs every check. Any failure makes the response 503; warnings
// only downgrade the status to "degraded".
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]CheckResult{
			"database":   h.checkDatabase(ctx),
			"migrations": h.checkMigrations(ctx),
			"job_queue":  h.checkJobQueue(ctx),
		}

		overall, code := "healthy", http.StatusOK
		for name, c := range checks {
			switch c.Status {
			case checkFail:
				overall, code = "unhealthy", http.StatusServiceUnavailable
				metrics.HealthCheckStatus.WithLabelValues(name).Set(0)
			case checkWarn:
				if overall == "healthy" {
					overall = "degraded"
				}
				metrics.HealthCheckStatus.WithLabelValues(name).Set(1)
			default:
				metrics.HealthCheckStatus.WithLabelValues(name).Set(2)
			}
		}

		writeHealth(w, code, HealthCheck{
			Status:    overall,
			Version:   h.version,
			GitCommit: h.gitCommit,
			Checks:    checks,
			Timestamp: h.now().UTC().Format(time.RFC3339),
		})
	}
}

// Readyz reports whether the database answers.
func (h *HealthChecker) Readyz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if h.db == nil || h.db.Ping(ctx) != nil {
			writeHealth(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
			return
		}
		writeHealth(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// Healthz is a liveness probe: the process is serving.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthChecker) checkDatabase(ctx context.Context) CheckResult {
	if h.db == nil {
		return CheckResult{Status: checkFail, Message: "database pool not initialized"}
	}
	start := h.now()
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		return CheckResult{
			Status:    checkFail,
			Message:   "database ping failed",
			LatencyMs: h.since(start),
			Details:   map[string]any{"error": err.Error()},
		}
	}
	return CheckResult{Status: checkPass, Message: "PostgreSQL connection successful", LatencyMs: h.since(start)}
}

func (h *HealthChecker) checkMigrations(ctx context.Context) CheckResult {
	if h.db == nil {
		return CheckResult{Status: checkFail, Message: "database pool not initialized"}
	}
	start := h.now()
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var version int64
	var dirty bool
	err := h.db.QueryRow(ctx, `SELECT version, dirty FROM schema_migrations ORDER BY version DESC LIMIT 1`).Scan(&version, &dirty)
	if err != nil {
		return CheckResult{
			Status:    checkFail,
			Message:   "failed to read migration version",
			LatencyMs: h.since(start),
			Details:   map[string]any{"error": err.Error(), "remediation": "run: server migrate up"},
		}
	}
	if dirty {
		return CheckResult{
			Status:    checkFail,
			Message:   "database is in a dirty migration state",
			LatencyMs: h.since(start),
			Details:   map[string]any{"version": version, "dirty": true},
		}
	}
	return CheckResult{
		Status:    checkPass,
		Message:   fmt.Sprintf("migrations applied (version %d)", version),
		LatencyMs: h.since(start),
		Details:   map[string]any{"version": version},
	}
}

// checkJobQueue counts pending River jobs. With the queue disabled emails
// are sent inline and the check only warns.
func (h *HealthChecker) checkJobQueue(ctx context.Context) CheckResult {
	if !h.jobsEnabled {
		return CheckResult{Status: checkWarn, Message: "job queue disabled; emails are sent inline"}
	}
	if h.db == nil {
		return CheckResult{Status: checkFail, Message: "database pool not initialized"}
	}
	start := h.now()
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var pending int64
	err := h.db.QueryRow(ctx, `SELECT COUNT(*) FROM river_job WHERE state = ANY($1)`, []string{"available", "running", "retryable"}).Scan(&pending)
	if err != nil {
		return CheckResult{
			Status:    checkFail,
			Message:   "failed to query job queue",
			LatencyMs: h.since(start),
			Details:   map[string]any{"error": err.Error()},
		}
	}
	return CheckResult{
		Status:    checkPass,
		Message:   "River job queue operational",
		LatencyMs: h.since(start),
		Details:   map[string]any{"pending_jobs": pending},
	}
}

func (h *HealthChecker) since(start time.Time) int64 {
	return h.now().Sub(start).Milliseconds()
}

func writeHealth(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

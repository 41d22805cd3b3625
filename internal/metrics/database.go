package metrics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DBPoolConnections tracks pool connections by state: open, in_use,
	// idle and max.
	DBPoolConnections = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_pool_connections",
			Help:      "Postgres pool connections by state",
		},
		[]string{"state"},
	)

	DBPoolEmptyAcquires = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_pool_empty_acquires",
			Help:      "Acquires that had to wait for a connection since the pool opened",
		},
	)

	DBQueryDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBErrors = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_errors_total",
			Help:      "Database errors by operation and class",
		},
		[]string{"operation", "error_type"},
	)
)

// SQLSTATE codes with their own error_type label.
var sqlStateTypes = map[string]string{
	"23505": "unique_violation",
	"23503": "foreign_key_violation",
	"23514": "check_violation",
	"40001": "serialization_failure",
	"40P01": "deadlock",
	"57014": "canceled",
}

// QueryErrorType classifies err for the error_type label. Repositories wrap
// driver errors, so classification unwraps.
func QueryErrorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded), pgconn.Timeout(err):
		return "timeout"
	case errors.Is(err, pgx.ErrNoRows):
		return "no_rows"
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if label, ok := sqlStateTypes[pgErr.Code]; ok {
			return label
		}
	}
	return "query_error"
}

// RecordQuery observes one query. Use it from a deferred closure so err is
// the named result:
//
//	defer func(start time.Time) { metrics.RecordQuery("list_teams", start, err) }(time.Now())
func RecordQuery(operation string, start time.Time, err error) {
	DBQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		DBErrors.WithLabelValues(operation, QueryErrorType(err)).Inc()
	}
}

// DBCollector copies pgxpool statistics into the pool gauges on a ticker.
type DBCollector struct {
	stat     func() *pgxpool.Stat
	stop     chan struct{}
	stopOnce sync.Once
}

func NewDBCollector(pool *pgxpool.Pool) *DBCollector {
	c := &DBCollector{stop: make(chan struct{})}
	if pool != nil {
		c.stat = pool.Stat
	}
	return c
}

// Start blocks until ctx is done or Stop is called.
func (c *DBCollector) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.collect()
	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (c *DBCollector) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *DBCollector) collect() {
	if c.stat == nil {
		return
	}
	s := c.stat()
	DBPoolConnections.WithLabelValues("open").Set(float64(s.TotalConns()))
	DBPoolConnections.WithLabelValues("in_use").Set(float64(s.AcquiredConns()))
	DBPoolConnections.WithLabelValues("idle").Set(float64(s.IdleConns()))
	DBPoolConnections.WithLabelValues("max").Set(float64(s.MaxConns()))
	DBPoolEmptyAcquires.Set(float64(s.EmptyAcquireCount()))
}

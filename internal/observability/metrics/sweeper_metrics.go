package metrics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// SweeperMetrics tracks the hold sweeper job with Prometheus primitives
// so /metrics stays useful even when OTLP export is disabled.
type SweeperMetrics struct {
	runs       *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	retried    prometheus.Counter
	dbFailures *prometheus.CounterVec
}

var (
	sweeperOnce sync.Once
	sweeper     *SweeperMetrics
)

// Sweeper returns the process-wide sweeper metrics, registering them on
// the default registry on first use.
func Sweeper() *SweeperMetrics {
	sweeperOnce.Do(func() {
		sweeper = newSweeperMetrics(prometheus.DefaultRegisterer)
	})
	return sweeper
}

func newSweeperMetrics(reg prometheus.Registerer) *SweeperMetrics {
	m := &SweeperMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "epin_sweeper_runs_total",
			Help: "Sweeper runs by outcome.",
		}, []string{"result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "epin_sweeper_run_duration_seconds",
			Help:    "Sweeper run duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"result"}),
		retried: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "epin_sweeper_deliveries_retried_total",
			Help: "Pending deliveries the sweeper retried.",
		}),
		dbFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "epin_sweeper_db_failures_total",
			Help: "Database failures during sweeper runs, by reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(m.runs, m.duration, m.retried, m.dbFailures)
	return m
}

// ObserveRun records a completed run.
func (m *SweeperMetrics) ObserveRun(start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.runs.WithLabelValues(result).Inc()
	m.duration.WithLabelValues(result).Observe(time.Since(start).Seconds())
}

// AddRetried records deliveries retried in a run.
func (m *SweeperMetrics) AddRetried(n int) {
	if n > 0 {
		m.retried.Add(float64(n))
	}
}

// ObserveDBError classifies and records a database failure.
func (m *SweeperMetrics) ObserveDBError(err error) {
	if err == nil {
		return
	}
	m.dbFailures.WithLabelValues(classifyDBError(err)).Inc()
}

func classifyDBError(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001":
			return "serialization_failure"
		case "40P01":
			return "deadlock"
		case "23505":
			return "unique_violation"
		case "57014":
			return "query_canceled"
		}
		return "pg_" + pgErr.Code
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "not_found"
	}
	return "other"
}

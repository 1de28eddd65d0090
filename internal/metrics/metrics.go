// ============================================================================
// questboard metrics - Prometheus instrumentation
// ============================================================================
//
// Package: internal/metrics
//
// Counters (monotonic):
//   questboard_jobs_posted_total
//   questboard_status_changes_total{from,to,reason}
//   questboard_sweeps_total
//   questboard_sweep_failures_total
//   questboard_deadline_warnings_total
//   questboard_rewards_distributed_total
//
// Histogram:
//   questboard_sweep_duration_seconds
//
// Gauges:
//   questboard_current_day
//   questboard_jobs{status}
//
// The collector subscribes to the event bus for lifecycle counters; the board
// reports sweep results directly.
//
// Example queries:
//
//   # jobs lost to the calendar per in-world week
//   increase(questboard_status_changes_total{reason="AutoExpired"}[7d])
//
//   # open workload
//   sum(questboard_jobs{status=~"Posted|Taken"})
//
// ============================================================================

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ChuLiYu/questboard/internal/events"
	"github.com/ChuLiYu/questboard/pkg/types"
)

const namespace = "questboard"

// Collector holds every questboard metric.
type Collector struct {
	jobsPosted         prometheus.Counter
	statusChanges      *prometheus.CounterVec
	sweeps             prometheus.Counter
	sweepFailures      prometheus.Counter
	sweepDuration      prometheus.Histogram
	deadlineWarnings   prometheus.Counter
	rewardsDistributed prometheus.Counter
	currentDay         prometheus.Gauge
	jobsByStatus       *prometheus.GaugeVec
}

// NewCollector creates the metrics and registers them with reg. A nil reg
// leaves them unregistered, which is handy in tests.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		jobsPosted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_posted_total",
			Help:      "Total number of jobs posted to the board",
		}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_changes_total",
			Help:      "Job status transitions by source, target and trigger",
		}, []string{"from", "to", "reason"}),
		sweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeps_total",
			Help:      "Number of expiration sweeps run",
		}),
		sweepFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_failures_total",
			Help:      "Jobs the expiration sweep failed to process",
		}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Wall-clock duration of expiration sweeps",
			Buckets:   prometheus.DefBuckets,
		}),
		deadlineWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deadline_warnings_total",
			Help:      "Deadline warnings emitted by sweeps",
		}),
		rewardsDistributed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rewards_distributed_total",
			Help:      "Jobs whose rewards were paid out",
		}),
		currentDay: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_day",
			Help:      "Current in-world day",
		}),
		jobsByStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs",
			Help:      "Jobs on the board by status",
		}, []string{"status"}),
	}

	if reg != nil {
		reg.MustRegister(
			c.jobsPosted,
			c.statusChanges,
			c.sweeps,
			c.sweepFailures,
			c.sweepDuration,
			c.deadlineWarnings,
			c.rewardsDistributed,
			c.currentDay,
			c.jobsByStatus,
		)
	}
	return c
}

// HandleEvent updates lifecycle counters. It is an events.Handler.
func (c *Collector) HandleEvent(e events.Event) error {
	switch e.Type {
	case events.JobCreated:
		c.jobsPosted.Inc()
	case events.JobStatusChanged:
		c.statusChanges.WithLabelValues(string(e.PreviousStatus), string(e.NewStatus), string(e.Reason)).Inc()
	case events.JobRewardsDistributed:
		c.rewardsDistributed.Inc()
	}
	return nil
}

// RecordSweep records one finished sweep.
func (c *Collector) RecordSweep(day int, elapsed time.Duration, warnings, failures int) {
	c.sweeps.Inc()
	c.sweepDuration.Observe(elapsed.Seconds())
	c.deadlineWarnings.Add(float64(warnings))
	c.sweepFailures.Add(float64(failures))
	c.currentDay.Set(float64(day))
}

// SetCurrentDay updates the day gauge.
func (c *Collector) SetCurrentDay(day int) {
	c.currentDay.Set(float64(day))
}

// UpdateJobStats sets the per-status gauges.
func (c *Collector) UpdateJobStats(stats types.Stats) {
	for _, st := range types.AllStatuses {
		c.jobsByStatus.WithLabelValues(string(st)).Set(float64(stats[st]))
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// NewServer returns an HTTP server exposing /metrics on addr.
func NewServer(addr string, g prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(g))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification module. Counts the
// lifecycle events and the latency of the two lock-holding critical paths.
type Metrics struct {
	EntitiesCreated prometheus.Counter
	EmailsVerified  prometheus.Counter
	Submissions     prometheus.Counter
	Decisions       *prometheus.CounterVec
	SubmitDuration  prometheus.Histogram
	DecideDuration  prometheus.Histogram
}

// New creates a Metrics instance with all verification metrics registered.
func New() *Metrics {
	return &Metrics{
		EntitiesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verdeck_entities_created_total",
			Help: "Total number of entities created",
		}),
		EmailsVerified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verdeck_emails_verified_total",
			Help: "Total number of confirmed email verifications",
		}),
		Submissions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verdeck_submissions_total",
			Help: "Total number of review submissions (including resubmissions)",
		}),
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verdeck_decisions_total",
			Help: "Total number of administrator decisions by outcome",
		}, []string{"outcome"}),
		SubmitDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "verdeck_submit_duration_seconds",
			Help:    "Duration of SubmitForReview operations (entity lock critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		DecideDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "verdeck_decide_duration_seconds",
			Help:    "Duration of Decide operations (entity lock critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveSubmit records the duration of a SubmitForReview operation.
// Call with time.Now() captured at the start of the operation.
func (m *Metrics) ObserveSubmit(start time.Time) {
	m.SubmitDuration.Observe(time.Since(start).Seconds())
}

// ObserveDecide records the duration of a Decide operation.
func (m *Metrics) ObserveDecide(start time.Time) {
	m.DecideDuration.Observe(time.Since(start).Seconds())
}

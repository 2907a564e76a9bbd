// Package cloudmetrics pushes editorial counters to a hosted monitoring
// endpoint for journals that opt in. Nothing here is on the request path;
// every failure is logged and swallowed.
package cloudmetrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder collects editorial activity counters.
type Recorder interface {
	RecordManuscriptSubmitted(journalID string)
	RecordAssignment(journalID string)
	RecordDecision(journalID, decision string)
	RecordOutcome(journalID, outcome string)
	RecordInvitationIssued(journalID string)
	SetManuscriptsUnderReview(count int64)
}

type NoopRecorder struct{}

func (NoopRecorder) RecordManuscriptSubmitted(string) {}
func (NoopRecorder) RecordAssignment(string)          {}
func (NoopRecorder) RecordDecision(string, string)    {}
func (NoopRecorder) RecordOutcome(string, string)     {}
func (NoopRecorder) RecordInvitationIssued(string)    {}
func (NoopRecorder) SetManuscriptsUnderReview(int64)  {}

type metrics struct {
	manuscriptsSubmitted   *prometheus.CounterVec
	assignments            *prometheus.CounterVec
	decisions              *prometheus.CounterVec
	outcomes               *prometheus.CounterVec
	invitationsIssued      *prometheus.CounterVec
	manuscriptsUnderReview prometheus.Gauge
}

func newMetrics(registry *prometheus.Registry) *metrics {
	m := &metrics{
		manuscriptsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peerflow_manuscripts_submitted_total",
			Help: "Manuscripts submitted, by journal.",
		}, []string{"journal"}),
		assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peerflow_review_assignments_total",
			Help: "Review panels assigned, by journal.",
		}, []string{"journal"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peerflow_review_decisions_total",
			Help: "Reviewer decisions submitted, by journal and decision.",
		}, []string{"journal", "decision"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peerflow_editorial_outcomes_total",
			Help: "Terminal editorial outcomes applied, by journal and outcome.",
		}, []string{"journal", "outcome"}),
		invitationsIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peerflow_reviewer_invitations_total",
			Help: "Reviewer invitations issued, by journal.",
		}, []string{"journal"}),
		manuscriptsUnderReview: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "peerflow_manuscripts_under_review",
			Help: "Manuscripts currently under review.",
		}),
	}

	registry.MustRegister(
		m.manuscriptsSubmitted,
		m.assignments,
		m.decisions,
		m.outcomes,
		m.invitationsIssued,
		m.manuscriptsUnderReview,
	)
	return m
}

type recorder struct {
	metrics *metrics
}

func newRecorder(registry *prometheus.Registry) *recorder {
	return &recorder{metrics: newMetrics(registry)}
}

func (r *recorder) RecordManuscriptSubmitted(journalID string) {
	r.metrics.manuscriptsSubmitted.WithLabelValues(normalizeLabel(journalID)).Inc()
}

func (r *recorder) RecordAssignment(journalID string) {
	r.metrics.assignments.WithLabelValues(normalizeLabel(journalID)).Inc()
}

func (r *recorder) RecordDecision(journalID, decision string) {
	r.metrics.decisions.WithLabelValues(normalizeLabel(journalID), normalizeLabel(decision)).Inc()
}

func (r *recorder) RecordOutcome(journalID, outcome string) {
	r.metrics.outcomes.WithLabelValues(normalizeLabel(journalID), normalizeLabel(outcome)).Inc()
}

func (r *recorder) RecordInvitationIssued(journalID string) {
	r.metrics.invitationsIssued.WithLabelValues(normalizeLabel(journalID)).Inc()
}

func (r *recorder) SetManuscriptsUnderReview(count int64) {
	if count < 0 {
		count = 0
	}
	r.metrics.manuscriptsUnderReview.Set(float64(count))
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}

package triage

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/linnemanlabs/carecheck/internal/symptom"
)

// Metrics holds Prometheus metrics for the triage subsystem.
type Metrics struct {
	AssessmentsTotal   *prometheus.CounterVec
	AssessmentLatency  prometheus.Histogram
	EvaluateDuration   prometheus.Histogram
	CandidatesPerRun   prometheus.Histogram
	SubmitsTotal       *prometheus.CounterVec
	TransitionsTotal   *prometheus.CounterVec
	NotificationsTotal *prometheus.CounterVec
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AssessmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carecheck_assessments_total",
			Help: "Total assessments by final status and triage level.",
		}, []string{"status", "level"}),
		AssessmentLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "carecheck_assessment_latency_seconds",
			Help:    "Time from submission to a terminal status, including the analysis delay.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms .. ~20s
		}),
		EvaluateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "carecheck_evaluate_duration_seconds",
			Help:    "Duration of the triage evaluator in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.000001, 4, 10), // 1us .. ~262ms
		}),
		CandidatesPerRun: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "carecheck_assessment_candidates",
			Help:    "Candidate conditions per assessment.",
			Buckets: prometheus.LinearBuckets(0, 1, 11), // 0 .. 10
		}),
		SubmitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carecheck_submits_total",
			Help: "Total intake submissions by result.",
		}, []string{"result"}),
		TransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carecheck_wizard_transitions_total",
			Help: "Total wizard transitions by name and outcome.",
		}, []string{"transition", "outcome"}),
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carecheck_notifications_total",
			Help: "Total assessment notifications by status.",
		}, []string{"status"}),
	}

	reg.MustRegister(
		m.AssessmentsTotal,
		m.AssessmentLatency,
		m.EvaluateDuration,
		m.CandidatesPerRun,
		m.SubmitsTotal,
		m.TransitionsTotal,
		m.NotificationsTotal,
	)

	return m
}

// EngineHooks returns an EngineHooks that records evaluator metrics.
func (m *Metrics) EngineHooks() EngineHooks {
	return EngineHooks{
		OnEvaluate: func(_ symptom.Level, candidates int, duration float64) {
			m.EvaluateDuration.Observe(duration)
			m.CandidatesPerRun.Observe(float64(candidates))
		},
	}
}

// ServiceHooks returns a ServiceHooks that increments the corresponding metrics.
func (m *Metrics) ServiceHooks() ServiceHooks {
	return ServiceHooks{
		OnSubmit: func(result string) {
			m.SubmitsTotal.WithLabelValues(result).Inc()
		},
		OnComplete: func(e *CompleteEvent) {
			level := string(e.Level)
			if level == "" {
				level = "none"
			}
			m.AssessmentsTotal.WithLabelValues(string(e.Status), level).Inc()
			m.AssessmentLatency.Observe(e.Latency)
		},
		OnTransition: func(name, outcome string) {
			m.TransitionsTotal.WithLabelValues(name, outcome).Inc()
		},
		OnNotify: func(outcome string) {
			m.NotificationsTotal.WithLabelValues(outcome).Inc()
		},
	}
}

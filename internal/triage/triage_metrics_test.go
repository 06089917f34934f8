package triage

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/linnemanlabs/carecheck/internal/symptom"
)

func TestMetrics_ServiceHooks(t *testing.T) {
	t.Parallel()

	m := NewMetrics(prometheus.NewRegistry())
	h := m.ServiceHooks()

	h.OnSubmit("accepted")
	h.OnSubmit("accepted")
	h.OnSubmit("duplicate")
	h.OnComplete(&CompleteEvent{Status: StatusComplete, Level: symptom.LevelUrgent, Candidates: 3, Latency: 0.2})
	h.OnComplete(&CompleteEvent{Status: StatusFailed})
	h.OnTransition("proceed", "ok")
	h.OnNotify("error")

	if got := testutil.ToFloat64(m.SubmitsTotal.WithLabelValues("accepted")); got != 2 {
		t.Errorf("submits accepted = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.SubmitsTotal.WithLabelValues("duplicate")); got != 1 {
		t.Errorf("submits duplicate = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.AssessmentsTotal.WithLabelValues("complete", "urgent")); got != 1 {
		t.Errorf("assessments complete/urgent = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.AssessmentsTotal.WithLabelValues("failed", "none")); got != 1 {
		t.Errorf("assessments failed/none = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.AssessmentLatency); got != 1 {
		t.Errorf("latency series = %d, want 1", got)
	}
	if got := testutil.ToFloat64(m.TransitionsTotal.WithLabelValues("proceed", "ok")); got != 1 {
		t.Errorf("transitions proceed/ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("notifications error = %v, want 1", got)
	}
}

func TestMetrics_EngineHooks(t *testing.T) {
	t.Parallel()

	m := NewMetrics(prometheus.NewRegistry())
	m.EngineHooks().OnEvaluate(symptom.LevelSoon, 2, 0.0001)

	if got := testutil.CollectAndCount(m.EvaluateDuration); got != 1 {
		t.Errorf("evaluate duration series = %d, want 1", got)
	}
	if got := testutil.CollectAndCount(m.CandidatesPerRun); got != 1 {
		t.Errorf("candidates series = %d, want 1", got)
	}
}

func TestNewMetrics_DoubleRegisterPanics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	NewMetrics(reg)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	NewMetrics(reg)
}

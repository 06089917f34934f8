package triage

import (
	"encoding/binary"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/linnemanlabs/carecheck/internal/symptom"
)

// Status tracks where an assessment is in its lifecycle.
type Status string

const (
	// StatusPending means created, not yet started
	StatusPending Status = "pending"

	// StatusInProgress means waiting out the analysis delay or evaluating
	StatusInProgress Status = "in_progress"

	// StatusComplete means finished successfully
	StatusComplete Status = "complete"

	// StatusFailed means the evaluation did not run to completion
	StatusFailed Status = "failed"
)

// Intake is what a caller submits for assessment.
type Intake struct {
	Symptoms []string        `json:"symptoms"`
	Answers  symptom.Answers `json:"answers"`
}

// SymptomSet returns the intake symptoms as a set.
func (in *Intake) SymptomSet() symptom.Set {
	return symptom.NewSet(in.Symptoms...)
}

// Fingerprint identifies an intake independent of symptom order, so identical
// submissions can be deduplicated. Every field is length-prefixed so labels
// holding separator bytes cannot collide with a different symptom list.
func (in *Intake) Fingerprint() string {
	d := xxhash.New()
	syms := in.SymptomSet().Sorted()
	writeLen(d, len(syms))
	for _, s := range syms {
		writeField(d, s)
	}
	for _, q := range symptom.Questions() {
		writeField(d, string(q.ID))
		writeField(d, in.Answers[q.ID])
	}
	return fmt.Sprintf("%016x", d.Sum64())
}

// KnownAnswers returns the answers to catalog questions only.
func (in *Intake) KnownAnswers() symptom.Answers {
	out := make(symptom.Answers, len(in.Answers))
	for _, q := range symptom.Questions() {
		if a, ok := in.Answers[q.ID]; ok {
			out[q.ID] = a
		}
	}
	return out
}

func writeLen(d *xxhash.Digest, n int) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(n))
	_, _ = d.Write(b[:])
}

func writeField(d *xxhash.Digest, s string) {
	writeLen(d, len(s))
	_, _ = d.WriteString(s)
}

// Result is the outcome of an assessment.
type Result struct {
	ID             string                  `json:"id"`
	Fingerprint    string                  `json:"fingerprint"`
	Status         Status                  `json:"status"`
	Symptoms       []string                `json:"symptoms"`
	Answers        symptom.Answers         `json:"answers"`
	Level          symptom.Level           `json:"triage_level,omitempty"`
	Candidates     []symptom.Candidate     `json:"candidates,omitempty"`
	Recommendation *symptom.Recommendation `json:"recommendation,omitempty"`
	Disclaimer     string                  `json:"disclaimer,omitempty"`
	Error          string                  `json:"error,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
	CompletedAt    time.Time               `json:"completed_at,omitzero"`
	Duration       float64                 `json:"duration_seconds,omitempty"`
}

// Clone returns a deep copy.
func (r *Result) Clone() *Result {
	cp := *r
	cp.Symptoms = slices.Clone(r.Symptoms)
	cp.Answers = maps.Clone(r.Answers)
	cp.Candidates = slices.Clone(r.Candidates)
	if r.Recommendation != nil {
		rec := *r.Recommendation
		cp.Recommendation = &rec
	}
	return &cp
}

// Done reports whether the assessment reached a terminal status.
func (r *Result) Done() bool {
	return r.Status == StatusComplete || r.Status == StatusFailed
}

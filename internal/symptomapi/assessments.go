package symptomapi

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/carecheck/internal/symptom"
	"github.com/linnemanlabs/carecheck/internal/triage"
)

type submitResponse struct {
	ID      string `json:"id"`
	Skipped bool   `json:"skipped"`
	Reason  string `json:"reason,omitempty"`
}

func (a *API) handleSubmitAssessment(w http.ResponseWriter, r *http.Request) {
	var in triage.Intake
	if err := decodeBody(r, &in); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	// untrusted input: reject foreign options before they reach the service
	if err := symptom.CheckOptions(in.SymptomSet(), in.Answers); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sr, err := a.svc.Submit(r.Context(), &in)
	if err != nil {
		a.writeServiceError(w, r, err, "failed to submit assessment")
		return
	}

	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.String("carecheck.assessment.id", sr.ID),
		attribute.Bool("carecheck.assessment.skipped", sr.Skipped),
	)

	writeJSON(w, http.StatusAccepted, submitResponse{ID: sr.ID, Skipped: sr.Skipped, Reason: sr.Reason})
}

func (a *API) handleGetAssessment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("carecheck.assessment.id", id))

	result, ok, err := a.svc.Get(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get assessment", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	span.SetAttributes(attribute.String("carecheck.assessment.status", string(result.Status)))

	writeJSON(w, http.StatusOK, result)
}

// Package symptomapi serves the symptom checker over HTTP: symptom
// suggestions, the question catalog, one-shot assessments and the
// step-by-step wizard.
package symptomapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/carecheck/internal/symptom"
	"github.com/linnemanlabs/carecheck/internal/triage"
	"github.com/linnemanlabs/carecheck/internal/wizard"
)

// TriageService defines the business operations symptomapi needs.
type TriageService interface {
	Submit(ctx context.Context, in *triage.Intake) (*triage.SubmitResult, error)
	Get(ctx context.Context, id string) (*triage.Result, bool, error)
	NewSession(ctx context.Context) (*wizard.Session, error)
	Session(ctx context.Context, id string) (*wizard.Session, bool, error)
	UpdateSession(ctx context.Context, id string, tr wizard.Transition) (*wizard.Session, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger          log.Logger
	svc             TriageService
	suggestionLimit int
}

// New creates a new API handler. A non-positive suggestionLimit uses
// symptom.DefaultSuggestionLimit.
func New(logger log.Logger, svc TriageService, suggestionLimit int) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("triage service is required"))
	}
	if suggestionLimit <= 0 {
		suggestionLimit = symptom.DefaultSuggestionLimit
	}
	return &API{
		logger:          logger,
		svc:             svc,
		suggestionLimit: suggestionLimit,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/symptoms", a.handleSuggest)
		r.Get("/questions", a.handleQuestions)

		r.Post("/assessments", a.handleSubmitAssessment)
		r.Get("/assessments/{id}", a.handleGetAssessment)

		r.Post("/sessions", a.handleNewSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", a.handleGetSession)
			r.Post("/symptoms", a.handleAddSymptom)
			r.Delete("/symptoms", a.handleRemoveSymptom)
			r.Post("/proceed", a.handleProceed)
			r.Post("/answers", a.handleAnswer)
			r.Post("/back", a.handleBack)
			r.Post("/restart", a.handleRestart)
		})
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	// nothing to do with errors here
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeServiceError maps service and wizard errors onto HTTP status codes.
func (a *API) writeServiceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	switch {
	case errors.Is(err, triage.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, wizard.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, wizard.ErrEmptySymptom),
		errors.Is(err, wizard.ErrNoSymptoms),
		errors.Is(err, wizard.ErrUnknownOption),
		errors.Is(err, symptom.ErrPreconditionViolation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		a.logger.Error(r.Context(), err, msg)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
	}
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

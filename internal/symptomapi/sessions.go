package symptomapi

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/carecheck/internal/symptom"
	"github.com/linnemanlabs/carecheck/internal/triage"
	"github.com/linnemanlabs/carecheck/internal/wizard"
)

// sessionView is a wizard session plus what a client needs to render the
// current step.
type sessionView struct {
	*wizard.Session
	Question       *symptom.Question `json:"question,omitempty"`
	QuestionNumber int               `json:"question_number,omitempty"`
	QuestionTotal  int               `json:"question_total"`
	Assessment     *triage.Result    `json:"assessment,omitempty"`
}

func (a *API) view(r *http.Request, sess *wizard.Session) (*sessionView, error) {
	v := &sessionView{Session: sess, QuestionTotal: symptom.QuestionCount()}
	if q, ok := sess.CurrentQuestion(); ok {
		v.Question = &q
		v.QuestionNumber = sess.QuestionIndex + 1
	}
	if sess.AssessmentID != "" {
		result, ok, err := a.svc.Get(r.Context(), sess.AssessmentID)
		if err != nil {
			return nil, err
		}
		if ok {
			v.Assessment = result
		}
	}
	return v, nil
}

func (a *API) writeSession(w http.ResponseWriter, r *http.Request, code int, sess *wizard.Session) {
	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.String("carecheck.session.id", sess.ID),
		attribute.String("carecheck.session.step", string(sess.Step)),
	)
	v, err := a.view(r, sess)
	if err != nil {
		a.writeServiceError(w, r, err, "failed to load session assessment")
		return
	}
	writeJSON(w, code, v)
}

func (a *API) handleNewSession(w http.ResponseWriter, r *http.Request) {
	sess, err := a.svc.NewSession(r.Context())
	if err != nil {
		a.writeServiceError(w, r, err, "failed to create session")
		return
	}
	a.writeSession(w, r, http.StatusCreated, sess)
}

func (a *API) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, ok, err := a.svc.Session(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get session", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}
	a.writeSession(w, r, http.StatusOK, sess)
}

func (a *API) transition(w http.ResponseWriter, r *http.Request, tr wizard.Transition) {
	id := chi.URLParam(r, "id")
	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.String("carecheck.session.id", id),
		attribute.String("carecheck.session.transition", tr.Name),
	)

	sess, err := a.svc.UpdateSession(r.Context(), id, tr)
	if err != nil {
		a.writeServiceError(w, r, err, "failed to update session")
		return
	}
	a.writeSession(w, r, http.StatusOK, sess)
}

func (a *API) handleAddSymptom(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Symptom string `json:"symptom"`
	}
	if err := decodeBody(r, &body); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}
	a.transition(w, r, wizard.AddSymptom(body.Symptom))
}

func (a *API) handleRemoveSymptom(w http.ResponseWriter, r *http.Request) {
	a.transition(w, r, wizard.RemoveSymptom(r.URL.Query().Get("name")))
}

func (a *API) handleProceed(w http.ResponseWriter, r *http.Request) {
	a.transition(w, r, wizard.Proceed())
}

func (a *API) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Answer string `json:"answer"`
	}
	if err := decodeBody(r, &body); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}
	a.transition(w, r, wizard.Answer(body.Answer))
}

func (a *API) handleBack(w http.ResponseWriter, r *http.Request) {
	a.transition(w, r, wizard.Back())
}

func (a *API) handleRestart(w http.ResponseWriter, r *http.Request) {
	a.transition(w, r, wizard.Restart())
}

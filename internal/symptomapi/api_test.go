package symptomapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/carecheck/internal/symptom"
	"github.com/linnemanlabs/carecheck/internal/triage"
	"github.com/linnemanlabs/carecheck/internal/triage/memstore"
	"github.com/linnemanlabs/carecheck/internal/wizard"
)

func newTestService(t *testing.T) (*triage.Service, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	svc := triage.NewService(store, triage.NewEngine(log.Nop(), triage.EngineHooks{}), log.Nop(), nil, triage.Options{})
	t.Cleanup(func() { _ = svc.Shutdown(context.Background()) })
	return svc, store
}

func newTestRouter(t *testing.T) (chi.Router, *memstore.Store) {
	t.Helper()
	svc, store := newTestService(t)
	r := chi.NewRouter()
	New(nil, svc, 0).RegisterRoutes(r)
	return r, store
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return v
}

const validIntake = `{
	"symptoms": ["Headache"],
	"answers": {
		"duration": "1-3 days",
		"severity": "4-6 (Moderate)",
		"fever_temp": "No fever",
		"medication": "No",
		"medical_history": "None"
	}
}`

//  New / constructor

func TestNew_NilLogger(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	api := New(nil, svc, 0)
	if api == nil {
		t.Fatal("New(nil, svc, 0) returned nil API")
	}
	if api.logger == nil {
		t.Fatal("New(nil, svc, 0) left logger nil; expected Nop logger")
	}
	if api.suggestionLimit != symptom.DefaultSuggestionLimit {
		t.Errorf("suggestionLimit = %d, want %d", api.suggestionLimit, symptom.DefaultSuggestionLimit)
	}
}

func TestNew_NilService_Panics(t *testing.T) {
	t.Parallel()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("New(nil, nil, 0) did not panic; expected panic for nil service")
		}
	}()
	New(nil, nil, 0)
}

// Routing

func TestRegisterRoutes_Methods(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"GET symptoms", http.MethodGet, "/api/v1/symptoms?q=he", http.StatusOK},
		{"POST symptoms not allowed", http.MethodPost, "/api/v1/symptoms", http.StatusMethodNotAllowed},
		{"GET questions", http.MethodGet, "/api/v1/questions", http.StatusOK},
		{"DELETE questions not allowed", http.MethodDelete, "/api/v1/questions", http.StatusMethodNotAllowed},
		{"GET assessments not allowed", http.MethodGet, "/api/v1/assessments", http.StatusMethodNotAllowed},
		{"GET unknown assessment", http.MethodGet, "/api/v1/assessments/01H5K3ABCDEFGHJKMNPQRS", http.StatusNotFound},
		{"PUT assessment not allowed", http.MethodPut, "/api/v1/assessments/123", http.StatusMethodNotAllowed},
		{"GET unknown session", http.MethodGet, "/api/v1/sessions/nope", http.StatusNotFound},
		{"POST proceed unknown session", http.MethodPost, "/api/v1/sessions/nope/proceed", http.StatusNotFound},
		{"GET proceed not allowed", http.MethodGet, "/api/v1/sessions/nope/proceed", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := do(t, r, tt.method, tt.path, "")
			if rec.Code != tt.wantStatus {
				t.Errorf("%s %s = %d, want %d", tt.method, tt.path, rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRegisterRoutes_NotFound(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	paths := []string{
		"/",
		"/api/v1",
		"/api/v2/symptoms",
		"/api/v1/assessments/",
		"/api/v1/unknown",
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			t.Parallel()

			rec := do(t, r, http.MethodGet, path, "")
			if rec.Code != http.StatusNotFound {
				t.Errorf("GET %s = %d, want %d", path, rec.Code, http.StatusNotFound)
			}
		})
	}
}

// Catalog endpoints

func TestHandleSuggest(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	tests := []struct {
		name string
		path string
		want []string
	}{
		{"case insensitive", "/api/v1/symptoms?q=PAIN", []string{"Chest Pain", "Abdominal Pain", "Joint Pain", "Muscle Pain"}},
		{"excludes selected", "/api/v1/symptoms?q=pain&selected=Chest+Pain&selected=Joint+Pain", []string{"Abdominal Pain", "Muscle Pain"}},
		{"blank term", "/api/v1/symptoms?q=+", []string{}},
		{"no match", "/api/v1/symptoms?q=zzz", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := do(t, r, http.MethodGet, tt.path, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
			}
			resp := decode[struct {
				Suggestions []string `json:"suggestions"`
			}](t, rec)
			if resp.Suggestions == nil {
				t.Fatal("suggestions must encode as an array, got null")
			}
			if strings.Join(resp.Suggestions, ",") != strings.Join(tt.want, ",") {
				t.Errorf("suggestions = %v, want %v", resp.Suggestions, tt.want)
			}
		})
	}
}

func TestHandleSuggest_RespectsLimit(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	r := chi.NewRouter()
	New(nil, svc, 1).RegisterRoutes(r)

	rec := do(t, r, http.MethodGet, "/api/v1/symptoms?q=a", "")
	resp := decode[struct {
		Suggestions []string `json:"suggestions"`
	}](t, rec)
	if len(resp.Suggestions) != 1 {
		t.Errorf("suggestions = %v, want exactly 1", resp.Suggestions)
	}
}

func TestHandleQuestions(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	rec := do(t, r, http.MethodGet, "/api/v1/questions", "")
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	resp := decode[struct {
		Questions []symptom.Question `json:"questions"`
	}](t, rec)
	if len(resp.Questions) != symptom.QuestionCount() {
		t.Fatalf("questions = %d, want %d", len(resp.Questions), symptom.QuestionCount())
	}
	if resp.Questions[0].ID != symptom.QuestionDuration {
		t.Errorf("first question = %q, want %q", resp.Questions[0].ID, symptom.QuestionDuration)
	}
	if resp.Questions[0].Text == "" || len(resp.Questions[0].Options) == 0 {
		t.Errorf("first question incomplete: %+v", resp.Questions[0])
	}
}

// Assessments

func TestHandleSubmitAssessment_Completes(t *testing.T) {
	t.Parallel()

	r, store := newTestRouter(t)

	rec := do(t, r, http.MethodPost, "/api/v1/assessments", validIntake)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusAccepted, rec.Body.String())
	}
	sr := decode[submitResponse](t, rec)
	if sr.ID == "" || sr.Skipped {
		t.Fatalf("response = %+v, want fresh accepted ID", sr)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if res, ok, _ := store.Get(context.Background(), sr.ID); ok && res.Done() {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	rec = do(t, r, http.MethodGet, "/api/v1/assessments/"+sr.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d, want %d", rec.Code, http.StatusOK)
	}
	res := decode[triage.Result](t, rec)
	if res.Status != triage.StatusComplete {
		t.Fatalf("status = %q, want %q", res.Status, triage.StatusComplete)
	}
	if res.Level != symptom.LevelRoutine {
		t.Errorf("level = %q, want %q", res.Level, symptom.LevelRoutine)
	}
	want := []symptom.Candidate{{Condition: "Tension Headache", Probability: 65}, {Condition: "Migraine", Probability: 45}}
	if len(res.Candidates) != 2 || res.Candidates[0] != want[0] || res.Candidates[1] != want[1] {
		t.Errorf("candidates = %v, want %v", res.Candidates, want)
	}
	if res.Disclaimer == "" {
		t.Error("expected disclaimer in response")
	}
}

func TestHandleSubmitAssessment_Invalid(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"invalid JSON", `{bad`},
		{"unknown field", `{"symptoms":["Cough"],"extra":1}`},
		{"no symptoms", `{"symptoms":[],"answers":{"duration":"1-3 days","severity":"4-6 (Moderate)","fever_temp":"No fever","medication":"No","medical_history":"None"}}`},
		{"missing answers", `{"symptoms":["Cough"],"answers":{"duration":"1-3 days"}}`},
		{"foreign option", `{"symptoms":["Cough"],"answers":{"duration":"forever","severity":"4-6 (Moderate)","fever_temp":"No fever","medication":"No","medical_history":"None"}}`},
		{"unknown question", `{"symptoms":["Cough"],"answers":{"duration":"1-3 days","severity":"4-6 (Moderate)","fever_temp":"No fever","medication":"No","medical_history":"None","ssn":"123-45-6789"}}`},
		{"null", `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := do(t, r, http.MethodPost, "/api/v1/assessments", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestHandleGetAssessment_PendingOmitsCompletedAt(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	svc := triage.NewService(store, triage.NewEngine(log.Nop(), triage.EngineHooks{}), log.Nop(), nil, triage.Options{AnalysisDelay: time.Minute})
	t.Cleanup(func() { _ = svc.Shutdown(context.Background()) })
	r := chi.NewRouter()
	New(nil, svc, 0).RegisterRoutes(r)

	rec := do(t, r, http.MethodPost, "/api/v1/assessments", validIntake)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("submit status = %d, want %d", rec.Code, http.StatusAccepted)
	}
	sr := decode[submitResponse](t, rec)

	rec = do(t, r, http.MethodGet, "/api/v1/assessments/"+sr.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, want %d", rec.Code, http.StatusOK)
	}
	if strings.Contains(rec.Body.String(), "completed_at") {
		t.Errorf("body = %s, want no completed_at before completion", rec.Body.String())
	}
}

func TestHandleSubmitAssessment_PreconditionMessage(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	rec := do(t, r, http.MethodPost, "/api/v1/assessments", `{"symptoms":["Cough"]}`)
	resp := decode[map[string]string](t, rec)
	if !strings.Contains(resp["error"], "missing answers") {
		t.Errorf("error = %q, want it to name missing answers", resp["error"])
	}
}

// Wizard sessions

func TestSession_Walkthrough(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	rec := do(t, r, http.MethodPost, "/api/v1/sessions", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want %d", rec.Code, http.StatusCreated)
	}
	sess := decode[sessionView](t, rec)
	if sess.Step != wizard.StepSymptoms {
		t.Fatalf("step = %q, want %q", sess.Step, wizard.StepSymptoms)
	}
	base := "/api/v1/sessions/" + sess.ID

	// cannot proceed without symptoms
	if rec := do(t, r, http.MethodPost, base+"/proceed", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("proceed empty = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	// cannot answer in the symptoms step
	if rec := do(t, r, http.MethodPost, base+"/answers", `{"answer":"1-3 days"}`); rec.Code != http.StatusConflict {
		t.Errorf("answer in symptoms = %d, want %d", rec.Code, http.StatusConflict)
	}
	if rec := do(t, r, http.MethodPost, base+"/symptoms", `{"symptom":"  "}`); rec.Code != http.StatusBadRequest {
		t.Errorf("blank symptom = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	for _, s := range []string{"Chest Pain", "Fever"} {
		if rec := do(t, r, http.MethodPost, base+"/symptoms", `{"symptom":"`+s+`"}`); rec.Code != http.StatusOK {
			t.Fatalf("add %s = %d, want %d", s, rec.Code, http.StatusOK)
		}
	}
	rec = do(t, r, http.MethodDelete, base+"/symptoms?name=Fever", "")
	if got := decode[sessionView](t, rec); len(got.Symptoms) != 1 || got.Symptoms[0] != "Chest Pain" {
		t.Fatalf("symptoms after remove = %v, want [Chest Pain]", got.Symptoms)
	}

	rec = do(t, r, http.MethodPost, base+"/proceed", "")
	got := decode[sessionView](t, rec)
	if got.Step != wizard.StepQuestions || got.Question == nil || got.QuestionNumber != 1 {
		t.Fatalf("after proceed = %+v, want first question", got)
	}
	if got.QuestionTotal != symptom.QuestionCount() {
		t.Errorf("question_total = %d, want %d", got.QuestionTotal, symptom.QuestionCount())
	}

	// foreign option is rejected
	if rec := do(t, r, http.MethodPost, base+"/answers", `{"answer":"Diabetes"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("foreign option = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	for i, q := range symptom.Questions() {
		rec = do(t, r, http.MethodPost, base+"/answers", `{"answer":"`+q.Options[0]+`"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("answer %d = %d, want %d: %s", i, rec.Code, http.StatusOK, rec.Body.String())
		}
		got = decode[sessionView](t, rec)
	}
	if got.Step != wizard.StepResult {
		t.Fatalf("step = %q, want %q", got.Step, wizard.StepResult)
	}
	if got.AssessmentID == "" {
		t.Fatal("expected assessment ID on result step")
	}
	if got.Assessment == nil || got.Assessment.ID != got.AssessmentID {
		t.Fatalf("assessment = %+v, want embedded assessment %s", got.Assessment, got.AssessmentID)
	}

	// back is not allowed from the result step
	if rec := do(t, r, http.MethodPost, base+"/back", ""); rec.Code != http.StatusConflict {
		t.Errorf("back from result = %d, want %d", rec.Code, http.StatusConflict)
	}

	rec = do(t, r, http.MethodPost, base+"/restart", "")
	got = decode[sessionView](t, rec)
	if got.Step != wizard.StepSymptoms || len(got.Symptoms) != 0 || got.AssessmentID != "" {
		t.Errorf("after restart = %+v, want empty symptoms step", got)
	}
}

func TestSession_Back(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	sess := decode[sessionView](t, do(t, r, http.MethodPost, "/api/v1/sessions", ""))
	base := "/api/v1/sessions/" + sess.ID

	do(t, r, http.MethodPost, base+"/symptoms", `{"symptom":"Cough"}`)
	do(t, r, http.MethodPost, base+"/proceed", "")
	do(t, r, http.MethodPost, base+"/answers", `{"answer":"1-3 days"}`)

	got := decode[sessionView](t, do(t, r, http.MethodPost, base+"/back", ""))
	if got.QuestionNumber != 1 {
		t.Errorf("question_number = %d, want 1", got.QuestionNumber)
	}
	got = decode[sessionView](t, do(t, r, http.MethodPost, base+"/back", ""))
	if got.Step != wizard.StepSymptoms {
		t.Errorf("step = %q, want %q", got.Step, wizard.StepSymptoms)
	}

	got = decode[sessionView](t, do(t, r, http.MethodGet, base, ""))
	if got.Step != wizard.StepSymptoms || len(got.Symptoms) != 1 {
		t.Errorf("GET session = %+v, want symptoms step with Cough", got)
	}
}

// Error mapping

type failingService struct{}

var errStore = errors.New("store down")

func (failingService) Submit(context.Context, *triage.Intake) (*triage.SubmitResult, error) {
	return nil, errStore
}

func (failingService) Get(context.Context, string) (*triage.Result, bool, error) {
	return nil, false, errStore
}

func (failingService) NewSession(context.Context) (*wizard.Session, error) { return nil, errStore }

func (failingService) Session(context.Context, string) (*wizard.Session, bool, error) {
	return nil, false, errStore
}

func (failingService) UpdateSession(context.Context, string, wizard.Transition) (*wizard.Session, error) {
	return nil, errStore
}

func TestStoreFailures_Return500(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	New(nil, failingService{}, 0).RegisterRoutes(r)

	tests := []struct {
		method, path, body string
	}{
		{http.MethodPost, "/api/v1/assessments", validIntake},
		{http.MethodGet, "/api/v1/assessments/x", ""},
		{http.MethodPost, "/api/v1/sessions", ""},
		{http.MethodGet, "/api/v1/sessions/x", ""},
		{http.MethodPost, "/api/v1/sessions/x/proceed", ""},
	}
	for _, tt := range tests {
		rec := do(t, r, tt.method, tt.path, tt.body)
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.path, rec.Code, http.StatusInternalServerError)
		}
		if strings.Contains(rec.Body.String(), "store down") {
			t.Errorf("%s %s leaked internal error: %s", tt.method, tt.path, rec.Body.String())
		}
	}
}

// Fuzz

func FuzzSubmitAssessment(f *testing.F) {
	store := memstore.New()
	svc := triage.NewService(store, triage.NewEngine(log.Nop(), triage.EngineHooks{}), log.Nop(), nil, triage.Options{})
	r := chi.NewRouter()
	New(nil, svc, 0).RegisterRoutes(r)

	seeds := []struct {
		body        []byte
		contentType string
	}{
		{nil, ""},
		{[]byte(""), "application/json"},
		{[]byte("{}"), "application/json"},
		{[]byte(validIntake), "application/json"},
		{[]byte(`{"symptoms":["Cough","Cough"," "],"answers":{"x":"y"}}`), "application/json"},
		{[]byte("{invalid json"), "application/json"},
		{[]byte("\x00\x01\x02\xff\xfe"), "application/octet-stream"},
		{[]byte("<xml>not json</xml>"), "text/xml"},
		{[]byte(strings.Repeat("a", 10000)), "text/plain"},
	}
	for _, s := range seeds {
		f.Add(s.body, s.contentType)
	}

	f.Fuzz(func(t *testing.T, body []byte, contentType string) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/assessments", strings.NewReader(string(body)))
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		rec := httptest.NewRecorder()

		// Must not panic
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusAccepted && rec.Code != http.StatusBadRequest {
			t.Errorf("POST /api/v1/assessments with body len=%d content-type=%q = %d, want 202 or 400",
				len(body), contentType, rec.Code)
		}
	})
}

package triage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/carecheck/internal/symptom"
	"github.com/linnemanlabs/carecheck/internal/wizard"
)

// ErrSessionNotFound is returned when a wizard session ID is unknown.
var ErrSessionNotFound = errors.New("session not found")

// ErrAssessmentNotFound is returned when an assessment ID is unknown.
var ErrAssessmentNotFound = errors.New("assessment not found")

// Notifier delivers completed assessments to an outside channel.
type Notifier interface {
	Send(ctx context.Context, result *Result) error
}

// SubmitResult is the outcome of submitting an intake for assessment.
type SubmitResult struct {
	ID      string
	Skipped bool
	Reason  string
}

// CompleteEvent describes a finished assessment for hooks.
type CompleteEvent struct {
	Status     Status
	Level      symptom.Level
	Candidates int
	Latency    float64 // seconds from creation to completion
}

// ServiceHooks holds optional callbacks for service lifecycle events.
type ServiceHooks struct {
	OnSubmit     func(result string)
	OnComplete   func(e *CompleteEvent)
	OnTransition func(name, outcome string)
	OnNotify     func(outcome string)
}

// Options tune the service.
type Options struct {
	// AnalysisDelay holds results back before evaluation, for presentation.
	AnalysisDelay time.Duration

	// NotifyMinLevel is the lowest level sent to the Notifier. Empty disables.
	NotifyMinLevel symptom.Level

	Hooks ServiceHooks
}

// Service is the business boundary for assessment and wizard operations.
type Service struct {
	store    Store
	engine   *Engine
	logger   log.Logger
	notifier Notifier
	opts     Options

	// serializes dedup checks and session read-modify-write
	mu sync.Mutex

	wg       sync.WaitGroup
	stop     chan struct{}
	stopOnce sync.Once
}

// NewService creates a new triage service. notifier may be nil.
func NewService(store Store, engine *Engine, logger log.Logger, notifier Notifier, opts Options) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		store:    store,
		engine:   engine,
		logger:   logger,
		notifier: notifier,
		opts:     opts,
		stop:     make(chan struct{}),
	}
}

// Submit accepts an intake for assessment, handling validation, dedup and lifecycle.
func (s *Service) Submit(ctx context.Context, in *Intake) (*SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitLocked(ctx, in)
}

func (s *Service) submitLocked(ctx context.Context, in *Intake) (*SubmitResult, error) {
	ctx, span := tracer.Start(ctx, "triage.submit")
	defer span.End()

	if err := symptom.Check(in.SymptomSet(), in.Answers); err != nil {
		s.onSubmit("invalid")
		return nil, err
	}

	fp := in.Fingerprint()
	span.SetAttributes(attribute.String("carecheck.assessment.fingerprint", fp))

	// dedup: reuse an identical assessment that is still running
	if existing, ok, err := s.store.GetByFingerprint(ctx, fp); err != nil {
		s.onSubmit("error")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("lookup fingerprint: %w", err)
	} else if ok && !existing.Done() {
		s.onSubmit("duplicate")
		return &SubmitResult{ID: existing.ID, Skipped: true, Reason: "duplicate"}, nil
	}

	id := ulid.Make().String()
	result := &Result{
		ID:          id,
		Fingerprint: fp,
		Status:      StatusPending,
		Symptoms:    in.SymptomSet().Sorted(),
		Answers:     in.KnownAnswers(),
		CreatedAt:   time.Now(),
	}

	if err := s.store.Put(ctx, result); err != nil {
		s.onSubmit("error")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("store assessment: %w", err)
	}

	span.SetAttributes(attribute.String("carecheck.assessment.id", id))
	s.onSubmit("accepted")

	// kick off async assessment - pass only the ID and a private intake copy.
	intake := &Intake{Symptoms: result.Symptoms, Answers: result.Clone().Answers}
	s.wg.Add(1)
	go s.runAssessment(context.WithoutCancel(ctx), id, intake)

	return &SubmitResult{ID: id}, nil
}

// Get retrieves an assessment by ID.
func (s *Service) Get(ctx context.Context, id string) (*Result, bool, error) {
	return s.store.Get(ctx, id)
}

// NewSession starts a wizard session.
func (s *Service) NewSession(ctx context.Context) (*wizard.Session, error) {
	sess := wizard.New(ulid.Make().String(), time.Now())
	if err := s.store.PutSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return sess, nil
}

// Session retrieves a wizard session by ID.
func (s *Service) Session(ctx context.Context, id string) (*wizard.Session, bool, error) {
	return s.store.GetSession(ctx, id)
}

// UpdateSession applies a wizard transition. When the transition completes
// the questionnaire, the collected intake is submitted and the assessment ID
// is attached to the session.
func (s *Service) UpdateSession(ctx context.Context, id string, tr wizard.Transition) (*wizard.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := tracer.Start(ctx, "triage.session."+tr.Name, trace.WithAttributes(
		attribute.String("carecheck.session.id", id),
	))
	defer span.End()

	sess, ok, err := s.store.GetSession(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return nil, ErrSessionNotFound
	}

	prev := sess.Step
	if err := tr.Apply(sess); err != nil {
		s.onTransition(tr.Name, "rejected")
		return nil, err
	}

	if sess.Step == wizard.StepResult && prev != wizard.StepResult {
		sr, err := s.submitLocked(ctx, &Intake{Symptoms: sess.Symptoms, Answers: sess.Answers})
		if err != nil {
			s.onTransition(tr.Name, "error")
			return nil, fmt.Errorf("submit session %s: %w", id, err)
		}
		sess.AssessmentID = sr.ID
	}

	sess.UpdatedAt = time.Now()
	if err := s.store.PutSession(ctx, sess); err != nil {
		s.onTransition(tr.Name, "error")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("store session: %w", err)
	}

	span.SetAttributes(attribute.String("carecheck.session.step", string(sess.Step)))
	s.onTransition(tr.Name, "ok")
	return sess, nil
}

// Shutdown stops pending analysis delays and waits for in-flight
// assessments to settle, or for ctx to end.
func (s *Service) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for in-flight assessments: %w", ctx.Err())
	}
}

func (s *Service) runAssessment(ctx context.Context, id string, in *Intake) {
	defer s.wg.Done()

	L := s.logger.With("assessment_id", id)

	result, ok, err := s.store.Get(ctx, id)
	if err == nil && !ok {
		err = fmt.Errorf("assessment %s: %w", id, ErrAssessmentNotFound)
	}
	if err != nil {
		L.Error(ctx, err, "failed to fetch assessment")
		s.markFailed(ctx, L, id, in, "assessment could not be loaded")
		return
	}

	result.Status = StatusInProgress
	if err := s.store.Put(ctx, result); err != nil {
		L.Error(ctx, err, "failed to update status to in_progress")
		s.markFailed(ctx, L, id, in, "assessment could not be started")
		return
	}

	if !s.wait(ctx) {
		result.Status = StatusFailed
		result.Error = "canceled before evaluation"
		result.CompletedAt = time.Now()
		if err := s.store.Put(ctx, result); err != nil {
			L.Error(ctx, err, "failed to persist canceled assessment")
		}
		s.onComplete(result)
		L.Warn(ctx, "assessment canceled during analysis delay")
		return
	}

	rr := s.engine.Run(ctx, id, in)

	result.Status = rr.Status
	result.Level = rr.Level
	result.Candidates = rr.Candidates
	result.Error = rr.Error
	result.CompletedAt = rr.CompletedAt
	result.Duration = rr.Duration
	if rr.Status == StatusComplete {
		rec := rr.Recommendation
		result.Recommendation = &rec
		result.Disclaimer = symptom.Disclaimer
	}

	if err := s.store.Put(ctx, result); err != nil {
		L.Error(ctx, err, "failed to persist assessment")
	}
	s.onComplete(result)

	L.Info(ctx, "assessment complete",
		"status", result.Status,
		"level", result.Level,
		"candidates", len(result.Candidates),
		"duration", result.Duration,
	)

	s.notify(ctx, L, result)
}

// markFailed stores a failed assessment so the fingerprint stops deduplicating
// onto an id that would never complete.
func (s *Service) markFailed(ctx context.Context, L log.Logger, id string, in *Intake, reason string) {
	now := time.Now()
	result := &Result{
		ID:          id,
		Fingerprint: in.Fingerprint(),
		Status:      StatusFailed,
		Symptoms:    in.SymptomSet().Sorted(),
		Answers:     in.KnownAnswers(),
		Error:       reason,
		CreatedAt:   now,
		CompletedAt: now,
	}
	if err := s.store.Put(ctx, result); err != nil {
		L.Error(ctx, err, "failed to persist failed assessment")
	}
	s.onComplete(result)
}

// wait holds for the analysis delay. It returns false if the service is
// shutting down or ctx ends first.
func (s *Service) wait(ctx context.Context) bool {
	if s.opts.AnalysisDelay <= 0 {
		return true
	}
	t := time.NewTimer(s.opts.AnalysisDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-s.stop:
		return false
	case <-ctx.Done():
		return false
	}
}

func (s *Service) notify(ctx context.Context, L log.Logger, result *Result) {
	if s.notifier == nil || s.opts.NotifyMinLevel == "" || result.Status != StatusComplete {
		return
	}
	if result.Level.Rank() < s.opts.NotifyMinLevel.Rank() {
		return
	}
	if err := s.notifier.Send(ctx, result); err != nil {
		L.Error(ctx, err, "notification failed", "level", result.Level)
		s.onNotify("error")
		return
	}
	s.onNotify("success")
}

func (s *Service) onSubmit(result string) {
	if s.opts.Hooks.OnSubmit != nil {
		s.opts.Hooks.OnSubmit(result)
	}
}

func (s *Service) onTransition(name, outcome string) {
	if s.opts.Hooks.OnTransition != nil {
		s.opts.Hooks.OnTransition(name, outcome)
	}
}

func (s *Service) onNotify(outcome string) {
	if s.opts.Hooks.OnNotify != nil {
		s.opts.Hooks.OnNotify(outcome)
	}
}

func (s *Service) onComplete(r *Result) {
	if s.opts.Hooks.OnComplete == nil {
		return
	}
	s.opts.Hooks.OnComplete(&CompleteEvent{
		Status:     r.Status,
		Level:      r.Level,
		Candidates: len(r.Candidates),
		Latency:    r.CompletedAt.Sub(r.CreatedAt).Seconds(),
	})
}

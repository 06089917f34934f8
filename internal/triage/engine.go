package triage

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/carecheck/internal/symptom"
)

var tracer = otel.Tracer("github.com/linnemanlabs/carecheck/internal/triage")

// EngineHooks holds optional callbacks invoked during Engine.Run.
type EngineHooks struct {
	OnEvaluate func(level symptom.Level, candidates int, duration float64)
}

// RunResult is what a single evaluation produced.
type RunResult struct {
	Status         Status
	Level          symptom.Level
	Candidates     []symptom.Candidate
	Recommendation symptom.Recommendation
	Error          string
	CompletedAt    time.Time
	Duration       float64
}

// Engine runs the triage evaluator for one intake. It has no store access.
type Engine struct {
	logger log.Logger
	hooks  EngineHooks
}

// NewEngine creates a new triage engine.
func NewEngine(logger log.Logger, hooks EngineHooks) *Engine {
	if logger == nil {
		logger = log.Nop()
	}
	return &Engine{
		logger: logger,
		hooks:  hooks,
	}
}

// Run evaluates the intake. A contract violation from the evaluator is
// reported as StatusFailed rather than propagated as a panic.
func (e *Engine) Run(ctx context.Context, id string, in *Intake) (rr *RunResult) {
	symptoms := in.SymptomSet()

	ctx, span := tracer.Start(ctx, "triage.evaluate", trace.WithAttributes(
		attribute.String("carecheck.assessment.id", id),
		attribute.Int("carecheck.symptom.count", len(symptoms)),
	))
	defer span.End()

	start := time.Now()
	rr = &RunResult{}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("evaluate: %v", r)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			e.logger.Error(ctx, err, "triage evaluation aborted", "assessment_id", id)
			rr.Status = StatusFailed
			rr.Error = err.Error()
			rr.CompletedAt = time.Now()
			rr.Duration = time.Since(start).Seconds()
		}
	}()

	level, candidates := symptom.Evaluate(symptoms, in.Answers)

	rr.Status = StatusComplete
	rr.Level = level
	rr.Candidates = candidates
	rr.Recommendation = symptom.Recommend(level)
	rr.CompletedAt = time.Now()
	rr.Duration = time.Since(start).Seconds()

	span.SetAttributes(
		attribute.String("carecheck.triage.level", string(level)),
		attribute.Int("carecheck.candidates.count", len(candidates)),
	)

	if e.hooks.OnEvaluate != nil {
		e.hooks.OnEvaluate(level, len(candidates), rr.Duration)
	}

	return rr
}

// Package wizard models the symptom checker flow as a finite-state machine:
// collect symptoms, walk the follow-up questions, then show the result.
package wizard

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/linnemanlabs/carecheck/internal/symptom"
)

// Step is the wizard state.
type Step string

const (
	// StepSymptoms collects reported symptoms
	StepSymptoms Step = "symptoms"

	// StepQuestions walks the follow-up questions
	StepQuestions Step = "questions"

	// StepResult shows the assessment
	StepResult Step = "result"
)

var (
	ErrInvalidTransition = errors.New("transition not allowed in current step")
	ErrEmptySymptom      = errors.New("symptom is empty")
	ErrNoSymptoms        = errors.New("at least one symptom is required")
	ErrUnknownOption     = errors.New("answer is not an option of the current question")
)

// Session is one run through the wizard.
type Session struct {
	ID            string          `json:"id"`
	Step          Step            `json:"step"`
	Symptoms      []string        `json:"symptoms"`
	QuestionIndex int             `json:"question_index"`
	Answers       symptom.Answers `json:"answers"`
	AssessmentID  string          `json:"assessment_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// New returns a session at the symptoms step.
func New(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		Step:      StepSymptoms,
		Symptoms:  []string{},
		Answers:   symptom.Answers{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	cp := *s
	cp.Symptoms = slices.Clone(s.Symptoms)
	cp.Answers = maps.Clone(s.Answers)
	return &cp
}

// SymptomSet returns the collected symptoms as a set.
func (s *Session) SymptomSet() symptom.Set {
	return symptom.NewSet(s.Symptoms...)
}

// CurrentQuestion returns the question being asked, if in the questions step.
func (s *Session) CurrentQuestion() (symptom.Question, bool) {
	if s.Step != StepQuestions {
		return symptom.Question{}, false
	}
	return symptom.QuestionAt(s.QuestionIndex)
}

// Transition is a named state change applied to a session.
type Transition struct {
	Name  string
	apply func(*Session) error
}

// Apply runs the transition against s.
func (t Transition) Apply(s *Session) error {
	return t.apply(s)
}

// AddSymptom records a symptom. Duplicates are ignored.
func AddSymptom(label string) Transition {
	return Transition{Name: "add_symptom", apply: func(s *Session) error {
		if err := s.require(StepSymptoms); err != nil {
			return err
		}
		label = symptom.Normalize(label)
		if label == "" {
			return ErrEmptySymptom
		}
		if !slices.Contains(s.Symptoms, label) {
			s.Symptoms = append(s.Symptoms, label)
		}
		return nil
	}}
}

// RemoveSymptom drops a symptom if present.
func RemoveSymptom(label string) Transition {
	return Transition{Name: "remove_symptom", apply: func(s *Session) error {
		if err := s.require(StepSymptoms); err != nil {
			return err
		}
		label = symptom.Normalize(label)
		s.Symptoms = slices.DeleteFunc(s.Symptoms, func(v string) bool { return v == label })
		return nil
	}}
}

// Proceed moves from symptoms to the first question.
func Proceed() Transition {
	return Transition{Name: "proceed", apply: func(s *Session) error {
		if err := s.require(StepSymptoms); err != nil {
			return err
		}
		if len(s.Symptoms) == 0 {
			return ErrNoSymptoms
		}
		s.Step = StepQuestions
		s.QuestionIndex = 0
		return nil
	}}
}

// Answer records an option for the current question and advances. Answering
// the last question moves to the result step.
func Answer(option string) Transition {
	return Transition{Name: "answer", apply: func(s *Session) error {
		q, ok := s.CurrentQuestion()
		if !ok {
			return fmt.Errorf("answer in step %q: %w", s.Step, ErrInvalidTransition)
		}
		if !q.Accepts(option) {
			return fmt.Errorf("%q for %s: %w", option, q.ID, ErrUnknownOption)
		}
		if s.Answers == nil {
			s.Answers = symptom.Answers{}
		}
		s.Answers[q.ID] = option
		if s.QuestionIndex < symptom.QuestionCount()-1 {
			s.QuestionIndex++
			return nil
		}
		s.Step = StepResult
		return nil
	}}
}

// Back returns to the previous question, or to symptoms from the first one.
func Back() Transition {
	return Transition{Name: "back", apply: func(s *Session) error {
		if err := s.require(StepQuestions); err != nil {
			return err
		}
		if s.QuestionIndex == 0 {
			s.Step = StepSymptoms
			return nil
		}
		s.QuestionIndex--
		return nil
	}}
}

// Restart clears the session back to an empty symptoms step.
func Restart() Transition {
	return Transition{Name: "restart", apply: func(s *Session) error {
		s.Step = StepSymptoms
		s.Symptoms = []string{}
		s.QuestionIndex = 0
		s.Answers = symptom.Answers{}
		s.AssessmentID = ""
		return nil
	}}
}

func (s *Session) require(step Step) error {
	if s.Step != step {
		return fmt.Errorf("in step %q, need %q: %w", s.Step, step, ErrInvalidTransition)
	}
	return nil
}

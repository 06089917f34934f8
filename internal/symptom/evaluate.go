package symptom

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Level is the triage urgency of an assessment.
type Level string

const (
	// LevelUrgent means seek immediate medical attention
	LevelUrgent Level = "urgent"

	// LevelSoon means see a provider within the next few days
	LevelSoon Level = "soon"

	// LevelRoutine means a routine appointment is enough
	LevelRoutine Level = "routine"
)

// Rank orders levels by urgency, routine lowest. Unknown levels rank 0.
func (l Level) Rank() int {
	switch l {
	case LevelUrgent:
		return 3
	case LevelSoon:
		return 2
	case LevelRoutine:
		return 1
	default:
		return 0
	}
}

// ParseLevel converts a string into a Level.
func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToLower(strings.TrimSpace(s))); l {
	case LevelUrgent, LevelSoon, LevelRoutine:
		return l, nil
	default:
		return "", fmt.Errorf("unknown triage level %q", s)
	}
}

// Candidate is a possible condition with its heuristic match percentage.
type Candidate struct {
	Condition   string `json:"condition"`
	Probability int    `json:"probability"`
}

// ErrPreconditionViolation marks evaluation inputs the wizard should never
// have let through: no symptoms, or an incomplete answer set.
var ErrPreconditionViolation = errors.New("triage precondition violated")

// PreconditionError describes which precondition failed.
type PreconditionError struct {
	NoSymptoms bool
	Missing    []QuestionID
	Invalid    []QuestionID
	Unknown    []QuestionID
}

func (e *PreconditionError) Error() string {
	var parts []string
	if e.NoSymptoms {
		parts = append(parts, "no symptoms reported")
	}
	if len(e.Missing) > 0 {
		parts = append(parts, "missing answers: "+joinIDs(e.Missing))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "unknown options for: "+joinIDs(e.Invalid))
	}
	if len(e.Unknown) > 0 {
		parts = append(parts, "unknown questions: "+joinIDs(e.Unknown))
	}
	return ErrPreconditionViolation.Error() + ": " + strings.Join(parts, "; ")
}

// Unwrap lets errors.Is match ErrPreconditionViolation.
func (e *PreconditionError) Unwrap() error { return ErrPreconditionViolation }

func joinIDs(ids []QuestionID) string {
	s := make([]string, len(ids))
	for i, id := range ids {
		s[i] = string(id)
	}
	return strings.Join(s, ", ")
}

// Check reports whether symptoms and answers satisfy Evaluate's contract:
// at least one symptom and a non-empty answer for every question.
func Check(symptoms Set, answers Answers) error {
	pe := &PreconditionError{NoSymptoms: len(symptoms) == 0}
	for _, q := range questions {
		if answers[q.ID] == "" {
			pe.Missing = append(pe.Missing, q.ID)
		}
	}
	if pe.NoSymptoms || len(pe.Missing) > 0 {
		return pe
	}
	return nil
}

// CheckOptions is Check plus a requirement that every answer is one of its
// question's options and answers only catalog questions.
func CheckOptions(symptoms Set, answers Answers) error {
	pe := &PreconditionError{}
	if err := Check(symptoms, answers); err != nil {
		errors.As(err, &pe)
	}
	for _, q := range questions {
		if a, ok := answers[q.ID]; ok && a != "" && !q.Accepts(a) {
			pe.Invalid = append(pe.Invalid, q.ID)
		}
	}
	for id := range answers {
		if _, ok := LookupQuestion(id); !ok {
			pe.Unknown = append(pe.Unknown, id)
		}
	}
	slices.Sort(pe.Unknown)
	if pe.NoSymptoms || len(pe.Missing) > 0 || len(pe.Invalid) > 0 || len(pe.Unknown) > 0 {
		return pe
	}
	return nil
}

// rule adds candidates when its match predicate holds.
type rule struct {
	match      func(Set) bool
	candidates []Candidate
}

var rules = []rule{
	{
		match: func(s Set) bool { return s.Has(Headache) },
		candidates: []Candidate{
			{"Tension Headache", 65},
			{"Migraine", 45},
		},
	},
	{
		match: func(s Set) bool { return s.HasAll(Fever, Cough) },
		candidates: []Candidate{
			{"Upper Respiratory Infection", 78},
			{"Influenza", 60},
			{"COVID-19", 55},
		},
	},
	{
		match: func(s Set) bool { return s.HasAll(ChestPain, ShortnessOfBreath) },
		candidates: []Candidate{
			{"Anxiety", 40},
			{"Angina", 35},
			{"Pneumonia", 32},
		},
	},
	{
		match: func(s Set) bool { return s.Has(AbdominalPain) },
		candidates: []Candidate{
			{"Gastritis", 50},
			{"Gastroenteritis", 45},
		},
	},
}

// Evaluate classifies a symptom set and answer set into a triage level and
// candidate conditions ordered by descending probability (ties keep rule
// order).
//
// Callers must gate input with Check first; Evaluate panics with a
// *PreconditionError when symptoms is empty or an answer is missing.
func Evaluate(symptoms Set, answers Answers) (Level, []Candidate) {
	if err := Check(symptoms, answers); err != nil {
		panic(err)
	}
	return classify(symptoms, answers), candidatesFor(symptoms)
}

func classify(symptoms Set, answers Answers) Level {
	redFlag := symptoms.HasAny(ChestPain, ShortnessOfBreath)
	severe := strings.Contains(answers[QuestionSeverity], "Severe")
	highFever := strings.Contains(answers[QuestionFeverTemp], "Above 39°C")
	history := answers[QuestionMedicalHistory]
	riskFactors := history != "" && history != "None"

	switch {
	case redFlag || (severe && highFever):
		return LevelUrgent
	case severe || highFever || riskFactors:
		return LevelSoon
	default:
		return LevelRoutine
	}
}

func candidatesFor(symptoms Set) []Candidate {
	out := []Candidate{}
	for _, r := range rules {
		if r.match(symptoms) {
			out = append(out, r.candidates...)
		}
	}
	slices.SortStableFunc(out, func(a, b Candidate) int {
		return cmp.Compare(b.Probability, a.Probability)
	})
	return out
}

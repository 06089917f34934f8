package symptom

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

// Labels the triage rules match on.
const (
	Headache          = "Headache"
	Fever             = "Fever"
	Cough             = "Cough"
	ChestPain         = "Chest Pain"
	ShortnessOfBreath = "Shortness of Breath"
	AbdominalPain     = "Abdominal Pain"
)

// DefaultSuggestionLimit is how many suggestions the checker offers at once.
const DefaultSuggestionLimit = 6

// catalog is the suggestion list offered while typing, in display order.
var catalog = []string{
	Headache, Fever, Cough, "Fatigue", ChestPain,
	ShortnessOfBreath, AbdominalPain, "Nausea", "Vomiting",
	"Diarrhea", "Joint Pain", "Muscle Pain", "Dizziness", "Sore Throat",
}

// Catalog returns a copy of the suggestion catalog.
func Catalog() []string {
	return slices.Clone(catalog)
}

// Set is a set of reported symptom labels. Order of entry is irrelevant.
type Set map[string]struct{}

// NewSet builds a Set from labels, trimming whitespace and dropping blanks.
func NewSet(labels ...string) Set {
	s := make(Set, len(labels))
	for _, l := range labels {
		s.Add(l)
	}
	return s
}

// Add inserts a trimmed label and reports whether it was added.
func (s Set) Add(label string) bool {
	label = Normalize(label)
	if label == "" {
		return false
	}
	if _, ok := s[label]; ok {
		return false
	}
	s[label] = struct{}{}
	return true
}

// Has reports whether label is in the set. Matching is exact.
func (s Set) Has(label string) bool {
	_, ok := s[label]
	return ok
}

// HasAny reports whether any of labels is in the set.
func (s Set) HasAny(labels ...string) bool {
	for _, l := range labels {
		if s.Has(l) {
			return true
		}
	}
	return false
}

// HasAll reports whether every one of labels is in the set.
func (s Set) HasAll(labels ...string) bool {
	for _, l := range labels {
		if !s.Has(l) {
			return false
		}
	}
	return true
}

// Sorted returns the labels in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for l := range s {
		out = append(out, l)
	}
	slices.Sort(out)
	return out
}

// Normalize trims surrounding whitespace from a typed label.
func Normalize(label string) string {
	return strings.TrimSpace(label)
}

// Suggest returns catalog labels containing term (case-insensitive) that are
// not already selected, in catalog order, at most limit of them. A blank term
// yields no suggestions.
func Suggest(term string, selected Set, limit int) []string {
	term = strings.TrimSpace(term)
	if term == "" || limit <= 0 {
		return nil
	}
	// a Caser is stateful, so each call gets its own
	folder := cases.Fold()
	needle := folder.String(term)

	var out []string
	for _, l := range catalog {
		if selected.Has(l) {
			continue
		}
		if !strings.Contains(folder.String(l), needle) {
			continue
		}
		out = append(out, l)
		if len(out) == limit {
			break
		}
	}
	return out
}

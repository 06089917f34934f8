// Package symptom holds the symptom checker's rule engine: the symptom and
// follow-up question catalogs, the triage evaluator that maps a symptom set
// and questionnaire answers to an urgency level and ranked candidate
// conditions, and the care recommendation shown for each level.
//
// Everything here is pure and deterministic. Candidate conditions are
// heuristic matches, not diagnoses.
package symptom

// Package triage provides the business boundary for carecheck's symptom
// assessments. It defines the Service (dedup, lifecycle, async dispatch,
// wizard sessions), Engine (pure traced evaluation), Store interface
// (in-process state), and domain models.
package triage

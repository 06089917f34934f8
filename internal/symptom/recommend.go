package symptom

// Disclaimer accompanies every assessment.
const Disclaimer = "This is not a medical diagnosis. This tool provides information only. " +
	"Always consult with a healthcare professional for proper diagnosis and treatment."

// Recommendation is the care guidance shown for a triage level.
type Recommendation struct {
	Headline string `json:"headline"`
	Action   string `json:"action"`
	Detail   string `json:"detail"`
}

var recommendations = map[Level]Recommendation{
	LevelUrgent: {
		Headline: "Urgent Care Recommended",
		Action:   "Seek immediate medical attention",
		Detail: "Your symptoms suggest a condition that requires urgent medical care. " +
			"Please contact emergency services or go to your nearest emergency room.",
	},
	LevelSoon: {
		Headline: "Seek Medical Attention Soon",
		Action:   "Schedule a medical appointment soon",
		Detail:   "Your symptoms suggest a condition that should be evaluated by a healthcare provider within the next few days.",
	},
	LevelRoutine: {
		Headline: "Routine Care",
		Action:   "Consider a routine appointment",
		Detail:   "Your symptoms suggest a condition that can be addressed during a routine medical appointment.",
	},
}

// Recommend returns the guidance for level. Unknown levels get the zero value.
func Recommend(level Level) Recommendation {
	return recommendations[level]
}

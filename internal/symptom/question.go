package symptom

import "slices"

// QuestionID identifies one of the fixed follow-up questions.
type QuestionID string

const (
	QuestionDuration       QuestionID = "duration"
	QuestionSeverity       QuestionID = "severity"
	QuestionFeverTemp      QuestionID = "fever_temp"
	QuestionMedication     QuestionID = "medication"
	QuestionMedicalHistory QuestionID = "medical_history"
)

// Question is a follow-up question with its selectable options.
type Question struct {
	ID      QuestionID `json:"id"`
	Text    string     `json:"question"`
	Options []string   `json:"options"`
}

// Accepts reports whether option is one of the question's options.
func (q Question) Accepts(option string) bool {
	return slices.Contains(q.Options, option)
}

// Answers maps each question to the selected option.
type Answers map[QuestionID]string

var questions = []Question{
	{
		ID:      QuestionDuration,
		Text:    "How long have you been experiencing these symptoms?",
		Options: []string{"Less than 24 hours", "1-3 days", "4-7 days", "More than a week"},
	},
	{
		ID:      QuestionSeverity,
		Text:    "On a scale of 1-10, how would you rate the severity of your symptoms?",
		Options: []string{"1-3 (Mild)", "4-6 (Moderate)", "7-8 (Severe)", "9-10 (Very Severe)"},
	},
	{
		ID:      QuestionFeverTemp,
		Text:    "If you have fever, what is your temperature?",
		Options: []string{"No fever", "37.5-38°C (99.5-100.4°F)", "38.1-39°C (100.5-102.2°F)", "Above 39°C (102.2°F)"},
	},
	{
		ID:      QuestionMedication,
		Text:    "Have you taken any medication for these symptoms?",
		Options: []string{"No", "Yes, with improvement", "Yes, without improvement", "Yes, symptoms worsened"},
	},
	{
		ID:      QuestionMedicalHistory,
		Text:    "Do you have any relevant medical conditions?",
		Options: []string{"None", "Diabetes", "Heart disease", "Respiratory condition", "Immune disorder"},
	},
}

// Questions returns the follow-up questions in the order they are asked.
func Questions() []Question {
	out := make([]Question, len(questions))
	for i, q := range questions {
		q.Options = slices.Clone(q.Options)
		out[i] = q
	}
	return out
}

// QuestionCount is the number of follow-up questions.
func QuestionCount() int {
	return len(questions)
}

// QuestionAt returns the i-th question in asking order.
func QuestionAt(i int) (Question, bool) {
	if i < 0 || i >= len(questions) {
		return Question{}, false
	}
	q := questions[i]
	q.Options = slices.Clone(q.Options)
	return q, true
}

// LookupQuestion finds a question by ID.
func LookupQuestion(id QuestionID) (Question, bool) {
	for i, q := range questions {
		if q.ID == id {
			return QuestionAt(i)
		}
	}
	return Question{}, false
}

package symptomapi

import (
	"net/http"

	"github.com/linnemanlabs/carecheck/internal/symptom"
)

// handleSuggest returns catalog symptoms matching ?q=, excluding any
// repeated ?selected= values.
func (a *API) handleSuggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	suggestions := symptom.Suggest(q.Get("q"), symptom.NewSet(q["selected"]...), a.suggestionLimit)
	if suggestions == nil {
		suggestions = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

func (a *API) handleQuestions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"questions": symptom.Questions()})
}

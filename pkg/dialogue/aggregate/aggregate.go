// Package aggregate merges newly extracted facts into the running
// per-conversation patient record.
package aggregate

import (
	"strings"

	"medical-assistant-be/pkg/dialogue/extract"
	"medical-assistant-be/pkg/store"
)

// Minimum informative lengths for a normalized item. Anything shorter
// is noise, not a fact.
const (
	minSymptomLength    = 3
	minHistoryLength    = 3
	minMedicationLength = 2
)

// Merge folds a turn's extracted facts into the state in place.
// Deterministic and pure with respect to its inputs: list fields are
// deduplicated case-insensitively with display casing preserved,
// identity fields overwrite only when provided, and urgency plus
// suggested questions are replaced wholesale when present. An empty
// or partial fact set is a no-op for the fields it omits. Merge never
// removes or reorders previously stored items.
func Merge(state *store.ConversationState, facts *extract.MedicalFacts) {
	if state == nil || facts == nil {
		return
	}

	for _, symptom := range facts.Symptoms {
		state.Symptoms = appendUnique(state.Symptoms, describeSymptom(symptom), minSymptomLength)
	}
	for _, med := range facts.Medications {
		state.MedicationsTaken = appendUnique(state.MedicationsTaken, describeMedication(med), minMedicationLength)
	}
	for _, item := range facts.MedicalHistory {
		state.MedicalHistory = appendUnique(state.MedicalHistory, item, minHistoryLength)
	}

	mergeUserInfo(&state.UserInfo, facts.UserInfo)

	if facts.Urgency != nil {
		state.Urgency = facts.Urgency
	}
	if len(facts.SuggestedQuestions) > 0 {
		state.SuggestedQuestions = facts.SuggestedQuestions
	}
}

// describeSymptom flattens a symptom's attributes into one display
// string keyed on the symptom name for dedup purposes.
func describeSymptom(s extract.SymptomDetail) string {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return ""
	}

	var attrs []string
	for _, a := range []string{s.Severity, s.Duration, s.Location, s.Quality, s.Triggers} {
		if a = strings.TrimSpace(a); a != "" {
			attrs = append(attrs, a)
		}
	}
	if len(attrs) == 0 {
		return name
	}
	return name + " (" + strings.Join(attrs, ", ") + ")"
}

func describeMedication(m extract.MedicationDetail) string {
	name := strings.TrimSpace(m.Name)
	if name == "" {
		return ""
	}

	var attrs []string
	for _, a := range []string{m.Dosage, m.Frequency} {
		if a = strings.TrimSpace(a); a != "" {
			attrs = append(attrs, a)
		}
	}
	if len(attrs) == 0 {
		return name
	}
	return name + " (" + strings.Join(attrs, ", ") + ")"
}

// appendUnique appends item unless its normalized form is too short or
// already present. Dedup compares the leading token before any
// attribute parenthesis so "headache (mild)" and "Headache" collide.
func appendUnique(items []string, item string, minLength int) []string {
	normalized := normalizeKey(item)
	if len([]rune(normalized)) < minLength {
		return items
	}

	for _, existing := range items {
		if normalizeKey(existing) == normalized {
			return items
		}
	}

	return append(items, strings.TrimSpace(item))
}

func normalizeKey(item string) string {
	item = strings.TrimSpace(strings.ToLower(item))
	if idx := strings.Index(item, "("); idx > 0 {
		item = strings.TrimSpace(item[:idx])
	}
	return item
}

func mergeUserInfo(dst *store.UserInfo, src store.UserInfo) {
	if src.Name != "" {
		dst.Name = src.Name
	}
	if src.Age != 0 {
		dst.Age = src.Age
	}
	if src.Gender != "" {
		dst.Gender = src.Gender
	}
	if src.Location != "" {
		dst.Location = src.Location
	}
}

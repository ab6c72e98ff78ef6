package aggregate

import (
	"reflect"
	"testing"

	"medical-assistant-be/pkg/dialogue/extract"
	"medical-assistant-be/pkg/store"
)

func symptoms(names ...string) []extract.SymptomDetail {
	out := make([]extract.SymptomDetail, len(names))
	for i, n := range names {
		out[i] = extract.SymptomDetail{Name: n}
	}
	return out
}

func TestMergeDedupIsIdempotent(t *testing.T) {
	state := store.NewConversationState("s1")

	Merge(state, &extract.MedicalFacts{Symptoms: symptoms("Dry Cough")})
	Merge(state, &extract.MedicalFacts{Symptoms: symptoms("dry cough")})
	Merge(state, &extract.MedicalFacts{Symptoms: symptoms("  DRY COUGH  ")})

	if len(state.Symptoms) != 1 {
		t.Fatalf("expected exactly one symptom entry, got %v", state.Symptoms)
	}
	if state.Symptoms[0] != "Dry Cough" {
		t.Errorf("display casing of first occurrence must be preserved, got %q", state.Symptoms[0])
	}
}

func TestMergeDedupIgnoresAttributeAnnotations(t *testing.T) {
	state := store.NewConversationState("s1")

	Merge(state, &extract.MedicalFacts{Symptoms: []extract.SymptomDetail{{Name: "headache"}}})
	Merge(state, &extract.MedicalFacts{Symptoms: []extract.SymptomDetail{{Name: "Headache", Severity: "mild"}}})

	if len(state.Symptoms) != 1 {
		t.Fatalf("re-described symptom must not duplicate, got %v", state.Symptoms)
	}
}

func TestMergeAccumulationIsMonotonic(t *testing.T) {
	state := store.NewConversationState("s1")

	Merge(state, &extract.MedicalFacts{
		Symptoms:       symptoms("fever"),
		Medications:    []extract.MedicationDetail{{Name: "paracetamol"}},
		MedicalHistory: []string{"asthma"},
	})
	before := append([]string(nil), state.Symptoms...)
	beforeMeds := append([]string(nil), state.MedicationsTaken...)

	Merge(state, &extract.MedicalFacts{Symptoms: symptoms("chills")})

	for i, s := range before {
		if state.Symptoms[i] != s {
			t.Fatalf("prior symptoms must be preserved in order, got %v", state.Symptoms)
		}
	}
	if !reflect.DeepEqual(state.MedicationsTaken, beforeMeds) {
		t.Errorf("untouched lists must not change, got %v", state.MedicationsTaken)
	}
	if len(state.Symptoms) != 2 {
		t.Errorf("expected two symptoms after second merge, got %v", state.Symptoms)
	}
}

func TestMergeRejectsUninformativeItems(t *testing.T) {
	state := store.NewConversationState("s1")

	Merge(state, &extract.MedicalFacts{
		Symptoms:       symptoms("ok", "", "  "),
		Medications:    []extract.MedicationDetail{{Name: "x"}},
		MedicalHistory: []string{"hx"},
	})

	if len(state.Symptoms) != 0 {
		t.Errorf("two-char symptoms must be rejected, got %v", state.Symptoms)
	}
	if len(state.MedicationsTaken) != 0 {
		t.Errorf("one-char medications must be rejected, got %v", state.MedicationsTaken)
	}
	if len(state.MedicalHistory) != 0 {
		t.Errorf("two-char history must be rejected, got %v", state.MedicalHistory)
	}
}

func TestMergeUserInfoOverwritesOnlyProvidedFields(t *testing.T) {
	state := store.NewConversationState("s1")
	state.UserInfo = store.UserInfo{Name: "Aymaan", Age: 24}

	Merge(state, &extract.MedicalFacts{UserInfo: store.UserInfo{Location: "Jakarta"}})

	if state.UserInfo.Name != "Aymaan" || state.UserInfo.Age != 24 {
		t.Errorf("absent fields must not erase existing identity, got %+v", state.UserInfo)
	}
	if state.UserInfo.Location != "Jakarta" {
		t.Errorf("provided field must be applied, got %+v", state.UserInfo)
	}

	Merge(state, &extract.MedicalFacts{UserInfo: store.UserInfo{Age: 25}})
	if state.UserInfo.Age != 25 {
		t.Errorf("newer age must overwrite, got %d", state.UserInfo.Age)
	}
}

func TestMergeReplacesUrgencyAndQuestionsWholesale(t *testing.T) {
	state := store.NewConversationState("s1")
	state.Urgency = &store.UrgencyAssessment{Level: store.UrgencyHigh, RedFlags: []string{"x"}}
	state.SuggestedQuestions = []string{"old question"}

	Merge(state, &extract.MedicalFacts{
		Urgency:            &store.UrgencyAssessment{Level: store.UrgencyLow, Reasoning: "resolved"},
		SuggestedQuestions: []string{"Any fever?", "Any rash?"},
	})

	if state.Urgency.Level != store.UrgencyLow {
		t.Errorf("urgency must be replaced, got %+v", state.Urgency)
	}
	if len(state.SuggestedQuestions) != 2 || state.SuggestedQuestions[0] != "Any fever?" {
		t.Errorf("questions must be replaced wholesale, got %v", state.SuggestedQuestions)
	}
}

func TestMergeEmptyFactsIsNoOp(t *testing.T) {
	state := store.NewConversationState("s1")
	state.Symptoms = []string{"fever"}
	state.Urgency = &store.UrgencyAssessment{Level: store.UrgencyMedium}
	state.SuggestedQuestions = []string{"q"}

	Merge(state, &extract.MedicalFacts{})

	if len(state.Symptoms) != 1 || state.Urgency.Level != store.UrgencyMedium || len(state.SuggestedQuestions) != 1 {
		t.Errorf("empty facts must not mutate state, got %+v", state)
	}

	Merge(state, nil)
	if len(state.Symptoms) != 1 {
		t.Error("nil facts must be a no-op")
	}
}

func TestMergeFlattensAttributes(t *testing.T) {
	state := store.NewConversationState("s1")

	Merge(state, &extract.MedicalFacts{
		Symptoms:    []extract.SymptomDetail{{Name: "cough", Duration: "3 days", Quality: "dry"}},
		Medications: []extract.MedicationDetail{{Name: "ibuprofen", Dosage: "400mg", Frequency: "as needed"}},
	})

	if state.Symptoms[0] != "cough (3 days, dry)" {
		t.Errorf("unexpected symptom description: %q", state.Symptoms[0])
	}
	if state.MedicationsTaken[0] != "ibuprofen (400mg, as needed)" {
		t.Errorf("unexpected medication description: %q", state.MedicationsTaken[0])
	}
}

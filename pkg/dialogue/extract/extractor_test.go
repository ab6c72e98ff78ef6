package extract

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"

	"medical-assistant-be/pkg/llm/llmtest"
	"medical-assistant-be/pkg/store"
)

func newTestExtractor(p *llmtest.Provider) *Extractor {
	return NewExtractor(p, log.New(io.Discard, "", 0))
}

func stateWith(message string) *store.ConversationState {
	state := store.NewConversationState("test-session")
	state.AppendTurn(store.RoleUser, message)
	return state
}

func TestExtractParsesFullFactSet(t *testing.T) {
	provider := &llmtest.Provider{
		Replies: []string{`{
			"symptoms": [{"name": "dry cough", "duration": "3 days"}],
			"medications": [{"name": "paracetamol", "dosage": "500mg", "frequency": "twice daily"}],
			"medical_history": ["asthma"],
			"urgency": {"level": "low", "reasoning": "common cold presentation", "red_flags": []},
			"suggested_questions": ["Any fever?"],
			"user_info": {"age": 24}
		}`},
	}

	facts := newTestExtractor(provider).Extract(context.Background(), stateWith("I am 24 and I have a dry cough for 3 days"))

	if len(facts.Symptoms) != 1 || facts.Symptoms[0].Name != "dry cough" {
		t.Fatalf("unexpected symptoms: %+v", facts.Symptoms)
	}
	if facts.Symptoms[0].Duration != "3 days" {
		t.Errorf("expected duration attribute to survive, got %+v", facts.Symptoms[0])
	}
	if len(facts.Medications) != 1 || facts.Medications[0].Dosage != "500mg" {
		t.Errorf("unexpected medications: %+v", facts.Medications)
	}
	if facts.Urgency == nil || facts.Urgency.Level != store.UrgencyLow {
		t.Errorf("unexpected urgency: %+v", facts.Urgency)
	}
	if facts.UserInfo.Age != 24 {
		t.Errorf("expected age 24, got %d", facts.UserInfo.Age)
	}
}

func TestExtractEmptyOnServiceFailure(t *testing.T) {
	provider := &llmtest.Provider{Err: errors.New("model unavailable")}

	facts := newTestExtractor(provider).Extract(context.Background(), stateWith("I have a headache"))

	if !facts.Empty() {
		t.Errorf("expected empty fact set on service failure, got %+v", facts)
	}
}

func TestExtractEmptyOnGarbageOutput(t *testing.T) {
	provider := &llmtest.Provider{Replies: []string{"here are the facts you asked for"}}

	facts := newTestExtractor(provider).Extract(context.Background(), stateWith("I have a headache"))

	if !facts.Empty() {
		t.Errorf("expected empty fact set on unparsable output, got %+v", facts)
	}
}

func TestExtractBackfillsRedFlagsFromReasoning(t *testing.T) {
	provider := &llmtest.Provider{
		Replies: []string{`{
			"symptoms": [{"name": "chest pain"}],
			"urgency": {"level": "emergency", "reasoning": "chest pain radiating to left arm", "red_flags": []}
		}`},
	}

	facts := newTestExtractor(provider).Extract(context.Background(), stateWith("crushing chest pain"))

	if facts.Urgency.Level != store.UrgencyEmergency {
		t.Fatalf("expected emergency level, got %s", facts.Urgency.Level)
	}
	if len(facts.Urgency.RedFlags) == 0 {
		t.Error("emergency urgency must carry red flags")
	}
}

func TestExtractDowngradesHighWithoutJustification(t *testing.T) {
	provider := &llmtest.Provider{
		Replies: []string{`{"urgency": {"level": "high", "reasoning": "", "red_flags": []}}`},
	}

	facts := newTestExtractor(provider).Extract(context.Background(), stateWith("I feel off"))

	if facts.Urgency.Level != store.UrgencyMedium {
		t.Errorf("unjustified high urgency should downgrade to medium, got %s", facts.Urgency.Level)
	}
}

func TestExtractNormalizesUnknownUrgencyLevel(t *testing.T) {
	provider := &llmtest.Provider{
		Replies: []string{`{"urgency": {"level": "CRITICAL!!", "reasoning": "x", "red_flags": ["y"]}}`},
	}

	facts := newTestExtractor(provider).Extract(context.Background(), stateWith("hmm"))

	if facts.Urgency.Level != store.UrgencyLow {
		t.Errorf("unknown urgency level should normalize to low, got %s", facts.Urgency.Level)
	}
}

func TestExtractIncludesKnownStateInPrompt(t *testing.T) {
	provider := &llmtest.Provider{Replies: []string{`{}`}}
	state := stateWith("it's getting worse")
	state.Symptoms = []string{"headache"}
	state.MedicationsTaken = []string{"ibuprofen"}

	newTestExtractor(provider).Extract(context.Background(), state)

	prompt := provider.Calls[0][0].Content
	for _, want := range []string{"headache", "ibuprofen", "it's getting worse"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

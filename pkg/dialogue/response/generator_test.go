package response

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

func newTestGenerator(p *llmtest.Provider) *Generator {
	return NewGenerator(p, log.New(io.Discard, "", 0))
}

func stateWith(message string) *store.ConversationState {
	state := store.NewConversationState("test-session")
	state.AppendTurn(store.RoleUser, message)
	return state
}

func TestDetectPattern(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"I'm not feeling well today", PatternVague},
		{"something is wrong with me", PatternVague},
		{"I think I have dengue fever", PatternSelfDiagnosis},
		{"I googled my symptoms and it must be cancer", PatternSelfDiagnosis},
		{"what medicine should I take?", PatternMedsNoContext},
		{"can I take something strong?", PatternMedsNoContext},
		{"should I take ibuprofen for my headache", PatternNormal},
		{"I have a dry cough for 3 days", PatternNormal},
	}

	for _, tt := range tests {
		if got := DetectPattern(tt.message); got != tt.want {
			t.Errorf("DetectPattern(%q) = %s, want %s", tt.message, got, tt.want)
		}
	}
}

func TestGenerateReturnsModelReply(t *testing.T) {
	provider := &llmtest.Provider{Replies: []string{"That sounds uncomfortable. How long has the cough lasted?"}}

	reply := newTestGenerator(provider).Generate(context.Background(), stateWith("I have a cough"), nil, nil)

	if !strings.Contains(reply, "cough") {
		t.Errorf("unexpected reply: %q", reply)
	}
}

func TestGenerateApologyOnFailure(t *testing.T) {
	provider := &llmtest.Provider{Err: errors.New("model down")}
	state := stateWith("I have a cough")
	state.UserInfo.Name = "Aymaan"

	reply := newTestGenerator(provider).Generate(context.Background(), state, nil, nil)

	if reply != FallbackApology("Aymaan") {
		t.Errorf("expected fixed apology, got %q", reply)
	}
	if !strings.Contains(reply, "Aymaan") {
		t.Error("apology should address the patient by name when known")
	}
}

func TestGenerateApologyOnEmptyOutput(t *testing.T) {
	provider := &llmtest.Provider{Replies: []string{"   "}}

	reply := newTestGenerator(provider).Generate(context.Background(), stateWith("hi"), nil, nil)

	if reply != FallbackApology("") {
		t.Errorf("expected anonymous apology, got %q", reply)
	}
}

func TestGenerateSeriousToneOverridesHumor(t *testing.T) {
	provider := &llmtest.Provider{Replies: []string{"Please seek urgent care now."}}
	// Vague phrasing would normally pick the humorous pattern.
	state := stateWith("I feel off")
	state.Urgency = &store.UrgencyAssessment{
		Level:    store.UrgencyEmergency,
		RedFlags: []string{"chest pain radiating to arm"},
	}

	newTestGenerator(provider).Generate(context.Background(), state, nil, nil)

	prompt := provider.Calls[0][len(provider.Calls[0])-1].Content
	if !strings.Contains(prompt, "No humor") {
		t.Error("serious urgency must force the strictly serious tone")
	}
	if !strings.Contains(prompt, "urgent-care escalation") {
		t.Error("serious urgency must request escalation language")
	}
}

func TestGeneratePromptCarriesStateAndKnowledge(t *testing.T) {
	provider := &llmtest.Provider{Replies: []string{"ok"}}
	state := stateWith("it's worse today")
	state.UserInfo = store.UserInfo{Name: "Aymaan", Age: 24}
	state.Symptoms = []string{"dry cough"}
	state.MedicationsTaken = []string{"paracetamol"}

	newTestGenerator(provider).Generate(context.Background(), state,
		[]string{"Coughs lasting over 3 weeks warrant evaluation."}, nil)

	prompt := provider.Calls[0][len(provider.Calls[0])-1].Content
	for _, want := range []string{"Aymaan", "Age: 24", "dry cough", "paracetamol", "3 weeks", "it's worse today"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestGenerateIncludesDisclaimerInstruction(t *testing.T) {
	provider := &llmtest.Provider{Replies: []string{"ok"}}

	newTestGenerator(provider).Generate(context.Background(), stateWith("mild headache"), nil, nil)

	prompt := provider.Calls[0][len(provider.Calls[0])-1].Content
	if !strings.Contains(prompt, "general information, not a diagnosis") {
		t.Error("non-urgent replies must carry the general-information disclaimer instruction")
	}
}

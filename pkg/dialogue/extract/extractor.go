// Package extract derives structured clinical facts from free-text
// patient messages.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"medical-assistant-be/pkg/llm"
	"medical-assistant-be/pkg/store"
)

// SymptomDetail is one symptom descriptor with optional attributes.
type SymptomDetail struct {
	Name     string `json:"name"`
	Severity string `json:"severity,omitempty"`
	Duration string `json:"duration,omitempty"`
	Location string `json:"location,omitempty"`
	Quality  string `json:"quality,omitempty"`
	Triggers string `json:"triggers,omitempty"`
}

// MedicationDetail is one medication mention.
type MedicationDetail struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage,omitempty"`
	Frequency string `json:"frequency,omitempty"`
}

// MedicalFacts bundles everything derived from a single turn.
type MedicalFacts struct {
	Symptoms           []SymptomDetail          `json:"symptoms"`
	Medications        []MedicationDetail       `json:"medications"`
	MedicalHistory     []string                 `json:"medical_history"`
	Urgency            *store.UrgencyAssessment `json:"urgency,omitempty"`
	SuggestedQuestions []string                 `json:"suggested_questions"`
	UserInfo           store.UserInfo           `json:"user_info"`
}

// Empty reports whether the fact set carries no information at all.
func (f *MedicalFacts) Empty() bool {
	return len(f.Symptoms) == 0 &&
		len(f.Medications) == 0 &&
		len(f.MedicalHistory) == 0 &&
		f.Urgency == nil &&
		len(f.SuggestedQuestions) == 0 &&
		f.UserInfo.IsZero()
}

// Extractor performs LLM-based incremental fact extraction.
type Extractor struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
}

func NewExtractor(llmProvider llm.LLMProvider, logger *log.Logger) *Extractor {
	return &Extractor{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// Extract derives facts from the latest user turn, contextualized by
// what is already known so the model reasons incrementally instead of
// re-deriving the whole record. On service failure or malformed output
// it returns an empty fact set; it never returns an error and never
// blocks the turn.
func (e *Extractor) Extract(ctx context.Context, state *store.ConversationState) *MedicalFacts {
	prompt := e.buildPrompt(state)

	response, err := e.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.0))
	if err != nil {
		e.logger.Printf("[WARN] Fact extraction call failed: %v", err)
		return &MedicalFacts{}
	}

	facts, err := parseFacts(response)
	if err != nil {
		e.logger.Printf("[WARN] Fact extraction parse failed: %v", err)
		return &MedicalFacts{}
	}

	e.logger.Printf("[EXTRACT] symptoms=%d medications=%d history=%d urgency=%v",
		len(facts.Symptoms), len(facts.Medications), len(facts.MedicalHistory), facts.Urgency != nil)

	return facts
}

func (e *Extractor) buildPrompt(state *store.ConversationState) string {
	var prompt strings.Builder

	prompt.WriteString("You are a clinical information extractor for a medical assistant.\n")
	prompt.WriteString("You do NOT give advice. You only extract structured facts the PATIENT states about themself.\n\n")

	prompt.WriteString("Already known (do not repeat unless the message adds detail):\n")
	if len(state.Symptoms) > 0 {
		prompt.WriteString("Symptoms: " + strings.Join(state.Symptoms, ", ") + "\n")
	}
	if len(state.MedicationsTaken) > 0 {
		prompt.WriteString("Medications: " + strings.Join(state.MedicationsTaken, ", ") + "\n")
	}
	if len(state.MedicalHistory) > 0 {
		prompt.WriteString("History: " + strings.Join(state.MedicalHistory, ", ") + "\n")
	}
	if len(state.Symptoms) == 0 && len(state.MedicationsTaken) == 0 && len(state.MedicalHistory) == 0 {
		prompt.WriteString("Nothing yet.\n")
	}
	prompt.WriteString("\n")

	if recent := state.RecentTurns(6); len(recent) > 0 {
		prompt.WriteString("Recent conversation:\n")
		for _, turn := range recent {
			prompt.WriteString(fmt.Sprintf("%s: %s\n", turn.Role, turn.Content))
		}
		prompt.WriteString("\n")
	}

	prompt.WriteString("Latest user message:\n")
	prompt.WriteString(state.LatestUserMessage)
	prompt.WriteString("\n\n")

	prompt.WriteString("Rules:\n")
	prompt.WriteString("- Facts about OTHER people (relatives, friends) must NOT be extracted.\n")
	prompt.WriteString("- urgency level is one of: low, medium, high, emergency.\n")
	prompt.WriteString("- If level is high or emergency, red_flags MUST list the specific warning signs.\n")
	prompt.WriteString("- Suggest up to 3 follow-up questions a doctor would ask next.\n\n")

	prompt.WriteString("Respond with ONLY valid JSON:\n")
	prompt.WriteString("{\n")
	prompt.WriteString("  \"symptoms\": [{\"name\": \"\", \"severity\": \"\", \"duration\": \"\", \"location\": \"\", \"quality\": \"\", \"triggers\": \"\"}],\n")
	prompt.WriteString("  \"medications\": [{\"name\": \"\", \"dosage\": \"\", \"frequency\": \"\"}],\n")
	prompt.WriteString("  \"medical_history\": [],\n")
	prompt.WriteString("  \"urgency\": {\"level\": \"low\", \"reasoning\": \"\", \"red_flags\": []},\n")
	prompt.WriteString("  \"suggested_questions\": [],\n")
	prompt.WriteString("  \"user_info\": {\"name\": \"\", \"age\": 0, \"gender\": \"\", \"location\": \"\"}\n")
	prompt.WriteString("}")

	return prompt.String()
}

func parseFacts(response string) (*MedicalFacts, error) {
	jsonContent := extractJSON(response)
	if jsonContent == "" {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var facts MedicalFacts
	if err := json.Unmarshal([]byte(jsonContent), &facts); err != nil {
		return nil, fmt.Errorf("JSON unmarshal failed: %w", err)
	}

	normalizeUrgency(&facts)

	return &facts, nil
}

// normalizeUrgency enforces the escalation contract: high/emergency
// levels without red flags are either backfilled from the reasoning or
// downgraded to medium.
func normalizeUrgency(facts *MedicalFacts) {
	u := facts.Urgency
	if u == nil {
		return
	}

	u.Level = strings.ToLower(strings.TrimSpace(u.Level))
	switch u.Level {
	case store.UrgencyLow, store.UrgencyMedium, store.UrgencyHigh, store.UrgencyEmergency:
	case "":
		facts.Urgency = nil
		return
	default:
		u.Level = store.UrgencyLow
	}

	if u.Level == store.UrgencyHigh || u.Level == store.UrgencyEmergency {
		if len(u.RedFlags) == 0 {
			if reasoning := strings.TrimSpace(u.Reasoning); reasoning != "" {
				u.RedFlags = []string{reasoning}
			} else {
				u.Level = store.UrgencyMedium
			}
		}
	}
}

func extractJSON(response string) string {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")

	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return ""
	}

	return response[startIdx : endIdx+1]
}

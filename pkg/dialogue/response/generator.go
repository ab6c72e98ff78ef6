// Package response synthesizes the assistant's reply from the
// aggregated patient state, retrieved knowledge, and tone heuristics.
package response

import (
	"context"
	"fmt"
	"log"
	"strings"

	"medical-assistant-be/pkg/dialogue/classify"
	"medical-assistant-be/pkg/llm"
	"medical-assistant-be/pkg/store"
)

// HistoryWindow is how many recent turns are replayed into the prompt.
const HistoryWindow = 6

// Message patterns steer the reply's tone.
const (
	PatternVague         = "vague"
	PatternSelfDiagnosis = "self_diagnosis"
	PatternMedsNoContext = "meds_no_context"
	PatternNormal        = "normal"
)

// Generator builds one professional reply per turn.
type Generator struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
}

func NewGenerator(llmProvider llm.LLMProvider, logger *log.Logger) *Generator {
	return &Generator{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// Generate produces the assistant turn. On generation failure it
// returns a fixed, personality-consistent apology; the turn always
// yields some reply.
func (g *Generator) Generate(
	ctx context.Context,
	state *store.ConversationState,
	knowledgeContext []string,
	verdict *classify.Result,
) string {
	pattern := DetectPattern(state.LatestUserMessage)
	serious := isSeriousUrgency(state.Urgency)

	prompt := g.buildPrompt(state, knowledgeContext, verdict, pattern, serious)

	history := historyMessages(state)
	history = append(history, llm.Message{Role: "user", Content: prompt})

	reply, err := g.llmProvider.Chat(ctx, history, llm.WithTemperature(0.6))
	if err != nil {
		g.logger.Printf("[ERROR] Reply generation failed: %v", err)
		return FallbackApology(state.UserInfo.Name)
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		g.logger.Printf("[ERROR] Reply generation returned empty output")
		return FallbackApology(state.UserInfo.Name)
	}

	g.logger.Printf("[GENERATION] pattern=%s serious=%v knowledge_passages=%d",
		pattern, serious, len(knowledgeContext))

	return reply
}

// DetectPattern classifies the current message with lightweight
// phrasing heuristics. Checks run in priority order; self-diagnosis
// wins over vagueness when both match.
func DetectPattern(message string) string {
	m := strings.ToLower(message)

	selfDiagnosis := []string{
		"i think i have", "i'm sure i have", "i am sure i have",
		"i diagnosed myself", "i googled", "i must have", "it must be",
		"pretty sure it's", "pretty sure i have",
	}
	for _, phrase := range selfDiagnosis {
		if strings.Contains(m, phrase) {
			return PatternSelfDiagnosis
		}
	}

	medsNoContext := []string{
		"what medicine should i take", "which medicine", "what drug",
		"can i take", "should i take", "what should i take",
	}
	mentionsSymptom := strings.Contains(m, "for my") || strings.Contains(m, "because")
	for _, phrase := range medsNoContext {
		if strings.Contains(m, phrase) && !mentionsSymptom {
			return PatternMedsNoContext
		}
	}

	vague := []string{
		"not feeling well", "feel weird", "feel off", "something is wrong",
		"don't feel good", "dont feel good", "feeling bad", "feel sick",
		"unwell",
	}
	for _, phrase := range vague {
		if strings.Contains(m, phrase) {
			return PatternVague
		}
	}

	return PatternNormal
}

func isSeriousUrgency(u *store.UrgencyAssessment) bool {
	if u == nil {
		return false
	}
	return u.Level == store.UrgencyHigh || u.Level == store.UrgencyEmergency
}

// FallbackApology is the fixed reply used when generation fails.
func FallbackApology(name string) string {
	if name != "" {
		return fmt.Sprintf("I'm sorry, %s — I'm having a little trouble putting my thoughts together right now. Could you repeat that for me in a moment?", name)
	}
	return "I'm sorry — I'm having a little trouble putting my thoughts together right now. Could you repeat that for me in a moment?"
}

func historyMessages(state *store.ConversationState) []llm.Message {
	recent := state.RecentTurns(HistoryWindow)
	messages := make([]llm.Message, 0, len(recent))
	for _, turn := range recent {
		// The latest user turn is carried inside the prompt instead.
		if turn.Role == store.RoleUser && turn.Content == state.LatestUserMessage {
			continue
		}
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	return messages
}

func (g *Generator) buildPrompt(
	state *store.ConversationState,
	knowledgeContext []string,
	verdict *classify.Result,
	pattern string,
	serious bool,
) string {
	var prompt strings.Builder

	prompt.WriteString("You are Dr. Mira, a warm, experienced physician having a text conversation with a patient.\n")
	prompt.WriteString("You speak naturally and professionally. You never invent facts about the patient.\n\n")

	prompt.WriteString("PATIENT RECORD:\n")
	if !state.UserInfo.IsZero() {
		if state.UserInfo.Name != "" {
			prompt.WriteString("Name: " + state.UserInfo.Name + "\n")
		}
		if state.UserInfo.Age > 0 {
			prompt.WriteString(fmt.Sprintf("Age: %d\n", state.UserInfo.Age))
		}
		if state.UserInfo.Gender != "" {
			prompt.WriteString("Gender: " + state.UserInfo.Gender + "\n")
		}
		if state.UserInfo.Location != "" {
			prompt.WriteString("Location: " + state.UserInfo.Location + "\n")
		}
	}
	writeList(&prompt, "Symptoms", state.Symptoms)
	writeList(&prompt, "Medications taken", state.MedicationsTaken)
	writeList(&prompt, "Medical history", state.MedicalHistory)
	if state.Urgency != nil {
		prompt.WriteString("Current urgency: " + state.Urgency.Level)
		if state.Urgency.Reasoning != "" {
			prompt.WriteString(" (" + state.Urgency.Reasoning + ")")
		}
		prompt.WriteString("\n")
		if len(state.Urgency.RedFlags) > 0 {
			prompt.WriteString("Red flags: " + strings.Join(state.Urgency.RedFlags, "; ") + "\n")
		}
	}
	if len(state.SuggestedQuestions) > 0 {
		prompt.WriteString("Questions worth asking next: " + strings.Join(state.SuggestedQuestions, " | ") + "\n")
	}
	prompt.WriteString("\n")

	if len(knowledgeContext) > 0 {
		prompt.WriteString("REFERENCE MATERIAL (use when relevant, do not quote verbatim):\n")
		for _, passage := range knowledgeContext {
			prompt.WriteString("- " + passage + "\n")
		}
		prompt.WriteString("\n")
	}

	prompt.WriteString("TONE:\n")
	switch {
	case serious:
		prompt.WriteString("The situation may be serious. Be strictly calm, clear, and direct. No humor whatsoever. Tell the patient plainly to seek urgent in-person care and why.\n")
	case pattern == PatternVague:
		prompt.WriteString("The patient is being vague. Be warm with a light touch of humor, then gently nudge them to describe one concrete symptom.\n")
	case pattern == PatternSelfDiagnosis:
		prompt.WriteString("The patient has diagnosed themself. Push back gently, with warmth and a bit of levity, and steer toward the actual symptoms instead of the self-diagnosis.\n")
	case pattern == PatternMedsNoContext:
		prompt.WriteString("The patient is asking for medication with no context. Do not name a medication. Ask what symptoms they are treating first.\n")
	default:
		if verdict != nil && verdict.SuggestedTone != "" {
			prompt.WriteString("Suggested tone: " + verdict.SuggestedTone + ".\n")
		}
		prompt.WriteString("Respond naturally and empathetically. Ask at most one or two focused follow-up questions.\n")
	}
	prompt.WriteString("\n")

	prompt.WriteString("RULES:\n")
	prompt.WriteString("- Keep the reply conversational, 2-5 short paragraphs at most.\n")
	prompt.WriteString("- Never prescribe. You may discuss common over-the-counter options in general terms.\n")
	if serious {
		prompt.WriteString("- End with clear urgent-care escalation language.\n")
	} else {
		prompt.WriteString("- End with a brief reminder that this is general information, not a diagnosis, and an in-person doctor should confirm anything concerning.\n")
	}
	prompt.WriteString("\n")

	prompt.WriteString("Patient's latest message:\n")
	prompt.WriteString(state.LatestUserMessage)
	prompt.WriteString("\n\nYour reply:")

	return prompt.String()
}

func writeList(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(label + ": " + strings.Join(items, ", ") + "\n")
}

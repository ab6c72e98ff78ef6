// Package dialogue sequences the per-turn pipeline: classification,
// fact extraction, aggregation, and reply generation.
package dialogue

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"medical-assistant-be/pkg/dialogue/aggregate"
	"medical-assistant-be/pkg/dialogue/classify"
	"medical-assistant-be/pkg/dialogue/extract"
	"medical-assistant-be/pkg/dialogue/sanitize"
	"medical-assistant-be/pkg/knowledge"
	"medical-assistant-be/pkg/store"
)

// Component contracts, accepted as interfaces so tests can substitute
// failures at any stage.
type (
	ContentClassifier interface {
		Classify(ctx context.Context, state *store.ConversationState) *classify.Result
	}

	FactExtractor interface {
		Extract(ctx context.Context, state *store.ConversationState) *extract.MedicalFacts
	}

	ReplyGenerator interface {
		Generate(ctx context.Context, state *store.ConversationState, knowledgeContext []string, verdict *classify.Result) string
	}

	Retriever interface {
		Retrieve(ctx context.Context, query string) ([]knowledge.Passage, error)
	}
)

// Timeouts bound every external-service call inside a turn. A timeout
// is handled identically to a failure of that component.
type Timeouts struct {
	Classify time.Duration
	Extract  time.Duration
	Retrieve time.Duration
	Generate time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Classify: 20 * time.Second,
		Extract:  30 * time.Second,
		Retrieve: 10 * time.Second,
		Generate: 60 * time.Second,
	}
}

// TurnResult is what one completed turn hands back to the transport.
type TurnResult struct {
	State    *store.ConversationState
	Reply    string
	Rejected bool
	Reason   string
}

// Orchestrator drives the turn state machine:
// Start -> Classifying -> {Rejected | Extracting} -> Aggregating ->
// Responding -> Done.
type Orchestrator struct {
	classifier ContentClassifier
	extractor  FactExtractor
	generator  ReplyGenerator
	retriever  Retriever
	timeouts   Timeouts
	logger     *log.Logger
}

func NewOrchestrator(
	classifier ContentClassifier,
	extractor FactExtractor,
	generator ReplyGenerator,
	retriever Retriever,
	timeouts Timeouts,
	logger *log.Logger,
) *Orchestrator {
	if timeouts.Generate == 0 {
		timeouts = DefaultTimeouts()
	}
	return &Orchestrator{
		classifier: classifier,
		extractor:  extractor,
		generator:  generator,
		retriever:  retriever,
		timeouts:   timeouts,
		logger:     logger,
	}
}

// RunTurn executes one full turn for a session. It never panics and
// never returns an error: every failure mode degrades to a completed
// turn with exactly one new assistant message. The input state is
// mutated on success; on a catastrophic failure only the user turn and
// a technical-difficulty reply are appended, with no partial fact
// merges.
func (o *Orchestrator) RunTurn(ctx context.Context, state *store.ConversationState, rawMessage string) (result *TurnResult) {
	message := sanitize.Sanitize(rawMessage)

	defer func() {
		if r := recover(); r != nil {
			o.logger.Printf("[ERROR] Turn panicked, degrading: %v", r)
			state.AppendTurn(store.RoleUser, message)
			reply := technicalDifficultyReply(state.UserInfo.Name)
			state.AppendTurn(store.RoleAssistant, reply)
			result = &TurnResult{
				State:    state,
				Reply:    reply,
				Rejected: true,
				Reason:   "internal error",
			}
		}
	}()

	// Work on a scratch copy so a mid-turn failure cannot leave the
	// canonical record half-merged.
	working := state.Clone()

	// [STATE] Start
	working.AppendTurn(store.RoleUser, message)
	o.logger.Printf("[STATE] Start: session=%s messages=%d", working.ID, len(working.Messages))

	// [STATE] Classifying
	classifyCtx, cancel := context.WithTimeout(ctx, o.timeouts.Classify)
	verdict := o.classifier.Classify(classifyCtx, working)
	cancel()

	if !verdict.Allowed {
		// [STATE] Rejected: no fact extraction for rejected turns.
		reply := refusalReply(verdict.Reason, working.UserInfo.Name)
		working.AppendTurn(store.RoleAssistant, reply)
		commit(state, working)
		o.logger.Printf("[STATE] Rejected: session=%s reason=%q", state.ID, verdict.Reason)
		return &TurnResult{
			State:    state,
			Reply:    reply,
			Rejected: true,
			Reason:   verdict.Reason,
		}
	}

	// [STATE] Extracting: retrieval is best-effort, failure degrades
	// to empty context and the turn continues.
	var knowledgeContext []string
	if o.retriever != nil {
		retrieveCtx, cancel := context.WithTimeout(ctx, o.timeouts.Retrieve)
		passages, err := o.retriever.Retrieve(retrieveCtx, message)
		cancel()
		if err != nil {
			o.logger.Printf("[WARN] Knowledge retrieval failed, continuing without context: %v", err)
		} else {
			for _, p := range passages {
				knowledgeContext = append(knowledgeContext, p.Content)
			}
		}
	}

	extractCtx, cancel := context.WithTimeout(ctx, o.timeouts.Extract)
	facts := o.extractor.Extract(extractCtx, working)
	cancel()

	// [STATE] Aggregating
	if info := verdict.UserInfo; !info.IsZero() {
		// Classifier-side PII extraction rides with the extractor facts.
		facts.UserInfo = mergePreferExtractor(facts.UserInfo, info)
	}
	aggregate.Merge(working, facts)
	o.logger.Printf("[STATE] Aggregating: symptoms=%d medications=%d history=%d",
		len(working.Symptoms), len(working.MedicationsTaken), len(working.MedicalHistory))

	// [STATE] Responding
	generateCtx, cancel := context.WithTimeout(ctx, o.timeouts.Generate)
	reply := o.generator.Generate(generateCtx, working, knowledgeContext, verdict)
	cancel()
	working.AppendTurn(store.RoleAssistant, reply)

	// [STATE] Done
	commit(state, working)
	o.logger.Printf("[STATE] Done: session=%s messages=%d", state.ID, len(state.Messages))

	return &TurnResult{
		State: state,
		Reply: reply,
	}
}

// commit copies the scratch record back onto the canonical one.
func commit(dst, src *store.ConversationState) {
	*dst = *src
}

// mergePreferExtractor fills gaps in the extractor's identity fields
// with the classifier's confidence-gated PII result.
func mergePreferExtractor(primary, secondary store.UserInfo) store.UserInfo {
	if primary.Name == "" {
		primary.Name = secondary.Name
	}
	if primary.Age == 0 {
		primary.Age = secondary.Age
	}
	if primary.Gender == "" {
		primary.Gender = secondary.Gender
	}
	if primary.Location == "" {
		primary.Location = secondary.Location
	}
	return primary
}

func refusalReply(reason, name string) string {
	greeting := ""
	if name != "" {
		greeting = name + ", "
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "that topic is outside what I can help with"
	}
	return fmt.Sprintf("I'm sorry, %sI can only help with health-related questions — %s. Is there anything about your health I can help you with?", greeting, lowerFirst(reason))
}

func technicalDifficultyReply(name string) string {
	if name != "" {
		return fmt.Sprintf("I'm sorry, %s — I ran into a technical issue on my end. Please try sending that again.", name)
	}
	return "I'm sorry — I ran into a technical issue on my end. Please try sending that again."
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToLower(string(r[0])) + string(r[1:])
}

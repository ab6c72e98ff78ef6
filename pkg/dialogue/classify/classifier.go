// Package classify decides whether a user turn is in scope for the
// medical assistant and whether it carries personal information.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"medical-assistant-be/pkg/llm"
	"medical-assistant-be/pkg/store"
)

// ContextTurns is the window of prior turns given to the classifier.
const ContextTurns = 6

// Confidence tiers for a classification verdict.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Policy is the configurable allow/deny topic boundary. The lists are
// representative categories fed to the model, not exact-match filters.
type Policy struct {
	AllowedTopics []string
	DeniedTopics  []string
}

// DefaultPolicy is intentionally permissive toward anything plausibly
// health-related: a false denial hurts a health assistant far more
// than a false allowance.
func DefaultPolicy() Policy {
	return Policy{
		AllowedTopics: []string{
			"health symptoms and conditions",
			"medication questions and side effects",
			"personal medical context and history",
			"greetings that lead into a health concern",
		},
		DeniedTopics: []string{
			"general chit-chat unrelated to health",
			"entertainment, jokes, games",
			"politics, sports, news",
			"homework or coding help",
		},
	}
}

// Result is the classifier verdict consumed by the orchestrator.
type Result struct {
	Allowed       bool   `json:"allowed"`
	Reason        string `json:"reason"`
	ContainsPII   bool   `json:"contains_pii"`
	Confidence    string `json:"confidence"`
	SuggestedTone string `json:"suggested_tone"`

	// UserInfo carries the confidence-gated identity extraction so the
	// caller does not need a second PII pass.
	UserInfo store.UserInfo `json:"-"`
}

// PIIExtractor is the sub-step invoked on every classified turn.
type PIIExtractor interface {
	Extract(ctx context.Context, message string, recent []store.Turn) store.UserInfo
}

// Classifier performs LLM-based scope classification with a fail-open
// failure policy.
type Classifier struct {
	llmProvider llm.LLMProvider
	pii         PIIExtractor
	policy      Policy
	logger      *log.Logger
}

func NewClassifier(llmProvider llm.LLMProvider, pii PIIExtractor, policy Policy, logger *log.Logger) *Classifier {
	if len(policy.AllowedTopics) == 0 && len(policy.DeniedTopics) == 0 {
		policy = DefaultPolicy()
	}
	return &Classifier{
		llmProvider: llmProvider,
		pii:         pii,
		policy:      policy,
		logger:      logger,
	}
}

// Classify reads the latest user turn plus a short context window and
// returns a verdict. If the classification call errors or returns
// unparsable output the turn is ALLOWED with low confidence: the
// system prefers attempting a response over refusing a possibly
// urgent medical message.
func (c *Classifier) Classify(ctx context.Context, state *store.ConversationState) *Result {
	message := state.LatestUserMessage
	recent := state.RecentTurns(ContextTurns)

	info := c.pii.Extract(ctx, message, recent)

	prompt := c.buildPrompt(message, recent)
	response, err := c.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.0))
	if err != nil {
		c.logger.Printf("[WARN] Classification call failed, failing open: %v", err)
		return failOpen(info)
	}

	result, err := parseResult(response)
	if err != nil {
		c.logger.Printf("[WARN] Classification parse failed, failing open: %v", err)
		return failOpen(info)
	}

	result.ContainsPII = result.ContainsPII || !info.IsZero()
	result.UserInfo = info

	c.logger.Printf("[CLASSIFY] allowed=%v confidence=%s pii=%v reason=%q",
		result.Allowed, result.Confidence, result.ContainsPII, result.Reason)

	return result
}

func failOpen(info store.UserInfo) *Result {
	return &Result{
		Allowed:     true,
		Reason:      "classification unavailable, proceeding",
		ContainsPII: !info.IsZero(),
		Confidence:  ConfidenceLow,
		UserInfo:    info,
	}
}

func (c *Classifier) buildPrompt(message string, recent []store.Turn) string {
	var prompt strings.Builder

	prompt.WriteString("You are a content gate for a medical assistant.\n")
	prompt.WriteString("You do NOT answer the user. You only decide whether the message is in scope.\n\n")

	prompt.WriteString("ALLOWED topics:\n")
	for _, topic := range c.policy.AllowedTopics {
		prompt.WriteString("- " + topic + "\n")
	}
	prompt.WriteString("\nDENIED topics:\n")
	for _, topic := range c.policy.DeniedTopics {
		prompt.WriteString("- " + topic + "\n")
	}
	prompt.WriteString("\nWhen a message is even plausibly health-related, ALLOW it. Only deny messages clearly outside the assistant's medical scope.\n\n")

	if len(recent) > 0 {
		prompt.WriteString("Recent conversation:\n")
		for _, turn := range recent {
			prompt.WriteString(fmt.Sprintf("%s: %s\n", turn.Role, turn.Content))
		}
		prompt.WriteString("\n")
	}

	prompt.WriteString("Latest user message:\n")
	prompt.WriteString(message)
	prompt.WriteString("\n\n")

	prompt.WriteString("Respond with ONLY valid JSON:\n")
	prompt.WriteString("{\n")
	prompt.WriteString("  \"allowed\": true,\n")
	prompt.WriteString("  \"reason\": \"brief explanation\",\n")
	prompt.WriteString("  \"contains_pii\": false,\n")
	prompt.WriteString("  \"confidence\": \"high|medium|low\",\n")
	prompt.WriteString("  \"suggested_tone\": \"empathetic|neutral|serious\"\n")
	prompt.WriteString("}")

	return prompt.String()
}

func parseResult(response string) (*Result, error) {
	jsonContent := extractJSON(response)
	if jsonContent == "" {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var result Result
	if err := json.Unmarshal([]byte(jsonContent), &result); err != nil {
		return nil, fmt.Errorf("JSON unmarshal failed: %w", err)
	}

	result.Confidence = strings.ToLower(strings.TrimSpace(result.Confidence))
	switch result.Confidence {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
	default:
		result.Confidence = ConfidenceMedium
	}

	return &result, nil
}

func extractJSON(response string) string {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")

	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return ""
	}

	return response[startIdx : endIdx+1]
}

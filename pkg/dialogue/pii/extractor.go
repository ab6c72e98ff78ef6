// Package pii conservatively infers identity fields from user messages.
package pii

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"medical-assistant-be/pkg/llm"
	"medical-assistant-be/pkg/store"
)

// ContextTurns is how many recent turns are consulted to disambiguate
// who a statement is about.
const ContextTurns = 4

// Confidence tiers for a single extracted field.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
	ConfidenceNone   = "none"
)

const (
	minNameLength = 2
	minAge        = 1
	maxAge        = 120
)

// fieldExtraction is the per-field shape the model is asked to produce.
type fieldExtraction struct {
	Value      string `json:"value"`
	Confidence string `json:"confidence"`
}

type extractionResult struct {
	Name     fieldExtraction `json:"name"`
	Age      fieldExtraction `json:"age"`
	Gender   fieldExtraction `json:"gender"`
	Location fieldExtraction `json:"location"`
}

// Extractor performs LLM-based, confidence-gated identity extraction.
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

// Extract infers identity fields the user states about THEMSELF in the
// given message. Third-party mentions never populate a field. Only
// high/medium confidence extractions survive the gate. On any service
// or parse failure the result is empty; Extract never returns an error.
func (e *Extractor) Extract(ctx context.Context, message string, recent []store.Turn) store.UserInfo {
	prompt := e.buildPrompt(message, recent)

	response, err := e.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.0))
	if err != nil {
		e.logger.Printf("[WARN] PII extraction call failed: %v", err)
		return store.UserInfo{}
	}

	result, err := parseResult(response)
	if err != nil {
		e.logger.Printf("[WARN] PII extraction parse failed: %v", err)
		return store.UserInfo{}
	}

	info := gate(result)
	if !info.IsZero() {
		e.logger.Printf("[PII] Extracted identity fields: name=%q age=%d gender=%q location=%q",
			info.Name, info.Age, info.Gender, info.Location)
	}

	return info
}

func (e *Extractor) buildPrompt(message string, recent []store.Turn) string {
	var prompt strings.Builder

	prompt.WriteString("You extract personal details a patient states ABOUT THEMSELF.\n")
	prompt.WriteString("You do NOT answer questions. You only extract fields.\n\n")

	prompt.WriteString("Rules:\n")
	prompt.WriteString("- Extract a field ONLY when the user unambiguously states it about themself, in first person.\n")
	prompt.WriteString("- Statements about OTHER people (my dad, my friend, her age) must NOT populate any field.\n")
	prompt.WriteString("- When in doubt, use confidence \"none\" and an empty value.\n")
	prompt.WriteString("- confidence is one of: high, medium, low, none.\n\n")

	if len(recent) > 0 {
		prompt.WriteString("Recent conversation (context only, do not extract from assistant turns):\n")
		start := len(recent) - ContextTurns
		if start < 0 {
			start = 0
		}
		for _, turn := range recent[start:] {
			prompt.WriteString(fmt.Sprintf("%s: %s\n", turn.Role, turn.Content))
		}
		prompt.WriteString("\n")
	}

	prompt.WriteString("Latest user message:\n")
	prompt.WriteString(message)
	prompt.WriteString("\n\n")

	prompt.WriteString("Respond with ONLY valid JSON:\n")
	prompt.WriteString("{\n")
	prompt.WriteString("  \"name\": {\"value\": \"\", \"confidence\": \"none\"},\n")
	prompt.WriteString("  \"age\": {\"value\": \"\", \"confidence\": \"none\"},\n")
	prompt.WriteString("  \"gender\": {\"value\": \"\", \"confidence\": \"none\"},\n")
	prompt.WriteString("  \"location\": {\"value\": \"\", \"confidence\": \"none\"}\n")
	prompt.WriteString("}")

	return prompt.String()
}

func parseResult(response string) (*extractionResult, error) {
	jsonContent := extractJSON(response)
	if jsonContent == "" {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var result extractionResult
	if err := json.Unmarshal([]byte(jsonContent), &result); err != nil {
		return nil, fmt.Errorf("JSON unmarshal failed: %w", err)
	}

	return &result, nil
}

// gate applies the confidence and validity rules to a parsed result.
func gate(result *extractionResult) store.UserInfo {
	var info store.UserInfo

	if confident(result.Name.Confidence) {
		name := strings.TrimSpace(result.Name.Value)
		if len([]rune(name)) >= minNameLength {
			info.Name = name
		}
	}

	if confident(result.Age.Confidence) {
		var age int
		if _, err := fmt.Sscanf(strings.TrimSpace(result.Age.Value), "%d", &age); err == nil {
			if age >= minAge && age <= maxAge {
				info.Age = age
			}
		}
	}

	if confident(result.Gender.Confidence) {
		if gender := strings.TrimSpace(result.Gender.Value); gender != "" {
			info.Gender = strings.ToLower(gender)
		}
	}

	if confident(result.Location.Confidence) {
		if location := strings.TrimSpace(result.Location.Value); location != "" {
			info.Location = location
		}
	}

	return info
}

func confident(tier string) bool {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case ConfidenceHigh, ConfidenceMedium:
		return true
	default:
		return false
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

// Package followup generates intake follow-up questions for a
// reported set of symptoms.
package followup

import (
	"context"
	"fmt"
	"log"
	"strings"

	"medical-assistant-be/pkg/llm"
)

// MaxQuestions caps how many follow-up questions a single call yields.
const MaxQuestions = 5

// Generator asks the model for clarifying questions and parses the
// list-marker lines out of its free-form output.
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

// Generate returns follow-up questions for the given symptoms. A
// generation failure yields an error; the transport layer decides how
// to surface it.
func (g *Generator) Generate(ctx context.Context, symptoms, userInfo string) ([]string, error) {
	var prompt strings.Builder
	prompt.WriteString("You are a physician preparing intake questions.\n")
	prompt.WriteString("The patient reported: " + symptoms + "\n")
	if strings.TrimSpace(userInfo) != "" {
		prompt.WriteString("Known patient info: " + userInfo + "\n")
	}
	prompt.WriteString(fmt.Sprintf("\nWrite up to %d short follow-up questions that narrow down the cause.\n", MaxQuestions))
	prompt.WriteString("Output ONLY the questions, one per line, each starting with \"- \".")

	response, err := g.llmProvider.Generate(ctx, prompt.String(), llm.WithTemperature(0.3))
	if err != nil {
		return nil, fmt.Errorf("follow-up generation failed: %w", err)
	}

	questions := ParseListLines(response)
	g.logger.Printf("[FOLLOWUP] Parsed %d questions", len(questions))

	return questions, nil
}

// ParseListLines extracts lines beginning with a list marker ("-",
// "*", "•", or "1."-style numbering) and strips the marker.
func ParseListLines(text string) []string {
	var items []string

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		item := ""
		switch {
		case strings.HasPrefix(line, "- "):
			item = line[2:]
		case strings.HasPrefix(line, "* "):
			item = line[2:]
		case strings.HasPrefix(line, "• "):
			item = strings.TrimPrefix(line, "• ")
		default:
			if stripped, ok := stripNumbering(line); ok {
				item = stripped
			}
		}

		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		items = append(items, item)
		if len(items) == MaxQuestions {
			break
		}
	}

	return items
}

// stripNumbering handles "1. question" and "1) question" markers.
func stripNumbering(line string) (string, bool) {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(line) {
		return "", false
	}
	if line[i] != '.' && line[i] != ')' {
		return "", false
	}
	return line[i+1:], true
}

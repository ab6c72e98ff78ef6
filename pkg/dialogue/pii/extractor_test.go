package pii

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

func TestExtractHighConfidenceFields(t *testing.T) {
	provider := &llmtest.Provider{
		Replies: []string{`{
			"name": {"value": "Aymaan", "confidence": "high"},
			"age": {"value": "24", "confidence": "high"},
			"gender": {"value": "Male", "confidence": "medium"},
			"location": {"value": "", "confidence": "none"}
		}`},
	}

	info := newTestExtractor(provider).Extract(context.Background(), "I'm Aymaan, 24, male", nil)

	if info.Name != "Aymaan" {
		t.Errorf("expected name Aymaan, got %q", info.Name)
	}
	if info.Age != 24 {
		t.Errorf("expected age 24, got %d", info.Age)
	}
	if info.Gender != "male" {
		t.Errorf("expected gender male, got %q", info.Gender)
	}
	if info.Location != "" {
		t.Errorf("expected empty location, got %q", info.Location)
	}
}

func TestExtractDiscardsLowConfidence(t *testing.T) {
	provider := &llmtest.Provider{
		Replies: []string{`{
			"name": {"value": "Sam", "confidence": "low"},
			"age": {"value": "30", "confidence": "none"},
			"gender": {"value": "", "confidence": "none"},
			"location": {"value": "Jakarta", "confidence": "low"}
		}`},
	}

	info := newTestExtractor(provider).Extract(context.Background(), "maybe sam mentioned something", nil)

	if !info.IsZero() {
		t.Errorf("expected empty UserInfo for low-confidence extraction, got %+v", info)
	}
}

func TestExtractValidatesAgeRange(t *testing.T) {
	tests := []struct {
		name    string
		age     string
		wantAge int
	}{
		{"valid age", "45", 45},
		{"zero age discarded", "0", 0},
		{"negative discarded", "-3", 0},
		{"over 120 discarded", "200", 0},
		{"non-numeric discarded", "forty", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &llmtest.Provider{
				Replies: []string{`{"age": {"value": "` + tt.age + `", "confidence": "high"}}`},
			}
			info := newTestExtractor(provider).Extract(context.Background(), "msg", nil)
			if info.Age != tt.wantAge {
				t.Errorf("age %q: got %d, want %d", tt.age, info.Age, tt.wantAge)
			}
		})
	}
}

func TestExtractDiscardsShortName(t *testing.T) {
	provider := &llmtest.Provider{
		Replies: []string{`{"name": {"value": "A", "confidence": "high"}}`},
	}

	info := newTestExtractor(provider).Extract(context.Background(), "call me A", nil)
	if info.Name != "" {
		t.Errorf("expected single-letter name to be discarded, got %q", info.Name)
	}
}

func TestExtractEmptyOnServiceFailure(t *testing.T) {
	provider := &llmtest.Provider{Err: errors.New("connection refused")}

	info := newTestExtractor(provider).Extract(context.Background(), "I am 24", nil)
	if !info.IsZero() {
		t.Errorf("expected empty UserInfo on service failure, got %+v", info)
	}
}

func TestExtractEmptyOnGarbageOutput(t *testing.T) {
	provider := &llmtest.Provider{Replies: []string{"sorry, I can't do that"}}

	info := newTestExtractor(provider).Extract(context.Background(), "I am 24", nil)
	if !info.IsZero() {
		t.Errorf("expected empty UserInfo on unparsable output, got %+v", info)
	}
}

func TestExtractPassesRecentContext(t *testing.T) {
	provider := &llmtest.Provider{Replies: []string{`{}`}}
	recent := []store.Turn{
		{Role: store.RoleUser, Content: "hello"},
		{Role: store.RoleAssistant, Content: "hi, how can I help?"},
	}

	newTestExtractor(provider).Extract(context.Background(), "I have a headache", recent)

	if provider.CallCount() != 1 {
		t.Fatalf("expected one provider call, got %d", provider.CallCount())
	}
	prompt := provider.Calls[0][0].Content
	if !strings.Contains(prompt, "hello") || !strings.Contains(prompt, "I have a headache") {
		t.Errorf("prompt missing context or message:\n%s", prompt)
	}
}

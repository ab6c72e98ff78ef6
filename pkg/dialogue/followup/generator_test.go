package followup

import (
	"context"
	"errors"
	"io"
	"log"
	"reflect"
	"testing"

	"medical-assistant-be/pkg/llm/llmtest"
)

func TestParseListLines(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "dash markers",
			text: "Here are some questions:\n- How long have you had the cough?\n- Any fever?\n\nHope that helps!",
			want: []string{"How long have you had the cough?", "Any fever?"},
		},
		{
			name: "numbered markers",
			text: "1. Any fever?\n2) Any chills?",
			want: []string{"Any fever?", "Any chills?"},
		},
		{
			name: "asterisk and bullet markers",
			text: "* Any fever?\n• Any chills?",
			want: []string{"Any fever?", "Any chills?"},
		},
		{
			name: "no markers yields nothing",
			text: "I cannot generate questions right now.",
			want: nil,
		},
		{
			name: "blank and marker-only lines skipped",
			text: "- \n-\n\n- ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseListLines(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseListLines() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseListLinesCapsAtMax(t *testing.T) {
	text := "- q1\n- q2\n- q3\n- q4\n- q5\n- q6\n- q7"
	got := ParseListLines(text)
	if len(got) != MaxQuestions {
		t.Errorf("expected at most %d questions, got %d", MaxQuestions, len(got))
	}
}

func TestGenerate(t *testing.T) {
	provider := &llmtest.Provider{
		Replies: []string{"- How long have you had symptoms?\n- Any medication so far?"},
	}
	g := NewGenerator(provider, log.New(io.Discard, "", 0))

	questions, err := g.Generate(context.Background(), "dry cough", "age 24")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %v", questions)
	}
}

func TestGeneratePropagatesFailure(t *testing.T) {
	provider := &llmtest.Provider{Err: errors.New("model down")}
	g := NewGenerator(provider, log.New(io.Discard, "", 0))

	if _, err := g.Generate(context.Background(), "cough", ""); err == nil {
		t.Fatal("expected error when generation fails")
	}
}

package classify

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"medical-assistant-be/pkg/llm/llmtest"
	"medical-assistant-be/pkg/store"
)

type stubPII struct {
	info store.UserInfo
}

func (s *stubPII) Extract(ctx context.Context, message string, recent []store.Turn) store.UserInfo {
	return s.info
}

func newState(message string) *store.ConversationState {
	state := store.NewConversationState("test-session")
	state.AppendTurn(store.RoleUser, message)
	return state
}

func newTestClassifier(p *llmtest.Provider, pii PIIExtractor) *Classifier {
	return NewClassifier(p, pii, DefaultPolicy(), log.New(io.Discard, "", 0))
}

func TestClassifyAllowsMedicalMessage(t *testing.T) {
	provider := &llmtest.Provider{
		Replies: []string{`{"allowed": true, "reason": "symptom description", "contains_pii": false, "confidence": "high", "suggested_tone": "empathetic"}`},
	}

	result := newTestClassifier(provider, &stubPII{}).Classify(context.Background(), newState("I have a dry cough"))

	if !result.Allowed {
		t.Fatal("expected medical message to be allowed")
	}
	if result.Confidence != ConfidenceHigh {
		t.Errorf("expected high confidence, got %s", result.Confidence)
	}
}

func TestClassifyDeniesOffTopicMessage(t *testing.T) {
	provider := &llmtest.Provider{
		Replies: []string{`{"allowed": false, "reason": "entertainment request, not health-related", "confidence": "high"}`},
	}

	result := newTestClassifier(provider, &stubPII{}).Classify(context.Background(), newState("tell me a joke"))

	if result.Allowed {
		t.Fatal("expected off-topic message to be denied")
	}
	if result.Reason == "" {
		t.Error("denied verdict must carry a reason")
	}
}

func TestClassifyFailsOpenOnServiceError(t *testing.T) {
	provider := &llmtest.Provider{Err: errors.New("timeout")}

	result := newTestClassifier(provider, &stubPII{}).Classify(context.Background(), newState("I feel dizzy"))

	if !result.Allowed {
		t.Fatal("classification failure must fail open")
	}
	if result.Confidence != ConfidenceLow {
		t.Errorf("fail-open verdict must carry low confidence, got %s", result.Confidence)
	}
}

func TestClassifyFailsOpenOnGarbageOutput(t *testing.T) {
	provider := &llmtest.Provider{Replies: []string{"I think this is probably fine?"}}

	result := newTestClassifier(provider, &stubPII{}).Classify(context.Background(), newState("my chest hurts"))

	if !result.Allowed {
		t.Fatal("unparsable classification must fail open")
	}
	if result.Confidence != ConfidenceLow {
		t.Errorf("expected low confidence, got %s", result.Confidence)
	}
}

func TestClassifyFoldsInPIIPresence(t *testing.T) {
	provider := &llmtest.Provider{
		Replies: []string{`{"allowed": true, "reason": "ok", "contains_pii": false, "confidence": "high"}`},
	}
	pii := &stubPII{info: store.UserInfo{Name: "Aymaan", Age: 24}}

	result := newTestClassifier(provider, pii).Classify(context.Background(), newState("I'm Aymaan, 24, with a cough"))

	if !result.ContainsPII {
		t.Error("expected ContainsPII=true when the extractor found identity fields")
	}
	if result.UserInfo.Age != 24 {
		t.Errorf("expected extracted UserInfo to ride along, got %+v", result.UserInfo)
	}
}

func TestClassifyNormalizesUnknownConfidence(t *testing.T) {
	provider := &llmtest.Provider{
		Replies: []string{`{"allowed": true, "reason": "ok", "confidence": "VERY SURE"}`},
	}

	result := newTestClassifier(provider, &stubPII{}).Classify(context.Background(), newState("headache"))

	if result.Confidence != ConfidenceMedium {
		t.Errorf("unknown confidence should normalize to medium, got %s", result.Confidence)
	}
}

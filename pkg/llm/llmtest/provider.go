// Package llmtest provides a scriptable in-memory LLMProvider for tests.
package llmtest

import (
	"context"
	"sync"

	"medical-assistant-be/pkg/llm"
)

// Provider returns canned replies in order, or a fixed error.
type Provider struct {
	mu      sync.Mutex
	Replies []string
	Err     error

	// ChatFunc, when set, overrides the canned behavior entirely.
	ChatFunc func(ctx context.Context, history []llm.Message) (string, error)

	Calls [][]llm.Message
	idx   int
}

var _ llm.LLMProvider = &Provider{}

func (p *Provider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Calls = append(p.Calls, history)

	if p.ChatFunc != nil {
		return p.ChatFunc(ctx, history)
	}
	if p.Err != nil {
		return "", p.Err
	}
	if len(p.Replies) == 0 {
		return "", nil
	}
	reply := p.Replies[p.idx%len(p.Replies)]
	p.idx++
	return reply, nil
}

func (p *Provider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

// CallCount reports how many Chat/Generate calls were made.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

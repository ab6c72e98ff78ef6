// Package knowledge performs semantic retrieval over the medical
// document index.
package knowledge

import (
	"context"
	"fmt"
	"log"

	"medical-assistant-be/pkg/embedding"
)

// Passage is one retrieved snippet of reference material.
type Passage struct {
	ID      string
	Title   string
	Content string
	Score   float64
}

// SimilaritySearcher is the vector-search contract satisfied by the
// embedding repository. The index is read-only and safely concurrent.
type SimilaritySearcher interface {
	SearchSimilarWithScore(ctx context.Context, vector []float32, limit int, threshold float64) ([]Passage, error)
}

// Config encapsulates retrieval parameters.
type Config struct {
	DBThreshold    float64
	LogicThreshold float64
	TopK           int
}

func DefaultConfig() Config {
	return Config{
		DBThreshold:    0.0,
		LogicThreshold: 0.30,
		TopK:           5,
	}
}

// Retriever embeds a query and searches the document index.
type Retriever struct {
	embeddingProvider embedding.EmbeddingProvider
	searcher          SimilaritySearcher
	config            Config
	logger            *log.Logger
}

func NewRetriever(
	embeddingProvider embedding.EmbeddingProvider,
	searcher SimilaritySearcher,
	config Config,
	logger *log.Logger,
) *Retriever {
	if config.TopK <= 0 {
		config = DefaultConfig()
	}
	return &Retriever{
		embeddingProvider: embeddingProvider,
		searcher:          searcher,
		config:            config,
		logger:            logger,
	}
}

// Retrieve returns the passages most relevant to the query, filtered
// by the logic threshold. Errors propagate to the caller, which treats
// retrieval as best-effort.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]Passage, error) {
	embeddingRes, err := r.embeddingProvider.Generate(query, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}

	scored, err := r.searcher.SearchSimilarWithScore(
		ctx,
		embeddingRes.Embedding.Values,
		r.config.TopK,
		r.config.DBThreshold,
	)
	if err != nil {
		r.logger.Printf("[ERROR] Vector search failed: %v", err)
		return nil, err
	}

	passages := make([]Passage, 0, len(scored))
	for _, p := range scored {
		if p.Score < r.config.LogicThreshold {
			continue
		}
		passages = append(passages, p)
	}

	r.logger.Printf("[RETRIEVAL] %d/%d passages above threshold %.2f",
		len(passages), len(scored), r.config.LogicThreshold)

	return passages, nil
}

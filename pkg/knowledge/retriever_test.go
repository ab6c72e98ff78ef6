package knowledge

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medical-assistant-be/pkg/embedding"
)

type stubEmbedder struct {
	vector []float32
	err    error
}

func (s *stubEmbedder) Generate(text string, taskType string) (*embedding.EmbeddingResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: s.vector},
	}, nil
}

type stubSearcher struct {
	passages []Passage
	err      error
	gotLimit int
}

func (s *stubSearcher) SearchSimilarWithScore(ctx context.Context, vector []float32, limit int, threshold float64) ([]Passage, error) {
	s.gotLimit = limit
	return s.passages, s.err
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestRetrieveFiltersByLogicThreshold(t *testing.T) {
	searcher := &stubSearcher{passages: []Passage{
		{ID: "1", Title: "Fever care", Score: 0.82},
		{ID: "2", Title: "Marginal", Score: 0.31},
		{ID: "3", Title: "Noise", Score: 0.12},
	}}
	r := NewRetriever(&stubEmbedder{vector: []float32{0.1, 0.2}}, searcher, DefaultConfig(), discardLogger())

	passages, err := r.Retrieve(context.Background(), "how do I treat a fever")
	require.NoError(t, err)
	require.Len(t, passages, 2)
	assert.Equal(t, "Fever care", passages[0].Title)
	assert.Equal(t, "Marginal", passages[1].Title)
	assert.Equal(t, DefaultConfig().TopK, searcher.gotLimit)
}

func TestRetrieveEmbeddingFailurePropagates(t *testing.T) {
	r := NewRetriever(&stubEmbedder{err: errors.New("provider down")}, &stubSearcher{}, DefaultConfig(), discardLogger())

	_, err := r.Retrieve(context.Background(), "chest pain")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding generation failed")
}

func TestRetrieveSearchFailurePropagates(t *testing.T) {
	searcher := &stubSearcher{err: errors.New("connection refused")}
	r := NewRetriever(&stubEmbedder{vector: []float32{0.5}}, searcher, DefaultConfig(), discardLogger())

	_, err := r.Retrieve(context.Background(), "chest pain")
	require.Error(t, err)
}

func TestNewRetrieverRejectsZeroTopK(t *testing.T) {
	r := NewRetriever(&stubEmbedder{}, &stubSearcher{}, Config{}, discardLogger())
	assert.Equal(t, DefaultConfig().TopK, r.config.TopK)
}

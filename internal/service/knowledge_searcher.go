package service

import (
	"context"

	"medical-assistant-be/internal/repository/contract"
	"medical-assistant-be/internal/repository/specification"
	"medical-assistant-be/internal/repository/unitofwork"
	"medical-assistant-be/pkg/knowledge"

	"github.com/google/uuid"
)

// knowledgeSearcher bridges the vector repository to the retriever's
// searcher contract, resolving document titles for the passages.
type knowledgeSearcher struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewKnowledgeSearcher(uowFactory unitofwork.RepositoryFactory) knowledge.SimilaritySearcher {
	return &knowledgeSearcher{uowFactory: uowFactory}
}

func (s *knowledgeSearcher) SearchSimilarWithScore(ctx context.Context, vector []float32, limit int, threshold float64) ([]knowledge.Passage, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	scored, err := uow.KnowledgeEmbeddingRepository().SearchSimilarWithScore(ctx, vector, limit, threshold)
	if err != nil {
		return nil, err
	}
	if len(scored) == 0 {
		return nil, nil
	}

	titles, err := s.documentTitles(ctx, uow, scored)
	if err != nil {
		// Passages are still usable without titles.
		titles = map[uuid.UUID]string{}
	}

	passages := make([]knowledge.Passage, 0, len(scored))
	for _, e := range scored {
		passages = append(passages, knowledge.Passage{
			ID:      e.Embedding.Id.String(),
			Title:   titles[e.Embedding.DocumentId],
			Content: e.Embedding.Document,
			Score:   e.Similarity,
		})
	}

	return passages, nil
}

func (s *knowledgeSearcher) documentTitles(ctx context.Context, uow unitofwork.UnitOfWork, scored []*contract.ScoredKnowledgeEmbedding) (map[uuid.UUID]string, error) {
	seen := make(map[uuid.UUID]bool)
	ids := make([]uuid.UUID, 0, len(scored))
	for _, e := range scored {
		if !seen[e.Embedding.DocumentId] {
			seen[e.Embedding.DocumentId] = true
			ids = append(ids, e.Embedding.DocumentId)
		}
	}

	documents, err := uow.KnowledgeDocumentRepository().FindAll(ctx, specification.ByIDs{IDs: ids})
	if err != nil {
		return nil, err
	}

	titles := make(map[uuid.UUID]string, len(documents))
	for _, d := range documents {
		titles[d.Id] = d.Title
	}
	return titles, nil
}

package dto

import "github.com/google/uuid"

type CreateKnowledgeDocumentRequest struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
	Source  string `json:"source"`
}

type CreateKnowledgeDocumentResponse struct {
	Id uuid.UUID `json:"id"`
}

// PublishEmbedDocumentMessage is the payload queued for the embedding
// consumer when a knowledge document is created or updated.
type PublishEmbedDocumentMessage struct {
	DocumentId uuid.UUID `json:"document_id"`
}

package service

import (
	"context"
	"encoding/json"
	"time"

	"medical-assistant-be/internal/dto"
	"medical-assistant-be/internal/entity"
	"medical-assistant-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// IKnowledgeService manages the medical reference corpus backing
// retrieval. Documents are embedded asynchronously by the consumer.
type IKnowledgeService interface {
	Create(ctx context.Context, req *dto.CreateKnowledgeDocumentRequest) (*dto.CreateKnowledgeDocumentResponse, error)
}

type knowledgeService struct {
	uowFactory       unitofwork.RepositoryFactory
	publisherService IPublisherService
}

func NewKnowledgeService(
	uowFactory unitofwork.RepositoryFactory,
	publisherService IPublisherService,
) IKnowledgeService {
	return &knowledgeService{
		uowFactory:       uowFactory,
		publisherService: publisherService,
	}
}

func (ks *knowledgeService) Create(ctx context.Context, req *dto.CreateKnowledgeDocumentRequest) (*dto.CreateKnowledgeDocumentResponse, error) {
	uow := ks.uowFactory.NewUnitOfWork(ctx)

	document := entity.KnowledgeDocument{
		Id:        uuid.New(),
		Title:     req.Title,
		Content:   req.Content,
		Source:    req.Source,
		CreatedAt: time.Now(),
	}

	if err := uow.KnowledgeDocumentRepository().Create(ctx, &document); err != nil {
		return nil, err
	}

	msgPayload := dto.PublishEmbedDocumentMessage{
		DocumentId: document.Id,
	}
	msgJson, err := json.Marshal(msgPayload)
	if err != nil {
		return nil, err
	}

	if err := ks.publisherService.Publish(ctx, msgJson); err != nil {
		return nil, err
	}

	return &dto.CreateKnowledgeDocumentResponse{Id: document.Id}, nil
}

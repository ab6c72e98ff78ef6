package service

import (
	"context"
	"fmt"
	"time"

	"medical-assistant-be/internal/dto"
	"medical-assistant-be/internal/entity"
	"medical-assistant-be/internal/repository/specification"
	"medical-assistant-be/internal/repository/unitofwork"
	"medical-assistant-be/pkg/dialogue/session"
	"medical-assistant-be/pkg/events"
	pktNats "medical-assistant-be/pkg/nats"
	"medical-assistant-be/pkg/store"

	"github.com/google/uuid"
)

// firstMessagesLimit caps the sidebar preview window.
const firstMessagesLimit = 3

type IThreadService interface {
	Create(ctx context.Context, userId uuid.UUID, req *dto.CreateThreadRequest) (*dto.CreateThreadResponse, error)
	GetAll(ctx context.Context, userId uuid.UUID) ([]*dto.ThreadResponse, error)
	GetMessages(ctx context.Context, userId uuid.UUID, threadId uuid.UUID) ([]*dto.ThreadMessageResponse, error)
	GetFirstUserMessages(ctx context.Context, userId uuid.UUID, threadId uuid.UUID) (*dto.ThreadPreviewResponse, error)
	Delete(ctx context.Context, userId uuid.UUID, threadId uuid.UUID) error
}

type threadService struct {
	uowFactory     unitofwork.RepositoryFactory
	sessions       *session.Manager
	eventPublisher *pktNats.Publisher
}

func NewThreadService(
	uowFactory unitofwork.RepositoryFactory,
	sessions *session.Manager,
	eventPublisher *pktNats.Publisher,
) IThreadService {
	return &threadService{
		uowFactory:     uowFactory,
		sessions:       sessions,
		eventPublisher: eventPublisher,
	}
}

func (ts *threadService) Create(ctx context.Context, userId uuid.UUID, req *dto.CreateThreadRequest) (*dto.CreateThreadResponse, error) {
	uow := ts.uowFactory.NewUnitOfWork(ctx)

	title := req.Title
	if title == "" {
		title = "New consultation"
	}

	thread := entity.ChatThread{
		Id:        uuid.New(),
		UserId:    userId,
		Title:     title,
		CreatedAt: time.Now(),
	}
	if err := uow.ChatThreadRepository().Create(ctx, &thread); err != nil {
		return nil, err
	}

	if ts.eventPublisher != nil {
		evt := events.BaseEvent{
			Type: "THREAD_CREATED",
			Data: map[string]interface{}{
				"thread_id": thread.Id,
				"user_id":   userId,
				"title":     thread.Title,
			},
			OccurredAt: time.Now(),
		}
		if err := ts.eventPublisher.Publish(ctx, evt); err != nil {
			fmt.Printf("[WARN] Failed to publish THREAD_CREATED event: %v\n", err)
		}
	}

	return &dto.CreateThreadResponse{Id: thread.Id}, nil
}

func (ts *threadService) GetAll(ctx context.Context, userId uuid.UUID) ([]*dto.ThreadResponse, error) {
	uow := ts.uowFactory.NewUnitOfWork(ctx)

	threads, err := uow.ChatThreadRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	response := make([]*dto.ThreadResponse, 0, len(threads))
	for _, t := range threads {
		response = append(response, &dto.ThreadResponse{
			Id:        t.Id,
			Title:     t.Title,
			CreatedAt: t.CreatedAt,
			UpdatedAt: t.UpdatedAt,
		})
	}

	return response, nil
}

func (ts *threadService) GetMessages(ctx context.Context, userId uuid.UUID, threadId uuid.UUID) ([]*dto.ThreadMessageResponse, error) {
	uow := ts.uowFactory.NewUnitOfWork(ctx)

	thread, err := uow.ChatThreadRepository().FindOne(ctx,
		specification.ByID{ID: threadId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if thread == nil {
		return nil, ErrThreadNotFound
	}

	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByThreadID{ThreadID: threadId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	response := make([]*dto.ThreadMessageResponse, 0, len(messages))
	for _, m := range messages {
		response = append(response, &dto.ThreadMessageResponse{
			Id:        m.Id,
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}

	return response, nil
}

// GetFirstUserMessages returns the opening user messages of a thread
// for the sidebar preview.
func (ts *threadService) GetFirstUserMessages(ctx context.Context, userId uuid.UUID, threadId uuid.UUID) (*dto.ThreadPreviewResponse, error) {
	uow := ts.uowFactory.NewUnitOfWork(ctx)

	thread, err := uow.ChatThreadRepository().FindOne(ctx,
		specification.ByID{ID: threadId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if thread == nil {
		return nil, ErrThreadNotFound
	}

	messages, err := uow.ChatMessageRepository().FirstUserMessages(ctx, threadId, firstMessagesLimit)
	if err != nil {
		return nil, err
	}

	preview := &dto.ThreadPreviewResponse{
		ThreadId: threadId,
		Messages: make([]string, 0, len(messages)),
	}
	for _, m := range messages {
		if m.Role != store.RoleUser {
			continue
		}
		preview.Messages = append(preview.Messages, m.Content)
	}

	return preview, nil
}

func (ts *threadService) Delete(ctx context.Context, userId uuid.UUID, threadId uuid.UUID) error {
	uow := ts.uowFactory.NewUnitOfWork(ctx)

	thread, err := uow.ChatThreadRepository().FindOne(ctx,
		specification.ByID{ID: threadId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return err
	}
	if thread == nil {
		return ErrThreadNotFound
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChatThreadRepository().Delete(ctx, threadId); err != nil {
		return err
	}
	if err := uow.ChatMessageRepository().DeleteByThreadId(ctx, threadId); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return err
	}

	ts.sessions.Clear(threadId.String())
	return nil
}

package contract

import (
	"context"

	"github.com/google/uuid"

	"medical-assistant-be/internal/entity"
	"medical-assistant-be/internal/repository/specification"
)

type ChatMessageRepository interface {
	Create(ctx context.Context, message *entity.ChatMessage) error
	Update(ctx context.Context, message *entity.ChatMessage) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByThreadId(ctx context.Context, threadId uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatMessage, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// FirstUserMessages returns the earliest user-authored messages of a
	// thread, oldest first, capped at limit.
	FirstUserMessages(ctx context.Context, threadId uuid.UUID, limit int) ([]*entity.ChatMessage, error)
}
